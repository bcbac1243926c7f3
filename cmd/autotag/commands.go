package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/poiesic/autotag"
	"github.com/poiesic/autotag/core"
	"github.com/poiesic/autotag/ingestion"
	"github.com/poiesic/autotag/retag"
	"github.com/poiesic/autotag/storage"
	"github.com/poiesic/autotag/tagging"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one FILE is required")
	}
	cfg := configFrom(c)

	var (
		inputs []ingestion.Input
		errs   []error
	)
	for _, path := range c.Args().Slice() {
		in, err := ingestion.ReadFile(path, cfg.Ingestion.MaxFileSize, cfg.Ingestion.AllowedExtensions)
		if err != nil {
			fmt.Fprintf(c.App.ErrWriter, "Skipping %s: %v\n", path, err)
			errs = append(errs, err)
			continue
		}
		inputs = append(inputs, *in)
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no files ingested: %w", errors.Join(errs...))
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	pipeline, err := db.NewIngestionPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Release()

	results, err := pipeline.IngestBatch(c.Context, inputs)
	if err != nil {
		errs = append(errs, err)
	}
	for _, result := range results {
		if result != nil {
			printIngestResult(c.App.Writer, result)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("ingestion finished with errors: %w", errors.Join(errs...))
	}
	return nil
}

func extractCommand(c *cli.Context) error {
	cfg := configFrom(c)

	var content string
	switch {
	case c.NArg() > 1:
		return fmt.Errorf("extract takes at most one FILE")
	case c.NArg() == 1:
		in, err := ingestion.ReadFile(c.Args().First(), cfg.Ingestion.MaxFileSize, cfg.Ingestion.AllowedExtensions)
		if err != nil {
			return err
		}
		content = in.Content
	default:
		if f, ok := c.App.Reader.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return fmt.Errorf("no input: pass a FILE or pipe text on stdin")
		}
		data, err := io.ReadAll(io.LimitReader(c.App.Reader, cfg.Ingestion.MaxFileSize+1))
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		if int64(len(data)) > cfg.Ingestion.MaxFileSize {
			return fmt.Errorf("%w: stdin exceeds %d bytes", ingestion.ErrFileTooLarge, cfg.Ingestion.MaxFileSize)
		}
		content = strings.ToValidUTF8(string(data), "")
	}
	if strings.TrimSpace(content) == "" {
		return ingestion.ErrEmptyFile
	}

	recognizer := autotag.LoadRecognizer(cfg.EntityConfig(), slog.Default())
	tagger, err := tagging.NewTagger(append(cfg.TaggerOptions(), tagging.WithRecognizer(recognizer))...)
	if err != nil {
		return err
	}

	result, err := tagger.Tag(c.Context, content, []string{content})
	if err != nil {
		if !errors.Is(err, core.ErrModelUnavailable) || result == nil {
			return err
		}
		fmt.Fprintf(c.App.ErrWriter, "Warning: %v; showing keyword tags only\n", err)
	}
	printExtraction(c.App.Writer, result)
	return nil
}

func showCommand(c *cli.Context) error {
	id, err := parseIDArg(c, 0)
	if err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	doc, err := db.DocumentWithTags(c.Context, id)
	if err != nil {
		return err
	}
	printTaggedDocument(c.App.Writer, doc, c.Bool("content"))
	return nil
}

func listCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	page, err := db.DocumentRepository().ListDocuments(c.Context, c.Int("page"), c.Int("per-page"))
	if err != nil {
		return err
	}
	printDocumentPage(c.App.Writer, page)
	return nil
}

func similarCommand(c *cli.Context) error {
	cfg := configFrom(c)
	threshold := cfg.NLP.SimilarityThreshold
	if c.IsSet("threshold") {
		threshold = c.Float64("threshold")
	}
	limit := cfg.NLP.SimilarLimit
	if c.IsSet("limit") {
		limit = c.Int("limit")
	}

	text := c.String("text")
	var id core.ID
	if text == "" {
		var err error
		if id, err = parseIDArg(c, 0); err != nil {
			return err
		}
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	searcher, err := db.NewSearcher()
	if err != nil {
		return err
	}

	var hits []*core.SimilarDocument
	if text != "" {
		hits, err = searcher.FindSimilarText(c.Context, text, threshold, limit)
	} else {
		hits, err = searcher.FindSimilar(c.Context, id, threshold, limit)
	}
	if err != nil {
		return err
	}
	printSimilar(c.App.Writer, hits)
	return nil
}

func tagsAddCommand(c *cli.Context) error {
	id, names, err := parseTagArgs(c)
	if err != nil {
		return err
	}

	add := make([]autotag.TagInput, len(names))
	for i, name := range names {
		add[i] = autotag.TagInput{
			Name:       name,
			Type:       core.TagType(c.String("type")),
			Confidence: c.Float64("confidence"),
		}
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	tags, err := db.EditTags(c.Context, id, add, nil)
	if err != nil {
		return err
	}
	printTags(c.App.Writer, tags)
	return nil
}

func tagsRemoveCommand(c *cli.Context) error {
	id, names, err := parseTagArgs(c)
	if err != nil {
		return err
	}
	tagType := core.TagType(c.String("type"))
	if err := core.ValidateTagType(tagType); err != nil {
		return err
	}

	remove := make([]core.ID, len(names))
	for i, name := range names {
		remove[i] = core.TagID(id, name, tagType)
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	tags, err := db.EditTags(c.Context, id, nil, remove)
	if err != nil {
		return err
	}
	printTags(c.App.Writer, tags)
	return nil
}

func deleteCommand(c *cli.Context) error {
	id, err := parseIDArg(c, 0)
	if err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.DeleteDocument(c.Context, id); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Deleted document %s\n", id)
	return nil
}

func statsCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := db.TagStatistics(c.Context, storage.StatsOptions{
		Type:     core.TagType(c.String("type")),
		MinCount: c.Int("min-count"),
		Limit:    c.Int("limit"),
	})
	if err != nil {
		return err
	}
	printStats(c.App.Writer, stats)
	return nil
}

func retagCommand(c *cli.Context) error {
	cfg := configFrom(c)
	retagConfig := cfg.RetagConfig()
	retagConfig.ReportInterval = c.Int("report-interval")
	if c.IsSet("batch-size") {
		retagConfig.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("pool-size") {
		retagConfig.PoolSize = c.Int("pool-size")
	}
	if c.IsSet("max-retries") {
		retagConfig.MaxRetries = c.Int("max-retries")
	}
	if c.IsSet("retry-delay") {
		retagConfig.RetryDelay = c.Duration("retry-delay")
	}

	// Validate config
	if retagConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if retagConfig.PoolSize <= 0 {
		return fmt.Errorf("pool-size must be greater than 0")
	}
	if retagConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if retagConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	retagger, err := db.NewRetagger(retag.WithConfig(retagConfig), retag.WithProgress(c.App.ErrWriter))
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.ErrWriter, "Database: %s\n", cfg.Storage.Path)
	fmt.Fprintf(c.App.ErrWriter, "Entity backend: %s\n", cfg.Entity.Backend)
	fmt.Fprintln(c.App.ErrWriter)

	stats, err := retagger.Run(c.Context)
	if stats != nil {
		printRetagStats(c.App.Writer, stats)
	}
	if err != nil {
		return fmt.Errorf("retagging failed: %w", err)
	}
	return nil
}

func watchCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one DIR is required")
	}
	cfg := configFrom(c)

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	pipeline, err := db.NewIngestionPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Release()

	out := c.App.Writer
	watcher, err := ingestion.NewWatcher(pipeline, c.Args().First(),
		ingestion.WithDebounce(c.Duration("debounce")),
		ingestion.WithFileLimits(cfg.Ingestion.MaxFileSize, cfg.Ingestion.AllowedExtensions),
		ingestion.WithWatchLogger(slog.Default()),
		ingestion.WithResultHandler(func(path string, result *ingestion.Result, err error) {
			if err != nil {
				fmt.Fprintf(c.App.ErrWriter, "Skipping %s: %v\n", path, err)
				return
			}
			printIngestResult(out, result)
		}),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(c.App.ErrWriter, "Watching %s (Ctrl-C to stop)\n", c.Args().First())
	return watcher.Run(ctx)
}

func parseIDArg(c *cli.Context, n int) (core.ID, error) {
	if c.NArg() <= n {
		return 0, fmt.Errorf("document ID is required")
	}
	return core.ParseID(c.Args().Get(n))
}

func parseTagArgs(c *cli.Context) (core.ID, []string, error) {
	id, err := parseIDArg(c, 0)
	if err != nil {
		return 0, nil, err
	}
	names := c.Args().Tail()
	if len(names) == 0 {
		return 0, nil, fmt.Errorf("at least one tag NAME is required")
	}
	return id, names, nil
}
