package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/autotag/core"
	"github.com/poiesic/autotag/storage"
)

// Pipeline orchestrates the ingestion and tagging of documents.
type Pipeline struct {
	docs   storage.DocumentRepository
	tags   storage.TagRepository
	pool   *ants.Pool
	proc   processor
	logger *slog.Logger
}

// Input is one document to ingest.
type Input struct {
	Filename string
	Content  string

	// FileType defaults to the filename extension without the dot.
	FileType string

	// FileSize defaults to the content length in bytes.
	FileSize int64
}

// Result is the outcome of ingesting one document.
type Result struct {
	Document *core.Document
	Tags     []*core.Tag
	Summary  Summary

	// Degraded is set when the entity model was unavailable and only
	// keyword tags were stored.
	Degraded bool
}

// Summary counts what tagging produced.
type Summary struct {
	Keywords       int
	Entities       int
	Tags           int
	ProcessingTime time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size used by IngestBatch.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	docs storage.DocumentRepository,
	tags storage.TagRepository,
	tagger Tagger,
	opts ...Option,
) (*Pipeline, error) {
	if docs == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if tags == nil {
		return nil, ErrTagRepositoryRequired
	}
	if tagger == nil {
		return nil, ErrTaggerRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		docs:   docs,
		tags:   tags,
		pool:   pool,
		logger: slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	// Create the processor after options are applied so it gets the final logger
	p.proc = newTagProcessor(docs, tags, tagger, p.logger)

	return p, nil
}

// Ingest validates and stores one document, then tags it.
//
// If tagging fails for any reason other than an unavailable entity model,
// the document stays stored unprocessed and the error is returned.
func (p *Pipeline) Ingest(ctx context.Context, in Input) (*Result, error) {
	doc, err := newDocument(in)
	if err != nil {
		return nil, err
	}

	if _, err := p.docs.AddDocuments(ctx, doc); err != nil {
		return nil, err
	}
	p.logger.Info("document stored", "document", doc.Id, "filename", doc.Filename)

	return p.proc.process(ctx, doc, nil)
}

// IngestBatch stores every input, then tags the stored documents
// concurrently. Every input is validated before anything is stored.
//
// Each document is scored against the processed corpus plus every document
// of the batch, so a batch loaded into an empty store still gets
// discriminating keyword weights. The result does not depend on the order
// in which the pool finishes the documents.
//
// The returned slice is parallel to inputs; entries whose tagging failed are
// nil and their errors are joined into the returned error.
func (p *Pipeline) IngestBatch(ctx context.Context, inputs []Input) ([]*Result, error) {
	docs := make([]*core.Document, len(inputs))
	var invalid []error
	for i, in := range inputs {
		doc, err := newDocument(in)
		if err != nil {
			invalid = append(invalid, fmt.Errorf("input %d (%s): %w", i, in.Filename, err))
			continue
		}
		docs[i] = doc
	}
	if len(invalid) > 0 {
		return nil, errors.Join(invalid...)
	}
	if len(docs) == 0 {
		return []*Result{}, nil
	}

	if _, err := p.docs.AddDocuments(ctx, docs...); err != nil {
		return nil, err
	}
	p.logger.Info("documents stored", "count", len(docs))

	batch := make([]core.ID, len(docs))
	for i, doc := range docs {
		batch[i] = doc.Id
	}

	results := make([]*Result, len(docs))
	errs := make([]error, len(docs))
	var wg sync.WaitGroup
	for i, doc := range docs {
		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			result, err := p.proc.process(ctx, doc, batch)
			if err != nil {
				p.logger.Error("error tagging document", "document", doc.Id, "err", err)
				errs[i] = err
				return
			}
			results[i] = result
		})
		if submitErr != nil {
			wg.Done()
			errs[i] = submitErr
		}
	}
	wg.Wait()

	return results, errors.Join(errs...)
}

// Release releases resources including the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

func newDocument(in Input) (*core.Document, error) {
	doc := &core.Document{
		Filename: strings.TrimSpace(in.Filename),
		Content:  in.Content,
		FileType: in.FileType,
		FileSize: in.FileSize,
	}
	if doc.FileType == "" {
		doc.FileType = strings.ToLower(strings.TrimPrefix(filepath.Ext(doc.Filename), "."))
	}
	if doc.FileSize == 0 {
		doc.FileSize = int64(len(in.Content))
	}
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}
	return doc, nil
}
