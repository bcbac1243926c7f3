// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/poiesic/autotag"
	"github.com/poiesic/autotag/config"
	"github.com/poiesic/autotag/ingestion"
	"github.com/poiesic/autotag/logging"
	"github.com/urfave/cli/v2"
)

const (
	configKey = "config"
	syncKey   = "sync"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "autotag",
		Usage: "Automatic keyword and entity tagging for text documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory (overrides storage.path)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
		},
		Before: setup,
		After:  teardown,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Store and tag text files",
				ArgsUsage: "FILE...",
				Action:    ingestCommand,
			},
			{
				Name:      "extract",
				Usage:     "Tag a file or stdin without storing it",
				ArgsUsage: "[FILE]",
				Action:    extractCommand,
			},
			{
				Name:      "show",
				Usage:     "Show a document and its tags",
				ArgsUsage: "ID",
				Action:    showCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "content",
						Usage: "Print the document content",
					},
				},
			},
			{
				Name:   "list",
				Usage:  "List stored documents, newest first",
				Action: listCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "page",
						Usage: "Page number, starting at 1",
						Value: 1,
					},
					&cli.IntFlag{
						Name:  "per-page",
						Usage: "Documents per page",
						Value: 20,
					},
				},
			},
			{
				Name:      "similar",
				Usage:     "Find documents similar to a stored document or to --text",
				ArgsUsage: "[ID]",
				Action:    similarCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "text",
						Usage: "Query text to use instead of a stored document",
					},
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Minimum similarity score in [0,1] (default nlp.similarity_threshold)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results (default nlp.similar_limit)",
					},
				},
			},
			{
				Name:  "tags",
				Usage: "Edit the tags of a document",
				Subcommands: []*cli.Command{
					{
						Name:      "add",
						Usage:     "Add tags to a document",
						ArgsUsage: "ID NAME...",
						Action:    tagsAddCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "type",
								Usage: "Tag type (keyword, entity, custom)",
								Value: "custom",
							},
							&cli.Float64Flag{
								Name:  "confidence",
								Usage: "Tag confidence in [0,1]",
								Value: 1.0,
							},
						},
					},
					{
						Name:      "remove",
						Usage:     "Remove tags from a document by name",
						ArgsUsage: "ID NAME...",
						Action:    tagsRemoveCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "type",
								Usage: "Tag type (keyword, entity, custom)",
								Value: "custom",
							},
						},
					},
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a document and its tags",
				ArgsUsage: "ID",
				Action:    deleteCommand,
			},
			{
				Name:   "stats",
				Usage:  "Show tag statistics across all documents",
				Action: statsCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "type",
						Usage: "Only count tags of this type",
					},
					&cli.IntFlag{
						Name:  "min-count",
						Usage: "Only show tags used by at least this many documents",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of tags to show",
						Value: 20,
					},
				},
			},
			{
				Name:   "retag",
				Usage:  "Re-run tagging on every stored document",
				Action: retagCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of documents to process in each batch (default retag.batch_size)",
					},
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Number of documents tagged concurrently (default retag.pool_size)",
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N documents",
						Value: 10,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed documents (default retag.max_retries)",
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff (default retag.retry_delay)",
					},
				},
			},
			{
				Name:      "watch",
				Usage:     "Ingest text files as they appear in a directory",
				ArgsUsage: "DIR",
				Action:    watchCommand,
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "debounce",
						Usage: "How long a file must stay unchanged before it is ingested",
						Value: ingestion.DefaultDebounce,
					},
				},
			},
		},
	}
}

// setup loads the configuration, applies global flag overrides and installs
// the process logger.
func setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if db := c.String("db"); db != "" {
		cfg.Storage.Path = db
	}
	if level := c.String("log-level"); level != "" {
		if _, err := logging.ParseLevel(level); err != nil {
			return fmt.Errorf("%w: must be one of debug, info, warn, error", err)
		}
		cfg.Logging.Level = level
	}

	_, sync, err := logging.Setup(cfg.LoggingOptions())
	if err != nil {
		return err
	}

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]any{}
	}
	c.App.Metadata[configKey] = cfg
	c.App.Metadata[syncKey] = sync
	return nil
}

func teardown(c *cli.Context) error {
	if sync, ok := c.App.Metadata[syncKey].(func()); ok {
		sync()
	}
	return nil
}

func configFrom(c *cli.Context) *config.Config {
	if cfg, ok := c.App.Metadata[configKey].(*config.Config); ok {
		return cfg
	}
	return config.Default()
}

func openDatabase(c *cli.Context) (*autotag.Database, error) {
	cfg := configFrom(c)
	db, err := autotag.NewDatabase(cfg.Storage.Path,
		autotag.WithConfig(cfg),
		autotag.WithLogger(slog.Default()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}
