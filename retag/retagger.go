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

package retag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/autotag/core"
	"github.com/poiesic/autotag/ingestion"
	"github.com/poiesic/autotag/storage"
	"github.com/poiesic/autotag/tagging"
)

// Config holds configuration for a retagging run.
type Config struct {
	// BatchSize is the number of documents fetched per batch
	BatchSize int

	// PoolSize is the number of documents tagged concurrently
	PoolSize int

	// ReportInterval is how often to report progress (number of documents)
	ReportInterval int

	// MaxRetries is the maximum number of attempts per document
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// MaxRetryDelay caps the backoff delay. Zero means no cap.
	MaxRetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		PoolSize:       4,
		ReportInterval: 10,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
		MaxRetryDelay:  30 * time.Second,
	}
}

// Stats summarizes a retagging run.
type Stats struct {
	Documents int
	Retagged  int
	// Degraded counts documents whose entity tags were kept because the
	// entity model was unavailable.
	Degraded int
	Failed   int
	Elapsed  time.Duration
}

// Option configures a Retagger.
type Option func(*Retagger)

// WithConfig replaces the default run configuration.
func WithConfig(config *Config) Option {
	return func(r *Retagger) {
		if config != nil {
			r.config = config
		}
	}
}

// WithProgress sets where progress lines are written.
// Default is io.Discard.
func WithProgress(w io.Writer) Option {
	return func(r *Retagger) {
		if w != nil {
			r.progress = w
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retagger) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Retagger orchestrates retagging every document in a database.
type Retagger struct {
	docs     storage.DocumentRepository
	tags     storage.TagRepository
	tagger   ingestion.Tagger
	config   *Config
	progress io.Writer
	logger   *slog.Logger
}

// NewRetagger creates a new retagger.
func NewRetagger(docs storage.DocumentRepository, tags storage.TagRepository, tagger ingestion.Tagger, opts ...Option) (*Retagger, error) {
	if docs == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if tags == nil {
		return nil, ErrTagRepositoryRequired
	}
	if tagger == nil {
		return nil, ErrTaggerRequired
	}

	r := &Retagger{
		docs:     docs,
		tags:     tags,
		tagger:   tagger,
		config:   DefaultConfig(),
		progress: io.Discard,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "retag")
	return r, nil
}

// Run retags every stored document against a snapshot of the whole corpus
// taken when the run starts.
//
// Failures of individual documents do not stop the run; they are counted in
// Stats.Failed and joined into the returned error.
func (r *Retagger) Run(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	corpusByID, err := r.docs.GetCorpus(ctx, storage.CorpusOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}
	stats.Documents = len(corpusByID)
	if stats.Documents == 0 {
		fmt.Fprintf(r.progress, "No documents found in database (0 documents)\n")
		return stats, nil
	}
	corpus := sortedCorpus(corpusByID)

	fmt.Fprintf(r.progress, "Starting retagging of %d documents (batch size: %d)\n",
		stats.Documents, r.config.BatchSize)

	pool, err := ants.NewPool(max(r.config.PoolSize, 1))
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	progress := NewProgress(r.progress, stats.Documents, r.config.ReportInterval)

	var (
		mu   sync.Mutex
		errs []error
	)
	iterator := NewDocumentIterator(r.docs, r.config.BatchSize)
	err = iterator.ForEach(ctx, func(docs []*core.Document) error {
		var wg sync.WaitGroup
		for _, doc := range docs {
			wg.Add(1)
			submitErr := pool.Submit(func() {
				defer wg.Done()
				degraded, err := r.retagDocument(ctx, doc, corpus)
				progress.Record(err != nil)

				mu.Lock()
				defer mu.Unlock()
				switch {
				case err != nil:
					stats.Failed++
					errs = append(errs, err)
					r.logger.Error("error retagging document", "document", doc.Id, "err", err)
				case degraded:
					stats.Degraded++
					stats.Retagged++
				default:
					stats.Retagged++
				}
			})
			if submitErr != nil {
				wg.Done()
				return submitErr
			}
		}
		wg.Wait()
		return nil
	})
	if err != nil {
		errs = append(errs, err)
	}

	final := progress.Close()
	stats.Elapsed = final.Elapsed
	fmt.Fprintf(r.progress, "Retagging complete. Retagged %d of %d documents in %v\n",
		stats.Retagged, stats.Documents, stats.Elapsed.Round(time.Millisecond))

	return stats, errors.Join(errs...)
}

// retagDocument tags one document and stores the result. When the entity
// model is unavailable only keyword tags are replaced, so entity tags from
// an earlier run survive.
func (r *Retagger) retagDocument(ctx context.Context, doc *core.Document, corpus []string) (bool, error) {
	var result *tagging.Result
	degraded := false
	backoff := Backoff{
		Attempts: r.config.MaxRetries,
		Delay:    r.config.RetryDelay,
		MaxDelay: r.config.MaxRetryDelay,
		Logger:   r.logger.With("document", doc.Id),
	}
	err := backoff.Do(ctx, func(ctx context.Context) error {
		var tagErr error
		result, tagErr = r.tagger.Tag(ctx, doc.Content, corpus)
		if tagErr != nil && errors.Is(tagErr, core.ErrModelUnavailable) && result != nil {
			degraded = true
			return nil
		}
		return tagErr
	})
	if err != nil {
		return false, fmt.Errorf("document %s: %w", doc.Id, err)
	}

	types := []core.TagType{core.TagTypeKeyword, core.TagTypeEntity}
	if degraded {
		types = []core.TagType{core.TagTypeKeyword}
	}

	tags := make([]*core.Tag, 0, len(result.Tags))
	for i := range result.Tags {
		tag := result.Tags[i]
		if !slices.Contains(types, tag.Type) {
			continue
		}
		tags = append(tags, &tag)
	}
	if _, err := r.tags.ReplaceTags(ctx, doc.Id, types, tags...); err != nil {
		return false, fmt.Errorf("document %s: %w", doc.Id, err)
	}

	if !doc.Processed {
		doc.Processed = true
		if _, err := r.docs.UpdateDocuments(ctx, doc); err != nil {
			return false, fmt.Errorf("document %s: %w", doc.Id, err)
		}
	}
	return degraded, nil
}

func sortedCorpus(byID map[core.ID]string) []string {
	ids := make([]core.ID, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	corpus := make([]string, len(ids))
	for i, id := range ids {
		corpus[i] = byID[id]
	}
	return corpus
}
