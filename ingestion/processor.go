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

package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/poiesic/autotag/core"
	"github.com/poiesic/autotag/storage"
	"github.com/poiesic/autotag/tagging"
)

// Tagger computes tags for one document against a corpus.
// *tagging.Tagger satisfies it.
type Tagger interface {
	Tag(ctx context.Context, raw string, corpus []string) (*tagging.Result, error)
}

// processor is an internal interface for enriching stored documents.
type processor interface {
	// process tags a stored document and marks it processed. The documents
	// in peers join the corpus whether or not they are processed yet.
	process(ctx context.Context, doc *core.Document, peers []core.ID) (*Result, error)
}

// tagProcessor tags documents against the processed corpus.
type tagProcessor struct {
	docs   storage.DocumentRepository
	tags   storage.TagRepository
	tagger Tagger
	logger *slog.Logger
}

var _ processor = (*tagProcessor)(nil)

// automaticTypes are the tag types a processing run owns. Custom tags survive.
var automaticTypes = []core.TagType{core.TagTypeKeyword, core.TagTypeEntity}

func newTagProcessor(docs storage.DocumentRepository, tags storage.TagRepository, tagger Tagger, logger *slog.Logger) *tagProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &tagProcessor{
		docs:   docs,
		tags:   tags,
		tagger: tagger,
		logger: logger.With("processor", "tags"),
	}
}

func (tp *tagProcessor) process(ctx context.Context, doc *core.Document, peers []core.ID) (*Result, error) {
	start := time.Now()

	corpus, err := tp.corpus(ctx, append([]core.ID{doc.Id}, peers...))
	if err != nil {
		return nil, fmt.Errorf("loading corpus: %w", err)
	}

	tagged, err := tp.tagger.Tag(ctx, doc.Content, corpus)
	degraded := false
	if err != nil {
		if !errors.Is(err, core.ErrModelUnavailable) || tagged == nil {
			return nil, fmt.Errorf("tagging document %s: %w", doc.Id, err)
		}
		tp.logger.Warn("entity model unavailable, keeping keyword tags", "document", doc.Id, "err", err)
		degraded = true
	}

	tags := make([]*core.Tag, len(tagged.Tags))
	for i := range tagged.Tags {
		tag := tagged.Tags[i]
		tag.DocumentId = doc.Id
		tags[i] = &tag
	}
	if _, err := tp.tags.ReplaceTags(ctx, doc.Id, automaticTypes, tags...); err != nil {
		return nil, fmt.Errorf("storing tags for document %s: %w", doc.Id, err)
	}

	doc.Processed = true
	if _, err := tp.docs.UpdateDocuments(ctx, doc); err != nil {
		return nil, fmt.Errorf("marking document %s processed: %w", doc.Id, err)
	}

	stored, err := tp.tags.GetTags(ctx, doc.Id)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Document: doc,
		Tags:     stored,
		Summary: Summary{
			Keywords:       len(tagged.Keywords),
			Entities:       len(tagged.Entities),
			Tags:           len(tags),
			ProcessingTime: time.Since(start),
		},
		Degraded: degraded,
	}
	tp.logger.Debug("document tagged",
		"document", doc.Id,
		"tags", result.Summary.Tags,
		"duration", result.Summary.ProcessingTime)
	return result, nil
}

// corpus returns the processed documents plus the include set, in ID order.
func (tp *tagProcessor) corpus(ctx context.Context, include []core.ID) ([]string, error) {
	contents, err := tp.docs.GetCorpus(ctx, storage.CorpusOptions{
		ProcessedOnly: true,
		Include:       include,
	})
	if err != nil {
		return nil, err
	}

	ids := make([]core.ID, 0, len(contents))
	for id := range contents {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	corpus := make([]string, len(ids))
	for i, id := range ids {
		corpus[i] = contents[id]
	}
	return corpus, nil
}
