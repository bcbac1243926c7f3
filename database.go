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

// Package autotag ties storage, tagging, ingestion, search and re-tagging
// together behind one Database handle.
package autotag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/autotag/config"
	"github.com/poiesic/autotag/core"
	"github.com/poiesic/autotag/entity"
	"github.com/poiesic/autotag/ingestion"
	"github.com/poiesic/autotag/retag"
	"github.com/poiesic/autotag/search"
	"github.com/poiesic/autotag/storage"
	"github.com/poiesic/autotag/storage/badger"
	"github.com/poiesic/autotag/tagging"
)

type Database struct {
	backend    *badger.Backend
	docRepo    storage.DocumentRepository
	tagRepo    storage.TagRepository
	recognizer entity.Recognizer
	config     *config.Config
	logger     *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	config     *config.Config
	recognizer entity.Recognizer
	logger     *slog.Logger
	inMemory   bool
}

// WithConfig sets the configuration. Default is config.Default().
func WithConfig(cfg *config.Config) DatabaseOption {
	return func(o *databaseOptions) {
		if cfg != nil {
			o.config = cfg
		}
	}
}

// WithRecognizer sets the entity recognizer instead of loading the one the
// configuration names.
func WithRecognizer(r entity.Recognizer) DatabaseOption {
	return func(o *databaseOptions) {
		o.recognizer = r
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithInMemory keeps the database in memory. The path is ignored.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// NewDatabase opens the database at filePath. An empty filePath falls back
// to the configured storage path.
//
// Unless WithRecognizer is given, the recognizer the configuration names is
// loaded. A recognizer that fails to load is replaced by entity.Unavailable,
// so documents still get keyword tags.
func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	// Apply options
	options := &databaseOptions{
		config: config.Default(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if filePath == "" {
		filePath = options.config.Storage.Path
	}
	inMemory := options.inMemory || options.config.Storage.InMemory

	// Open backend
	backend, err := badger.OpenBackend(filePath, inMemory, badger.WithLogger(options.logger))
	if err != nil {
		return nil, err
	}

	// Create document repository
	docRepo, err := badger.NewDocumentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	// Create tag repository
	tagRepo := badger.NewTagRepository(backend)

	recognizer := options.recognizer
	if recognizer == nil {
		recognizer = LoadRecognizer(options.config.EntityConfig(), options.logger)
	}

	return &Database{
		backend:    backend,
		docRepo:    docRepo,
		tagRepo:    tagRepo,
		recognizer: recognizer,
		config:     options.config,
		logger:     options.logger,
	}, nil
}

func (db *Database) Close() error {
	// Close repositories
	if err := db.tagRepo.Close(); err != nil {
		db.logger.Error("error closing tag repository", "err", err)
		return err
	}
	if err := db.docRepo.Close(); err != nil {
		db.logger.Error("error closing document repository", "err", err)
		return err
	}

	// Close backend
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) DocumentRepository() storage.DocumentRepository {
	return db.docRepo
}

func (db *Database) TagRepository() storage.TagRepository {
	return db.tagRepo
}

func (db *Database) Config() *config.Config {
	return db.config
}

// NewTagger creates a tagger with the configured limits and the database's
// recognizer. opts are applied after the configured ones.
func (db *Database) NewTagger(opts ...tagging.Option) (*tagging.Tagger, error) {
	all := append(db.config.TaggerOptions(), tagging.WithRecognizer(db.recognizer))
	return tagging.NewTagger(append(all, opts...)...)
}

func (db *Database) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	tagger, err := db.NewTagger()
	if err != nil {
		return nil, err
	}
	all := []ingestion.Option{ingestion.WithLogger(db.logger)}
	if db.config.Ingestion.PoolSize > 0 {
		all = append(all, ingestion.WithPoolSize(db.config.Ingestion.PoolSize))
	}
	return ingestion.NewPipeline(db.docRepo, db.tagRepo, tagger, append(all, opts...)...)
}

func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	all := []search.Option{
		search.WithLogger(db.logger),
		search.WithEngine(db.config.SimilarityEngine()),
	}
	return search.NewSearcher(db.docRepo, db.tagRepo, append(all, opts...)...)
}

func (db *Database) NewRetagger(opts ...retag.Option) (*retag.Retagger, error) {
	tagger, err := db.NewTagger()
	if err != nil {
		return nil, err
	}
	all := []retag.Option{
		retag.WithLogger(db.logger),
		retag.WithConfig(db.config.RetagConfig()),
	}
	return retag.NewRetagger(db.docRepo, db.tagRepo, tagger, append(all, opts...)...)
}

// DeleteDocument removes a document and all its tags.
// Returns storage.ErrNotFound if the document doesn't exist.
func (db *Database) DeleteDocument(ctx context.Context, id core.ID) error {
	if err := db.docRepo.DeleteDocuments(ctx, id); err != nil {
		return err
	}
	db.logger.Info("document deleted", "document", id)
	return nil
}

// TagStatistics aggregates tags across all documents.
func (db *Database) TagStatistics(ctx context.Context, opts storage.StatsOptions) (*storage.TagStatistics, error) {
	return db.tagRepo.TagStatistics(ctx, opts)
}

// TaggedDocument is a document with its tags.
type TaggedDocument struct {
	Document *core.Document

	// Tags is ordered like TagRepository.GetTags.
	Tags []*core.Tag

	// ByType groups Tags by type, keeping their order.
	ByType map[core.TagType][]*core.Tag
}

// DocumentWithTags loads a document and its tags.
// Returns storage.ErrNotFound if the document doesn't exist.
func (db *Database) DocumentWithTags(ctx context.Context, id core.ID) (*TaggedDocument, error) {
	doc, err := db.docRepo.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	tags, err := db.tagRepo.GetTags(ctx, id)
	if err != nil {
		return nil, err
	}

	byType := make(map[core.TagType][]*core.Tag, len(core.TagTypes))
	for _, tag := range tags {
		byType[tag.Type] = append(byType[tag.Type], tag)
	}
	return &TaggedDocument{Document: doc, Tags: tags, ByType: byType}, nil
}

// TagInput describes a tag added by hand.
type TagInput struct {
	Name string

	// Type defaults to core.TagTypeCustom.
	Type core.TagType

	// Confidence defaults to 1.0 when zero.
	Confidence float64

	// EntityType is optional and only meaningful for entity tags.
	EntityType core.EntityType
}

// EditTags removes the tags with the given IDs from a document, then adds
// the given tags, and returns the document's updated tag list. Every input
// is validated before anything changes. Adding a tag that already exists
// updates its confidence.
func (db *Database) EditTags(ctx context.Context, docID core.ID, add []TagInput, remove []core.ID) ([]*core.Tag, error) {
	doc, err := db.docRepo.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}

	tags := make([]*core.Tag, 0, len(add))
	for i, in := range add {
		tag := &core.Tag{
			DocumentId: docID,
			Name:       strings.TrimSpace(in.Name),
			Type:       in.Type,
			Confidence: in.Confidence,
			EntityType: in.EntityType,
		}
		if tag.Type == "" {
			tag.Type = core.TagTypeCustom
		}
		if tag.Confidence == 0 {
			tag.Confidence = 1.0
		}
		if err := core.ValidateTag(tag); err != nil {
			return nil, fmt.Errorf("tag %d (%q): %w", i, in.Name, err)
		}
		tags = append(tags, tag)
	}

	if len(remove) > 0 {
		removed, err := db.tagRepo.RemoveTags(ctx, docID, remove...)
		if err != nil {
			return nil, err
		}
		db.logger.Debug("tags removed", "document", docID, "requested", len(remove), "removed", removed)
	}
	if len(tags) > 0 {
		if _, err := db.tagRepo.AddTags(ctx, tags...); err != nil {
			return nil, err
		}
		db.logger.Debug("tags added", "document", docID, "count", len(tags))
	}

	if len(remove) > 0 || len(tags) > 0 {
		if _, err := db.docRepo.UpdateDocuments(ctx, doc); err != nil {
			return nil, err
		}
	}

	return db.tagRepo.GetTags(ctx, docID)
}
