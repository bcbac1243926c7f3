package storage

import (
	"context"

	"github.com/poiesic/autotag/core"
)

type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close releases resources held by the repository.
	Close() error
}

type DocumentRepository interface {
	Repository
	// AddDocuments stores new documents.
	// Always assigns a fresh ID from the document sequence.
	// Sets UploadedAt and UpdatedAt to the current time.
	// Returns the documents with IDs and timestamps populated.
	AddDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error)

	// UpdateDocuments replaces stored documents.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if any document doesn't exist.
	UpdateDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error)

	// DeleteDocuments removes documents, their index entries and all their tags.
	// Returns ErrNotFound if any document doesn't exist.
	DeleteDocuments(ctx context.Context, ids ...core.ID) error

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// GetDocuments retrieves multiple documents by their IDs.
	// Returns only the documents that exist (no error for missing documents).
	GetDocuments(ctx context.Context, ids ...core.ID) ([]*core.Document, error)

	// ListDocuments returns one page of documents, newest upload first.
	// Pages are numbered from 1. Returns ErrInvalidQuery for a page or
	// page size below 1.
	ListDocuments(ctx context.Context, page, perPage int) (*DocumentPage, error)

	// GetCorpus returns the raw content of stored documents keyed by ID.
	GetCorpus(ctx context.Context, opts CorpusOptions) (map[core.ID]string, error)
}

type TagRepository interface {
	Repository
	// AddTags stores tags, replacing any tag with the same ID.
	// Assigns each tag its ID with core.TagID and sets CreatedAt if zero.
	// Returns ErrNotFound if a tag's document doesn't exist.
	AddTags(ctx context.Context, tags ...*core.Tag) ([]*core.Tag, error)

	// ReplaceTags deletes every tag of docID whose type is in types, then
	// stores tags, in one transaction.
	ReplaceTags(ctx context.Context, docID core.ID, types []core.TagType, tags ...*core.Tag) ([]*core.Tag, error)

	// RemoveTags deletes tags of docID by ID and returns how many existed.
	RemoveTags(ctx context.Context, docID core.ID, tagIDs ...core.ID) (int, error)

	// GetTags returns the tags of docID ordered by type (keyword, entity,
	// custom), then by descending confidence, then by name.
	GetTags(ctx context.Context, docID core.ID) ([]*core.Tag, error)

	// TagStatistics aggregates tags across all documents.
	TagStatistics(ctx context.Context, opts StatsOptions) (*TagStatistics, error)
}

// DocumentPage is one page of a document listing.
type DocumentPage struct {
	Documents []*core.Document
	Page      int
	PerPage   int
	Total     int
}

// Pages returns the number of pages needed for Total documents.
func (p *DocumentPage) Pages() int {
	if p.PerPage <= 0 {
		return 0
	}
	return (p.Total + p.PerPage - 1) / p.PerPage
}

// CorpusOptions filters the documents returned by GetCorpus.
type CorpusOptions struct {
	// ProcessedOnly skips documents that have not been tagged yet.
	ProcessedOnly bool

	// Exclude lists documents to leave out, typically the query document.
	Exclude []core.ID

	// Include lists documents to return even when ProcessedOnly would skip them.
	Include []core.ID
}

// StatsOptions filters TagStatistics.
type StatsOptions struct {
	// Type restricts statistics to one tag type. Empty means all types.
	Type core.TagType

	// MinCount drops tag names used by fewer documents.
	MinCount int

	// Limit caps the number of TagStat entries. Zero means no cap.
	Limit int
}

// TagStatistics is the result of TagRepository.TagStatistics.
type TagStatistics struct {
	// Tags is ordered by descending document count, then by name.
	Tags []core.TagStat

	// Summary has one entry per tag type present, in core.TagTypes order.
	Summary []core.TagSummary
}
