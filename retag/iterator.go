package retag

import (
	"context"

	"github.com/poiesic/autotag/core"
	"github.com/poiesic/autotag/storage"
)

// DefaultBatchSize is the default number of documents fetched per batch.
const DefaultBatchSize = 100

// DocumentIterator pages through every stored document, newest first.
// Retagging never changes upload times, so pages stay stable while the
// batches are being processed.
type DocumentIterator struct {
	repo      storage.DocumentRepository
	batchSize int
}

// NewDocumentIterator creates a new document iterator.
// batchSize: number of documents to fetch per batch (DefaultBatchSize if <= 0)
func NewDocumentIterator(repo storage.DocumentRepository, batchSize int) *DocumentIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &DocumentIterator{
		repo:      repo,
		batchSize: batchSize,
	}
}

// ForEach calls fn for each batch of documents.
// Iteration stops on the first error from fn or when all documents are visited.
// Context cancellation is checked between batches.
func (it *DocumentIterator) ForEach(ctx context.Context, fn func([]*core.Document) error) error {
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := it.repo.ListDocuments(ctx, page, it.batchSize)
		if err != nil {
			return err
		}
		if len(result.Documents) == 0 {
			return nil
		}

		if err := fn(result.Documents); err != nil {
			return err
		}

		if page >= result.Pages() {
			return nil
		}
	}
}
