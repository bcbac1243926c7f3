package retag

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/poiesic/autotag/core"
	"github.com/poiesic/autotag/storage"
	"github.com/poiesic/autotag/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) (storage.DocumentRepository, storage.TagRepository) {
	docRepo, tagRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		tagRepo.Close()
		docRepo.Close()
		backend.Close()
	})
	return docRepo, tagRepo
}

func addDocuments(t *testing.T, repo storage.DocumentRepository, n int) []*core.Document {
	t.Helper()
	docs := make([]*core.Document, n)
	for i := range docs {
		docs[i] = &core.Document{
			Filename: fmt.Sprintf("doc%d.txt", i),
			Content:  fmt.Sprintf("Document number %d talks about distributed databases and replication.", i),
		}
	}
	added, err := repo.AddDocuments(context.Background(), docs...)
	require.NoError(t, err)
	return added
}

func TestDocumentIterator_VisitsEveryDocument(t *testing.T) {
	docRepo, _ := setupTestDB(t)
	addDocuments(t, docRepo, 10)

	tests := []struct {
		batchSize   int
		wantBatches int
	}{
		{3, 4},
		{5, 2},
		{10, 1},
		{50, 1},
		{0, 1}, // falls back to DefaultBatchSize
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("batch size %d", tt.batchSize), func(t *testing.T) {
			seen := map[core.ID]bool{}
			batches := 0
			err := NewDocumentIterator(docRepo, tt.batchSize).ForEach(context.Background(), func(docs []*core.Document) error {
				batches++
				for _, d := range docs {
					assert.False(t, seen[d.Id], "document visited twice")
					seen[d.Id] = true
				}
				return nil
			})
			require.NoError(t, err)
			assert.Len(t, seen, 10)
			assert.Equal(t, tt.wantBatches, batches)
		})
	}
}

func TestDocumentIterator_Empty(t *testing.T) {
	docRepo, _ := setupTestDB(t)
	called := false
	err := NewDocumentIterator(docRepo, 5).ForEach(context.Background(), func([]*core.Document) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestDocumentIterator_StopsOnError(t *testing.T) {
	docRepo, _ := setupTestDB(t)
	addDocuments(t, docRepo, 6)

	boom := errors.New("boom")
	batches := 0
	err := NewDocumentIterator(docRepo, 2).ForEach(context.Background(), func([]*core.Document) error {
		batches++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, batches)
}

func TestDocumentIterator_ContextCanceled(t *testing.T) {
	docRepo, _ := setupTestDB(t)
	addDocuments(t, docRepo, 6)

	ctx, cancel := context.WithCancel(context.Background())
	batches := 0
	err := NewDocumentIterator(docRepo, 2).ForEach(ctx, func([]*core.Document) error {
		batches++
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, batches)
}
