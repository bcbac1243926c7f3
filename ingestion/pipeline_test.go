package ingestion

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/poiesic/autotag/core"
	"github.com/poiesic/autotag/entity/mock"
	"github.com/poiesic/autotag/storage"
	"github.com/poiesic/autotag/storage/badger"
	"github.com/poiesic/autotag/tagging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingTagger implements Tagger and always fails.
type failingTagger struct{}

func (failingTagger) Tag(ctx context.Context, raw string, corpus []string) (*tagging.Result, error) {
	return nil, errors.New("tagger exploded")
}

func setupTestRepositories(t *testing.T) (storage.DocumentRepository, storage.TagRepository) {
	docRepo, tagRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		tagRepo.Close()
		docRepo.Close()
		backend.Close()
	})
	return docRepo, tagRepo
}

func setupTestPipeline(t *testing.T, opts ...tagging.Option) (*Pipeline, storage.DocumentRepository, storage.TagRepository) {
	docRepo, tagRepo := setupTestRepositories(t)

	tagger, err := tagging.NewTagger(opts...)
	require.NoError(t, err)

	p, err := NewPipeline(docRepo, tagRepo, tagger, WithPoolSize(2))
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p, docRepo, tagRepo
}

func TestNewPipeline_RequiredDependencies(t *testing.T) {
	docRepo, tagRepo := setupTestRepositories(t)
	tagger, err := tagging.NewTagger()
	require.NoError(t, err)

	tests := []struct {
		name    string
		docs    storage.DocumentRepository
		tags    storage.TagRepository
		tagger  Tagger
		wantErr error
	}{
		{"missing documents", nil, tagRepo, tagger, ErrDocumentRepositoryRequired},
		{"missing tags", docRepo, nil, tagger, ErrTagRepositoryRequired},
		{"missing tagger", docRepo, tagRepo, nil, ErrTaggerRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPipeline(tt.docs, tt.tags, tt.tagger)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestIngest_StoresAndTags(t *testing.T) {
	rec := mock.NewMockRecognizer(map[string]string{"Google": "ORG"})
	p, docRepo, tagRepo := setupTestPipeline(t, tagging.WithRecognizer(rec))
	ctx := context.Background()

	result, err := p.Ingest(ctx, Input{
		Filename: "google.txt",
		Content:  "Google invests in Artificial Intelligence research. Google builds models.",
	})
	require.NoError(t, err)

	assert.NotZero(t, result.Document.Id)
	assert.True(t, result.Document.Processed)
	assert.Equal(t, "txt", result.Document.FileType)
	assert.False(t, result.Degraded)
	assert.Equal(t, 1, result.Summary.Entities)
	assert.Positive(t, result.Summary.Keywords)
	assert.Len(t, result.Tags, result.Summary.Tags)

	stored, err := docRepo.GetDocument(ctx, result.Document.Id)
	require.NoError(t, err)
	assert.True(t, stored.Processed)

	tags, err := tagRepo.GetTags(ctx, result.Document.Id)
	require.NoError(t, err)
	var hasGoogle bool
	for _, tag := range tags {
		if tag.Type == core.TagTypeEntity && tag.Name == "Google" {
			hasGoogle = true
			assert.Equal(t, core.EntityOrg, tag.EntityType)
		}
	}
	assert.True(t, hasGoogle)
	assert.Equal(t, 1, rec.CallCount())
}

func TestIngest_ModelUnavailableKeepsKeywords(t *testing.T) {
	p, _, tagRepo := setupTestPipeline(t)

	result, err := p.Ingest(context.Background(), Input{
		Filename: "ml.txt",
		Content:  "Machine Learning models learn patterns from training data.",
	})
	require.NoError(t, err)
	assert.True(t, result.Degraded)
	assert.True(t, result.Document.Processed)
	assert.Zero(t, result.Summary.Entities)

	tags, err := tagRepo.GetTags(context.Background(), result.Document.Id)
	require.NoError(t, err)
	require.NotEmpty(t, tags)
	for _, tag := range tags {
		assert.Equal(t, core.TagTypeKeyword, tag.Type)
	}
}

func TestIngest_InvalidInput(t *testing.T) {
	p, docRepo, _ := setupTestPipeline(t)
	ctx := context.Background()

	_, err := p.Ingest(ctx, Input{Filename: "blank.txt", Content: "   "})
	assert.ErrorIs(t, err, core.ErrEmptyContent)

	_, err = p.Ingest(ctx, Input{Filename: "", Content: "text"})
	assert.ErrorIs(t, err, core.ErrEmptyFilename)

	page, err := docRepo.ListDocuments(ctx, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, page.Total, "invalid input is never stored")
}

func TestIngest_TaggerFailureLeavesDocumentUnprocessed(t *testing.T) {
	docRepo, tagRepo := setupTestRepositories(t)
	p, err := NewPipeline(docRepo, tagRepo, failingTagger{})
	require.NoError(t, err)
	defer p.Release()

	ctx := context.Background()
	_, err = p.Ingest(ctx, Input{Filename: "a.txt", Content: "some text"})
	require.Error(t, err)

	page, err := docRepo.ListDocuments(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Documents, 1)
	assert.False(t, page.Documents[0].Processed)
}

func TestIngest_UsesProcessedCorpus(t *testing.T) {
	p, _, _ := setupTestPipeline(t)
	ctx := context.Background()

	for i := range 3 {
		_, err := p.Ingest(ctx, Input{
			Filename: fmt.Sprintf("db%d.txt", i),
			Content:  "Databases store records and databases index records.",
		})
		require.NoError(t, err)
	}

	result, err := p.Ingest(ctx, Input{
		Filename: "vector.txt",
		Content:  "Vector databases index embeddings.",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Tags)

	first := result.Tags[0]
	assert.NotEqual(t, "database", first.Name, "a term common to the corpus should not lead")
}

func TestIngestBatch(t *testing.T) {
	rec := mock.NewMockRecognizer(map[string]string{"Microsoft": "ORG", "Google": "ORG"})
	p, docRepo, _ := setupTestPipeline(t, tagging.WithRecognizer(rec))
	ctx := context.Background()

	inputs := []Input{
		{Filename: "a.txt", Content: "Google develops search technology."},
		{Filename: "b.txt", Content: "Microsoft develops cloud technology."},
		{Filename: "c.txt", Content: "Google and Microsoft compete in AI."},
	}
	results, err := p.IngestBatch(ctx, inputs)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, inputs[i].Filename, r.Document.Filename)
		assert.True(t, r.Document.Processed)
	}
	assert.Equal(t, 3, rec.CallCount())

	page, err := docRepo.ListDocuments(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
}

func TestIngestBatch_ScoresAgainstBatchPeers(t *testing.T) {
	p, _, _ := setupTestPipeline(t)

	inputs := make([]Input, 6)
	for i := range inputs {
		inputs[i] = Input{
			Filename: fmt.Sprintf("topic%d.txt", i),
			Content:  fmt.Sprintf("database topic%d", i),
		}
	}
	results, err := p.IngestBatch(context.Background(), inputs)
	require.NoError(t, err)
	require.Len(t, results, len(inputs))

	for i, r := range results {
		require.NotNil(t, r)
		scores := map[string]float64{}
		for _, tag := range r.Tags {
			if tag.Type == core.TagTypeKeyword {
				scores[tag.Name] = tag.Confidence
			}
		}
		shared, ok := scores["database"]
		require.True(t, ok, "document %d: %v", i, scores)
		own, ok := scores[fmt.Sprintf("topic%d", i)]
		require.True(t, ok, "document %d: %v", i, scores)
		assert.Less(t, shared, own, "a term every batch member shares must rank below a distinctive one")
	}
}

func TestIngestBatch_ValidatesBeforeStoring(t *testing.T) {
	p, docRepo, _ := setupTestPipeline(t)
	ctx := context.Background()

	_, err := p.IngestBatch(ctx, []Input{
		{Filename: "ok.txt", Content: "fine"},
		{Filename: "bad.txt", Content: ""},
	})
	assert.ErrorIs(t, err, core.ErrEmptyContent)

	page, err := docRepo.ListDocuments(ctx, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestIngestBatch_JoinsTaggingErrors(t *testing.T) {
	docRepo, tagRepo := setupTestRepositories(t)
	p, err := NewPipeline(docRepo, tagRepo, failingTagger{}, WithPoolSize(3))
	require.NoError(t, err)
	defer p.Release()

	results, err := p.IngestBatch(context.Background(), []Input{
		{Filename: "a.txt", Content: "one"},
		{Filename: "b.txt", Content: "two"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tagger exploded")
	require.Len(t, results, 2)
	assert.Nil(t, results[0])
	assert.Nil(t, results[1])
}

func TestIngestBatch_Empty(t *testing.T) {
	p, _, _ := setupTestPipeline(t)
	results, err := p.IngestBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}
