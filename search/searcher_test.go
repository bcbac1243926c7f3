package search

import (
	"context"
	"log/slog"
	"testing"

	"github.com/poiesic/autotag/core"
	"github.com/poiesic/autotag/storage"
	"github.com/poiesic/autotag/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingMonitor implements SearchMonitor and records every callback.
type recordingMonitor struct {
	query      string
	candidates int
	ranked     []core.SimilarityResult
	hits       []*core.SimilarDocument
	finished   bool
}

func (m *recordingMonitor) Start(query string)                          { m.query = query }
func (m *recordingMonitor) AfterCandidateRetrieval(count int)           { m.candidates = count }
func (m *recordingMonitor) AfterRanking(ranked []core.SimilarityResult) { m.ranked = ranked }
func (m *recordingMonitor) AfterDocumentRetrieval(_ []*core.Document)   {}
func (m *recordingMonitor) Hit(result *core.SimilarDocument)            { m.hits = append(m.hits, result) }
func (m *recordingMonitor) Finish(_ []*core.SimilarDocument)            { m.finished = true }

func setupRepos(t *testing.T) (storage.DocumentRepository, storage.TagRepository) {
	docRepo, tagRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		tagRepo.Close()
		docRepo.Close()
		backend.Close()
	})
	return docRepo, tagRepo
}

// storeDoc adds a document and marks it processed when asked.
func storeDoc(t *testing.T, docs storage.DocumentRepository, content string, processed bool) *core.Document {
	t.Helper()
	ctx := context.Background()
	added, err := docs.AddDocuments(ctx, &core.Document{Filename: "doc.txt", Content: content})
	require.NoError(t, err)
	doc := added[0]
	if processed {
		doc.Processed = true
		_, err = docs.UpdateDocuments(ctx, doc)
		require.NoError(t, err)
	}
	return doc
}

func TestNewSearcher(t *testing.T) {
	docRepo, tagRepo := setupRepos(t)

	t.Run("valid configuration", func(t *testing.T) {
		searcher, err := NewSearcher(docRepo, tagRepo)
		require.NoError(t, err)
		assert.NotNil(t, searcher)
		assert.Equal(t, DefaultTopTags, searcher.topTags)
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		searcher, err := NewSearcher(docRepo, tagRepo, WithLogger(nil))
		require.NoError(t, err)
		assert.Equal(t, slog.Default(), searcher.logger)
	})

	t.Run("nil document repository", func(t *testing.T) {
		_, err := NewSearcher(nil, tagRepo)
		assert.Equal(t, ErrDocumentRepositoryRequired, err)
	})

	t.Run("nil tag repository", func(t *testing.T) {
		_, err := NewSearcher(docRepo, nil)
		assert.Equal(t, ErrTagRepositoryRequired, err)
	})

	t.Run("invalid options", func(t *testing.T) {
		_, err := NewSearcher(docRepo, tagRepo, WithEngine(nil))
		assert.Error(t, err)
		_, err = NewSearcher(docRepo, tagRepo, WithTopTags(-1))
		assert.ErrorIs(t, err, core.ErrInput)
	})
}

func TestFindSimilar_NoCandidates(t *testing.T) {
	docRepo, tagRepo := setupRepos(t)
	searcher, err := NewSearcher(docRepo, tagRepo)
	require.NoError(t, err)

	query := storeDoc(t, docRepo, "Machine learning models learn from data.", true)
	storeDoc(t, docRepo, "Machine learning models learn from data.", false)

	results, err := searcher.FindSimilar(context.Background(), query.Id, 0.1, 5)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results, "the query and unprocessed documents are never candidates")
}

func TestFindSimilar_RanksAndHydrates(t *testing.T) {
	docRepo, tagRepo := setupRepos(t)
	ctx := context.Background()

	query := storeDoc(t, docRepo, "Machine learning models learn patterns from training data.", true)
	related := storeDoc(t, docRepo, "Deep learning models learn representations from data.", true)
	storeDoc(t, docRepo, "The recipe needs flour, sugar and butter.", true)

	for i, name := range []string{"deep", "learning", "model", "data", "representation", "custom"} {
		tagType := core.TagTypeKeyword
		if name == "custom" {
			tagType = core.TagTypeCustom
		}
		_, err := tagRepo.AddTags(ctx, &core.Tag{DocumentId: related.Id, Name: name, Type: tagType, Confidence: 0.9 - 0.1*float64(i)})
		require.NoError(t, err)
	}

	searcher, err := NewSearcher(docRepo, tagRepo)
	require.NoError(t, err)

	monitor := &recordingMonitor{}
	results, err := searcher.FindSimilarWithMonitor(ctx, query.Id, 0.1, 5, monitor)
	require.NoError(t, err)
	require.Len(t, results, 1)

	hit := results[0]
	assert.Equal(t, related.Id, hit.Document.Id)
	assert.Equal(t, related.Content, hit.Document.Content)
	assert.Greater(t, hit.Score, 0.1)
	assert.LessOrEqual(t, hit.Score, 1.0)

	require.Len(t, hit.Tags, DefaultTopTags)
	assert.Equal(t, "deep", hit.Tags[0].Name)
	for i := 1; i < len(hit.Tags); i++ {
		assert.GreaterOrEqual(t, hit.Tags[i-1].Confidence, hit.Tags[i].Confidence)
	}

	assert.Equal(t, 2, monitor.candidates)
	assert.Len(t, monitor.hits, 1)
	assert.True(t, monitor.finished)
}

func TestFindSimilar_LimitAndThreshold(t *testing.T) {
	docRepo, tagRepo := setupRepos(t)
	ctx := context.Background()

	query := storeDoc(t, docRepo, "Google and Microsoft invest in AI research.", true)
	storeDoc(t, docRepo, "Google invests in AI.", true)
	storeDoc(t, docRepo, "Microsoft invests in AI research labs.", true)
	storeDoc(t, docRepo, "AI research grows.", true)

	searcher, err := NewSearcher(docRepo, tagRepo)
	require.NoError(t, err)

	all, err := searcher.FindSimilar(ctx, query.Id, 0, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		assert.GreaterOrEqual(t, all[i-1].Score, all[i].Score)
	}

	limited, err := searcher.FindSimilar(ctx, query.Id, 0, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, all[0].Document.Id, limited[0].Document.Id)

	none, err := searcher.FindSimilar(ctx, query.Id, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, none)

	zero, err := searcher.FindSimilar(ctx, query.Id, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, zero)
}

func TestFindSimilar_Errors(t *testing.T) {
	docRepo, tagRepo := setupRepos(t)
	searcher, err := NewSearcher(docRepo, tagRepo)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = searcher.FindSimilar(ctx, 404, 0.3, 5)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	doc := storeDoc(t, docRepo, "text", true)
	_, err = searcher.FindSimilar(ctx, doc.Id, 1.5, 5)
	assert.ErrorIs(t, err, core.ErrInput)
	_, err = searcher.FindSimilar(ctx, doc.Id, 0.3, -1)
	assert.ErrorIs(t, err, core.ErrInput)
}

func TestFindSimilarText(t *testing.T) {
	docRepo, tagRepo := setupRepos(t)
	ctx := context.Background()

	target := storeDoc(t, docRepo, "Kubernetes schedules containers across a cluster.", true)
	storeDoc(t, docRepo, "Bread rises when yeast ferments.", true)
	storeDoc(t, docRepo, "Kubernetes containers cluster scheduling.", false)

	searcher, err := NewSearcher(docRepo, tagRepo)
	require.NoError(t, err)

	results, err := searcher.FindSimilarText(ctx, "container cluster with Kubernetes", 0.1, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, target.Id, results[0].Document.Id)
	assert.NotNil(t, results[0].Tags)

	_, err = searcher.FindSimilarText(ctx, "   ", 0.1, 5)
	assert.ErrorIs(t, err, core.ErrInput)
}

func TestTopTags(t *testing.T) {
	tags := []*core.Tag{
		{Name: "b", Confidence: 0.5},
		{Name: "a", Confidence: 0.5},
		{Name: "c", Confidence: 0.9},
	}
	got := topTags(tags, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].Name)
	assert.Equal(t, "a", got[1].Name)
	assert.Equal(t, "b", tags[0].Name, "input is not reordered")
	assert.Empty(t, topTags(nil, 5))
}
