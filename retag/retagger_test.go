package retag

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/autotag/core"
	"github.com/poiesic/autotag/entity/mock"
	"github.com/poiesic/autotag/ingestion"
	"github.com/poiesic/autotag/tagging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyTagger fails the first failures calls, then delegates.
type flakyTagger struct {
	next     ingestion.Tagger
	failures int64
	calls    atomic.Int64
}

func (f *flakyTagger) Tag(ctx context.Context, raw string, corpus []string) (*tagging.Result, error) {
	if f.calls.Add(1) <= f.failures {
		return nil, errors.New("temporary failure")
	}
	return f.next.Tag(ctx, raw, corpus)
}

func testConfig() *Config {
	return &Config{
		BatchSize:      3,
		PoolSize:       2,
		ReportInterval: 2,
		MaxRetries:     3,
		RetryDelay:     time.Millisecond,
	}
}

func newTagger(t *testing.T, opts ...tagging.Option) *tagging.Tagger {
	t.Helper()
	tg, err := tagging.NewTagger(opts...)
	require.NoError(t, err)
	return tg
}

func TestNewRetagger_RequiredDependencies(t *testing.T) {
	docRepo, tagRepo := setupTestDB(t)
	tg := newTagger(t)

	_, err := NewRetagger(nil, tagRepo, tg)
	assert.ErrorIs(t, err, ErrDocumentRepositoryRequired)
	_, err = NewRetagger(docRepo, nil, tg)
	assert.ErrorIs(t, err, ErrTagRepositoryRequired)
	_, err = NewRetagger(docRepo, tagRepo, nil)
	assert.ErrorIs(t, err, ErrTaggerRequired)
}

func TestRetagger_Run(t *testing.T) {
	docRepo, tagRepo := setupTestDB(t)
	ctx := context.Background()
	docs := addDocuments(t, docRepo, 7)

	// A stale keyword and a custom tag on the first document
	_, err := tagRepo.AddTags(ctx,
		&core.Tag{DocumentId: docs[0].Id, Name: "stale", Type: core.TagTypeKeyword, Confidence: 0.5},
		&core.Tag{DocumentId: docs[0].Id, Name: "keep me", Type: core.TagTypeCustom, Confidence: 1},
	)
	require.NoError(t, err)

	var buf bytes.Buffer
	rec := mock.NewMockRecognizer(map[string]string{"Document": "WORK_OF_ART"})
	r, err := NewRetagger(docRepo, tagRepo, newTagger(t, tagging.WithRecognizer(rec)),
		WithConfig(testConfig()), WithProgress(&buf))
	require.NoError(t, err)

	stats, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, stats.Documents)
	assert.Equal(t, 7, stats.Retagged)
	assert.Zero(t, stats.Failed)
	assert.Zero(t, stats.Degraded)
	assert.Equal(t, 7, rec.CallCount())

	assert.Contains(t, buf.String(), "Starting retagging of 7 documents")
	assert.Contains(t, buf.String(), "7/7")

	for _, doc := range docs {
		stored, err := docRepo.GetDocument(ctx, doc.Id)
		require.NoError(t, err)
		assert.True(t, stored.Processed)
	}

	tags, err := tagRepo.GetTags(ctx, docs[0].Id)
	require.NoError(t, err)
	names := map[string]core.TagType{}
	for _, tag := range tags {
		names[tag.Name] = tag.Type
	}
	assert.NotContains(t, names, "stale")
	assert.Equal(t, core.TagTypeCustom, names["keep me"])
	assert.Equal(t, core.TagTypeEntity, names["Document"])
}

func TestRetagger_DegradedKeepsEntityTags(t *testing.T) {
	docRepo, tagRepo := setupTestDB(t)
	ctx := context.Background()
	doc := addDocuments(t, docRepo, 1)[0]

	_, err := tagRepo.AddTags(ctx, &core.Tag{DocumentId: doc.Id, Name: "Acme", Type: core.TagTypeEntity, Confidence: 0.8, EntityType: core.EntityOrg})
	require.NoError(t, err)

	r, err := NewRetagger(docRepo, tagRepo, newTagger(t), WithConfig(testConfig()))
	require.NoError(t, err)

	stats, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Degraded)

	tags, err := tagRepo.GetTags(ctx, doc.Id)
	require.NoError(t, err)
	var entities, keywords int
	for _, tag := range tags {
		switch tag.Type {
		case core.TagTypeEntity:
			entities++
		case core.TagTypeKeyword:
			keywords++
		}
	}
	assert.Equal(t, 1, entities)
	assert.Positive(t, keywords)
}

func TestRetagger_RetriesTransientFailures(t *testing.T) {
	docRepo, tagRepo := setupTestDB(t)
	addDocuments(t, docRepo, 1)

	flaky := &flakyTagger{next: newTagger(t), failures: 2}
	r, err := NewRetagger(docRepo, tagRepo, flaky, WithConfig(testConfig()))
	require.NoError(t, err)

	stats, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Retagged)
	assert.EqualValues(t, 3, flaky.calls.Load())
}

func TestRetagger_JoinsPermanentFailures(t *testing.T) {
	docRepo, tagRepo := setupTestDB(t)
	addDocuments(t, docRepo, 2)

	flaky := &flakyTagger{next: newTagger(t), failures: 1000}
	r, err := NewRetagger(docRepo, tagRepo, flaky, WithConfig(testConfig()))
	require.NoError(t, err)

	stats, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "temporary failure")
	assert.Equal(t, 2, stats.Failed)
	assert.Zero(t, stats.Retagged)
}

func TestRetagger_EmptyDatabase(t *testing.T) {
	docRepo, tagRepo := setupTestDB(t)
	var buf bytes.Buffer
	r, err := NewRetagger(docRepo, tagRepo, newTagger(t), WithProgress(&buf))
	require.NoError(t, err)

	stats, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Documents)
	assert.Contains(t, buf.String(), "No documents found")
}
