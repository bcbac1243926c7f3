package badger

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/autotag/core"
	"github.com/poiesic/autotag/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddTags_Upsert(t *testing.T) {
	docRepo, tagRepo := newTestRepos(t)
	ctx := context.Background()
	doc := addDocs(t, docRepo, "content")[0]

	added, err := tagRepo.AddTags(ctx, &core.Tag{DocumentId: doc.Id, Name: "Google", Type: core.TagTypeEntity, Confidence: 0.8, EntityType: core.EntityOrg})
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, core.TagID(doc.Id, "Google", core.TagTypeEntity), added[0].Id)
	created := added[0].CreatedAt
	assert.False(t, created.IsZero())

	time.Sleep(2 * time.Millisecond)
	_, err = tagRepo.AddTags(ctx, &core.Tag{DocumentId: doc.Id, Name: "google", Type: core.TagTypeEntity, Confidence: 0.9, EntityType: core.EntityOrg})
	require.NoError(t, err)

	tags, err := tagRepo.GetTags(ctx, doc.Id)
	require.NoError(t, err)
	require.Len(t, tags, 1, "same name and type in another case replaces the tag")
	assert.Equal(t, 0.9, tags[0].Confidence)
	assert.True(t, created.Equal(tags[0].CreatedAt), "replacing keeps the creation time")
}

func TestAddTags_MissingDocument(t *testing.T) {
	_, tagRepo := newTestRepos(t)
	_, err := tagRepo.AddTags(context.Background(), &core.Tag{DocumentId: 12345, Name: "x", Type: core.TagTypeCustom, Confidence: 1})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetTags_Order(t *testing.T) {
	docRepo, tagRepo := newTestRepos(t)
	ctx := context.Background()
	doc := addDocs(t, docRepo, "content")[0]

	_, err := tagRepo.AddTags(ctx,
		&core.Tag{DocumentId: doc.Id, Name: "urgent", Type: core.TagTypeCustom, Confidence: 1},
		&core.Tag{DocumentId: doc.Id, Name: "Microsoft", Type: core.TagTypeEntity, Confidence: 0.8},
		&core.Tag{DocumentId: doc.Id, Name: "research", Type: core.TagTypeKeyword, Confidence: 0.3},
		&core.Tag{DocumentId: doc.Id, Name: "google", Type: core.TagTypeKeyword, Confidence: 0.6},
		&core.Tag{DocumentId: doc.Id, Name: "Google", Type: core.TagTypeEntity, Confidence: 0.8},
	)
	require.NoError(t, err)

	tags, err := tagRepo.GetTags(ctx, doc.Id)
	require.NoError(t, err)

	var names []string
	for _, tag := range tags {
		names = append(names, string(tag.Type)+":"+tag.Name)
	}
	assert.Equal(t, []string{
		"keyword:google",
		"keyword:research",
		"entity:Google",
		"entity:Microsoft",
		"custom:urgent",
	}, names)
}

func TestReplaceTags_KeepsOtherTypes(t *testing.T) {
	docRepo, tagRepo := newTestRepos(t)
	ctx := context.Background()
	doc := addDocs(t, docRepo, "content")[0]

	_, err := tagRepo.AddTags(ctx,
		&core.Tag{DocumentId: doc.Id, Name: "old keyword", Type: core.TagTypeKeyword, Confidence: 0.4},
		&core.Tag{DocumentId: doc.Id, Name: "Old Corp", Type: core.TagTypeEntity, Confidence: 0.8},
		&core.Tag{DocumentId: doc.Id, Name: "mine", Type: core.TagTypeCustom, Confidence: 1},
	)
	require.NoError(t, err)

	_, err = tagRepo.ReplaceTags(ctx, doc.Id,
		[]core.TagType{core.TagTypeKeyword, core.TagTypeEntity},
		&core.Tag{Name: "new keyword", Type: core.TagTypeKeyword, Confidence: 0.7},
	)
	require.NoError(t, err)

	tags, err := tagRepo.GetTags(ctx, doc.Id)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "new keyword", tags[0].Name)
	assert.Equal(t, doc.Id, tags[0].DocumentId)
	assert.Equal(t, "mine", tags[1].Name)

	_, err = tagRepo.ReplaceTags(ctx, 999, []core.TagType{core.TagTypeKeyword})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRemoveTags(t *testing.T) {
	docRepo, tagRepo := newTestRepos(t)
	ctx := context.Background()
	doc := addDocs(t, docRepo, "content")[0]

	added, err := tagRepo.AddTags(ctx,
		&core.Tag{DocumentId: doc.Id, Name: "a", Type: core.TagTypeCustom, Confidence: 1},
		&core.Tag{DocumentId: doc.Id, Name: "b", Type: core.TagTypeCustom, Confidence: 1},
	)
	require.NoError(t, err)

	n, err := tagRepo.RemoveTags(ctx, doc.Id, added[0].Id, core.ID(42))
	require.NoError(t, err)
	assert.Equal(t, 1, n, "unknown IDs are not counted")

	tags, err := tagRepo.GetTags(ctx, doc.Id)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "b", tags[0].Name)
}

func TestTagStatistics(t *testing.T) {
	docRepo, tagRepo := newTestRepos(t)
	ctx := context.Background()
	docs := addDocs(t, docRepo, "one", "two", "three")

	for i, doc := range docs {
		_, err := tagRepo.AddTags(ctx,
			&core.Tag{DocumentId: doc.Id, Name: "Google", Type: core.TagTypeEntity, Confidence: 0.8, EntityType: core.EntityOrg},
			&core.Tag{DocumentId: doc.Id, Name: "research", Type: core.TagTypeKeyword, Confidence: 0.2 * float64(i+1)},
		)
		require.NoError(t, err)
	}
	_, err := tagRepo.AddTags(ctx, &core.Tag{DocumentId: docs[0].Id, Name: "urgent", Type: core.TagTypeCustom, Confidence: 1})
	require.NoError(t, err)

	t.Run("all types", func(t *testing.T) {
		stats, err := tagRepo.TagStatistics(ctx, storage.StatsOptions{})
		require.NoError(t, err)
		require.Len(t, stats.Tags, 3)

		assert.Equal(t, "Google", stats.Tags[0].Name)
		assert.Equal(t, 3, stats.Tags[0].DocumentCount)
		assert.Equal(t, "research", stats.Tags[1].Name)
		assert.InDelta(t, 0.4, stats.Tags[1].AvgConfidence, 1e-9)
		assert.Equal(t, "urgent", stats.Tags[2].Name)

		require.Len(t, stats.Summary, 3)
		assert.Equal(t, core.TagTypeKeyword, stats.Summary[0].Type)
		assert.Equal(t, 3, stats.Summary[0].TotalTags)
		assert.Equal(t, 1, stats.Summary[0].UniqueNames)
		assert.Equal(t, core.TagTypeCustom, stats.Summary[2].Type)
	})

	t.Run("filters", func(t *testing.T) {
		stats, err := tagRepo.TagStatistics(ctx, storage.StatsOptions{Type: core.TagTypeKeyword})
		require.NoError(t, err)
		require.Len(t, stats.Tags, 1)
		require.Len(t, stats.Summary, 1)

		stats, err = tagRepo.TagStatistics(ctx, storage.StatsOptions{MinCount: 2})
		require.NoError(t, err)
		assert.Len(t, stats.Tags, 2)

		stats, err = tagRepo.TagStatistics(ctx, storage.StatsOptions{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, stats.Tags, 1)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := tagRepo.TagStatistics(ctx, storage.StatsOptions{Limit: -1})
		assert.ErrorIs(t, err, storage.ErrInvalidQuery)
		_, err = tagRepo.TagStatistics(ctx, storage.StatsOptions{Type: "bogus"})
		assert.ErrorIs(t, err, storage.ErrInvalidQuery)
	})
}

func TestTagStatistics_Empty(t *testing.T) {
	_, tagRepo := newTestRepos(t)
	stats, err := tagRepo.TagStatistics(context.Background(), storage.StatsOptions{})
	require.NoError(t, err)
	assert.Empty(t, stats.Tags)
	assert.Empty(t, stats.Summary)
}
