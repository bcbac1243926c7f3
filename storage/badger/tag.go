package badger

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/autotag/core"
	"github.com/poiesic/autotag/storage"
)

// TagRepository implements storage.TagRepository for BadgerDB.
// Tags live under their document's key prefix, so a document's tags are read
// with one prefix scan.
type TagRepository struct {
	backend *Backend
}

var _ storage.TagRepository = (*TagRepository)(nil)

// NewTagRepository creates a new TagRepository.
func NewTagRepository(backend *Backend) *TagRepository {
	return &TagRepository{
		backend: backend,
	}
}

// Close is a no-op; the backend owns every resource.
func (r *TagRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *TagRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddTags stores tags, replacing any existing tag with the same ID.
func (r *TagRepository) AddTags(ctx context.Context, tags ...*core.Tag) ([]*core.Tag, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, tag := range tags {
			if err := requireDocument(tx, tag.DocumentId); err != nil {
				return err
			}
			if err := putTag(tx, tag); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return tags, err
}

// ReplaceTags deletes every tag of docID whose type is listed, then stores tags.
func (r *TagRepository) ReplaceTags(ctx context.Context, docID core.ID, types []core.TagType, tags ...*core.Tag) ([]*core.Tag, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if err := requireDocument(tx, docID); err != nil {
			return err
		}

		existing, err := scanTags(tx, makeDocumentTagsPrefix(docID))
		if err != nil {
			return err
		}
		for _, old := range existing {
			if !slices.Contains(types, old.Type) {
				continue
			}
			if err := tx.Delete(makeTagKey(docID, old.Id)); err != nil {
				return err
			}
		}

		for _, tag := range tags {
			tag.DocumentId = docID
			if err := putTag(tx, tag); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return tags, err
}

// RemoveTags deletes tags of docID by ID. Unknown IDs are skipped.
func (r *TagRepository) RemoveTags(ctx context.Context, docID core.ID, tagIDs ...core.ID) (int, error) {
	removed := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range tagIDs {
			key := makeTagKey(docID, id)
			if _, err := tx.Get(key); err != nil {
				if err == badger.ErrKeyNotFound {
					continue
				}
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
			removed++
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// GetTags returns the tags of docID in display order.
func (r *TagRepository) GetTags(ctx context.Context, docID core.ID) ([]*core.Tag, error) {
	var tags []*core.Tag
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		tags, err = scanTags(tx, makeDocumentTagsPrefix(docID))
		return err
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(tags, compareTags)
	return tags, nil
}

// TagStatistics aggregates every stored tag. Names are grouped
// case-insensitively within a type; the first spelling seen is reported.
func (r *TagRepository) TagStatistics(ctx context.Context, opts storage.StatsOptions) (*storage.TagStatistics, error) {
	if opts.MinCount < 0 || opts.Limit < 0 {
		return nil, fmt.Errorf("%w: min count %d, limit %d", storage.ErrInvalidQuery, opts.MinCount, opts.Limit)
	}
	if opts.Type != "" {
		if err := core.ValidateTagType(opts.Type); err != nil {
			return nil, fmt.Errorf("%w: %w", storage.ErrInvalidQuery, err)
		}
	}

	type groupKey struct {
		tagType core.TagType
		name    string
	}
	type group struct {
		name          string
		docs          map[core.ID]struct{}
		confidenceSum float64
		count         int
	}
	type typeTotals struct {
		count         int
		confidenceSum float64
		names         map[string]struct{}
	}

	groups := make(map[groupKey]*group)
	totals := make(map[core.TagType]*typeTotals)

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		tags, err := scanTags(tx, []byte(tagPrefix))
		if err != nil {
			return err
		}
		for _, tag := range tags {
			if opts.Type != "" && tag.Type != opts.Type {
				continue
			}
			key := groupKey{tagType: tag.Type, name: strings.ToLower(strings.TrimSpace(tag.Name))}

			g, ok := groups[key]
			if !ok {
				g = &group{name: tag.Name, docs: make(map[core.ID]struct{})}
				groups[key] = g
			}
			g.docs[tag.DocumentId] = struct{}{}
			g.confidenceSum += tag.Confidence
			g.count++

			t, ok := totals[tag.Type]
			if !ok {
				t = &typeTotals{names: make(map[string]struct{})}
				totals[tag.Type] = t
			}
			t.count++
			t.confidenceSum += tag.Confidence
			t.names[key.name] = struct{}{}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	result := &storage.TagStatistics{
		Tags:    []core.TagStat{},
		Summary: []core.TagSummary{},
	}
	for key, g := range groups {
		if len(g.docs) < opts.MinCount {
			continue
		}
		result.Tags = append(result.Tags, core.TagStat{
			Name:          g.name,
			Type:          key.tagType,
			DocumentCount: len(g.docs),
			AvgConfidence: g.confidenceSum / float64(g.count),
		})
	}
	slices.SortFunc(result.Tags, func(a, b core.TagStat) int {
		if c := cmp.Compare(b.DocumentCount, a.DocumentCount); c != 0 {
			return c
		}
		if c := cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return cmp.Compare(typeRank(a.Type), typeRank(b.Type))
	})
	if opts.Limit > 0 && len(result.Tags) > opts.Limit {
		result.Tags = result.Tags[:opts.Limit]
	}

	for _, tagType := range core.TagTypes {
		t, ok := totals[tagType]
		if !ok {
			continue
		}
		result.Summary = append(result.Summary, core.TagSummary{
			Type:          tagType,
			TotalTags:     t.count,
			UniqueNames:   len(t.names),
			AvgConfidence: t.confidenceSum / float64(t.count),
		})
	}

	return result, nil
}

// putTag assigns the tag its ID and writes it, keeping the creation time of
// a tag it replaces.
func putTag(tx *badger.Txn, tag *core.Tag) error {
	tag.Id = core.TagID(tag.DocumentId, tag.Name, tag.Type)
	key := makeTagKey(tag.DocumentId, tag.Id)

	if tag.CreatedAt.IsZero() {
		old, err := readTag(tx, key)
		if err != nil {
			return err
		}
		if old != nil {
			tag.CreatedAt = old.CreatedAt
		} else {
			tag.CreatedAt = time.Now().UTC()
		}
	}

	return tx.Set(key, storage.MarshalTag(tag))
}

// requireDocument returns ErrNotFound unless the document exists.
func requireDocument(tx *badger.Txn, docID core.ID) error {
	if _, err := tx.Get(makeDocumentKey(docID)); err != nil {
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("%w: document %s", storage.ErrNotFound, docID)
		}
		return translateErr(err)
	}
	return nil
}

// readTag reads a tag from a transaction.
// Returns nil, nil if the tag doesn't exist.
func readTag(tx *badger.Txn, key []byte) (*core.Tag, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, translateErr(err)
	}

	var tag *core.Tag
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		tag, unmarshalErr = storage.UnmarshalTag(val)
		return unmarshalErr
	})
	return tag, err
}

// scanTags decodes every tag whose key starts with prefix.
func scanTags(tx *badger.Txn, prefix []byte) ([]*core.Tag, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	tags := []*core.Tag{}
	for iter.Rewind(); iter.Valid(); iter.Next() {
		var tag *core.Tag
		if err := iter.Item().Value(func(val []byte) error {
			var err error
			tag, err = storage.UnmarshalTag(val)
			return err
		}); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// compareTags orders tags by type, then by descending confidence, then by name.
func compareTags(a, b *core.Tag) int {
	if c := cmp.Compare(typeRank(a.Type), typeRank(b.Type)); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Confidence, a.Confidence); c != 0 {
		return c
	}
	return cmp.Compare(a.Name, b.Name)
}

func typeRank(t core.TagType) int {
	if i := slices.Index(core.TagTypes, t); i >= 0 {
		return i
	}
	return len(core.TagTypes)
}
