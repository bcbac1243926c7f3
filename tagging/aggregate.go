// Package tagging merges keyword and entity results into a document's tag
// list, and composes the full raw-text-to-tags pipeline in Tagger.
package tagging

import (
	"strings"

	"github.com/poiesic/autotag/core"
)

// Aggregate merges keywords and entities into one ranked tag list.
//
// Keyword tags come first, then entity tags, each group in its input order.
// A keyword that equals an entity's text, ignoring case, is dropped in favour
// of the entity. When the merged list is longer than maxTotal, both groups are
// cut in proportion to their sizes rather than one being dropped entirely.
// A negative maxTotal is an *core.InputError; empty inputs yield an empty list.
func Aggregate(keywords []core.Keyword, entities []core.Entity, maxTotal int) ([]core.Tag, error) {
	if err := core.ValidateLimit("max_tags", maxTotal); err != nil {
		return nil, err
	}

	entityTags := make([]core.Tag, 0, len(entities))
	entityNames := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		name := strings.TrimSpace(e.Text)
		key := strings.ToLower(name)
		if _, dup := entityNames[key]; dup || name == "" {
			continue
		}
		entityNames[key] = struct{}{}
		entityTags = append(entityTags, core.Tag{
			Name:       name,
			Type:       core.TagTypeEntity,
			Confidence: core.Clamp01(e.Confidence),
			EntityType: e.Type,
		})
	}

	keywordTags := make([]core.Tag, 0, len(keywords))
	keywordNames := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		name := strings.TrimSpace(k.Term)
		key := strings.ToLower(name)
		if name == "" {
			continue
		}
		if _, shadowed := entityNames[key]; shadowed {
			continue
		}
		if _, dup := keywordNames[key]; dup {
			continue
		}
		keywordNames[key] = struct{}{}
		keywordTags = append(keywordTags, core.Tag{
			Name:       name,
			Type:       core.TagTypeKeyword,
			Confidence: core.Clamp01(k.Score),
		})
	}

	kn, en := Shares(len(keywordTags), len(entityTags), maxTotal)
	tags := make([]core.Tag, 0, kn+en)
	tags = append(tags, keywordTags[:kn]...)
	tags = append(tags, entityTags[:en]...)
	return tags, nil
}

// Shares splits limit slots between a group of k keywords and e entities.
// If both fit, both are returned whole. Otherwise slots are assigned in
// proportion to group size by largest remainder, ties going to keywords, and
// a non-empty group is never left with zero slots when limit allows two.
func Shares(k, e, limit int) (int, int) {
	total := k + e
	if total <= limit {
		return k, e
	}
	if limit <= 0 {
		return 0, 0
	}

	kq, kr := (k*limit)/total, (k*limit)%total
	eq, er := (e*limit)/total, (e*limit)%total
	if kq+eq < limit {
		if kr >= er {
			kq++
		} else {
			eq++
		}
	}

	if limit >= 2 {
		if kq == 0 && k > 0 {
			kq, eq = 1, eq-1
		}
		if eq == 0 && e > 0 {
			eq, kq = 1, kq-1
		}
	}
	return kq, eq
}
