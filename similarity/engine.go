// Package similarity ranks candidate documents by TF-IDF cosine similarity
// to a query document.
//
// Every call fits a fresh vector space over the query and its candidates
// only, independent of the corpus used for keyword scoring, so one ranking
// is never affected by documents outside the comparison set.
package similarity

import (
	"cmp"
	"slices"

	"github.com/poiesic/autotag/core"
	"github.com/poiesic/autotag/text"
)

// DefaultMinTokenLength keeps two-letter terms such as "ai" in the space.
const DefaultMinTokenLength = 2

// Engine ranks documents by similarity. It is immutable and safe for
// concurrent use.
type Engine struct {
	normalizer *text.Normalizer
}

// Option configures an Engine.
type Option func(*Engine)

// WithNormalizer sets the normalizer used to tokenize the query and candidates.
func WithNormalizer(n *text.Normalizer) Option {
	return func(e *Engine) {
		if n != nil {
			e.normalizer = n
		}
	}
}

// NewEngine creates an Engine. By default it normalizes with
// DefaultMinTokenLength and the default stopwords and lemmatizer.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{normalizer: text.NewNormalizer(text.WithMinTokenLength(DefaultMinTokenLength))}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEngine = NewEngine()

// RankSimilar ranks candidates with the default Engine.
func RankSimilar(query string, candidates map[core.ID]string, threshold float64, limit int) ([]core.SimilarityResult, error) {
	return defaultEngine.RankSimilar(query, candidates, threshold, limit)
}

// RankSimilar scores every candidate against query and returns those scoring
// at least threshold, best first, at most limit of them. Equal scores are
// ordered by ascending document ID.
//
// An empty candidate set, a threshold outside [0,1] or a negative limit is a
// *core.InputError. The caller excludes the query document from candidates.
func (e *Engine) RankSimilar(query string, candidates map[core.ID]string, threshold float64, limit int) ([]core.SimilarityResult, error) {
	if len(candidates) == 0 {
		return nil, &core.InputError{Field: "candidates", Reason: "at least one candidate document is required"}
	}
	if err := core.ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	if err := core.ValidateLimit("limit", limit); err != nil {
		return nil, err
	}

	ids := make([]core.ID, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	docs := make([][]string, 0, len(ids)+1)
	docs = append(docs, e.normalizer.Normalize(query))
	for _, id := range ids {
		docs = append(docs, e.normalizer.Normalize(candidates[id]))
	}

	space := Fit(docs)
	queryVec := space.Transform(docs[0])

	results := make([]core.SimilarityResult, 0, len(ids))
	for i, id := range ids {
		score := Cosine(queryVec, space.Transform(docs[i+1]))
		if score < threshold {
			continue
		}
		results = append(results, core.SimilarityResult{DocumentId: id, Score: score})
	}

	slices.SortStableFunc(results, func(a, b core.SimilarityResult) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.DocumentId, b.DocumentId)
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
