package similarity

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Vectorizer maps token sequences into a TF-IDF space fitted on one set of
// documents. It is built per comparison and discarded afterwards.
type Vectorizer struct {
	vocabulary map[string]int
	idf        []float64
}

// Fit builds the vocabulary and smoothed IDF weights of docs.
// Terms are indexed in order of first appearance, so the same input always
// yields the same space.
func Fit(docs [][]string) *Vectorizer {
	v := &Vectorizer{vocabulary: make(map[string]int)}
	var df []int
	for _, tokens := range docs {
		seen := make(map[int]struct{}, len(tokens))
		for _, tok := range tokens {
			idx, ok := v.vocabulary[tok]
			if !ok {
				idx = len(v.vocabulary)
				v.vocabulary[tok] = idx
				df = append(df, 0)
			}
			if _, dup := seen[idx]; !dup {
				seen[idx] = struct{}{}
				df[idx]++
			}
		}
	}

	n := float64(len(docs))
	v.idf = make([]float64, len(df))
	for i, d := range df {
		v.idf[i] = math.Log((1+n)/(1+float64(d))) + 1
	}
	return v
}

// Dim returns the number of terms in the space.
func (v *Vectorizer) Dim() int {
	return len(v.idf)
}

// Transform returns the raw-count TF-IDF vector of tokens.
// Tokens outside the vocabulary are ignored.
func (v *Vectorizer) Transform(tokens []string) []float64 {
	vec := make([]float64, len(v.idf))
	for _, tok := range tokens {
		if idx, ok := v.vocabulary[tok]; ok {
			vec[idx]++
		}
	}
	floats.Mul(vec, v.idf)
	return vec
}

// Cosine returns the cosine similarity of a and b, or 0 when either is all
// zeros. The result is clamped to [0,1], which holds for non-negative vectors.
func Cosine(a, b []float64) float64 {
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	sim := floats.Dot(a, b) / (na * nb)
	switch {
	case sim < 0:
		return 0
	case sim > 1:
		return 1
	}
	return sim
}
