// Package keywords scores candidate keywords of a document with TF-IDF.
//
// Candidate terms are the unigrams and bigrams of a normalized token
// sequence. Document frequencies come from a caller-supplied corpus snapshot
// that is rebuilt on every call, so scores always reflect the corpus as it is
// at call time.
package keywords

import (
	"cmp"
	"math"
	"slices"
	"unicode/utf8"

	"github.com/poiesic/autotag/core"
	"gonum.org/v1/gonum/floats"
)

// term is a candidate keyword and where it first appears in the document.
type term struct {
	text     string
	firstPos int
	n        int
	count    int
}

// Score returns the top maxKeywords terms of doc ranked by L2-normalized
// TF-IDF weight against corpus.
//
// The corpus is expected to contain doc. When no corpus entry equals doc it is
// counted as one more corpus member. Terms shorter than minLength runes are
// skipped. Ties in score break by earlier first occurrence in doc, then by
// longer n-gram, then lexically. Every returned score lies in [0,1].
func Score(doc []string, corpus [][]string, maxKeywords, minLength int) ([]core.Keyword, error) {
	if err := core.ValidateLimit("max_keywords", maxKeywords); err != nil {
		return nil, err
	}
	if err := core.ValidateLimit("min_length", minLength); err != nil {
		return nil, err
	}

	terms := documentTerms(doc, minLength)
	if len(terms) == 0 || maxKeywords == 0 {
		return []core.Keyword{}, nil
	}

	df, n := documentFrequencies(terms, doc, corpus)

	weights := make([]float64, len(terms))
	for i, t := range terms {
		weights[i] = float64(t.count) * IDF(n, df[t.text])
	}
	if norm := floats.Norm(weights, 2); norm > 0 {
		floats.Scale(1/norm, weights)
	}

	order := make([]int, len(terms))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		if c := cmp.Compare(weights[b], weights[a]); c != 0 {
			return c
		}
		ta, tb := terms[a], terms[b]
		if c := cmp.Compare(ta.firstPos, tb.firstPos); c != 0 {
			return c
		}
		if c := cmp.Compare(tb.n, ta.n); c != 0 {
			return c
		}
		return cmp.Compare(ta.text, tb.text)
	})

	if len(order) > maxKeywords {
		order = order[:maxKeywords]
	}
	out := make([]core.Keyword, len(order))
	for i, idx := range order {
		out[i] = core.Keyword{Term: terms[idx].text, Score: core.Clamp01(weights[idx])}
	}
	return out, nil
}

// IDF returns the smoothed inverse document frequency ln((1+n)/(1+df)) + 1.
func IDF(n, df int) float64 {
	return math.Log(float64(1+n)/float64(1+df)) + 1
}

// documentTerms lists the distinct unigrams and bigrams of doc in order of
// first appearance, with their counts.
func documentTerms(doc []string, minLength int) []*term {
	index := make(map[string]*term)
	var terms []*term

	add := func(text string, pos, n int) {
		if utf8.RuneCountInString(text) < minLength {
			return
		}
		if t, ok := index[text]; ok {
			t.count++
			return
		}
		t := &term{text: text, firstPos: pos, n: n, count: 1}
		index[text] = t
		terms = append(terms, t)
	}

	for i, tok := range doc {
		add(tok, i, 1)
		if i+1 < len(doc) {
			add(tok+" "+doc[i+1], i, 2)
		}
	}
	return terms
}

// documentFrequencies counts, for each of terms, how many corpus members
// contain it. It returns the counts and the effective corpus size.
func documentFrequencies(terms []*term, doc []string, corpus [][]string) (map[string]int, int) {
	wanted := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		wanted[t.text] = struct{}{}
	}

	members := corpus
	if !slices.ContainsFunc(corpus, func(c []string) bool { return slices.Equal(c, doc) }) {
		members = append(slices.Clip(corpus), doc)
	}

	df := make(map[string]int, len(terms))
	for _, tokens := range members {
		for text := range NGrams(tokens, 2) {
			if _, ok := wanted[text]; ok {
				df[text]++
			}
		}
	}
	return df, len(members)
}

// NGrams returns the set of distinct n-grams of tokens for every size 1..maxN,
// joined with single spaces.
func NGrams(tokens []string, maxN int) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens)*maxN)
	for n := 1; n <= maxN; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			gram := tokens[i]
			for _, next := range tokens[i+1 : i+n] {
				gram += " " + next
			}
			set[gram] = struct{}{}
		}
	}
	return set
}
