package text

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMinTokenLength is the shortest token kept by NewNormalizer.
const DefaultMinTokenLength = 3

var (
	urlPattern     = regexp.MustCompile(`(?:https?://|www\.)\S+`)
	emailPattern   = regexp.MustCompile(`\S+@\S+`)
	nonWordPattern = regexp.MustCompile(`[^a-z0-9\s]+`)
)

// Normalizer converts raw text into a sequence of normalized tokens.
// A Normalizer is immutable after construction and safe for concurrent use.
type Normalizer struct {
	minTokenLength int
	stopwords      map[string]struct{}
	lemmatizer     Lemmatizer
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithMinTokenLength drops tokens shorter than n runes. Values below 1 keep every token.
func WithMinTokenLength(n int) Option {
	return func(nz *Normalizer) {
		nz.minTokenLength = n
	}
}

// WithStopwords replaces the default English stopword list.
// Words are lowercased before use.
func WithStopwords(words []string) Option {
	return func(nz *Normalizer) {
		lowered := make([]string, len(words))
		for i, w := range words {
			lowered[i] = strings.ToLower(w)
		}
		nz.stopwords = stopwordSet(lowered)
	}
}

// WithLemmatizer sets the token reducer. A nil lemmatizer leaves tokens unchanged.
func WithLemmatizer(l Lemmatizer) Option {
	return func(nz *Normalizer) {
		nz.lemmatizer = l
	}
}

// NewNormalizer creates a Normalizer. Defaults: minimum token length 3,
// English stopwords, dictionary lemmatization.
func NewNormalizer(opts ...Option) *Normalizer {
	nz := &Normalizer{
		minTokenLength: DefaultMinTokenLength,
		stopwords:      defaultStopwords,
		lemmatizer:     NewDictionaryLemmatizer(),
	}
	for _, opt := range opts {
		opt(nz)
	}
	return nz
}

// MinTokenLength returns the configured minimum token length.
func (n *Normalizer) MinTokenLength() int {
	return n.minTokenLength
}

// Normalize returns the normalized tokens of text in document order.
// Empty or content-free input yields an empty slice.
func (n *Normalizer) Normalize(text string) []string {
	fields := strings.Fields(Clean(text))
	tokens := make([]string, 0, len(fields))
	for _, tok := range fields {
		if _, stop := n.stopwords[tok]; stop {
			continue
		}
		if utf8.RuneCountInString(tok) < n.minTokenLength {
			continue
		}
		if n.lemmatizer != nil {
			tok = n.lemmatizer.Lemmatize(tok)
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// NormalizeAll normalizes every text in texts, preserving order.
func (n *Normalizer) NormalizeAll(texts []string) [][]string {
	out := make([][]string, len(texts))
	for i, t := range texts {
		out[i] = n.Normalize(t)
	}
	return out
}

// Clean lowercases text, removes URLs and email addresses, and replaces
// every character outside [a-z0-9] and whitespace with a space.
func Clean(text string) string {
	s := strings.ToLower(text)
	s = urlPattern.ReplaceAllString(s, " ")
	s = emailPattern.ReplaceAllString(s, " ")
	return nonWordPattern.ReplaceAllString(s, " ")
}
