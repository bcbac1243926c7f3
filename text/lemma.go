package text

import (
	"strings"

	"github.com/kljensen/snowball"
)

// Lemmatizer reduces a lowercased token to its base form.
// Implementations must be deterministic and safe for concurrent use.
type Lemmatizer interface {
	Lemmatize(token string) string
}

// DictionaryLemmatizer maps plural nouns to their singular dictionary form.
//
// It consults a table of irregular plurals first, leaves known uninflected
// words alone, and otherwise applies English plural suffix rules. Like a
// noun-only WordNet lookup, it does not touch verb or adjective inflections:
// "learning" and "revolutionizing" come back unchanged.
type DictionaryLemmatizer struct {
	irregular   map[string]string
	uninflected map[string]struct{}
}

var _ Lemmatizer = (*DictionaryLemmatizer)(nil)

// NewDictionaryLemmatizer returns a lemmatizer loaded with the built-in tables.
func NewDictionaryLemmatizer() *DictionaryLemmatizer {
	return &DictionaryLemmatizer{
		irregular:   irregularPlurals,
		uninflected: stopwordSet(uninflectedWords),
	}
}

// Lemmatize returns the singular form of token, or token itself when no rule applies.
func (l *DictionaryLemmatizer) Lemmatize(token string) string {
	if lemma, ok := l.irregular[token]; ok {
		return lemma
	}
	if _, ok := l.uninflected[token]; ok {
		return token
	}
	if len(token) <= 3 || strings.ContainsAny(token, "0123456789") {
		return token
	}

	switch {
	case strings.HasSuffix(token, "ies") && len(token) > 4:
		return token[:len(token)-3] + "y"
	case strings.HasSuffix(token, "sses"),
		strings.HasSuffix(token, "xes"),
		strings.HasSuffix(token, "ches"),
		strings.HasSuffix(token, "shes"),
		strings.HasSuffix(token, "zzes"):
		return token[:len(token)-2]
	case strings.HasSuffix(token, "ss"),
		strings.HasSuffix(token, "us"),
		strings.HasSuffix(token, "is"),
		strings.HasSuffix(token, "ics"):
		return token
	case strings.HasSuffix(token, "s"):
		return token[:len(token)-1]
	}
	return token
}

// SnowballStemmer reduces tokens with the Snowball (Porter2) stemmer.
// Stems are not always dictionary words ("technology" becomes "technolog"),
// so it trades readable tags for more aggressive conflation.
type SnowballStemmer struct {
	Language string
}

var _ Lemmatizer = (*SnowballStemmer)(nil)

// NewSnowballStemmer returns an English Snowball stemmer.
func NewSnowballStemmer() *SnowballStemmer {
	return &SnowballStemmer{Language: "english"}
}

// Lemmatize returns the Snowball stem of token, or token if stemming fails.
func (s *SnowballStemmer) Lemmatize(token string) string {
	stem, err := snowball.Stem(token, s.Language, false)
	if err != nil || stem == "" {
		return token
	}
	return stem
}

var irregularPlurals = map[string]string{
	"men":        "man",
	"women":      "woman",
	"children":   "child",
	"mice":       "mouse",
	"geese":      "goose",
	"feet":       "foot",
	"teeth":      "tooth",
	"oxen":       "ox",
	"lives":      "life",
	"wives":      "wife",
	"knives":     "knife",
	"leaves":     "leaf",
	"halves":     "half",
	"wolves":     "wolf",
	"shelves":    "shelf",
	"thieves":    "thief",
	"criteria":   "criterion",
	"phenomena":  "phenomenon",
	"analyses":   "analysis",
	"theses":     "thesis",
	"crises":     "crisis",
	"hypotheses": "hypothesis",
	"diagnoses":  "diagnosis",
	"indices":    "index",
	"matrices":   "matrix",
	"vertices":   "vertex",
	"appendices": "appendix",
	"buses":      "bus",
	"statuses":   "status",
	"viruses":    "virus",
	"campuses":   "campus",
	"bonuses":    "bonus",
	"movies":     "movie",
	"cookies":    "cookie",
	"calories":   "calorie",
	"rookies":    "rookie",
	"zombies":    "zombie",
	"caches":     "cache",
	"niches":     "niche",
	"headaches":  "headache",
	"avalanches": "avalanche",
	"quizzes":    "quiz",
}

var uninflectedWords = []string{
	"news", "series", "species", "means", "headquarters", "always", "perhaps",
	"sometimes", "whereas", "afterwards", "towards", "besides", "thus",
	"nevertheless", "bias", "alias", "atlas", "canvas", "christmas", "texas",
	"pancreas", "lens", "kudos", "chaos", "ethos", "pathos", "cosmos",
}
