package tagging

import (
	"context"
	"errors"

	"github.com/poiesic/autotag/core"
	"github.com/poiesic/autotag/entity"
	"github.com/poiesic/autotag/keywords"
	"github.com/poiesic/autotag/text"
)

// Defaults used by NewTagger.
const (
	DefaultMaxKeywords      = 10
	DefaultMinKeywordLength = 3
	DefaultMaxTags          = 25
)

// Tagger runs the complete tagging pipeline on one document:
// normalize, score keywords, extract entities, aggregate.
// A Tagger holds no mutable state and is safe for concurrent use.
type Tagger struct {
	normalizer       *text.Normalizer
	recognizer       entity.Recognizer
	maxKeywords      int
	minKeywordLength int
	maxTags          int
}

// Result is the output of Tagger.Tag.
type Result struct {
	Keywords []core.Keyword
	Entities []core.Entity
	Tags     []core.Tag
}

// Option configures a Tagger.
type Option func(*Tagger) error

// WithNormalizer sets the normalizer used for keyword scoring.
func WithNormalizer(n *text.Normalizer) Option {
	return func(t *Tagger) error {
		if n == nil {
			return errors.New("tagger: normalizer is nil")
		}
		t.normalizer = n
		return nil
	}
}

// WithRecognizer sets the entity model. Without one, Tag returns keyword tags
// only, together with a *core.ModelUnavailableError.
func WithRecognizer(r entity.Recognizer) Option {
	return func(t *Tagger) error {
		t.recognizer = r
		return nil
	}
}

// WithMaxKeywords sets how many keywords are scored per document.
func WithMaxKeywords(n int) Option {
	return func(t *Tagger) error {
		if err := core.ValidateLimit("max_keywords", n); err != nil {
			return err
		}
		t.maxKeywords = n
		return nil
	}
}

// WithMinKeywordLength sets the shortest keyword kept, in runes.
func WithMinKeywordLength(n int) Option {
	return func(t *Tagger) error {
		if err := core.ValidateLimit("min_keyword_length", n); err != nil {
			return err
		}
		t.minKeywordLength = n
		return nil
	}
}

// WithMaxTags caps the number of tags per document.
func WithMaxTags(n int) Option {
	return func(t *Tagger) error {
		if err := core.ValidateLimit("max_tags", n); err != nil {
			return err
		}
		t.maxTags = n
		return nil
	}
}

// NewTagger creates a Tagger. The default normalizer keeps tokens of at least
// DefaultMinKeywordLength runes.
func NewTagger(opts ...Option) (*Tagger, error) {
	t := &Tagger{
		maxKeywords:      DefaultMaxKeywords,
		minKeywordLength: DefaultMinKeywordLength,
		maxTags:          DefaultMaxTags,
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	if t.normalizer == nil {
		t.normalizer = text.NewNormalizer(text.WithMinTokenLength(t.minKeywordLength))
	}
	return t, nil
}

// Tag computes tags for raw against corpus, the raw texts of every document
// the keyword statistics should cover. corpus should include raw itself.
//
// If entity extraction fails, Tag still returns the keyword tags along with
// the extraction error, so callers can keep the keywords when the model is
// unavailable (errors.Is(err, core.ErrModelUnavailable)).
func (t *Tagger) Tag(ctx context.Context, raw string, corpus []string) (*Result, error) {
	doc := t.normalizer.Normalize(raw)
	kws, err := keywords.Score(doc, t.normalizer.NormalizeAll(corpus), t.maxKeywords, t.minKeywordLength)
	if err != nil {
		return nil, err
	}

	ents, entErr := entity.Extract(ctx, t.recognizer, raw)
	if entErr != nil {
		ents = []core.Entity{}
	}

	tags, err := Aggregate(kws, ents, t.maxTags)
	if err != nil {
		return nil, err
	}
	return &Result{Keywords: kws, Entities: ents, Tags: tags}, entErr
}
