package entity

import (
	"context"

	"github.com/poiesic/autotag/core"
)

// Recognizer finds entity mentions in text.
// Implementations must be safe for concurrent use and must not mutate
// shared state during recognition.
type Recognizer interface {
	// Recognize returns every entity mention found in text, in document order.
	// Labels are the model's own category names; Extract filters them.
	// Returns a *core.ModelUnavailableError if the underlying model is not loaded.
	Recognize(ctx context.Context, text string) ([]Mention, error)
}

// Mention is a span of text the model labeled as an entity.
type Mention struct {
	// Text is the mention as it appears in the input, casing preserved.
	Text string

	// Label is the model's category for the mention, e.g. "PERSON" or "ORG".
	Label string
}

// LabelReporter is implemented by recognizers whose model is known to emit
// only some of the allow-listed categories.
type LabelReporter interface {
	// Labels returns the allow-listed categories the model can produce.
	Labels() []core.EntityType
}
