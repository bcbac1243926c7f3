package mock

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/poiesic/autotag/entity"
)

// MockRecognizer is a test double for entity.Recognizer.
// It allows custom behavior injection via function fields.
type MockRecognizer struct {
	// RecognizeFunc is called by Recognize if set.
	// If nil, the gazetteer is matched against the text.
	RecognizeFunc func(ctx context.Context, text string) ([]entity.Mention, error)

	// Gazetteer maps exact surface strings to labels.
	Gazetteer map[string]string

	callCount atomic.Int64
}

var _ entity.Recognizer = (*MockRecognizer)(nil)

// NewMockRecognizer creates a mock recognizer that labels every occurrence of
// the gazetteer's keys.
// Note: Returns concrete type to allow test assertions via CallCount().
func NewMockRecognizer(gazetteer map[string]string) *MockRecognizer {
	return &MockRecognizer{Gazetteer: gazetteer}
}

// Recognize returns one mention per gazetteer match, ordered by position.
func (m *MockRecognizer) Recognize(ctx context.Context, text string) ([]entity.Mention, error) {
	m.callCount.Add(1)

	if m.RecognizeFunc != nil {
		return m.RecognizeFunc(ctx, text)
	}

	type hit struct {
		pos int
		entity.Mention
	}
	var hits []hit
	for surface, label := range m.Gazetteer {
		if surface == "" {
			continue
		}
		for offset := 0; ; {
			i := strings.Index(text[offset:], surface)
			if i < 0 {
				break
			}
			hits = append(hits, hit{pos: offset + i, Mention: entity.Mention{Text: surface, Label: label}})
			offset += i + len(surface)
		}
	}
	slices.SortFunc(hits, func(a, b hit) int {
		if c := cmp.Compare(a.pos, b.pos); c != 0 {
			return c
		}
		return cmp.Compare(a.Text, b.Text)
	})

	mentions := make([]entity.Mention, len(hits))
	for i, h := range hits {
		mentions[i] = h.Mention
	}
	return mentions, nil
}

// CallCount returns the number of times Recognize was called.
func (m *MockRecognizer) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and custom functions.
func (m *MockRecognizer) Reset() {
	m.callCount.Store(0)
	m.RecognizeFunc = nil
}
