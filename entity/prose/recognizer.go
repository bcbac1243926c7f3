// Package prose implements entity.Recognizer with the averaged-perceptron
// named-entity model of github.com/jdkato/prose.
//
// The model bundled with prose was trained on two categories only, PERSON
// and GPE, and it often files organizations under one of them ("Google"
// comes back as PERSON). ORG, LOC, PRODUCT, EVENT and WORK_OF_ART need a
// model trained on the full label set, loaded from disk with Load, or the
// openai backend.
package prose

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/jdkato/prose/v2"
	"github.com/poiesic/autotag/core"
	"github.com/poiesic/autotag/entity"
)

// Recognizer runs a loaded prose model. The model is read-only after Load,
// so one Recognizer serves concurrent callers.
type Recognizer struct {
	model   *prose.Model
	bundled bool
}

var (
	_ entity.Recognizer    = (*Recognizer)(nil)
	_ entity.LabelReporter = (*Recognizer)(nil)
)

// BundledLabels are the categories the bundled model can produce.
var BundledLabels = []core.EntityType{core.EntityPerson, core.EntityGPE}

// Load loads the model stored in the directory at path, or the bundled
// English model when path is empty. Loading is expensive; call it once at
// startup and share the result. Any failure, including a panic inside prose,
// is returned as a *core.ModelUnavailableError.
func Load(path string) (rec *Recognizer, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = &core.ModelUnavailableError{Cause: fmt.Errorf("loading prose model %q: %v", path, r)}
		}
	}()

	var opts []prose.DocOpt
	if path != "" {
		if _, statErr := os.Stat(path); statErr != nil {
			return nil, &core.ModelUnavailableError{Cause: statErr}
		}
		opts = append(opts, prose.UsingModel(prose.ModelFromDisk(path)))
	}

	// A first document forces the model to load and hands back the instance
	// used for every later call.
	doc, err := prose.NewDocument("Ada Lovelace lived in London.", opts...)
	if err != nil {
		return nil, &core.ModelUnavailableError{Cause: err}
	}
	if doc.Model == nil {
		return nil, &core.ModelUnavailableError{Cause: fmt.Errorf("prose returned no model for %q", path)}
	}
	return &Recognizer{model: doc.Model, bundled: path == ""}, nil
}

// Labels reports BundledLabels for the bundled model. A model loaded from
// disk is assumed to cover the whole allow-list.
func (r *Recognizer) Labels() []core.EntityType {
	if r != nil && r.bundled {
		return slices.Clone(BundledLabels)
	}
	return slices.Clone(core.EntityTypes)
}

// Recognize tags text and returns the model's entity chunks in order.
func (r *Recognizer) Recognize(ctx context.Context, text string) ([]entity.Mention, error) {
	if r == nil || r.model == nil {
		return nil, &core.ModelUnavailableError{}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := prose.NewDocument(text,
		prose.UsingModel(r.model),
		prose.WithSegmentation(false),
	)
	if err != nil {
		return nil, fmt.Errorf("prose: %w", err)
	}

	ents := doc.Entities()
	mentions := make([]entity.Mention, len(ents))
	for i, e := range ents {
		mentions[i] = entity.Mention{Text: e.Text, Label: e.Label}
	}
	return mentions, nil
}
