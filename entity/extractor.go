package entity

import (
	"context"
	"slices"
	"strings"

	"github.com/poiesic/autotag/core"
)

// DefaultConfidence is assigned to every extracted entity. Recognizers do not
// expose per-mention confidence.
const DefaultConfidence = 0.8

// labelAliases maps labels used by other model families onto the allow-list.
var labelAliases = map[string]core.EntityType{
	"PER":          core.EntityPerson,
	"ORGANIZATION": core.EntityOrg,
	"LOCATION":     core.EntityLocation,
}

// Extract runs model over raw and returns the allow-listed entities it finds,
// deduplicated by lowercased text and type. The first occurrence's casing is
// kept. A nil model yields a *core.ModelUnavailableError.
func Extract(ctx context.Context, model Recognizer, raw string) ([]core.Entity, error) {
	if model == nil {
		return nil, &core.ModelUnavailableError{}
	}
	if strings.TrimSpace(raw) == "" {
		return []core.Entity{}, nil
	}

	mentions, err := model.Recognize(ctx, raw)
	if err != nil {
		return nil, err
	}

	type key struct {
		text string
		kind core.EntityType
	}
	seen := make(map[key]struct{}, len(mentions))
	entities := make([]core.Entity, 0, len(mentions))
	for _, m := range mentions {
		kind, ok := NormalizeLabel(m.Label)
		if !ok {
			continue
		}
		text := strings.Join(strings.Fields(m.Text), " ")
		if text == "" {
			continue
		}
		k := key{text: strings.ToLower(text), kind: kind}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		entities = append(entities, core.Entity{
			Text:       text,
			Type:       kind,
			Confidence: DefaultConfidence,
		})
	}
	return entities, nil
}

// NormalizeLabel maps a model label onto the entity allow-list.
func NormalizeLabel(label string) (core.EntityType, bool) {
	label = strings.ToUpper(strings.TrimSpace(label))
	label = strings.ReplaceAll(label, " ", "_")
	if alias, ok := labelAliases[label]; ok {
		return alias, true
	}
	kind := core.EntityType(label)
	return kind, core.IsAllowedEntityType(kind)
}

// Unavailable returns a Recognizer that fails every call with a
// *core.ModelUnavailableError wrapping cause. It stands in for a model that
// could not be loaded so that keyword scoring and similarity keep working.
func Unavailable(cause error) Recognizer {
	return unavailable{cause: cause}
}

type unavailable struct {
	cause error
}

func (u unavailable) Recognize(context.Context, string) ([]Mention, error) {
	return nil, &core.ModelUnavailableError{Cause: u.cause}
}

// MissingTypes returns the allow-listed categories rec can never produce, in
// allow-list order. It returns nil when rec does not implement LabelReporter.
func MissingTypes(rec Recognizer) []core.EntityType {
	reporter, ok := rec.(LabelReporter)
	if !ok {
		return nil
	}
	labels := reporter.Labels()
	var missing []core.EntityType
	for _, t := range core.EntityTypes {
		if !slices.Contains(labels, t) {
			missing = append(missing, t)
		}
	}
	return missing
}
