// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

// MaxTagNameLength is the longest tag name accepted, in runes.
const MaxTagNameLength = 100

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Filename must not be empty
//   - Content must not be blank
//
// NOT validated:
//   - ID (0 is valid until the database assigns one)
//   - Processed (set by the ingestion pipeline)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if strings.TrimSpace(doc.Filename) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyFilename)
	}

	if strings.TrimSpace(doc.Content) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyContent)
	}

	return nil
}

// ValidateTag validates a Tag according to domain rules.
//
// Validation rules:
//   - Name must not be blank and at most MaxTagNameLength runes
//   - Type must be keyword, entity or custom
//   - Confidence must lie in [0,1]
//   - EntityType, when set, must be in the allow-list
func ValidateTag(tag *Tag) error {
	if tag == nil {
		return fmt.Errorf("%w: tag is nil", ErrInvalidTag)
	}

	name := strings.TrimSpace(tag.Name)
	if name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTag, ErrEmptyTagName)
	}
	if utf8.RuneCountInString(name) > MaxTagNameLength {
		return fmt.Errorf("%w: %w", ErrInvalidTag, ErrTagNameTooLong)
	}

	if err := ValidateTagType(tag.Type); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTag, err)
	}

	if tag.Confidence < 0 || tag.Confidence > 1 {
		return fmt.Errorf("%w: %w", ErrInvalidTag, ErrInvalidConfidence)
	}

	if tag.EntityType != "" && !IsAllowedEntityType(tag.EntityType) {
		return fmt.Errorf("%w: %w: %s", ErrInvalidTag, ErrInvalidEntityType, tag.EntityType)
	}

	return nil
}

// ValidateTagType validates that a TagType has a valid value.
func ValidateTagType(t TagType) error {
	if !slices.Contains(TagTypes, t) {
		return fmt.Errorf("%w: value %q", ErrInvalidTagType, t)
	}
	return nil
}

// IsAllowedEntityType reports whether t is in the entity allow-list.
func IsAllowedEntityType(t EntityType) bool {
	return slices.Contains(EntityTypes, t)
}

// ValidateLimit rejects negative counts.
func ValidateLimit(field string, v int) error {
	if v < 0 {
		return &InputError{Field: field, Reason: fmt.Sprintf("must not be negative, got %d", v)}
	}
	return nil
}

// ValidateThreshold rejects similarity thresholds outside [0,1].
func ValidateThreshold(v float64) error {
	if v < 0 || v > 1 || v != v {
		return &InputError{Field: "threshold", Reason: fmt.Sprintf("must be between 0 and 1, got %v", v)}
	}
	return nil
}

// Clamp01 limits v to the closed interval [0,1].
func Clamp01(v float64) float64 {
	switch {
	case v != v || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
