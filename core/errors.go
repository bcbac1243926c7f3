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
	"errors"
	"fmt"
)

var (
	// ErrInput indicates a caller-supplied value is malformed or out of range.
	ErrInput = errors.New("invalid input")

	// ErrModelUnavailable indicates the entity recognition model could not be loaded.
	ErrModelUnavailable = errors.New("entity model unavailable")
)

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidTag indicates a Tag failed validation.
	ErrInvalidTag = errors.New("invalid tag")

	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEmptyFilename indicates the Filename field is empty.
	ErrEmptyFilename = errors.New("filename cannot be empty")

	// ErrEmptyTagName indicates the tag Name field is empty.
	ErrEmptyTagName = errors.New("tag name cannot be empty")

	// ErrTagNameTooLong indicates the tag Name exceeds MaxTagNameLength.
	ErrTagNameTooLong = errors.New("tag name too long")

	// ErrInvalidTagType indicates an unknown TagType value.
	ErrInvalidTagType = errors.New("invalid tag type")

	// ErrInvalidEntityType indicates an EntityType outside the allow-list.
	ErrInvalidEntityType = errors.New("invalid entity type")

	// ErrInvalidConfidence indicates a confidence outside [0,1].
	ErrInvalidConfidence = errors.New("confidence must be between 0 and 1")
)

// InputError reports a malformed argument or configuration value.
// It matches ErrInput with errors.Is.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInput, e.Field, e.Reason)
}

func (e *InputError) Unwrap() error {
	return ErrInput
}

// ModelUnavailableError reports that entity extraction cannot run because
// the recognition model failed to load. It matches ErrModelUnavailable with
// errors.Is and unwraps to the load failure.
type ModelUnavailableError struct {
	Cause error
}

func (e *ModelUnavailableError) Error() string {
	if e.Cause == nil {
		return ErrModelUnavailable.Error()
	}
	return fmt.Sprintf("%s: %v", ErrModelUnavailable, e.Cause)
}

func (e *ModelUnavailableError) Is(target error) bool {
	return target == ErrModelUnavailable
}

func (e *ModelUnavailableError) Unwrap() error {
	return e.Cause
}
