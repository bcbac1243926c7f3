package core

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{
			name:    "valid document",
			doc:     &Document{Filename: "notes.txt", Content: "Hello world"},
			wantErr: nil,
		},
		{
			name:    "valid document with ID 0",
			doc:     &Document{Id: 0, Filename: "a.txt", Content: "x"},
			wantErr: nil,
		},
		{
			name:    "nil document",
			doc:     nil,
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "blank content",
			doc:     &Document{Filename: "a.txt", Content: "  \n\t"},
			wantErr: ErrEmptyContent,
		},
		{
			name:    "empty filename",
			doc:     &Document{Content: "text"},
			wantErr: ErrEmptyFilename,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDocument() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidDocument) {
				t.Errorf("ValidateDocument() error should wrap ErrInvalidDocument")
			}
		})
	}
}

func TestValidateTag(t *testing.T) {
	tests := []struct {
		name    string
		tag     *Tag
		wantErr error
	}{
		{
			name:    "valid keyword",
			tag:     &Tag{Name: "machine learning", Type: TagTypeKeyword, Confidence: 0.4},
			wantErr: nil,
		},
		{
			name:    "valid entity",
			tag:     &Tag{Name: "Google", Type: TagTypeEntity, Confidence: 0.8, EntityType: EntityOrg},
			wantErr: nil,
		},
		{
			name:    "valid custom with full confidence",
			tag:     &Tag{Name: "urgent", Type: TagTypeCustom, Confidence: 1},
			wantErr: nil,
		},
		{
			name:    "nil tag",
			tag:     nil,
			wantErr: ErrInvalidTag,
		},
		{
			name:    "blank name",
			tag:     &Tag{Name: " ", Type: TagTypeCustom, Confidence: 1},
			wantErr: ErrEmptyTagName,
		},
		{
			name:    "name too long",
			tag:     &Tag{Name: strings.Repeat("x", MaxTagNameLength+1), Type: TagTypeCustom, Confidence: 1},
			wantErr: ErrTagNameTooLong,
		},
		{
			name:    "unknown type",
			tag:     &Tag{Name: "x", Type: "topic", Confidence: 1},
			wantErr: ErrInvalidTagType,
		},
		{
			name:    "confidence above one",
			tag:     &Tag{Name: "x", Type: TagTypeCustom, Confidence: 1.5},
			wantErr: ErrInvalidConfidence,
		},
		{
			name:    "negative confidence",
			tag:     &Tag{Name: "x", Type: TagTypeCustom, Confidence: -0.1},
			wantErr: ErrInvalidConfidence,
		},
		{
			name:    "entity type outside allow-list",
			tag:     &Tag{Name: "Monday", Type: TagTypeEntity, Confidence: 0.8, EntityType: "DATE"},
			wantErr: ErrInvalidEntityType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTag(tt.tag)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateTag() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateTag() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateLimitAndThreshold(t *testing.T) {
	if err := ValidateLimit("limit", 0); err != nil {
		t.Errorf("ValidateLimit(0) unexpected error: %v", err)
	}
	if err := ValidateLimit("limit", -1); !errors.Is(err, ErrInput) {
		t.Errorf("ValidateLimit(-1) error = %v, want ErrInput", err)
	}

	for _, v := range []float64{0, 0.3, 1} {
		if err := ValidateThreshold(v); err != nil {
			t.Errorf("ValidateThreshold(%v) unexpected error: %v", v, err)
		}
	}
	for _, v := range []float64{-0.01, 1.01, math.NaN()} {
		if err := ValidateThreshold(v); !errors.Is(err, ErrInput) {
			t.Errorf("ValidateThreshold(%v) error = %v, want ErrInput", v, err)
		}
	}
}
