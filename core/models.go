package core

import (
	"encoding/binary"
	"strconv"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// Documents get IDs from a database sequence; tags get content-based IDs.
type ID uint64

// String renders the ID in decimal form.
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseID parses a decimal ID as printed by ID.String.
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, &InputError{Field: "id", Reason: "not a valid document or tag id: " + s}
	}
	return ID(v), nil
}

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// TagID returns the ID of the tag named name of type tagType on document doc.
// Names are compared case-insensitively, so a document can never carry two
// tags with the same (name, type) pair.
func TagID(doc ID, name string, tagType TagType) ID {
	return IDFromContent(doc.String() + "|" + string(tagType) + "|" + strings.ToLower(strings.TrimSpace(name)))
}

// TagType classifies where a tag came from.
type TagType string

const (
	// TagTypeKeyword is a statistically scored keyword.
	TagTypeKeyword TagType = "keyword"
	// TagTypeEntity is a named entity found by the recognizer.
	TagTypeEntity TagType = "entity"
	// TagTypeCustom is a tag added by hand.
	TagTypeCustom TagType = "custom"
)

// TagTypes lists every valid tag type in display order.
var TagTypes = []TagType{TagTypeKeyword, TagTypeEntity, TagTypeCustom}

// EntityType is the category of a named entity.
type EntityType string

const (
	EntityPerson    EntityType = "PERSON"
	EntityOrg       EntityType = "ORG"
	EntityGPE       EntityType = "GPE"
	EntityLocation  EntityType = "LOC"
	EntityProduct   EntityType = "PRODUCT"
	EntityEvent     EntityType = "EVENT"
	EntityWorkOfArt EntityType = "WORK_OF_ART"
)

// EntityTypes is the allow-list of entity categories kept as tags.
var EntityTypes = []EntityType{
	EntityPerson,
	EntityOrg,
	EntityGPE,
	EntityLocation,
	EntityProduct,
	EntityEvent,
	EntityWorkOfArt,
}

// Document is an ingested text document.
// Content is immutable once the document has been processed.
type Document struct {
	Id         ID
	Filename   string
	Content    string
	FileType   string
	FileSize   int64
	Processed  bool
	UploadedAt time.Time // When the document was stored
	UpdatedAt  time.Time // When the document or its tags last changed
}

// Tag is a descriptive label attached to a document.
type Tag struct {
	Id         ID
	DocumentId ID
	Name       string
	Type       TagType
	Confidence float64    // In [0,1]
	EntityType EntityType // Set only for entity tags
	CreatedAt  time.Time
}

// Keyword is a scored term produced by keyword scoring.
type Keyword struct {
	Term  string
	Score float64
}

// Entity is a named entity mention kept after filtering and deduplication.
type Entity struct {
	Text       string
	Type       EntityType
	Confidence float64
}

// SimilarityResult is a candidate document and its cosine similarity to a query.
type SimilarityResult struct {
	DocumentId ID
	Score      float64
}

// SimilarDocument is a similarity hit joined with its stored document and top tags.
type SimilarDocument struct {
	Document *Document
	Score    float64
	Tags     []*Tag
}

// TagStat aggregates one tag name across all documents.
type TagStat struct {
	Name          string
	Type          TagType
	DocumentCount int
	AvgConfidence float64
}

// TagSummary aggregates all tags of one type.
type TagSummary struct {
	Type          TagType
	TotalTags     int
	UniqueNames   int
	AvgConfidence float64
}
