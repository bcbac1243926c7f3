package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/autotag/core"
)

// Stored values use the MUS binary format. Fields are written in declaration
// order; times are Unix microseconds, with 0 standing for the zero time.

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, varint.Uint64.Size(uint64(id)))
	varint.Uint64.Marshal(uint64(id), buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	v, _, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: id: %w", ErrSerializationFailed, classify(err))
	}
	return core.ID(v), nil
}

// MarshalDocument serializes a Document to bytes.
func MarshalDocument(doc *core.Document) []byte {
	buf := make([]byte, documentSize(doc))
	n := varint.Uint64.Marshal(uint64(doc.Id), buf)
	n += ord.String.Marshal(doc.Filename, buf[n:])
	n += ord.String.Marshal(doc.Content, buf[n:])
	n += ord.String.Marshal(doc.FileType, buf[n:])
	n += varint.Int64.Marshal(doc.FileSize, buf[n:])
	n += ord.Bool.Marshal(doc.Processed, buf[n:])
	n += varint.Int64.Marshal(timeToMicros(doc.UploadedAt), buf[n:])
	varint.Int64.Marshal(timeToMicros(doc.UpdatedAt), buf[n:])
	return buf
}

// UnmarshalDocument deserializes a Document from bytes. Input shorter than
// the encoded fields fails with ErrTruncatedData.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	r := reader{data: data}
	doc := &core.Document{
		Id:         core.ID(r.uint64()),
		Filename:   r.string(),
		Content:    r.string(),
		FileType:   r.string(),
		FileSize:   r.int64(),
		Processed:  r.bool(),
		UploadedAt: r.time(),
		UpdatedAt:  r.time(),
	}
	if err := r.finish("document"); err != nil {
		return nil, err
	}
	return doc, nil
}

// MarshalTag serializes a Tag to bytes.
func MarshalTag(tag *core.Tag) []byte {
	buf := make([]byte, tagSize(tag))
	n := varint.Uint64.Marshal(uint64(tag.Id), buf)
	n += varint.Uint64.Marshal(uint64(tag.DocumentId), buf[n:])
	n += ord.String.Marshal(tag.Name, buf[n:])
	n += ord.String.Marshal(string(tag.Type), buf[n:])
	n += raw.Float64.Marshal(tag.Confidence, buf[n:])
	n += ord.String.Marshal(string(tag.EntityType), buf[n:])
	varint.Int64.Marshal(timeToMicros(tag.CreatedAt), buf[n:])
	return buf
}

// UnmarshalTag deserializes a Tag from bytes. Input shorter than the
// encoded fields fails with ErrTruncatedData.
func UnmarshalTag(data []byte) (*core.Tag, error) {
	r := reader{data: data}
	tag := &core.Tag{
		Id:         core.ID(r.uint64()),
		DocumentId: core.ID(r.uint64()),
		Name:       r.string(),
		Type:       core.TagType(r.string()),
		Confidence: r.float64(),
		EntityType: core.EntityType(r.string()),
		CreatedAt:  r.time(),
	}
	if err := r.finish("tag"); err != nil {
		return nil, err
	}
	return tag, nil
}

func documentSize(doc *core.Document) int {
	return varint.Uint64.Size(uint64(doc.Id)) +
		ord.String.Size(doc.Filename) +
		ord.String.Size(doc.Content) +
		ord.String.Size(doc.FileType) +
		varint.Int64.Size(doc.FileSize) +
		ord.Bool.Size(doc.Processed) +
		varint.Int64.Size(timeToMicros(doc.UploadedAt)) +
		varint.Int64.Size(timeToMicros(doc.UpdatedAt))
}

func tagSize(tag *core.Tag) int {
	return varint.Uint64.Size(uint64(tag.Id)) +
		varint.Uint64.Size(uint64(tag.DocumentId)) +
		ord.String.Size(tag.Name) +
		ord.String.Size(string(tag.Type)) +
		raw.Float64.Size(tag.Confidence) +
		ord.String.Size(string(tag.EntityType)) +
		varint.Int64.Size(timeToMicros(tag.CreatedAt))
}

func timeToMicros(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func microsToTime(us int64) time.Time {
	if us == 0 {
		return time.Time{}
	}
	return time.UnixMicro(us).UTC()
}

// reader decodes consecutive MUS fields, remembering the first error.
// Once an error is recorded every later read returns the zero value.
type reader struct {
	data []byte
	off  int
	err  error
}

func (r *reader) uint64() uint64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Uint64.Unmarshal(r.data[r.off:])
	r.advance(n, err)
	return v
}

func (r *reader) int64() int64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Int64.Unmarshal(r.data[r.off:])
	r.advance(n, err)
	return v
}

func (r *reader) string() string {
	if r.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(r.data[r.off:])
	r.advance(n, err)
	return v
}

func (r *reader) bool() bool {
	if r.err != nil {
		return false
	}
	v, n, err := ord.Bool.Unmarshal(r.data[r.off:])
	r.advance(n, err)
	return v
}

func (r *reader) float64() float64 {
	if r.err != nil {
		return 0
	}
	v, n, err := raw.Float64.Unmarshal(r.data[r.off:])
	r.advance(n, err)
	return v
}

func (r *reader) time() time.Time {
	return microsToTime(r.int64())
}

func (r *reader) advance(n int, err error) {
	if err != nil {
		r.err = err
		return
	}
	r.off += n
}

// classify marks running out of input as ErrTruncatedData.
func classify(err error) error {
	if errors.Is(err, mus.ErrTooSmallByteSlice) {
		return fmt.Errorf("%w: %w", ErrTruncatedData, err)
	}
	return err
}

func (r *reader) finish(what string) error {
	if r.err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSerializationFailed, what, classify(r.err))
	}
	if r.off != len(r.data) {
		return fmt.Errorf("%w: %s: %d trailing bytes", ErrSerializationFailed, what, len(r.data)-r.off)
	}
	return nil
}
