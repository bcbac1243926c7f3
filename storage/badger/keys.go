package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/autotag/core"
	"github.com/poiesic/autotag/storage"
)

// Key prefixes for different data types. IDs and timestamps inside keys are
// written BigEndian so lexicographic order matches numeric order.
const (
	documentPrefix     = "doc:"
	documentDatePrefix = "docd:"
	tagPrefix          = "tag:"
	documentIDSeq      = "docseq"
)

// makeDocumentKey generates a key for a document by ID.
// Format: prefix + id
func makeDocumentKey(id core.ID) []byte {
	buf := make([]byte, len(documentPrefix)+8)
	offset := copy(buf, documentPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeDocumentDateKey generates a composite key for the upload date index.
// Format: prefix + timestamp + id
func makeDocumentDateKey(uploadedAt time.Time, id core.ID) []byte {
	buf := make([]byte, len(documentDatePrefix)+16)
	offset := copy(buf, documentDatePrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(uploadedAt.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeTagKey generates a composite key for a tag.
// Format: prefix + documentID + tagID
func makeTagKey(docID, tagID core.ID) []byte {
	buf := make([]byte, len(tagPrefix)+16)
	offset := copy(buf, tagPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(docID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(tagID))
	return buf
}

// makeDocumentTagsPrefix generates the key prefix shared by every tag of a document.
// Format: prefix + documentID
func makeDocumentTagsPrefix(docID core.ID) []byte {
	buf := make([]byte, len(tagPrefix)+8)
	offset := copy(buf, tagPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(docID))
	return buf
}

// parseDocumentKey extracts the document ID from a document key.
func parseDocumentKey(key []byte) (core.ID, error) {
	if len(key) != len(documentPrefix)+8 {
		return 0, fmt.Errorf("%w: document key of %d bytes", storage.ErrTruncatedData, len(key))
	}
	return core.ID(binary.BigEndian.Uint64(key[len(documentPrefix):])), nil
}
