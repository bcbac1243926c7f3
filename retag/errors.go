package retag

import "errors"

var (
	// ErrInvalidMaxAttempts is returned by Backoff.Do when Attempts is not positive.
	ErrInvalidMaxAttempts = errors.New("retry attempts must be greater than 0")

	// ErrDocumentRepositoryRequired is returned when a document repository is not provided.
	ErrDocumentRepositoryRequired = errors.New("document repository required")

	// ErrTagRepositoryRequired is returned when a tag repository is not provided.
	ErrTagRepositoryRequired = errors.New("tag repository required")

	// ErrTaggerRequired is returned when a tagger is not provided.
	ErrTaggerRequired = errors.New("tagger required")
)
