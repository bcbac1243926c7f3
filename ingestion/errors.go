package ingestion

import "errors"

var (
	// ErrDocumentRepositoryRequired is returned when a document repository is not provided.
	ErrDocumentRepositoryRequired = errors.New("document repository required")

	// ErrTagRepositoryRequired is returned when a tag repository is not provided.
	ErrTagRepositoryRequired = errors.New("tag repository required")

	// ErrTaggerRequired is returned when a tagger is not provided.
	ErrTaggerRequired = errors.New("tagger required")

	// ErrExtensionNotAllowed is returned by ReadFile for files of an unlisted type.
	ErrExtensionNotAllowed = errors.New("file type not allowed")

	// ErrFileTooLarge is returned by ReadFile for files over the size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrEmptyFile is returned by ReadFile for files without text.
	ErrEmptyFile = errors.New("file is empty")
)
