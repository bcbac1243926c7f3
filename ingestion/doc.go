// Package ingestion stores documents and tags them.
//
// The Pipeline type manages the ingestion workflow, including:
//   - Validating and storing the document
//   - Tagging it against the processed corpus
//   - Replacing its keyword and entity tags
//   - Marking it processed
//
// Batches are tagged concurrently on a worker pool. When the entity model is
// unavailable the keyword tags are still stored and a warning is logged.
package ingestion
