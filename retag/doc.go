// Package retag re-runs tagging over every stored document.
//
// Keyword statistics depend on the whole corpus, so tags computed when the
// store was small drift as documents are added. A Retagger walks all
// documents in batches, retags them against the current corpus and replaces
// their keyword and entity tags. Custom tags are never touched.
package retag
