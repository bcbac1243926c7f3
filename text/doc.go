// Package text turns raw document text into normalized tokens.
//
// A Normalizer lowercases its input, removes URLs and email addresses,
// replaces everything outside [a-z0-9] and whitespace with spaces, splits on
// whitespace, drops stopwords and short tokens, and reduces what remains to a
// base form with a Lemmatizer. Normalization is deterministic and never fails.
package text
