// Package textutil provides text normalization and fuzzy similarity scoring.
//
// The primary use cases are:
//   - Normalizing titles and author names before hashing or comparison
//   - Extracting the primary-title segment ahead of subtitle separators
//   - Computing indel, partial, and token-set similarity ratios (0-100)
//
// Normalization lowercases text, folds diacritics to their base letters,
// replaces punctuation with spaces, and collapses runs of whitespace. All
// similarity functions are pure so results can be memoized safely.
package textutil
