package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// primarySeparators mark the start of subtitle or edition noise in a title.
const primarySeparators = ":([—"

var diacriticFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases text, folds diacritics, strips punctuation, and
// collapses whitespace. Returns "" for empty or punctuation-only input.
func Normalize(text string) string {
	folded, _, err := transform.String(diacriticFolder, text)
	if err != nil {
		folded = text
	}
	var b strings.Builder
	b.Grow(len(folded))
	lastSpace := true
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// NormalizePrimary normalizes only the primary-title segment: the text before
// the first subtitle separator (colon, parenthesis, bracket, or em dash).
func NormalizePrimary(text string) string {
	if idx := strings.IndexAny(text, primarySeparators); idx >= 0 {
		text = text[:idx]
	}
	return Normalize(text)
}

// Tokenize splits normalized text into its whitespace-delimited tokens.
func Tokenize(text string) []string {
	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}
	return strings.Fields(normalized)
}
