package bookid

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"shelfmark/internal/textutil"
)

// SyntheticPrefix tags identifiers derived by Synthetic rather than issued by
// an authoritative provider.
const SyntheticPrefix = "SYN-"

// digestLen is the number of hex characters kept from the hash. Identifiers
// are used directly as storage keys, so the length never varies.
const digestLen = 11

const (
	maxTitleLen  = 50
	maxAuthorLen = 30
)

// Synthetic derives a deterministic identifier from a title and author.
// Inputs are normalized (case, diacritics, punctuation, whitespace) and the
// title is reduced to its primary segment before hashing, so semantically
// equivalent pairs from different providers converge on one identifier. An
// empty or unknown author falls back to a title-only hash.
func Synthetic(title, author string) string {
	normTitle := truncate(textutil.NormalizePrimary(title), maxTitleLen)
	normAuthor := truncate(textutil.Normalize(author), maxAuthorLen)
	if normAuthor == "unknown" {
		normAuthor = ""
	}
	sum := sha256.Sum256([]byte(normTitle + ":" + normAuthor))
	return SyntheticPrefix + hex.EncodeToString(sum[:])[:digestLen]
}

// IsSynthetic reports whether an identifier was derived by Synthetic.
func IsSynthetic(id string) bool {
	return strings.HasPrefix(id, SyntheticPrefix)
}

// truncate keeps at most max characters, counting runes so a multi-byte
// character at the boundary is dropped whole rather than split.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max]))
}
