package metadata

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Book is a provider-neutral metadata record.
type Book struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Subtitle    string   `json:"subtitle,omitempty"`
	Authors     []string `json:"authors,omitempty"`
	Description string   `json:"description,omitempty"`
	CoverURL    string   `json:"cover_url,omitempty"`
	ReleaseDate string   `json:"release_date,omitempty"`
	ISBN        string   `json:"isbn,omitempty"`
}

// Provider is implemented by metadata backends.
type Provider interface {
	// Name identifies the backend for logging and cache partitioning.
	Name() string
	// Search returns candidate records for a title and optional author,
	// best match first. An empty slice with a nil error means the provider
	// answered but found nothing.
	Search(ctx context.Context, title, author string) ([]*Book, error)
	// Lookup fetches a single record by the provider's native identifier.
	Lookup(ctx context.Context, id string) (*Book, error)
}

// SearchKey derives a stable cache key for a title/author pair. Long values
// are truncated before hashing so near-identical queries share an entry.
func SearchKey(title, author string) string {
	cleanTitle := clip(strings.ToLower(strings.TrimSpace(title)), 50)
	cleanAuthor := clip(strings.ToLower(strings.TrimSpace(author)), 30)
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s", cleanTitle, cleanAuthor)))
	return hex.EncodeToString(sum[:])[:16]
}

// clip keeps at most max runes so multi-byte characters are never split.
func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
