package catalog

import (
	"time"

	"shelfmark/internal/bookid"
)

// Book is a catalog record, canonical or synthetic. Synthetic records carry
// a derived identifier and act as placeholders until an authoritative match
// promotes them.
type Book struct {
	ID          string
	Title       string
	Authors     []string
	Narrator    string
	Subtitle    string
	ReleaseDate string
	CoverURL    string
	Description string
	Synthetic   bool
	Downloaded  bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewSynthetic builds a placeholder record whose identifier is derived from
// the normalized title and first author.
func NewSynthetic(title string, authors []string) *Book {
	author := ""
	if len(authors) > 0 {
		author = authors[0]
	}
	return &Book{
		ID:        bookid.Synthetic(title, author),
		Title:     title,
		Authors:   authors,
		Synthetic: true,
	}
}

// RequestLink associates a requester with a book identity.
type RequestLink struct {
	BookID    string
	Username  string
	CreatedAt time.Time
}

// WishlistEntry is a requested book together with everyone who requested it.
type WishlistEntry struct {
	Book       *Book
	Requesters []string
}

// WishlistCounts summarizes request state for status output.
type WishlistCounts struct {
	Total       int
	Downloaded  int
	Outstanding int
}

// Stats aggregates catalog contents for diagnostics.
type Stats struct {
	CanonicalBooks int
	SyntheticBooks int
	Requests       int
	CachedEntries  int
}

// DatabaseHealth reports diagnostic information about the catalog database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	IntegrityCheck   bool
	TotalBooks       int
	SyntheticBooks   int
	Error            string
}
