package indexer

import (
	"regexp"
	"strings"
)

var (
	bracketTags = regexp.MustCompile(`\[.*?\]`)
	parenTags   = regexp.MustCompile(`\(.*?\)`)
	byAuthor    = regexp.MustCompile(`(?i) by `)

	// Canonical identifiers look like B followed by nine alphanumerics.
	canonicalIDPattern = regexp.MustCompile(`B[A-Z0-9]{9}`)
	storeURLPattern    = regexp.MustCompile(`audible\.com/pd/[^/]+/(B[A-Z0-9]{9})`)
)

// ParseReleaseTitle splits a raw release title into book title, author, and
// narrator. Release titles commonly follow one of:
//
//	"Book Title - Author Name - Narrator Name"
//	"Author Name - Book Title"
//	"Book Title by Author Name [Tags]"
//
// Missing fields come back empty.
func ParseReleaseTitle(raw string) (title, author, narrator string) {
	clean := bracketTags.ReplaceAllString(raw, "")
	clean = strings.TrimSpace(parenTags.ReplaceAllString(clean, ""))

	title = clean
	switch {
	case strings.Contains(clean, " - "):
		parts := strings.Split(clean, " - ")
		if len(parts) >= 3 {
			title = strings.TrimSpace(parts[0])
			author = strings.TrimSpace(parts[1])
			narrator = strings.TrimSpace(parts[2])
			return title, author, narrator
		}
		first := strings.TrimSpace(parts[0])
		second := strings.TrimSpace(parts[1])
		// A multi-word first segment next to a single-word second segment
		// usually means "Author - Title".
		if strings.Contains(first, " ") && len(strings.Fields(second)) <= 1 {
			return second, first, ""
		}
		return first, second, ""
	case byAuthor.MatchString(clean):
		parts := byAuthor.Split(clean, 2)
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), ""
	}
	return title, "", ""
}

// CanonicalID tries to recover a canonical book identifier from release
// metadata. Some indexers embed it in the GUID, the description, or a store
// link in the info URL.
func CanonicalID(r Release) string {
	if r.GUID != "" {
		if match := canonicalIDPattern.FindString(r.GUID); match != "" {
			return match
		}
	}
	if r.Description != "" {
		if match := canonicalIDPattern.FindString(r.Description); match != "" {
			return match
		}
	}
	if r.InfoURL != "" {
		if match := storeURLPattern.FindStringSubmatch(r.InfoURL); match != nil {
			return match[1]
		}
	}
	return ""
}
