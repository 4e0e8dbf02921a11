package indexer

import "testing"

func TestParseReleaseTitle(t *testing.T) {
	cases := []struct {
		raw      string
		title    string
		author   string
		narrator string
	}{
		{"The Final Empire - Brandon Sanderson - Michael Kramer [ENG / M4B]", "The Final Empire", "Brandon Sanderson", "Michael Kramer"},
		{"Project Hail Mary by Andy Weir [2021]", "Project Hail Mary", "Andy Weir", ""},
		{"The Martian - Andy Weir", "The Martian", "Andy Weir", ""},
		{"Frank Herbert - Dune", "Dune", "Frank Herbert", ""},
		{"Standalone Title (2020)", "Standalone Title", "", ""},
	}
	for _, tc := range cases {
		title, author, narrator := ParseReleaseTitle(tc.raw)
		if title != tc.title || author != tc.author || narrator != tc.narrator {
			t.Errorf("ParseReleaseTitle(%q) = (%q, %q, %q), want (%q, %q, %q)",
				tc.raw, title, author, narrator, tc.title, tc.author, tc.narrator)
		}
	}
}

func TestCanonicalID(t *testing.T) {
	if got := CanonicalID(Release{GUID: "release-B002V00TOO-x"}); got != "B002V00TOO" {
		t.Fatalf("expected identifier from GUID, got %q", got)
	}
	if got := CanonicalID(Release{Description: "Listed as B08G9PRS1K on the store"}); got != "B08G9PRS1K" {
		t.Fatalf("expected identifier from description, got %q", got)
	}
	if got := CanonicalID(Release{InfoURL: "https://www.audible.com/pd/Title-Audiobook/B002V00TOO"}); got != "B002V00TOO" {
		t.Fatalf("expected identifier from info url, got %q", got)
	}
	if got := CanonicalID(Release{InfoURL: "https://example.com/B002V00TOO"}); got != "" {
		t.Fatalf("expected non-store url ignored, got %q", got)
	}
	if got := CanonicalID(Release{Title: "no ids anywhere"}); got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
}
