package indexer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const searchPayload = `[
	{
		"title": "The Final Empire - Brandon Sanderson - Michael Kramer [ENG / M4B]",
		"guid": "mam-12345",
		"indexer": "MyIndexer",
		"indexerId": 3,
		"indexerFlags": ["Freeleech"],
		"seeders": 12,
		"size": 512000000,
		"protocol": "torrent",
		"publishDate": "2024-01-15T00:00:00Z"
	},
	{
		"title": "The Final Empire - Brandon Sanderson",
		"guid": "nzb-1",
		"indexer": "UsenetIndexer",
		"indexerId": 4,
		"seeders": 0,
		"protocol": "usenet"
	}
]`

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := New(server.URL, "test-key")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return client
}

func TestSearchParsesAndFilters(t *testing.T) {
	var gotKey, gotQuery string
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		gotQuery = r.URL.Query().Get("query")
		if r.URL.Path != "/api/v1/search" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(searchPayload))
	})

	releases, err := client.Search(context.Background(), "final empire")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if gotKey != "test-key" || gotQuery != "final empire" {
		t.Fatalf("unexpected request: key=%q query=%q", gotKey, gotQuery)
	}
	if len(releases) != 1 {
		t.Fatalf("expected usenet result filtered, got %d releases", len(releases))
	}

	release := releases[0]
	if release.Title != "The Final Empire" || release.Author != "Brandon Sanderson" || release.Narrator != "Michael Kramer" {
		t.Fatalf("unexpected parse: %+v", release)
	}
	if !release.Freeleech || release.Seeders != 12 {
		t.Fatalf("unexpected flags: %+v", release)
	}
}

func TestSearchMemoizesQueries(t *testing.T) {
	var calls int
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(searchPayload))
	})

	for i := 0; i < 3; i++ {
		if _, err := client.Search(context.Background(), "final empire"); err != nil {
			t.Fatalf("Search failed: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected a single upstream call, got %d", calls)
	}
	metrics := client.CacheMetrics()
	if metrics.Hits != 2 || metrics.Misses != 1 {
		t.Fatalf("unexpected cache metrics: %+v", metrics)
	}

	client.FlushCache()
	if _, err := client.Search(context.Background(), "final empire"); err != nil {
		t.Fatalf("Search after flush failed: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected flush to force a refetch, got %d calls", calls)
	}
}

func TestSearchResultsAreIsolatedFromCache(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(searchPayload))
	})

	first, err := client.Search(context.Background(), "final empire")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 release, got %d", len(first))
	}
	first[0].Title = "Mangled"
	first[0].Seeders = 0

	second, err := client.Search(context.Background(), "final empire")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if second[0].Title != "The Final Empire" || second[0].Seeders != 12 {
		t.Fatalf("cache hit reflects caller mutation: %+v", second[0])
	}
}

func TestSearchErrorsSurface(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	})
	if _, err := client.Search(context.Background(), "anything"); err == nil {
		t.Fatal("expected error from upstream failure")
	}
}

func TestNewValidatesConfig(t *testing.T) {
	if _, err := New("", "key"); err == nil {
		t.Fatal("expected missing base url to fail")
	}
	if _, err := New("http://localhost:9696", ""); err == nil {
		t.Fatal("expected missing api key to fail")
	}
}
