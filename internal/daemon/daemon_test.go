package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"shelfmark/internal/catalog"
	"shelfmark/internal/config"
	"shelfmark/internal/daemon"
	"shelfmark/internal/indexer"
	"shelfmark/internal/metadata"
	"shelfmark/internal/ranking"
	"shelfmark/internal/resolver"
	"shelfmark/internal/search"
	"shelfmark/internal/testsupport"
)

type stubIndexer struct {
	releases []indexer.Release
}

func (s *stubIndexer) Search(ctx context.Context, query string) ([]indexer.Release, error) {
	return s.releases, nil
}

type stubProvider struct{}

func (stubProvider) Name() string { return "stub" }

func (stubProvider) Search(ctx context.Context, title, author string) ([]*metadata.Book, error) {
	return nil, nil
}

func (stubProvider) Lookup(ctx context.Context, id string) (*metadata.Book, error) {
	return nil, errors.New("not found")
}

type testHarness struct {
	cfg     *config.Config
	daemon  *daemon.Daemon
	store   *catalog.Store
	baseURL string
	token   string
}

func newHarness(t *testing.T, releases []indexer.Release, mutate func(*config.Config)) *testHarness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	if mutate != nil {
		mutate(cfg)
	}

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	engine := ranking.NewEngine(cfg.Search.ScoreCacheSize, time.Duration(cfg.Search.ScoreTTLSeconds)*time.Second)
	provider := stubProvider{}
	res := resolver.New(cfg, store, provider, engine, nil, nil)
	idx := &stubIndexer{releases: releases}
	searcher := search.New(cfg, store, idx, provider, engine, res, nil)

	d, err := daemon.New(cfg, store, searcher, res, engine, idx, nil, nil)
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start failed: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	return &testHarness{
		cfg:     cfg,
		daemon:  d,
		store:   store,
		baseURL: "http://" + d.Addr(),
		token:   cfg.Server.APIToken,
	}
}

func (h *testHarness) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var payload *bytes.Buffer
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		payload = bytes.NewBuffer(encoded)
	} else {
		payload = &bytes.Buffer{}
	}
	req, err := http.NewRequest(method, h.baseURL+path, payload)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestSingleInstanceLock(t *testing.T) {
	h := newHarness(t, nil, nil)

	if err := h.daemon.Start(context.Background()); err == nil {
		t.Fatal("expected second start of a running daemon to fail")
	}

	// A separate daemon over the same data directory must be refused.
	engine := ranking.NewEngine(h.cfg.Search.ScoreCacheSize, time.Duration(h.cfg.Search.ScoreTTLSeconds)*time.Second)
	provider := stubProvider{}
	res := resolver.New(h.cfg, h.store, provider, engine, nil, nil)
	idx := &stubIndexer{}
	searcher := search.New(h.cfg, h.store, idx, provider, engine, res, nil)
	second, err := daemon.New(h.cfg, h.store, searcher, res, engine, idx, nil, nil)
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected lock contention to refuse a second instance")
	}
}

func TestStatusEndpoint(t *testing.T) {
	h := newHarness(t, nil, nil)

	resp := h.do(t, http.MethodGet, "/api/status", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var status daemon.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running || status.DatabasePath == "" {
		t.Fatalf("unexpected status: %+v", status)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("expected request correlation header")
	}
}

func TestSearchEndpoint(t *testing.T) {
	h := newHarness(t, []indexer.Release{
		{Title: "The Final Empire", Author: "Brandon Sanderson"},
	}, nil)

	resp := h.do(t, http.MethodGet, "/api/search?q=final+empire", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var payload struct {
		Query   string          `json:"query"`
		Results []search.Result `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode search response: %v", err)
	}
	if len(payload.Results) != 1 || payload.Results[0].Source != search.SourceSynthetic {
		t.Fatalf("unexpected results: %+v", payload.Results)
	}

	if resp := h.do(t, http.MethodGet, "/api/search", nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty query, got %d", resp.StatusCode)
	}
}

func TestRequestLifecycle(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()

	book := catalog.NewSynthetic("Dune", []string{"Frank Herbert"})
	if _, err := h.store.SaveBook(ctx, book); err != nil {
		t.Fatalf("SaveBook failed: %v", err)
	}

	body := map[string]string{"book_id": book.ID, "username": "alice"}
	if resp := h.do(t, http.MethodPost, "/api/requests", body); resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if resp := h.do(t, http.MethodPost, "/api/requests", body); resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate, got %d", resp.StatusCode)
	}
	missing := map[string]string{"book_id": "nope", "username": "alice"}
	if resp := h.do(t, http.MethodPost, "/api/requests", missing); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown book, got %d", resp.StatusCode)
	}

	resp := h.do(t, http.MethodGet, "/api/requests?username=alice", nil)
	var wishlist struct {
		Entries []catalog.WishlistEntry `json:"entries"`
		Counts  catalog.WishlistCounts  `json:"counts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wishlist); err != nil {
		t.Fatalf("decode wishlist: %v", err)
	}
	if len(wishlist.Entries) != 1 || wishlist.Counts.Total != 1 {
		t.Fatalf("unexpected wishlist: %+v", wishlist)
	}

	path := fmt.Sprintf("/api/requests/%s?username=alice", book.ID)
	if resp := h.do(t, http.MethodDelete, path, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d", resp.StatusCode)
	}
	if resp := h.do(t, http.MethodDelete, path, nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 on repeat delete, got %d", resp.StatusCode)
	}
}

func TestPromoteEndpoint(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()

	book := catalog.NewSynthetic("Dune", []string{"Frank Herbert"})
	if _, err := h.store.SaveBook(ctx, book); err != nil {
		t.Fatalf("SaveBook failed: %v", err)
	}

	// The stub provider has no candidates, so the record stays synthetic.
	resp := h.do(t, http.MethodPost, "/api/books/"+book.ID+"/promote", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var payload struct {
		Book     *catalog.Book `json:"book"`
		Promoted bool          `json:"promoted"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode promote response: %v", err)
	}
	if payload.Promoted || payload.Book == nil || payload.Book.ID != book.ID {
		t.Fatalf("unexpected promote response: %+v", payload)
	}

	if resp := h.do(t, http.MethodPost, "/api/books/SYN-00000000000/promote", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown synthetic, got %d", resp.StatusCode)
	}
	if resp := h.do(t, http.MethodPost, "/api/books/B002V00TOO/promote", nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for canonical id, got %d", resp.StatusCode)
	}
}

func TestCacheEndpoints(t *testing.T) {
	h := newHarness(t, []indexer.Release{
		{Title: "The Final Empire", Author: "Brandon Sanderson"},
	}, nil)

	if resp := h.do(t, http.MethodGet, "/api/search?q=final+empire", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected search to succeed, got %d", resp.StatusCode)
	}

	resp := h.do(t, http.MethodGet, "/api/cache", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var report daemon.CacheReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatalf("decode cache report: %v", err)
	}

	flushResp := h.do(t, http.MethodDelete, "/api/cache", nil)
	if flushResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on flush, got %d", flushResp.StatusCode)
	}
	var flush struct {
		Flushed bool `json:"flushed"`
	}
	if err := json.NewDecoder(flushResp.Body).Decode(&flush); err != nil {
		t.Fatalf("decode flush response: %v", err)
	}
	if !flush.Flushed {
		t.Fatal("expected caches flushed")
	}
}

func TestBearerTokenAuth(t *testing.T) {
	h := newHarness(t, nil, func(cfg *config.Config) {
		cfg.Server.APIToken = "secret"
	})

	req, err := http.NewRequest(http.MethodGet, h.baseURL+"/api/status", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected JSON error response, got %q", ct)
	}

	req.Header.Set("Authorization", "Bearer wrong")
	wrongResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer wrongResp.Body.Close()
	if wrongResp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", wrongResp.StatusCode)
	}

	if resp := h.do(t, http.MethodGet, "/api/status", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", resp.StatusCode)
	}
}
