package resolver_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"shelfmark/internal/catalog"
	"shelfmark/internal/config"
	"shelfmark/internal/metadata"
	"shelfmark/internal/ranking"
	"shelfmark/internal/resolver"
	"shelfmark/internal/testsupport"
)

type stubProvider struct {
	books []*metadata.Book
	err   error
	calls int
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Search(ctx context.Context, title, author string) ([]*metadata.Book, error) {
	s.calls++
	return s.books, s.err
}

func (s *stubProvider) Lookup(ctx context.Context, id string) (*metadata.Book, error) {
	for _, book := range s.books {
		if book.ID == id {
			return book, nil
		}
	}
	return nil, errors.New("not found")
}

func newResolver(t *testing.T, provider metadata.Provider, mutate func(*config.Config)) (*resolver.Resolver, *catalog.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if mutate != nil {
		mutate(cfg)
	}
	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	engine := ranking.NewEngine(cfg.Search.ScoreCacheSize, time.Duration(cfg.Search.ScoreTTLSeconds)*time.Second)
	return resolver.New(cfg, store, provider, engine, nil, nil), store
}

func seedSynthetic(t *testing.T, store *catalog.Store, usernames ...string) *catalog.Book {
	t.Helper()
	ctx := context.Background()
	synthetic := catalog.NewSynthetic("The Final Empire", []string{"Brandon Sanderson"})
	if _, err := store.SaveBook(ctx, synthetic); err != nil {
		t.Fatalf("save synthetic: %v", err)
	}
	for _, username := range usernames {
		if err := store.AddRequest(ctx, synthetic.ID, username); err != nil {
			t.Fatalf("add request: %v", err)
		}
	}
	return synthetic
}

func TestAttemptPromotionPromotesVerifiedMatch(t *testing.T) {
	provider := &stubProvider{books: []*metadata.Book{{
		ID:      "GB001",
		Title:   "The Final Empire",
		Authors: []string{"Brandon Sanderson"},
	}}}
	r, store := newResolver(t, provider, nil)
	ctx := context.Background()
	synthetic := seedSynthetic(t, store, "alice", "bob")

	book, err := r.AttemptPromotion(ctx, synthetic.ID)
	if err != nil {
		t.Fatalf("AttemptPromotion failed: %v", err)
	}
	if book.ID != "GB001" || book.Synthetic {
		t.Fatalf("expected canonical record, got %+v", book)
	}

	if _, err := store.GetBook(ctx, synthetic.ID); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected synthetic row removed, got %v", err)
	}
	requesters, err := store.RequestersFor(ctx, "GB001")
	if err != nil {
		t.Fatalf("RequestersFor failed: %v", err)
	}
	if len(requesters) != 2 {
		t.Fatalf("expected links migrated, got %v", requesters)
	}

	// Second attempt resolves from the memoized outcome.
	again, err := r.AttemptPromotion(ctx, synthetic.ID)
	if err != nil {
		t.Fatalf("repeat AttemptPromotion failed: %v", err)
	}
	if again.ID != "GB001" {
		t.Fatalf("expected cached canonical result, got %+v", again)
	}
	if provider.calls != 1 {
		t.Fatalf("expected a single provider search, got %d", provider.calls)
	}
}

func TestAttemptPromotionCachesNegativeOutcome(t *testing.T) {
	provider := &stubProvider{}
	r, store := newResolver(t, provider, nil)
	ctx := context.Background()
	synthetic := seedSynthetic(t, store)

	for i := 0; i < 3; i++ {
		book, err := r.AttemptPromotion(ctx, synthetic.ID)
		if err != nil {
			t.Fatalf("AttemptPromotion failed: %v", err)
		}
		if book.ID != synthetic.ID || !book.Synthetic {
			t.Fatalf("expected synthetic record back, got %+v", book)
		}
	}
	if provider.calls != 1 {
		t.Fatalf("expected negative outcome memoized, got %d provider calls", provider.calls)
	}
}

func TestNegativeOutcomeExpiresAfterTTL(t *testing.T) {
	provider := &stubProvider{}
	r, store := newResolver(t, provider, func(cfg *config.Config) {
		cfg.Search.PromotionTTLSeconds = 60
		cfg.Metadata.CacheExpiryDays = 0
	})
	ctx := context.Background()
	synthetic := seedSynthetic(t, store)

	now := time.Now()
	r.SetClock(func() time.Time { return now })

	if _, err := r.AttemptPromotion(ctx, synthetic.ID); err != nil {
		t.Fatalf("AttemptPromotion failed: %v", err)
	}
	if _, err := r.AttemptPromotion(ctx, synthetic.ID); err != nil {
		t.Fatalf("AttemptPromotion failed: %v", err)
	}
	if provider.calls != 1 {
		t.Fatalf("expected memoized negative before TTL, got %d calls", provider.calls)
	}

	// A stale negative must miss and trigger a fresh authoritative check.
	now = now.Add(61 * time.Second)
	if _, err := store.MetadataFlush(ctx); err != nil {
		t.Fatalf("flush metadata cache: %v", err)
	}
	if _, err := r.AttemptPromotion(ctx, synthetic.ID); err != nil {
		t.Fatalf("AttemptPromotion failed: %v", err)
	}
	if provider.calls != 2 {
		t.Fatalf("expected re-attempt after TTL, got %d calls", provider.calls)
	}
}

func TestAttemptPromotionRejectsMalformedID(t *testing.T) {
	provider := &stubProvider{}
	r, _ := newResolver(t, provider, nil)
	if _, err := r.AttemptPromotion(context.Background(), "REAL001"); !errors.Is(err, catalog.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestProviderFailureReturnsSynthetic(t *testing.T) {
	provider := &stubProvider{err: errors.New("upstream down")}
	r, store := newResolver(t, provider, nil)
	ctx := context.Background()
	synthetic := seedSynthetic(t, store)

	book, err := r.AttemptPromotion(ctx, synthetic.ID)
	if err != nil {
		t.Fatalf("expected transient failure absorbed, got %v", err)
	}
	if book.ID != synthetic.ID {
		t.Fatalf("expected synthetic record back, got %+v", book)
	}
}

func TestUnverifiedCandidatesEnrichSynthetic(t *testing.T) {
	provider := &stubProvider{books: []*metadata.Book{{
		ID:          "GB002",
		Title:       "Completely Different Book",
		Authors:     []string{"Someone Else"},
		Description: "A rich description.",
		CoverURL:    "https://covers.example/x.jpg",
	}}}
	r, store := newResolver(t, provider, nil)
	ctx := context.Background()
	synthetic := seedSynthetic(t, store)

	book, err := r.AttemptPromotion(ctx, synthetic.ID)
	if err != nil {
		t.Fatalf("AttemptPromotion failed: %v", err)
	}
	if !book.Synthetic {
		t.Fatalf("expected record to stay synthetic, got %+v", book)
	}

	stored, err := store.GetBook(ctx, synthetic.ID)
	if err != nil {
		t.Fatalf("GetBook failed: %v", err)
	}
	if stored.Description != "A rich description." || stored.CoverURL == "" {
		t.Fatalf("expected enrichment applied, got %+v", stored)
	}
}

func TestPromoteRecoversWhenCanonicalAlreadyExists(t *testing.T) {
	provider := &stubProvider{}
	r, store := newResolver(t, provider, nil)
	ctx := context.Background()
	synthetic := seedSynthetic(t, store, "alice")

	existing := &catalog.Book{ID: "REAL009", Title: "The Final Empire", Authors: []string{"Brandon Sanderson"}}
	if _, err := store.SaveBook(ctx, existing); err != nil {
		t.Fatalf("SaveBook failed: %v", err)
	}

	book, err := r.Promote(ctx, synthetic.ID, existing)
	if err != nil {
		t.Fatalf("expected conflict recovery, got %v", err)
	}
	if book.ID != "REAL009" {
		t.Fatalf("expected canonical record after recovery, got %+v", book)
	}
}

func TestPersistedMetadataCacheSpansOutcomeFlush(t *testing.T) {
	provider := &stubProvider{}
	r, store := newResolver(t, provider, nil)
	ctx := context.Background()
	synthetic := seedSynthetic(t, store)

	if _, err := r.AttemptPromotion(ctx, synthetic.ID); err != nil {
		t.Fatalf("AttemptPromotion failed: %v", err)
	}
	r.FlushOutcomes()
	if _, err := r.AttemptPromotion(ctx, synthetic.ID); err != nil {
		t.Fatalf("AttemptPromotion failed: %v", err)
	}
	if provider.calls != 1 {
		t.Fatalf("expected persisted cache to absorb the second lookup, got %d calls", provider.calls)
	}
}
