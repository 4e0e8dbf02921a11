package catalog_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"shelfmark/internal/catalog"
	"shelfmark/internal/testsupport"
)

func seedSyntheticWithRequests(t *testing.T, store *catalog.Store, usernames ...string) *catalog.Book {
	t.Helper()
	ctx := context.Background()

	synthetic := catalog.NewSynthetic("The Final Empire", []string{"Brandon Sanderson"})
	if _, err := store.SaveBook(ctx, synthetic); err != nil {
		t.Fatalf("save synthetic: %v", err)
	}
	for _, username := range usernames {
		if err := store.AddRequest(ctx, synthetic.ID, username); err != nil {
			t.Fatalf("add request for %s: %v", username, err)
		}
	}
	return synthetic
}

func TestPromoteMigratesRequestLinks(t *testing.T) {
	store := testsupport.MustOpenStore(t)
	ctx := context.Background()

	synthetic := seedSyntheticWithRequests(t, store, "alice", "bob")
	canonical := &catalog.Book{
		ID:      "REAL001",
		Title:   "Mistborn: The Final Empire",
		Authors: []string{"Brandon Sanderson"},
	}

	promoted, err := store.Promote(ctx, synthetic.ID, canonical)
	if err != nil {
		t.Fatalf("Promote failed: %v", err)
	}
	if promoted.ID != "REAL001" || promoted.Synthetic {
		t.Fatalf("unexpected promoted record: %+v", promoted)
	}

	if _, err := store.GetBook(ctx, synthetic.ID); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected synthetic row removed, got %v", err)
	}

	requesters, err := store.RequestersFor(ctx, "REAL001")
	if err != nil {
		t.Fatalf("RequestersFor failed: %v", err)
	}
	if len(requesters) != 2 {
		t.Fatalf("expected both links migrated, got %v", requesters)
	}
	orphans, err := store.RequestersFor(ctx, synthetic.ID)
	if err != nil {
		t.Fatalf("RequestersFor synthetic failed: %v", err)
	}
	if len(orphans) != 0 {
		t.Fatalf("expected no dangling links, got %v", orphans)
	}
}

func TestPromotePreservesDownloadedFlag(t *testing.T) {
	store := testsupport.MustOpenStore(t)
	ctx := context.Background()

	synthetic := seedSyntheticWithRequests(t, store, "alice")
	if err := store.SetDownloaded(ctx, synthetic.ID, true); err != nil {
		t.Fatalf("SetDownloaded failed: %v", err)
	}

	promoted, err := store.Promote(ctx, synthetic.ID, &catalog.Book{ID: "REAL002", Title: "The Final Empire"})
	if err != nil {
		t.Fatalf("Promote failed: %v", err)
	}
	if !promoted.Downloaded {
		t.Fatal("expected downloaded flag carried over")
	}
}

func TestPromoteMissingSyntheticReturnsNotFound(t *testing.T) {
	store := testsupport.MustOpenStore(t)
	_, err := store.Promote(context.Background(), "SYN-0000000000a", &catalog.Book{ID: "REAL003", Title: "x"})
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPromoteExistingCanonicalReturnsConflict(t *testing.T) {
	store := testsupport.MustOpenStore(t)
	ctx := context.Background()

	synthetic := seedSyntheticWithRequests(t, store)
	if _, err := store.SaveBook(ctx, &catalog.Book{ID: "REAL004", Title: "Already Here"}); err != nil {
		t.Fatalf("SaveBook failed: %v", err)
	}

	_, err := store.Promote(ctx, synthetic.ID, &catalog.Book{ID: "REAL004", Title: "Already Here"})
	if !errors.Is(err, catalog.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	// The rollback must leave the synthetic record intact.
	if _, err := store.GetBook(ctx, synthetic.ID); err != nil {
		t.Fatalf("expected synthetic row preserved after rollback: %v", err)
	}
}

func TestPromoteRejectsNonSyntheticRow(t *testing.T) {
	store := testsupport.MustOpenStore(t)
	ctx := context.Background()

	if _, err := store.SaveBook(ctx, &catalog.Book{ID: "REAL005", Title: "Canonical"}); err != nil {
		t.Fatalf("SaveBook failed: %v", err)
	}
	_, err := store.Promote(ctx, "REAL005", &catalog.Book{ID: "REAL006", Title: "Canonical"})
	if !errors.Is(err, catalog.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestConcurrentPromotionsConvergeOnOneWinner(t *testing.T) {
	store := testsupport.MustOpenStore(t)
	ctx := context.Background()

	synthetic := seedSyntheticWithRequests(t, store, "alice", "bob", "carol")
	canonical := func() *catalog.Book {
		return &catalog.Book{ID: "REAL007", Title: "The Final Empire", Authors: []string{"Brandon Sanderson"}}
	}

	const promoters = 8
	results := make([]string, promoters)
	failures := make([]error, promoters)

	var wg sync.WaitGroup
	for i := 0; i < promoters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			book, err := store.Promote(ctx, synthetic.ID, canonical())
			if err != nil {
				// Losers observe the conflict and re-query; both error
				// shapes are expected, anything else is a failure.
				if !errors.Is(err, catalog.ErrNotFound) && !errors.Is(err, catalog.ErrConflict) {
					failures[i] = err
					return
				}
				requeried, reqErr := store.GetBook(ctx, "REAL007")
				if reqErr != nil {
					failures[i] = reqErr
					return
				}
				results[i] = requeried.ID
				return
			}
			results[i] = book.ID
		}(i)
	}
	wg.Wait()

	for i, err := range failures {
		if err != nil {
			t.Fatalf("promoter %d failed: %v", i, err)
		}
	}
	for i, id := range results {
		if id != "REAL007" {
			t.Fatalf("promoter %d got %q, want REAL007", i, id)
		}
	}

	requesters, err := store.RequestersFor(ctx, "REAL007")
	if err != nil {
		t.Fatalf("RequestersFor failed: %v", err)
	}
	if len(requesters) != 3 {
		t.Fatalf("expected all 3 links migrated exactly once, got %v", requesters)
	}
}
