package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"shelfmark/internal/bookid"
	"shelfmark/internal/catalog"
	"shelfmark/internal/config"
	"shelfmark/internal/logging"
	"shelfmark/internal/memocache"
	"shelfmark/internal/metadata"
	"shelfmark/internal/notifications"
	"shelfmark/internal/ranking"
)

// Outcome is a memoized promotion result. An empty BookID records a
// negative outcome: the authoritative source had no verified match when we
// last looked.
type Outcome struct {
	BookID   string
	Promoted bool
}

// Resolver drives promotion attempts for synthetic records.
type Resolver struct {
	store      *catalog.Store
	provider   metadata.Provider
	engine     *ranking.Engine
	notifier   notifications.Service
	logger     *slog.Logger
	outcomes   *memocache.Cache[string, Outcome]
	enrichment bool
	cacheAge   time.Duration
}

// New wires a resolver from its collaborators. A nil notifier or logger is
// replaced with a no-op.
func New(cfg *config.Config, store *catalog.Store, provider metadata.Provider, engine *ranking.Engine, notifier notifications.Service, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(&config.Config{})
	}
	return &Resolver{
		store:      store,
		provider:   provider,
		engine:     engine,
		notifier:   notifier,
		logger:     logging.NewComponentLogger(logger, "resolver"),
		outcomes:   memocache.New[string, Outcome](cfg.Search.PromotionCacheSize, time.Duration(cfg.Search.PromotionTTLSeconds)*time.Second),
		enrichment: cfg.Metadata.EnrichmentEnabled,
		cacheAge:   time.Duration(cfg.Metadata.CacheExpiryDays) * 24 * time.Hour,
	}
}

// OutcomeMetrics exposes the promotion-outcome cache counters.
func (r *Resolver) OutcomeMetrics() memocache.Metrics {
	return r.outcomes.Metrics()
}

// FlushOutcomes clears memoized promotion outcomes.
func (r *Resolver) FlushOutcomes() {
	r.outcomes.Flush()
}

// SetClock overrides the outcome cache's time source. Tests use it to drive
// TTL expiry without sleeping.
func (r *Resolver) SetClock(now func() time.Time) {
	r.outcomes.SetClock(now)
}

// AttemptPromotion checks whether an authoritative match now exists for the
// synthetic record and, if so, promotes it. The caller always gets back a
// live record: the canonical one on success or after losing a race, the
// synthetic one when no match exists yet. Only a malformed identifier or a
// missing record surfaces as an error.
func (r *Resolver) AttemptPromotion(ctx context.Context, syntheticID string) (*catalog.Book, error) {
	if !bookid.IsSynthetic(syntheticID) {
		return nil, fmt.Errorf("%w: %q is not a synthetic identifier", catalog.ErrInvalid, syntheticID)
	}

	// Fast path: a memoized outcome, re-validated against store state
	// because a cached identity can go stale.
	if outcome, ok := r.outcomes.Get(syntheticID); ok {
		if book, ok := r.validateOutcome(ctx, syntheticID, outcome); ok {
			return book, nil
		}
		r.outcomes.Delete(syntheticID)
	}

	synthetic, err := r.store.GetBook(ctx, syntheticID)
	if err != nil {
		return nil, err
	}
	if !synthetic.Synthetic {
		// Already replaced under this identifier. Nothing left to do.
		return synthetic, nil
	}

	author := ""
	if len(synthetic.Authors) > 0 {
		author = synthetic.Authors[0]
	}
	candidates, err := r.authoritativeCandidates(ctx, synthetic.Title, author)
	if err != nil {
		r.logger.WarnContext(ctx, "authoritative lookup failed",
			logging.String(logging.FieldBookID, syntheticID),
			logging.Error(err))
		return synthetic, nil
	}

	match := r.verifiedMatch(candidates, synthetic)
	if match == nil {
		r.outcomes.Set(syntheticID, Outcome{})
		if r.enrichment && len(candidates) > 0 {
			r.enrich(ctx, synthetic, candidates[0])
		}
		return synthetic, nil
	}

	return r.Promote(ctx, syntheticID, canonicalFromMetadata(match, synthetic))
}

// Promote runs the store promotion with full race recovery and memoizes the
// outcome. It is also the entry point when the canonical identity is already
// known, for example from an identifier embedded in release metadata.
func (r *Resolver) Promote(ctx context.Context, syntheticID string, canonical *catalog.Book) (*catalog.Book, error) {
	promoted, err := r.store.Promote(ctx, syntheticID, canonical)
	if err == nil {
		r.outcomes.Set(syntheticID, Outcome{BookID: promoted.ID, Promoted: true})
		r.logger.InfoContext(ctx, "synthetic record promoted",
			logging.String(logging.FieldBookID, promoted.ID),
			logging.String("synthetic_id", syntheticID))
		if notifyErr := r.notifier.NotifyPromotionCompleted(ctx, promoted.Title, promoted.ID); notifyErr != nil {
			r.logger.WarnContext(ctx, "promotion notification failed", logging.Error(notifyErr))
		}
		return promoted, nil
	}

	if errors.Is(err, catalog.ErrInvalid) {
		return nil, err
	}
	if errors.Is(err, catalog.ErrNotFound) || errors.Is(err, catalog.ErrConflict) {
		return r.recover(ctx, syntheticID, canonical)
	}
	return nil, err
}

// recover resolves the post-race state after a lost promotion: prefer the
// canonical record, fall back to the still-synthetic one, and as a last
// resort recreate the synthetic record rather than failing the request.
func (r *Resolver) recover(ctx context.Context, syntheticID string, canonical *catalog.Book) (*catalog.Book, error) {
	if book, err := r.store.GetBook(ctx, canonical.ID); err == nil {
		r.outcomes.Set(syntheticID, Outcome{BookID: book.ID, Promoted: true})
		return book, nil
	}
	if book, err := r.store.GetBook(ctx, syntheticID); err == nil {
		return book, nil
	}

	// Neither record exists. Should not happen while promotions hold the
	// write lock; repair and keep serving.
	r.logger.ErrorContext(ctx, "both synthetic and canonical records vanished",
		logging.String("synthetic_id", syntheticID),
		logging.String(logging.FieldBookID, canonical.ID),
		logging.String(logging.FieldErrorHint, "check for external writes to the catalog database"))
	fallback := catalog.NewSynthetic(canonical.Title, canonical.Authors)
	saved, err := r.store.SaveBook(ctx, fallback)
	if err != nil {
		return nil, fmt.Errorf("recreate synthetic record: %w", err)
	}
	return saved, nil
}

// validateOutcome turns a cached outcome back into a live record, reporting
// false when the cached identity no longer matches store state.
func (r *Resolver) validateOutcome(ctx context.Context, syntheticID string, outcome Outcome) (*catalog.Book, bool) {
	if outcome.BookID != "" {
		book, err := r.store.GetBook(ctx, outcome.BookID)
		if err != nil {
			return nil, false
		}
		return book, true
	}
	book, err := r.store.GetBook(ctx, syntheticID)
	if err != nil || !book.Synthetic {
		return nil, false
	}
	return book, true
}

// authoritativeCandidates queries the metadata provider through the
// persisted cache. Negative provider answers are cached as empty payloads so
// they are not re-fetched until the entry ages out.
func (r *Resolver) authoritativeCandidates(ctx context.Context, title, author string) ([]*metadata.Book, error) {
	key := metadata.SearchKey(title, author)

	if payload, err := r.store.MetadataGet(ctx, key, r.provider.Name(), r.cacheAge); err == nil {
		if payload == "" {
			return nil, nil
		}
		var cached []*metadata.Book
		if err := json.Unmarshal([]byte(payload), &cached); err == nil {
			return cached, nil
		}
		// Unreadable payload: fall through and refresh it.
	}

	candidates, err := r.provider.Search(ctx, title, author)
	if err != nil {
		return nil, err
	}

	payload := ""
	if len(candidates) > 0 {
		encoded, err := json.Marshal(candidates)
		if err != nil {
			return nil, fmt.Errorf("encode metadata payload: %w", err)
		}
		payload = string(encoded)
	}
	if err := r.store.MetadataSet(ctx, key, r.provider.Name(), payload); err != nil {
		r.logger.WarnContext(ctx, "metadata cache write failed", logging.Error(err))
	}
	return candidates, nil
}

// verifiedMatch returns the first candidate passing strict verification, or
// failing that the first passing the relaxed pass.
func (r *Resolver) verifiedMatch(candidates []*metadata.Book, synthetic *catalog.Book) *metadata.Book {
	release := ranking.Release{Title: synthetic.Title}
	if len(synthetic.Authors) > 0 {
		release.Author = synthetic.Authors[0]
	}

	for _, candidate := range candidates {
		if r.engine.Verify(release, ranking.Work{Title: candidate.Title, Authors: candidate.Authors}) {
			return candidate
		}
	}
	for _, candidate := range candidates {
		if r.engine.VerifyRelaxed(release, ranking.Work{Title: candidate.Title, Authors: candidate.Authors}) {
			return candidate
		}
	}
	return nil
}

// enrich copies missing descriptive fields from the closest candidate onto
// the synthetic record without touching its identity.
func (r *Resolver) enrich(ctx context.Context, synthetic *catalog.Book, candidate *metadata.Book) {
	changed := false
	if synthetic.Description == "" && candidate.Description != "" {
		synthetic.Description = candidate.Description
		changed = true
	}
	if synthetic.CoverURL == "" && candidate.CoverURL != "" {
		synthetic.CoverURL = candidate.CoverURL
		changed = true
	}
	if synthetic.ReleaseDate == "" && candidate.ReleaseDate != "" {
		synthetic.ReleaseDate = candidate.ReleaseDate
		changed = true
	}
	if !changed {
		return
	}
	if _, err := r.store.SaveBook(ctx, synthetic); err != nil {
		r.logger.WarnContext(ctx, "enrichment save failed",
			logging.String(logging.FieldBookID, synthetic.ID),
			logging.Error(err))
	}
}

func canonicalFromMetadata(match *metadata.Book, synthetic *catalog.Book) *catalog.Book {
	return &catalog.Book{
		ID:          match.ID,
		Title:       match.Title,
		Subtitle:    match.Subtitle,
		Authors:     authorsOrFallback(match.Authors, synthetic.Authors),
		Narrator:    synthetic.Narrator,
		ReleaseDate: match.ReleaseDate,
		CoverURL:    match.CoverURL,
		Description: match.Description,
		Downloaded:  synthetic.Downloaded,
	}
}

func authorsOrFallback(primary, fallback []string) []string {
	if len(primary) > 0 {
		return primary
	}
	return fallback
}
