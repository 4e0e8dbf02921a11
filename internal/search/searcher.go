package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"shelfmark/internal/bookid"
	"shelfmark/internal/catalog"
	"shelfmark/internal/config"
	"shelfmark/internal/indexer"
	"shelfmark/internal/logging"
	"shelfmark/internal/metadata"
	"shelfmark/internal/ranking"
	"shelfmark/internal/resolver"
)

// Source labels how a result's identity was established.
type Source string

const (
	// SourceCanonical means the record identity came from the authoritative
	// provider directly.
	SourceCanonical Source = "canonical"
	// SourcePromoted means a synthetic record was upgraded during this
	// resolution pass.
	SourcePromoted Source = "promoted"
	// SourceSynthetic means no authoritative identity is known yet.
	SourceSynthetic Source = "synthetic"
)

// Result is a resolved, scored search result.
type Result struct {
	Book    *catalog.Book   `json:"book"`
	Source  Source          `json:"source"`
	Release indexer.Release `json:"release"`
	Scores  ranking.Scores  `json:"scores"`
}

// Options tunes a single Resolve call.
type Options struct {
	// Limit caps the number of ranked results returned. Zero means no cap.
	Limit int
}

// Searcher runs the resolution pipeline.
type Searcher struct {
	store         *catalog.Store
	releases      indexer.Searcher
	provider      metadata.Provider
	engine        *ranking.Engine
	resolver      *resolver.Resolver
	logger        *slog.Logger
	maxConcurrent int
	verifyTimeout time.Duration
}

// New wires a searcher from its collaborators.
func New(cfg *config.Config, store *catalog.Store, releases indexer.Searcher, provider metadata.Provider, engine *ranking.Engine, res *resolver.Resolver, logger *slog.Logger) *Searcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	maxConcurrent := cfg.Search.MaxConcurrentLookups
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Searcher{
		store:         store,
		releases:      releases,
		provider:      provider,
		engine:        engine,
		resolver:      res,
		logger:        logging.NewComponentLogger(logger, "search"),
		maxConcurrent: maxConcurrent,
		verifyTimeout: time.Duration(cfg.Search.VerifyTimeoutSeconds) * time.Second,
	}
}

// Resolve searches the indexer for the query, resolves every distinct
// candidate to a catalog record, and returns the results ranked by relevance.
// A request for an unresolved book always yields some record: candidates
// with no authoritative match come back as synthetic records.
func (s *Searcher) Resolve(ctx context.Context, query string, opts Options) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query must not be empty", catalog.ErrInvalid)
	}

	releases, err := s.releases.Search(ctx, query)
	if err != nil {
		// Transient upstream failure: absence of candidates, not a request
		// failure.
		s.logger.WarnContext(ctx, "indexer search failed",
			logging.String(logging.FieldQuery, query),
			logging.Error(err))
		releases = nil
	}

	candidates := dedupe(releases)
	results := make([]*Result, len(candidates))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.maxConcurrent)
	for i, release := range candidates {
		i, release := i, release
		group.Go(func() error {
			taskCtx, cancel := groupCtx, context.CancelFunc(func() {})
			if s.verifyTimeout > 0 {
				taskCtx, cancel = context.WithTimeout(groupCtx, s.verifyTimeout)
			}
			defer cancel()

			book, source, err := s.resolveRelease(taskCtx, release)
			if err != nil {
				s.logger.WarnContext(ctx, "candidate resolution failed",
					logging.String("release_title", release.Title),
					logging.Error(err))
				return nil
			}
			results[i] = &Result{Book: book, Source: source, Release: release}
			return nil
		})
	}
	// Tasks absorb their own failures, so Wait only reflects context
	// cancellation of the batch itself.
	if err := group.Wait(); err != nil {
		return nil, err
	}

	resolved := make([]Result, 0, len(results))
	for _, result := range results {
		if result != nil {
			resolved = append(resolved, *result)
		}
	}
	return s.rank(resolved, query, opts.Limit), nil
}

// resolveRelease maps one release to a catalog record. Identity precedence:
// a canonical identifier embedded in release metadata, then the synthetic
// fingerprint of (title, author) run through a promotion attempt.
func (s *Searcher) resolveRelease(ctx context.Context, release indexer.Release) (*catalog.Book, Source, error) {
	if id := indexer.CanonicalID(release); id != "" {
		if book, source, err := s.resolveCanonical(ctx, release, id); err == nil {
			return book, source, nil
		} else if ctx.Err() != nil {
			return nil, "", err
		}
		// Lookup failed transiently; continue with the synthetic path.
	}

	synthID := bookid.Synthetic(release.Title, release.Author)
	if _, err := s.store.GetBook(ctx, synthID); errors.Is(err, catalog.ErrNotFound) {
		synthetic := catalog.NewSynthetic(release.Title, authorList(release.Author))
		synthetic.Narrator = release.Narrator
		if _, err := s.store.SaveBook(ctx, synthetic); err != nil {
			return nil, "", err
		}
	} else if err != nil {
		return nil, "", err
	}

	book, err := s.resolver.AttemptPromotion(ctx, synthID)
	if err != nil {
		return nil, "", err
	}
	if book.Synthetic {
		return book, SourceSynthetic, nil
	}
	return book, SourcePromoted, nil
}

// resolveCanonical handles the fast path where release metadata already
// names the canonical identity.
func (s *Searcher) resolveCanonical(ctx context.Context, release indexer.Release, id string) (*catalog.Book, Source, error) {
	if book, err := s.store.GetBook(ctx, id); err == nil {
		return book, SourceCanonical, nil
	}

	meta, err := s.provider.Lookup(ctx, id)
	if err != nil {
		return nil, "", err
	}
	canonical := &catalog.Book{
		ID:          meta.ID,
		Title:       meta.Title,
		Subtitle:    meta.Subtitle,
		Authors:     meta.Authors,
		Narrator:    release.Narrator,
		ReleaseDate: meta.ReleaseDate,
		CoverURL:    meta.CoverURL,
		Description: meta.Description,
	}
	if len(canonical.Authors) == 0 {
		canonical.Authors = authorList(release.Author)
	}

	// An existing synthetic record for the same semantic identity is
	// upgraded so its request links follow the canonical identity.
	synthID := bookid.Synthetic(release.Title, release.Author)
	if _, err := s.store.GetBook(ctx, synthID); err == nil {
		book, err := s.resolver.Promote(ctx, synthID, canonical)
		if err != nil {
			return nil, "", err
		}
		return book, SourcePromoted, nil
	}

	saved, err := s.store.SaveBook(ctx, canonical)
	if err != nil {
		return nil, "", err
	}
	return saved, SourceCanonical, nil
}

// rank orders resolved results by combined relevance to the query.
func (s *Searcher) rank(results []Result, query string, limit int) []Result {
	if len(results) == 0 {
		return nil
	}
	works := make([]ranking.Work, len(results))
	for i, result := range results {
		works[i] = ranking.Work{Title: result.Book.Title, Authors: result.Book.Authors}
	}
	ranked := s.engine.Rank(works, query)

	ordered := make([]Result, 0, len(ranked))
	for _, entry := range ranked {
		result := results[entry.Index]
		result.Scores = entry.Scores
		ordered = append(ordered, result)
	}
	if limit > 0 && len(ordered) > limit {
		ordered = ordered[:limit]
	}
	return ordered
}

// dedupe collapses releases that share a semantic identity, keeping the
// first occurrence of each.
func dedupe(releases []indexer.Release) []indexer.Release {
	seen := make(map[string]struct{}, len(releases))
	unique := make([]indexer.Release, 0, len(releases))
	for _, release := range releases {
		key := bookid.Synthetic(release.Title, release.Author)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, release)
	}
	return unique
}

func authorList(author string) []string {
	author = strings.TrimSpace(author)
	if author == "" {
		return nil
	}
	return []string{author}
}
