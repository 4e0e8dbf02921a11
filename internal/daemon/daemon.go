package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"shelfmark/internal/catalog"
	"shelfmark/internal/config"
	"shelfmark/internal/indexer"
	"shelfmark/internal/logging"
	"shelfmark/internal/memocache"
	"shelfmark/internal/notifications"
	"shelfmark/internal/ranking"
	"shelfmark/internal/resolver"
	"shelfmark/internal/search"
)

// Daemon owns the background services and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *catalog.Store
	searcher *search.Searcher
	resolver *resolver.Resolver
	engine   *ranking.Engine
	releases indexer.Searcher
	notifier notifications.Service

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool                   `json:"running"`
	PID          int                    `json:"pid"`
	DatabasePath string                 `json:"database_path"`
	LockFilePath string                 `json:"lock_file_path"`
	Health       catalog.DatabaseHealth `json:"health"`
	Wishlist     catalog.WishlistCounts `json:"wishlist"`
}

// CacheReport aggregates the in-memory cache metrics across components.
type CacheReport struct {
	Scores   memocache.Metrics  `json:"scores"`
	Outcomes memocache.Metrics  `json:"outcomes"`
	Releases memocache.Metrics  `json:"releases"`
	HitRates map[string]float64 `json:"hit_rates"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *catalog.Store, searcher *search.Searcher, res *resolver.Resolver, engine *ranking.Engine, releases indexer.Searcher, notifier notifications.Service, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || searcher == nil || res == nil || engine == nil {
		return nil, errors.New("daemon requires config, store, searcher, resolver, and engine")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	lockPath := cfg.LockFilePath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		searcher: searcher,
		resolver: res,
		engine:   engine,
		releases: releases,
		notifier: notifier,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the daemon lock and brings up the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another shelfmark daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.api.start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	go d.metadataJanitor(d.ctx)
	d.logger.Info("shelfmark daemon started", logging.String("lock", d.lockPath))
	return nil
}

// metadataJanitor sweeps expired persisted metadata entries so negative
// results do not accumulate between restarts. Expiry on read already keeps
// answers correct; this only reclaims space.
func (d *Daemon) metadataJanitor(ctx context.Context) {
	maxAge := time.Duration(d.cfg.Metadata.CacheExpiryDays) * 24 * time.Hour
	if maxAge <= 0 {
		return
	}
	ticker := time.NewTicker(6 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := d.store.MetadataPurge(ctx, maxAge)
			if err != nil {
				d.logger.Warn("metadata cache purge failed", logging.Error(err))
				continue
			}
			if purged > 0 {
				d.logger.Debug("metadata cache purged", logging.Int64("purged", purged))
			}
		}
	}
}

// Stop shuts down the API server and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("shelfmark daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr reports the API server's listen address, once started.
func (d *Daemon) Addr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
	}
	if health, err := d.store.CheckHealth(ctx); err == nil {
		status.Health = health
	}
	if counts, err := d.store.WishlistCounts(ctx, ""); err == nil {
		status.Wishlist = counts
	}
	return status
}

// Caches reports hit/miss counters for every in-memory cache.
func (d *Daemon) Caches() CacheReport {
	report := CacheReport{
		Scores:   d.engine.CacheMetrics(),
		Outcomes: d.resolver.OutcomeMetrics(),
	}
	if client, ok := d.releases.(*indexer.Client); ok && client != nil {
		report.Releases = client.CacheMetrics()
	}
	report.HitRates = map[string]float64{
		"scores":   report.Scores.HitRate(),
		"outcomes": report.Outcomes.HitRate(),
		"releases": report.Releases.HitRate(),
	}
	return report
}

// FlushCaches clears every in-memory cache and the persisted metadata cache,
// returning the number of persisted entries removed.
func (d *Daemon) FlushCaches(ctx context.Context) (int64, error) {
	d.engine.FlushCache()
	d.resolver.FlushOutcomes()
	if client, ok := d.releases.(*indexer.Client); ok && client != nil {
		client.FlushCache()
	}
	return d.store.MetadataFlush(ctx)
}

// AddRequest links a requester to a book and notifies when configured.
func (d *Daemon) AddRequest(ctx context.Context, bookID, username string) error {
	bookID = strings.TrimSpace(bookID)
	username = strings.TrimSpace(username)
	if bookID == "" || username == "" {
		return fmt.Errorf("%w: book id and username are required", catalog.ErrInvalid)
	}
	book, err := d.store.GetBook(ctx, bookID)
	if err != nil {
		return err
	}
	if err := d.store.AddRequest(ctx, bookID, username); err != nil {
		return err
	}
	d.logger.Info("book requested",
		logging.String(logging.FieldBookID, bookID),
		logging.String(logging.FieldUsername, username))
	if err := d.notifier.NotifyNewRequest(ctx, book.Title, username); err != nil {
		d.logger.Warn("request notification failed", logging.Error(err))
	}
	return nil
}

// Promote runs the promotion flow for a synthetic book immediately, bypassing
// the search pipeline.
func (d *Daemon) Promote(ctx context.Context, bookID string) (*catalog.Book, error) {
	bookID = strings.TrimSpace(bookID)
	if bookID == "" {
		return nil, fmt.Errorf("%w: book id is required", catalog.ErrInvalid)
	}
	return d.resolver.AttemptPromotion(ctx, bookID)
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}
