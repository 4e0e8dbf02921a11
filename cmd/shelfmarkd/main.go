package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"shelfmark/internal/catalog"
	"shelfmark/internal/config"
	"shelfmark/internal/daemon"
	"shelfmark/internal/indexer"
	"shelfmark/internal/logging"
	"shelfmark/internal/metadata/googlebooks"
	"shelfmark/internal/notifications"
	"shelfmark/internal/ranking"
	"shelfmark/internal/resolver"
	"shelfmark/internal/search"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := catalog.Open(cfg)
	if err != nil {
		logger.Error("open catalog store", logging.Error(err))
		return
	}

	var releases indexer.Searcher
	if cfg.Indexer.BaseURL != "" {
		client, err := indexer.New(cfg.Indexer.BaseURL, cfg.Indexer.APIKey,
			indexer.WithCategories(cfg.Indexer.Categories),
			indexer.WithResultCache(cfg.Indexer.ResultCacheSize, time.Duration(cfg.Indexer.ResultTTL)*time.Second),
			indexer.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Indexer.TimeoutSeconds) * time.Second}),
		)
		if err != nil {
			logger.Error("configure indexer client", logging.Error(err))
			return
		}
		releases = client
	} else {
		logger.Warn("indexer not configured, searches will return no releases")
		releases = noReleases{}
	}

	provider, err := googlebooks.New(cfg.Metadata.BaseURL,
		googlebooks.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Metadata.TimeoutSeconds) * time.Second}))
	if err != nil {
		logger.Error("configure metadata provider", logging.Error(err))
		return
	}

	engine := ranking.NewEngine(cfg.Search.ScoreCacheSize, time.Duration(cfg.Search.ScoreTTLSeconds)*time.Second)
	notifier := notifications.NewService(cfg)
	res := resolver.New(cfg, store, provider, engine, notifier, logger)
	searcher := search.New(cfg, store, releases, provider, engine, res, logger)

	d, err := daemon.New(cfg, store, searcher, res, engine, releases, notifier, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("shelfmarkd shutting down")
}

// noReleases stands in for the indexer when none is configured.
type noReleases struct{}

func (noReleases) Search(context.Context, string) ([]indexer.Release, error) {
	return nil, nil
}
