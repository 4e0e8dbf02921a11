// Package testsupport provides shared helpers for package tests: temp-dir
// configs and throwaway catalog stores.
package testsupport

import (
	"path/filepath"
	"testing"

	"shelfmark/internal/catalog"
	"shelfmark/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Server.Bind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithIndexer points the test config at a stub indexer endpoint.
func WithIndexer(baseURL, apiKey string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Indexer.BaseURL = baseURL
		cfg.Indexer.APIKey = apiKey
	}
}

// WithMetadataBaseURL points the metadata provider at a stub endpoint.
func WithMetadataBaseURL(baseURL string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Metadata.BaseURL = baseURL
	}
}

// MustOpenStore opens a catalog store under the test's temp directory and
// closes it on cleanup.
func MustOpenStore(t testing.TB) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(NewConfig(t))
	if err != nil {
		t.Fatalf("open catalog store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
