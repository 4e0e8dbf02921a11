package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"shelfmark/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "shelfmark")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Server.Bind != "127.0.0.1:8790" {
		t.Fatalf("unexpected bind: %q", cfg.Server.Bind)
	}
	if cfg.Metadata.BaseURL != config.Default().Metadata.BaseURL {
		t.Fatalf("unexpected metadata base url: %q", cfg.Metadata.BaseURL)
	}
	if !cfg.Metadata.EnrichmentEnabled {
		t.Fatal("expected enrichment enabled by default")
	}
	if cfg.Search.MaxConcurrentLookups != 15 {
		t.Fatalf("unexpected lookup limit: %d", cfg.Search.MaxConcurrentLookups)
	}
	if cfg.Search.VerifyTimeoutSeconds != 5 {
		t.Fatalf("unexpected verify timeout: %d", cfg.Search.VerifyTimeoutSeconds)
	}
	if cfg.Indexer.BaseURL != "" {
		t.Fatalf("expected indexer disabled by default, got %q", cfg.Indexer.BaseURL)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "catalog.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "shelfmark.toml")

	type payload struct {
		Indexer struct {
			BaseURL string `toml:"base_url"`
			APIKey  string `toml:"api_key"`
		} `toml:"indexer"`
		Search struct {
			MaxConcurrentLookups int `toml:"max_concurrent_lookups"`
		} `toml:"search"`
	}
	custom := payload{}
	custom.Indexer.BaseURL = "https://example.com/prowlarr/"
	custom.Indexer.APIKey = "abc123"
	custom.Search.MaxConcurrentLookups = 4
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Indexer.BaseURL != "https://example.com/prowlarr" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Indexer.BaseURL)
	}
	if cfg.Indexer.APIKey != "abc123" {
		t.Fatalf("expected indexer key from file, got %q", cfg.Indexer.APIKey)
	}
	if cfg.Search.MaxConcurrentLookups != 4 {
		t.Fatalf("expected lookup limit 4, got %d", cfg.Search.MaxConcurrentLookups)
	}
}

func TestEnvVarsFillMissingSecrets(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("SHELFMARK_API_TOKEN", "env-token")
	t.Setenv("NTFY_TOPIC", "env-topic")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.APIToken != "env-token" {
		t.Fatalf("expected API token from env, got %q", cfg.Server.APIToken)
	}
	if cfg.Notifications.NtfyTopic != "env-topic" {
		t.Fatalf("expected ntfy topic from env, got %q", cfg.Notifications.NtfyTopic)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "your_indexer_api_key_here") {
		t.Fatalf("sample config missing placeholder indexer key: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.DataDir, "shelfmark") {
		t.Fatalf("expected data dir to contain shelfmark, got %q", cfg.Paths.DataDir)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg := config.Default()
	cfg.Server.Bind = "not-a-bind"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid bind address")
	}

	cfg = config.Default()
	cfg.Server.Bind = "127.0.0.1:8790"
	cfg.Indexer.BaseURL = "https://example.com"
	cfg.Indexer.APIKey = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when indexer configured without API key")
	}

	cfg = config.Default()
	cfg.Server.Bind = "127.0.0.1:8790"
	cfg.Search.MaxConcurrentLookups = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive lookup limit")
	}

	cfg = config.Default()
	cfg.Server.Bind = "127.0.0.1:8790"
	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unsupported log format")
	}
}
