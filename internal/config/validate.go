package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateIndexer(); err != nil {
		return err
	}
	if err := c.validateMetadata(); err != nil {
		return err
	}
	if err := c.validateSearch(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	if _, _, err := net.SplitHostPort(c.Server.Bind); err != nil {
		return fmt.Errorf("server.bind must be host:port: %w", err)
	}
	return nil
}

func (c *Config) validateIndexer() error {
	if c.Indexer.BaseURL == "" {
		return nil
	}
	if !strings.HasPrefix(c.Indexer.BaseURL, "http://") && !strings.HasPrefix(c.Indexer.BaseURL, "https://") {
		return errors.New("indexer.base_url must start with http:// or https://")
	}
	if strings.TrimSpace(c.Indexer.APIKey) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/shelfmark/config.toml"
		}
		return fmt.Errorf("indexer.api_key is required when indexer.base_url is set. Set INDEXER_API_KEY env var or edit %s (create with 'shelfmark config init')", defaultPath)
	}
	for _, category := range c.Indexer.Categories {
		if category <= 0 {
			return errors.New("indexer.categories entries must be positive")
		}
	}
	return nil
}

func (c *Config) validateMetadata() error {
	if !strings.HasPrefix(c.Metadata.BaseURL, "http://") && !strings.HasPrefix(c.Metadata.BaseURL, "https://") {
		return errors.New("metadata.base_url must start with http:// or https://")
	}
	return nil
}

func (c *Config) validateSearch() error {
	return ensurePositiveMap(map[string]int{
		"search.max_concurrent_lookups": c.Search.MaxConcurrentLookups,
		"search.verify_timeout_seconds": c.Search.VerifyTimeoutSeconds,
		"search.score_ttl_seconds":      c.Search.ScoreTTLSeconds,
		"search.score_cache_size":       c.Search.ScoreCacheSize,
		"search.promotion_ttl_seconds":  c.Search.PromotionTTLSeconds,
		"search.promotion_cache_size":   c.Search.PromotionCacheSize,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
