package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServer()
	c.normalizeIndexer()
	c.normalizeMetadata()
	c.normalizeSearch()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultBind
	}
	c.Server.APIToken = strings.TrimSpace(c.Server.APIToken)
	if c.Server.APIToken == "" {
		if value, ok := os.LookupEnv("SHELFMARK_API_TOKEN"); ok {
			c.Server.APIToken = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeIndexer() {
	c.Indexer.BaseURL = strings.TrimRight(strings.TrimSpace(c.Indexer.BaseURL), "/")
	c.Indexer.APIKey = strings.TrimSpace(c.Indexer.APIKey)
	if c.Indexer.APIKey == "" {
		if value, ok := os.LookupEnv("INDEXER_API_KEY"); ok {
			c.Indexer.APIKey = strings.TrimSpace(value)
		}
	}
	if c.Indexer.TimeoutSeconds <= 0 {
		c.Indexer.TimeoutSeconds = defaultIndexerTimeoutSeconds
	}
	if c.Indexer.ResultTTL <= 0 {
		c.Indexer.ResultTTL = defaultIndexerResultTTL
	}
	if c.Indexer.ResultCacheSize <= 0 {
		c.Indexer.ResultCacheSize = defaultIndexerResultCacheSize
	}
	if len(c.Indexer.Categories) == 0 {
		c.Indexer.Categories = Default().Indexer.Categories
	}
}

func (c *Config) normalizeMetadata() {
	c.Metadata.BaseURL = strings.TrimRight(strings.TrimSpace(c.Metadata.BaseURL), "/")
	if c.Metadata.BaseURL == "" {
		c.Metadata.BaseURL = defaultMetadataBaseURL
	}
	if c.Metadata.TimeoutSeconds <= 0 {
		c.Metadata.TimeoutSeconds = defaultMetadataTimeoutSeconds
	}
	if c.Metadata.CacheExpiryDays <= 0 {
		c.Metadata.CacheExpiryDays = defaultMetadataCacheExpiryDays
	}
}

func (c *Config) normalizeSearch() {
	if c.Search.MaxConcurrentLookups <= 0 {
		c.Search.MaxConcurrentLookups = defaultMaxConcurrentLookups
	}
	if c.Search.VerifyTimeoutSeconds <= 0 {
		c.Search.VerifyTimeoutSeconds = defaultVerifyTimeoutSeconds
	}
	if c.Search.ScoreTTLSeconds <= 0 {
		c.Search.ScoreTTLSeconds = defaultScoreTTLSeconds
	}
	if c.Search.ScoreCacheSize <= 0 {
		c.Search.ScoreCacheSize = defaultScoreCacheSize
	}
	if c.Search.PromotionTTLSeconds <= 0 {
		c.Search.PromotionTTLSeconds = defaultPromotionTTLSeconds
	}
	if c.Search.PromotionCacheSize <= 0 {
		c.Search.PromotionCacheSize = defaultPromotionCacheSize
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
