package config

const (
	defaultDataDir  = "~/.local/share/shelfmark"
	defaultLogDir   = "~/.local/share/shelfmark/logs"
	defaultBind     = "127.0.0.1:8790"
	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	defaultIndexerTimeoutSeconds  = 30
	defaultIndexerResultTTL       = 300
	defaultIndexerResultCacheSize = 256

	defaultMetadataBaseURL         = "https://www.googleapis.com/books/v1"
	defaultMetadataTimeoutSeconds  = 10
	defaultMetadataCacheExpiryDays = 30

	defaultMaxConcurrentLookups = 15
	defaultVerifyTimeoutSeconds = 5
	defaultScoreTTLSeconds      = 600
	defaultScoreCacheSize       = 2048
	defaultPromotionTTLSeconds  = 3600
	defaultPromotionCacheSize   = 512

	defaultNotifyRequestTimeout = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Server: Server{
			Bind: defaultBind,
		},
		Indexer: Indexer{
			Categories:      []int{13, 14},
			TimeoutSeconds:  defaultIndexerTimeoutSeconds,
			ResultTTL:       defaultIndexerResultTTL,
			ResultCacheSize: defaultIndexerResultCacheSize,
		},
		Metadata: Metadata{
			BaseURL:           defaultMetadataBaseURL,
			TimeoutSeconds:    defaultMetadataTimeoutSeconds,
			EnrichmentEnabled: true,
			CacheExpiryDays:   defaultMetadataCacheExpiryDays,
		},
		Search: Search{
			MaxConcurrentLookups: defaultMaxConcurrentLookups,
			VerifyTimeoutSeconds: defaultVerifyTimeoutSeconds,
			ScoreTTLSeconds:      defaultScoreTTLSeconds,
			ScoreCacheSize:       defaultScoreCacheSize,
			PromotionTTLSeconds:  defaultPromotionTTLSeconds,
			PromotionCacheSize:   defaultPromotionCacheSize,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			NewRequest:     true,
			Promotion:      true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
