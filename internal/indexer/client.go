package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"shelfmark/internal/memocache"
)

const (
	defaultSearchLimit = 100
	defaultResultTTL   = 5 * time.Minute
	defaultCacheSize   = 256
)

// Release is a single processed search result.
type Release struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Narrator    string `json:"narrator"`
	GUID        string `json:"guid"`
	Description string `json:"description,omitempty"`
	InfoURL     string `json:"info_url,omitempty"`
	Indexer     string `json:"indexer"`
	IndexerID   int    `json:"indexer_id"`
	Seeders     int    `json:"seeders"`
	Size        int64  `json:"size"`
	Freeleech   bool   `json:"freeleech"`
	PublishDate string `json:"publish_date,omitempty"`
}

// rawResult models the upstream search payload.
type rawResult struct {
	Title        string   `json:"title"`
	GUID         string   `json:"guid"`
	Description  string   `json:"description"`
	InfoURL      string   `json:"infoUrl"`
	Indexer      string   `json:"indexer"`
	IndexerID    int      `json:"indexerId"`
	IndexerFlags []string `json:"indexerFlags"`
	Seeders      int      `json:"seeders"`
	Size         int64    `json:"size"`
	Protocol     string   `json:"protocol"`
	PublishDate  string   `json:"publishDate"`
}

// Searcher defines the upstream search operation used by resolution.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Release, error)
}

// Client queries a Prowlarr-compatible search API.
type Client struct {
	baseURL    string
	apiKey     string
	categories []int
	limit      int
	httpClient *http.Client
	results    *memocache.Cache[string, []Release]
}

var _ Searcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithCategories restricts searches to the given category IDs.
func WithCategories(categories []int) Option {
	return func(c *Client) {
		if len(categories) > 0 {
			c.categories = categories
		}
	}
}

// WithLimit caps the number of results requested per search.
func WithLimit(limit int) Option {
	return func(c *Client) {
		if limit > 0 {
			c.limit = limit
		}
	}
}

// WithResultCache sizes the query memoization cache.
func WithResultCache(maxSize int, ttl time.Duration) Option {
	return func(c *Client) {
		c.results = memocache.New[string, []Release](maxSize, ttl)
	}
}

// New creates an indexer client.
func New(baseURL, apiKey string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("indexer base url required")
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("indexer api key required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		limit:      defaultSearchLimit,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		results:    memocache.New[string, []Release](defaultCacheSize, defaultResultTTL),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Search queries the upstream API and returns processed releases. Results
// are memoized per query until the cache TTL lapses. Non-torrent results
// and results without a parsable title are dropped.
func (c *Client) Search(ctx context.Context, query string) ([]Release, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}

	if cached, ok := c.results.Get(query); ok {
		return cloneReleases(cached), nil
	}

	endpoint, err := url.Parse(c.baseURL + "/api/v1/search")
	if err != nil {
		return nil, fmt.Errorf("parse indexer url: %w", err)
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("type", "search")
	params.Set("limit", strconv.Itoa(c.limit))
	params.Set("offset", "0")
	for _, category := range c.categories {
		params.Add("categories", strconv.Itoa(category))
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("indexer search returned %d (latency=%v)", resp.StatusCode, latency)
	}

	var raw []rawResult
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode indexer response: %w", err)
	}

	releases := make([]Release, 0, len(raw))
	for _, result := range raw {
		if result.Protocol != "" && result.Protocol != "torrent" {
			continue
		}
		title, author, narrator := ParseReleaseTitle(result.Title)
		if title == "" {
			continue
		}
		releases = append(releases, Release{
			Title:       title,
			Author:      author,
			Narrator:    narrator,
			GUID:        result.GUID,
			Description: result.Description,
			InfoURL:     result.InfoURL,
			Indexer:     result.Indexer,
			IndexerID:   result.IndexerID,
			Seeders:     result.Seeders,
			Size:        result.Size,
			Freeleech:   hasFreeleech(result.IndexerFlags),
			PublishDate: result.PublishDate,
		})
	}

	c.results.Set(query, cloneReleases(releases))
	return releases, nil
}

// cloneReleases copies a cached result set so callers that sort or trim the
// returned slice cannot disturb later cache hits.
func cloneReleases(releases []Release) []Release {
	if releases == nil {
		return nil
	}
	return append([]Release(nil), releases...)
}

// CacheMetrics exposes the query cache counters.
func (c *Client) CacheMetrics() memocache.Metrics {
	return c.results.Metrics()
}

// FlushCache clears memoized queries.
func (c *Client) FlushCache() {
	c.results.Flush()
}

func hasFreeleech(flags []string) bool {
	for _, flag := range flags {
		if strings.EqualFold(flag, "freeleech") {
			return true
		}
	}
	return false
}
