// Package googlebooks implements the metadata provider backed by the Google
// Books volumes API.
package googlebooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"shelfmark/internal/metadata"
)

const defaultMaxResults = 5

// leadingArticle matches articles dropped by the second search strategy.
var leadingArticle = regexp.MustCompile(`(?i)^(The|A|An)\s+`)

// coverSizes lists image link keys in order of preference.
var coverSizes = []string{"extraLarge", "large", "medium", "small", "thumbnail", "smallThumbnail"}

// volumeInfo models the subset of the Google Books volume payload we consume.
type volumeInfo struct {
	Title               string            `json:"title"`
	Subtitle            string            `json:"subtitle"`
	Authors             []string          `json:"authors"`
	Description         string            `json:"description"`
	PublishedDate       string            `json:"publishedDate"`
	ImageLinks          map[string]string `json:"imageLinks"`
	IndustryIdentifiers []struct {
		Type       string `json:"type"`
		Identifier string `json:"identifier"`
	} `json:"industryIdentifiers"`
}

type volume struct {
	ID         string     `json:"id"`
	VolumeInfo volumeInfo `json:"volumeInfo"`
}

type volumesResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []volume `json:"items"`
}

// Client queries the Google Books volumes API.
type Client struct {
	baseURL    string
	maxResults int
	httpClient *http.Client
}

var _ metadata.Provider = (*Client)(nil)

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

// WithMaxResults caps how many candidates a search requests.
func WithMaxResults(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxResults = n
		}
	}
}

// New creates a Google Books client.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("google books base url required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxResults: defaultMaxResults,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Name implements metadata.Provider.
func (c *Client) Name() string { return "googlebooks" }

// Search runs a sequence of progressively looser query strategies and
// returns the candidates of the first strategy that produced any.
func (c *Client) Search(ctx context.Context, title, author string) ([]*metadata.Book, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("title must not be empty")
	}
	author = strings.TrimSpace(author)

	queries := []string{exactQuery(title, author)}
	if stripped := leadingArticle.ReplaceAllString(title, ""); stripped != title {
		queries = append(queries, exactQuery(stripped, author))
	}
	queries = append(queries, fmt.Sprintf("intitle:%q", title))
	if author != "" {
		queries = append(queries, title+" "+author)
	}

	var lastErr error
	for _, query := range queries {
		books, err := c.searchQuery(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			lastErr = err
			continue
		}
		if len(books) > 0 {
			return books, nil
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, nil
}

func exactQuery(title, author string) string {
	if author == "" {
		return fmt.Sprintf("intitle:%q", title)
	}
	return fmt.Sprintf("intitle:%q inauthor:%q", title, author)
}

func (c *Client) searchQuery(ctx context.Context, query string) ([]*metadata.Book, error) {
	endpoint, err := url.Parse(c.baseURL + "/volumes")
	if err != nil {
		return nil, fmt.Errorf("parse google books url: %w", err)
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(c.maxResults))
	params.Set("printType", "books")
	params.Set("orderBy", "relevance")
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google books search returned %d (latency=%v)", resp.StatusCode, latency)
	}

	var payload volumesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode google books response: %w", err)
	}

	books := make([]*metadata.Book, 0, len(payload.Items))
	for _, item := range payload.Items {
		if book := convertVolume(item); book != nil {
			books = append(books, book)
		}
	}
	return books, nil
}

// Lookup fetches a single volume by its Google Books identifier.
func (c *Client) Lookup(ctx context.Context, id string) (*metadata.Book, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("volume id must not be empty")
	}
	endpoint, err := url.Parse(c.baseURL + "/volumes/" + url.PathEscape(id))
	if err != nil {
		return nil, fmt.Errorf("parse google books url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("google books volume %s not found", id)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google books lookup returned %d (latency=%v)", resp.StatusCode, latency)
	}

	var payload volume
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode volume response: %w", err)
	}
	book := convertVolume(payload)
	if book == nil {
		return nil, fmt.Errorf("google books volume %s carries no usable metadata", id)
	}
	return book, nil
}

func convertVolume(item volume) *metadata.Book {
	info := item.VolumeInfo
	if item.ID == "" || info.Title == "" {
		return nil
	}
	return &metadata.Book{
		ID:          item.ID,
		Title:       info.Title,
		Subtitle:    info.Subtitle,
		Authors:     info.Authors,
		Description: info.Description,
		CoverURL:    bestCover(info.ImageLinks),
		ReleaseDate: info.PublishedDate,
		ISBN:        extractISBN(info),
	}
}

// extractISBN prefers ISBN-13 over ISBN-10.
func extractISBN(info volumeInfo) string {
	for _, id := range info.IndustryIdentifiers {
		if id.Type == "ISBN_13" {
			return id.Identifier
		}
	}
	for _, id := range info.IndustryIdentifiers {
		if id.Type == "ISBN_10" {
			return id.Identifier
		}
	}
	return ""
}

func bestCover(links map[string]string) string {
	for _, size := range coverSizes {
		if link, ok := links[size]; ok && link != "" {
			return upgradeScheme(link)
		}
	}
	for _, link := range links {
		if link != "" {
			return upgradeScheme(link)
		}
	}
	return ""
}

func upgradeScheme(link string) string {
	if strings.HasPrefix(link, "http://") {
		return "https://" + strings.TrimPrefix(link, "http://")
	}
	return link
}
