package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"shelfmark/internal/catalog"
	"shelfmark/internal/daemon"
	"shelfmark/internal/search"
)

// apiClient talks to a running shelfmarkd over its HTTP JSON API.
type apiClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func newAPIClient(baseURL, token string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *apiClient) Status(ctx context.Context) (daemon.Status, error) {
	var status daemon.Status
	err := c.get(ctx, "/api/status", &status)
	return status, err
}

func (c *apiClient) Search(ctx context.Context, query string, limit int) ([]search.Result, error) {
	params := url.Values{}
	params.Set("q", query)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var payload struct {
		Results []search.Result `json:"results"`
	}
	if err := c.get(ctx, "/api/search?"+params.Encode(), &payload); err != nil {
		return nil, err
	}
	return payload.Results, nil
}

type wishlistPayload struct {
	Entries []catalog.WishlistEntry `json:"entries"`
	Counts  catalog.WishlistCounts  `json:"counts"`
}

func (c *apiClient) Requests(ctx context.Context, username string) (wishlistPayload, error) {
	path := "/api/requests"
	if username != "" {
		path += "?username=" + url.QueryEscape(username)
	}
	var payload wishlistPayload
	err := c.get(ctx, path, &payload)
	return payload, err
}

func (c *apiClient) AddRequest(ctx context.Context, bookID, username string) error {
	body := map[string]string{"book_id": bookID, "username": username}
	return c.do(ctx, http.MethodPost, "/api/requests", body, nil)
}

func (c *apiClient) RemoveRequest(ctx context.Context, bookID, username string) error {
	path := "/api/requests/" + url.PathEscape(bookID)
	if username != "" {
		path += "?username=" + url.QueryEscape(username)
	}
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *apiClient) Promote(ctx context.Context, bookID string) (*catalog.Book, bool, error) {
	var payload struct {
		Book     *catalog.Book `json:"book"`
		Promoted bool          `json:"promoted"`
	}
	path := "/api/books/" + url.PathEscape(bookID) + "/promote"
	if err := c.do(ctx, http.MethodPost, path, nil, &payload); err != nil {
		return nil, false, err
	}
	return payload.Book, payload.Promoted, nil
}

func (c *apiClient) Caches(ctx context.Context) (daemon.CacheReport, error) {
	var report daemon.CacheReport
	err := c.get(ctx, "/api/cache", &report)
	return report, err
}

func (c *apiClient) FlushCaches(ctx context.Context) (int64, error) {
	var payload struct {
		PersistedPurged int64 `json:"persisted_purged"`
	}
	if err := c.do(ctx, http.MethodDelete, "/api/cache", nil, &payload); err != nil {
		return 0, err
	}
	return payload.PersistedPurged, nil
}

func (c *apiClient) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("is shelfmarkd running? %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("daemon returned %d", resp.StatusCode)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
