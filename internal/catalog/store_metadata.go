package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// MetadataGet returns a cached provider payload for a search key, or
// ErrNotFound when absent or older than maxAge.
func (s *Store) MetadataGet(ctx context.Context, searchKey, provider string, maxAge time.Duration) (string, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT payload, created_at FROM metadata_cache WHERE search_key = ? AND provider = ?`,
		searchKey,
		provider,
	)
	var payload string
	var createdRaw string
	if err := row.Scan(&payload, &createdRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get metadata cache entry: %w", err)
	}
	if maxAge > 0 {
		created, err := parseTimeString(createdRaw)
		if err != nil || time.Since(created) > maxAge {
			return "", ErrNotFound
		}
	}
	return payload, nil
}

// MetadataSet stores a provider payload for a search key, replacing any
// previous entry. An empty payload is valid and records a negative result.
func (s *Store) MetadataSet(ctx context.Context, searchKey, provider, payload string) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO metadata_cache (search_key, provider, payload, created_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT (search_key, provider) DO UPDATE SET
            payload = excluded.payload,
            created_at = excluded.created_at`,
		searchKey,
		provider,
		payload,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("set metadata cache entry: %w", err)
	}
	return nil
}

// MetadataPurge deletes cache entries older than maxAge and returns the
// number removed.
func (s *Store) MetadataPurge(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge).Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, `DELETE FROM metadata_cache WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge metadata cache: %w", err)
	}
	return res.RowsAffected()
}

// MetadataFlush removes every cached entry.
func (s *Store) MetadataFlush(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM metadata_cache`)
	if err != nil {
		return 0, fmt.Errorf("flush metadata cache: %w", err)
	}
	return res.RowsAffected()
}
