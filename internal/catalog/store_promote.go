package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Promote atomically replaces the synthetic record with the canonical one.
//
// The transaction acquires the database write lock on begin, so concurrent
// promoters of the same identity serialize here. Under the lock the synthetic
// row is re-checked: a promoter that lost the race sees it gone and gets
// ErrNotFound, at which point the caller re-queries current state. Request
// links pointing at the synthetic identifier are recreated against the
// canonical identifier before the originals and the synthetic row are
// deleted, all inside the same transaction, so no other transaction ever
// observes a dangling or missing link.
//
// A uniqueness violation on the canonical insert means another writer
// committed the canonical record first; the transaction rolls back and
// ErrConflict is returned for the caller to recover via re-query.
func (s *Store) Promote(ctx context.Context, syntheticID string, canonical *Book) (*Book, error) {
	if syntheticID == "" {
		return nil, fmt.Errorf("%w: synthetic id is required", ErrInvalid)
	}
	if canonical == nil || canonical.ID == "" {
		return nil, fmt.Errorf("%w: canonical record must carry an identifier", ErrInvalid)
	}
	if canonical.ID == syntheticID {
		return nil, fmt.Errorf("%w: canonical id equals synthetic id", ErrInvalid)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin promotion tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Re-check under the lock: the row must still be synthetic.
	row := tx.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, syntheticID)
	existing, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("re-check synthetic row: %w", err)
	}
	if !existing.Synthetic {
		return nil, fmt.Errorf("%w: %s is not synthetic", ErrInvalid, syntheticID)
	}

	// Enumerate the links that must be carried over.
	linkRows, err := tx.QueryContext(
		ctx,
		`SELECT username, created_at FROM book_requests WHERE book_id = ?`,
		syntheticID,
	)
	if err != nil {
		return nil, fmt.Errorf("enumerate request links: %w", err)
	}
	type link struct {
		username  string
		createdAt string
	}
	var links []link
	for linkRows.Next() {
		var l link
		if err := linkRows.Scan(&l.username, &l.createdAt); err != nil {
			linkRows.Close()
			return nil, fmt.Errorf("scan request link: %w", err)
		}
		links = append(links, l)
	}
	if err := linkRows.Close(); err != nil {
		return nil, fmt.Errorf("close request links: %w", err)
	}

	authors, err := encodeAuthors(canonical.Authors)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO books (
            id, title, authors, narrator, subtitle, release_date,
            cover_url, description, synthetic, downloaded, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)`,
		canonical.ID,
		canonical.Title,
		authors,
		nullableString(canonical.Narrator),
		nullableString(canonical.Subtitle),
		nullableString(canonical.ReleaseDate),
		nullableString(canonical.CoverURL),
		nullableString(canonical.Description),
		boolToInt(existing.Downloaded || canonical.Downloaded),
		now,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert canonical %s: %w", canonical.ID, ErrConflict)
		}
		return nil, fmt.Errorf("insert canonical record: %w", err)
	}

	// New links first, original links and the synthetic row after, so the
	// composite-key invariant holds at every point inside the transaction.
	for _, l := range links {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT OR IGNORE INTO book_requests (book_id, username, created_at) VALUES (?, ?, ?)`,
			canonical.ID,
			l.username,
			l.createdAt,
		); err != nil {
			return nil, fmt.Errorf("migrate request link for %s: %w", l.username, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM book_requests WHERE book_id = ?`, syntheticID); err != nil {
		return nil, fmt.Errorf("delete synthetic request links: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, syntheticID); err != nil {
		return nil, fmt.Errorf("delete synthetic record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("commit promotion of %s: %w", syntheticID, ErrConflict)
		}
		return nil, fmt.Errorf("commit promotion: %w", err)
	}

	return s.GetBook(ctx, canonical.ID)
}
