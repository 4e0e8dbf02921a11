package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AddRequest links a requester to a book. Returns ErrAlreadyRequested when
// the link exists and ErrNotFound when the book does not.
func (s *Store) AddRequest(ctx context.Context, bookID, username string) error {
	if bookID == "" || username == "" {
		return fmt.Errorf("%w: book id and username are required", ErrInvalid)
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO book_requests (book_id, username, created_at) VALUES (?, ?, ?)`,
		bookID,
		username,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		if isUniqueViolation(err) {
			return ErrAlreadyRequested
		}
		return fmt.Errorf("add request: %w", err)
	}
	return nil
}

// RemoveRequest deletes one requester's link, or every link for the book
// when username is empty.
func (s *Store) RemoveRequest(ctx context.Context, bookID, username string) error {
	var (
		res sql.Result
		err error
	)
	if username == "" {
		res, err = s.db.ExecContext(ctx, `DELETE FROM book_requests WHERE book_id = ?`, bookID)
	} else {
		res, err = s.db.ExecContext(ctx, `DELETE FROM book_requests WHERE book_id = ? AND username = ?`, bookID, username)
	}
	if err != nil {
		return fmt.Errorf("remove request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// RequestersFor returns the usernames linked to a book, ordered by request
// time.
func (s *Store) RequestersFor(ctx context.Context, bookID string) ([]string, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT username FROM book_requests WHERE book_id = ? ORDER BY created_at`,
		bookID,
	)
	if err != nil {
		return nil, fmt.Errorf("list requesters: %w", err)
	}
	defer rows.Close()

	var usernames []string
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, err
		}
		usernames = append(usernames, username)
	}
	return usernames, rows.Err()
}

// Wishlist returns every requested book with its requesters. When username is
// non-empty only that requester's books are returned.
func (s *Store) Wishlist(ctx context.Context, username string) ([]WishlistEntry, error) {
	query := `SELECT DISTINCT b.id FROM books b
        JOIN book_requests r ON r.book_id = b.id`
	args := []any{}
	if username != "" {
		query += ` WHERE r.username = ?`
		args = append(args, username)
	}
	query += ` ORDER BY b.created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query wishlist: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	entries := make([]WishlistEntry, 0, len(ids))
	for _, id := range ids {
		book, err := s.GetBook(ctx, id)
		if err != nil {
			return nil, err
		}
		requesters, err := s.RequestersFor(ctx, id)
		if err != nil {
			return nil, err
		}
		entries = append(entries, WishlistEntry{Book: book, Requesters: requesters})
	}
	return entries, nil
}

// WishlistCounts summarizes the wishlist, optionally for one requester.
func (s *Store) WishlistCounts(ctx context.Context, username string) (WishlistCounts, error) {
	query := `SELECT
        COUNT(DISTINCT b.id),
        COUNT(DISTINCT CASE WHEN b.downloaded = 1 THEN b.id END)
        FROM books b JOIN book_requests r ON r.book_id = b.id`
	args := []any{}
	if username != "" {
		query += ` WHERE r.username = ?`
		args = append(args, username)
	}

	counts := WishlistCounts{}
	row := s.db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&counts.Total, &counts.Downloaded); err != nil {
		return WishlistCounts{}, fmt.Errorf("count wishlist: %w", err)
	}
	counts.Outstanding = counts.Total - counts.Downloaded
	return counts, nil
}
