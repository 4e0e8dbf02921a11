package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SaveBook inserts a record or updates it in place when the identifier
// already exists.
func (s *Store) SaveBook(ctx context.Context, book *Book) (*Book, error) {
	if book == nil || book.ID == "" {
		return nil, fmt.Errorf("%w: book must carry an identifier", ErrInvalid)
	}
	authors, err := encodeAuthors(book.Authors)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO books (
            id, title, authors, narrator, subtitle, release_date,
            cover_url, description, synthetic, downloaded, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (id) DO UPDATE SET
            title = excluded.title,
            authors = excluded.authors,
            narrator = excluded.narrator,
            subtitle = excluded.subtitle,
            release_date = excluded.release_date,
            cover_url = excluded.cover_url,
            description = excluded.description,
            synthetic = excluded.synthetic,
            updated_at = excluded.updated_at`,
		book.ID,
		book.Title,
		authors,
		nullableString(book.Narrator),
		nullableString(book.Subtitle),
		nullableString(book.ReleaseDate),
		nullableString(book.CoverURL),
		nullableString(book.Description),
		boolToInt(book.Synthetic),
		boolToInt(book.Downloaded),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("save book: %w", err)
	}
	return s.GetBook(ctx, book.ID)
}

// GetBook fetches a book by identifier.
func (s *Store) GetBook(ctx context.Context, id string) (*Book, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	book, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

// ListBooks returns all books ordered by creation time.
func (s *Store) ListBooks(ctx context.Context) ([]*Book, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+bookColumns+` FROM books ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var books []*Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, rows.Err()
}

// ListSynthetic returns all unresolved placeholder records.
func (s *Store) ListSynthetic(ctx context.Context) ([]*Book, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+bookColumns+` FROM books WHERE synthetic = 1 ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list synthetic books: %w", err)
	}
	defer rows.Close()

	var books []*Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, rows.Err()
}

// SetDownloaded flags a book as downloaded or not.
func (s *Store) SetDownloaded(ctx context.Context, id string, downloaded bool) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE books SET downloaded = ?, updated_at = ? WHERE id = ?`,
		boolToInt(downloaded),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("set downloaded: %w", err)
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

// DeleteBook removes a book. Fails while request links still reference it.
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: book %s still has request links", ErrInvalid, id)
		}
		return fmt.Errorf("delete book: %w", err)
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
