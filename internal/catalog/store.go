package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"shelfmark/internal/config"
)

// Store manages catalog persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the catalog database and applies
// migrations. Transactions begin immediately, so the first statement of any
// write transaction already holds the database write lock. That lock is the
// promotion mutual-exclusion primitive.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.DatabasePath())
}

// OpenPath opens the catalog database at an explicit location. The pragmas
// ride in the DSN so every pooled connection gets them; a pragma applied with
// Exec would land on a single connection and leave the rest without a busy
// timeout or foreign key enforcement.
func OpenPath(dbPath string) (*Store, error) {
	dsn := "file:" + dbPath +
		"?_txlock=immediate" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=foreign_keys(ON)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Stats returns record counts grouped by kind.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{}
	row := s.db.QueryRowContext(ctx, `SELECT
        COUNT(CASE WHEN synthetic = 0 THEN 1 END),
        COUNT(CASE WHEN synthetic = 1 THEN 1 END)
        FROM books`)
	if err := row.Scan(&stats.CanonicalBooks, &stats.SyntheticBooks); err != nil {
		return Stats{}, fmt.Errorf("count books: %w", err)
	}
	row = s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM book_requests`)
	if err := row.Scan(&stats.Requests); err != nil {
		return Stats{}, fmt.Errorf("count requests: %w", err)
	}
	row = s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM metadata_cache`)
	if err := row.Scan(&stats.CachedEntries); err != nil {
		return Stats{}, fmt.Errorf("count cache entries: %w", err)
	}
	return stats, nil
}

// CheckHealth returns diagnostic information about the catalog database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}

	if s.path == "" {
		return health, errors.New("catalog database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			health.DatabaseExists = false
			return health, nil
		}
		return health, fmt.Errorf("stat catalog database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("catalog database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping catalog database: %w", err)
	}
	health.DatabaseReadable = true

	row := s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM books")
	if err := row.Scan(&health.TotalBooks); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("count books: %w", err)
	}

	row = s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM books WHERE synthetic = 1")
	if err := row.Scan(&health.SyntheticBooks); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("count synthetic books: %w", err)
	}

	row = s.db.QueryRowContext(connCtx, "PRAGMA integrity_check")
	var integrityResult string
	if err := row.Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")

	return health, nil
}

const bookColumns = "id, title, authors, narrator, subtitle, release_date, cover_url, description, synthetic, downloaded, created_at, updated_at"

func scanBook(scanner interface{ Scan(dest ...any) error }) (*Book, error) {
	var (
		id          string
		title       string
		authorsRaw  sql.NullString
		narrator    sql.NullString
		subtitle    sql.NullString
		releaseDate sql.NullString
		coverURL    sql.NullString
		description sql.NullString
		synthetic   int
		downloaded  int
		createdRaw  sql.NullString
		updatedRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&title,
		&authorsRaw,
		&narrator,
		&subtitle,
		&releaseDate,
		&coverURL,
		&description,
		&synthetic,
		&downloaded,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	book := &Book{
		ID:          id,
		Title:       title,
		Narrator:    narrator.String,
		Subtitle:    subtitle.String,
		ReleaseDate: releaseDate.String,
		CoverURL:    coverURL.String,
		Description: description.String,
		Synthetic:   synthetic != 0,
		Downloaded:  downloaded != 0,
	}
	if authorsRaw.Valid && authorsRaw.String != "" {
		if err := json.Unmarshal([]byte(authorsRaw.String), &book.Authors); err != nil {
			return nil, fmt.Errorf("decode authors for %s: %w", id, err)
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		book.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		book.UpdatedAt = updated
	}
	return book, nil
}

func encodeAuthors(authors []string) (string, error) {
	if len(authors) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(authors)
	if err != nil {
		return "", fmt.Errorf("encode authors: %w", err)
	}
	return string(data), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
