package catalog

import (
	"errors"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned when a book or request does not exist.
	ErrNotFound = errors.New("catalog: not found")

	// ErrConflict is returned when a promotion loses a uniqueness race and
	// the caller should re-query current state.
	ErrConflict = errors.New("catalog: conflicting write committed first")

	// ErrAlreadyRequested is returned when a requester already holds a
	// request link for the same book.
	ErrAlreadyRequested = errors.New("catalog: book already requested")

	// ErrInvalid is returned for malformed input, e.g. a record without an
	// identifier.
	ErrInvalid = errors.New("catalog: invalid input")
)

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT,
		sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY,
		sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}
