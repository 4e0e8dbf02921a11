// Package bookid derives deterministic synthetic identifiers for books known
// only from non-authoritative sources. The same normalized (title, author)
// pair always yields the same identifier, so independent discoveries of the
// same unresolved book converge on a single record.
package bookid
