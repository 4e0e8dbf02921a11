// Package catalog persists books and request links in SQLite and implements
// the atomic promotion of synthetic records to canonical ones.
//
// The Store manages the database connection, schema migrations, wishlist
// queries, the persisted metadata cache, and health checks. Promotion runs as
// a single immediate transaction so the database write lock serializes
// concurrent promoters of the same identity; request links are migrated to
// the canonical identifier before the synthetic row is removed, so no link
// ever dangles.
package catalog
