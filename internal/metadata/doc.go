// Package metadata defines the provider abstraction for authoritative book
// metadata. Providers back enrichment of sparse catalog records and lookups
// of canonical identifiers discovered in release listings.
package metadata
