// Package memocache implements a bounded, thread-safe in-memory cache with
// per-entry TTL expiry, least-recently-used eviction, and hit/miss/eviction
// metrics. One implementation backs several independent keyspaces: fuzzy-score
// memoization, upstream search-result memoization, and promotion-outcome
// memoization, each at its own size and TTL.
package memocache
