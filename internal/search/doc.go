// Package search orchestrates the resolution pipeline: fan out to the
// release indexer, deduplicate candidates by semantic identity, resolve each
// candidate to a catalog record under a bounded concurrency budget, and rank
// the results against the query.
//
// Upstream verification runs with a fixed-size worker budget and a per-task
// timeout so a burst of search results cannot translate into a burst of
// rate-limited API calls. A task that fails or times out contributes no
// result; it never aborts the batch.
package search
