// Package ranking scores candidate books and releases against a query using
// pure textual similarity.
//
// Two surfaces are exposed:
//   - Verify/VerifyRelaxed decide whether a release title and author name the
//     same book as a catalog record, with asymmetric author thresholds.
//   - Score/Rank/Partition order metadata candidates by author relevance and
//     mark "best matches" behind independent author and combined-score gates.
//
// Scoring never consults popularity, runtime, or recency, so identical
// queries always produce identical orderings and results can be memoized.
package ranking
