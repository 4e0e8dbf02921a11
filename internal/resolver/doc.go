// Package resolver owns the promotion state machine that turns synthetic
// catalog records into canonical ones once an authoritative source confirms
// their identity.
//
// A record moves Synthetic -> Canonical exactly once. The store transaction
// serializes concurrent promoters of the same identity; the resolver's job
// is everything around that transaction: the authoritative lookup, the
// verification pass, recovery when another promoter wins the race, and
// memoizing outcomes (including negative ones) so repeated checks for the
// same unresolved book stay cheap.
package resolver
