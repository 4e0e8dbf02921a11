package ranking

import (
	"time"

	"shelfmark/internal/memocache"
	"shelfmark/internal/textutil"
)

type algorithm uint8

const (
	algoRatio algorithm = iota
	algoPartialRatio
	algoTokenSetRatio
)

type scoreKey struct {
	algo algorithm
	a    string
	b    string
}

// Engine computes similarity scores with a bounded memoization cache keyed by
// (algorithm, text, text). Every scoring function is deterministic, so a
// cached value is always valid until its TTL lapses.
type Engine struct {
	scores *memocache.Cache[scoreKey, float64]
}

// NewEngine constructs an Engine whose memoization cache holds at most
// cacheSize entries for ttl each.
func NewEngine(cacheSize int, ttl time.Duration) *Engine {
	return &Engine{scores: memocache.New[scoreKey, float64](cacheSize, ttl)}
}

// CacheMetrics exposes the memoization cache counters.
func (e *Engine) CacheMetrics() memocache.Metrics {
	return e.scores.Metrics()
}

// FlushCache clears memoized scores.
func (e *Engine) FlushCache() {
	e.scores.Flush()
}

func (e *Engine) memoized(algo algorithm, a, b string, compute func(string, string) float64) float64 {
	key := scoreKey{algo: algo, a: a, b: b}
	if score, ok := e.scores.Get(key); ok {
		return score
	}
	score := compute(a, b)
	e.scores.Set(key, score)
	return score
}

func (e *Engine) ratio(a, b string) float64 {
	return e.memoized(algoRatio, a, b, textutil.Ratio)
}

func (e *Engine) partialRatio(a, b string) float64 {
	return e.memoized(algoPartialRatio, a, b, textutil.PartialRatio)
}

func (e *Engine) tokenSetRatio(a, b string) float64 {
	return e.memoized(algoTokenSetRatio, a, b, textutil.TokenSetRatio)
}
