package ranking

import (
	"sort"
	"strings"

	"shelfmark/internal/textutil"
)

// MatchType classifies how a candidate's authors relate to the query author.
type MatchType string

const (
	MatchExact   MatchType = "exact"
	MatchSurname MatchType = "surname"
	MatchWeak    MatchType = "weak"
	MatchNone    MatchType = "none"
)

const (
	authorWeight    = 0.7
	secondaryWeight = 0.3

	bestMatchAuthorThreshold   = 95
	bestMatchCombinedThreshold = 75
)

// Scores carries the sub-scores and gates for one candidate.
type Scores struct {
	Author    float64
	Secondary float64
	Combined  float64
	MatchType MatchType
	BestMatch bool
}

// Ranked pairs a candidate index with its scores. Index refers to the slice
// passed to Rank so callers can map scores back to their own result type.
type Ranked struct {
	Index  int
	Scores Scores
}

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "of": {}, "and": {}, "or": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "with": {}, "by": {},
}

// Score computes the combined relevance of work against a query string.
// The author sub-score dominates the combined score; the secondary sub-score
// is title similarity only. Best-match status requires both the author gate
// and the combined gate independently.
func (e *Engine) Score(work Work, query string) Scores {
	authorScore, matchType := e.authorScore(work.Authors, query)
	secondary := e.partialRatio(textutil.Normalize(work.Title), textutil.Normalize(query))
	combined := authorScore*authorWeight + secondary*secondaryWeight
	return Scores{
		Author:    authorScore,
		Secondary: secondary,
		Combined:  combined,
		MatchType: matchType,
		BestMatch: matchType == MatchExact &&
			authorScore >= bestMatchAuthorThreshold &&
			combined >= bestMatchCombinedThreshold,
	}
}

// Rank scores every work against the query and orders the result by combined
// score, descending. Ordering is stable for equal scores.
func (e *Engine) Rank(works []Work, query string) []Ranked {
	if len(works) == 0 || strings.TrimSpace(query) == "" {
		return nil
	}
	ranked := make([]Ranked, 0, len(works))
	for i, work := range works {
		ranked = append(ranked, Ranked{Index: i, Scores: e.Score(work, query)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Scores.Combined > ranked[j].Scores.Combined
	})
	return ranked
}

// Partition splits ranked results into best matches and the rest, preserving
// order within each group.
func Partition(ranked []Ranked) (best, others []Ranked) {
	for _, r := range ranked {
		if r.Scores.BestMatch {
			best = append(best, r)
		} else {
			others = append(others, r)
		}
	}
	return best, others
}

// authorScore finds the strongest author match: exact first+surname equality
// scores 100, a shared surname with a conflicting or absent first name scores
// low, and mere word overlap scores lower still. A query without a usable
// surname cannot produce a match.
func (e *Engine) authorScore(authors []string, query string) (float64, MatchType) {
	queryFirst, querySurname := splitName(query)
	if querySurname == "" {
		return 0, MatchNone
	}

	best := 0.0
	matchType := MatchNone
	for _, author := range authors {
		authorFirst, authorSurname := splitName(author)
		if authorSurname == "" {
			continue
		}

		var score float64
		var kind MatchType
		switch {
		case queryFirst != "" && authorFirst != "" && queryFirst == authorFirst && querySurname == authorSurname:
			score, kind = 100, MatchExact
		case querySurname == authorSurname:
			if queryFirst == "" || authorFirst == "" {
				score, kind = 35, MatchSurname
			} else {
				score, kind = 30, MatchSurname
			}
		default:
			if wordOverlap(author, query) {
				score, kind = 10, MatchWeak
			}
		}
		if score > best {
			best = score
			matchType = kind
		}
	}
	return best, matchType
}

// splitName returns the leading name(s) and the surname of a normalized name.
// A single-word name is treated as surname only.
func splitName(name string) (first, surname string) {
	parts := textutil.Tokenize(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return "", parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
	}
}

func wordOverlap(a, b string) bool {
	wordsA := significantWords(a)
	if len(wordsA) == 0 {
		return false
	}
	for word := range significantWords(b) {
		if _, ok := wordsA[word]; ok {
			return true
		}
	}
	return false
}

func significantWords(text string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, word := range textutil.Tokenize(text) {
		if len(word) <= 2 {
			continue
		}
		if _, ok := stopWords[word]; ok {
			continue
		}
		words[word] = struct{}{}
	}
	return words
}
