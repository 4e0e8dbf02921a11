package textutil

import (
	"sort"
	"strings"
)

// Ratio computes a normalized indel similarity between two strings on a
// 0-100 scale. 100 means identical, 0 means no common subsequence.
func Ratio(a, b string) float64 {
	if a == b {
		return 100
	}
	ra := []rune(a)
	rb := []rune(b)
	total := len(ra) + len(rb)
	lcs := longestCommonSubsequence(ra, rb)
	distance := total - 2*lcs
	return 100 * (1 - float64(distance)/float64(total))
}

// PartialRatio computes the best Ratio between the shorter string and any
// equally long window of the longer string.
func PartialRatio(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		if len(ra) == len(rb) {
			return 100
		}
		return 0
	}
	shorter, longer := ra, rb
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) == len(longer) {
		return Ratio(string(shorter), string(longer))
	}
	best := 0.0
	window := len(shorter)
	for start := 0; start+window <= len(longer); start++ {
		score := Ratio(string(shorter), string(longer[start:start+window]))
		if score > best {
			best = score
		}
		if best == 100 {
			break
		}
	}
	return best
}

// TokenSetRatio compares the unique-token sets of two strings. Shared tokens
// are factored out so word order and repeated words do not lower the score,
// and a full subset scores 100.
func TokenSetRatio(a, b string) float64 {
	tokensA := uniqueSortedTokens(a)
	tokensB := uniqueSortedTokens(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		if len(tokensA) == len(tokensB) {
			return 100
		}
		return 0
	}

	common := make([]string, 0, len(tokensA))
	onlyA := make([]string, 0, len(tokensA))
	setB := make(map[string]struct{}, len(tokensB))
	for _, token := range tokensB {
		setB[token] = struct{}{}
	}
	for _, token := range tokensA {
		if _, ok := setB[token]; ok {
			common = append(common, token)
		} else {
			onlyA = append(onlyA, token)
		}
	}
	setCommon := make(map[string]struct{}, len(common))
	for _, token := range common {
		setCommon[token] = struct{}{}
	}
	onlyB := make([]string, 0, len(tokensB))
	for _, token := range tokensB {
		if _, ok := setCommon[token]; !ok {
			onlyB = append(onlyB, token)
		}
	}

	base := strings.Join(common, " ")
	combinedA := joinNonEmpty(base, strings.Join(onlyA, " "))
	combinedB := joinNonEmpty(base, strings.Join(onlyB, " "))

	best := Ratio(combinedA, combinedB)
	if base != "" {
		if score := Ratio(base, combinedA); score > best {
			best = score
		}
		if score := Ratio(base, combinedB); score > best {
			best = score
		}
	}
	return best
}

func uniqueSortedTokens(text string) []string {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tokens))
	unique := tokens[:0]
	for _, token := range tokens {
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		unique = append(unique, token)
	}
	sort.Strings(unique)
	return unique
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}

func longestCommonSubsequence(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
