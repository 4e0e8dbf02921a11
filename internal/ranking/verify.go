package ranking

import (
	"strings"

	"shelfmark/internal/textutil"
)

// Work identifies a catalog record by title and author list.
type Work struct {
	Title   string
	Authors []string
}

// Release identifies an upstream release by its parsed title and author.
type Release struct {
	Title  string
	Author string
}

type verifyThresholds struct {
	titlePrimary     float64
	titleShort       float64
	titleLong        float64
	authorMultiWord  float64
	authorSingleWord float64
}

var strictThresholds = verifyThresholds{
	titlePrimary:     85,
	titleShort:       95,
	titleLong:        85,
	authorMultiWord:  85,
	authorSingleWord: 80,
}

var relaxedThresholds = verifyThresholds{
	titlePrimary:     75,
	titleShort:       90,
	titleLong:        75,
	authorMultiWord:  75,
	authorSingleWord: 70,
}

// Verify reports whether release and work plausibly name the same book.
// Title and author gates must both pass. Multi-word authors are compared with
// the stricter full-string ratio while single-word (surname only) authors use
// the token-set ratio at a higher bar, so one shared surname between two
// different authors does not pass.
func (e *Engine) Verify(release Release, work Work) bool {
	return e.verify(release, work, strictThresholds)
}

// VerifyRelaxed applies lower thresholds. Used as a fallback when strict
// verification rejects every candidate.
func (e *Engine) VerifyRelaxed(release Release, work Work) bool {
	return e.verify(release, work, relaxedThresholds)
}

func (e *Engine) verify(release Release, work Work, thresholds verifyThresholds) bool {
	releaseTitle := textutil.Normalize(release.Title)
	releaseAuthor := textutil.Normalize(release.Author)
	workTitle := textutil.Normalize(work.Title)
	workAuthors := textutil.Normalize(strings.Join(work.Authors, " "))

	// Fast path for exact matches.
	if releaseTitle == workTitle && releaseAuthor == workAuthors {
		return true
	}

	// Primary titles first; fall back to full titles when they diverge.
	titleScore := e.tokenSetRatio(textutil.NormalizePrimary(release.Title), textutil.NormalizePrimary(work.Title))
	if titleScore < thresholds.titlePrimary {
		if full := e.tokenSetRatio(releaseTitle, workTitle); full > titleScore {
			titleScore = full
		}
	}

	var titleMatch bool
	if len(releaseTitle) < 10 {
		titleMatch = titleScore >= thresholds.titleShort
	} else {
		titleMatch = titleScore >= thresholds.titleLong
	}
	if !titleMatch {
		return false
	}

	// A release with no usable author cannot be rejected on author grounds.
	if releaseAuthor == "" || len(releaseAuthor) < 3 || releaseAuthor == "unknown" {
		return true
	}

	if len(strings.Fields(releaseAuthor)) >= 2 {
		return e.ratio(releaseAuthor, workAuthors) >= thresholds.authorMultiWord
	}
	return e.tokenSetRatio(releaseAuthor, workAuthors) >= thresholds.authorSingleWord
}
