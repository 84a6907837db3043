// Package matcher scores how well a searched title/artist pair agrees with
// the track the catalog actually resolved.
package matcher

import (
	"regexp"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// Policy selects how fields are compared. PolicyExact is the default:
// trimmed, case-insensitive equality. PolicyLoose additionally accepts
// normalized containment in either direction, with Jaro-Winkler similarity
// as a final fallback.
type Policy int

const (
	PolicyExact Policy = iota
	PolicyLoose
)

const (
	titlePenalty  = 0.4
	artistPenalty = 0.4

	looseSimilarityThreshold = 0.85
)

var nonWord = regexp.MustCompile(`[^\w\s]`)

// Normalize lowercases a string and strips every non-word, non-space
// character. Shared with the recognition adapter's hit matching.
func Normalize(s string) string {
	return strings.TrimSpace(nonWord.ReplaceAllString(strings.ToLower(s), ""))
}

// Score starts from 1.0 and subtracts a fixed penalty for each field that
// does not match under the given policy, floored at 0.
func Score(searchTitle, searchArtist, foundTitle, foundArtist string, policy Policy) float64 {
	score := 1.0
	if !fieldsMatch(searchTitle, foundTitle, policy) {
		score -= titlePenalty
	}
	if !fieldsMatch(searchArtist, foundArtist, policy) {
		score -= artistPenalty
	}
	if score < 0 {
		score = 0
	}
	return score
}

func fieldsMatch(search, found string, policy Policy) bool {
	search = strings.TrimSpace(search)
	found = strings.TrimSpace(found)
	if strings.EqualFold(search, found) {
		return true
	}
	if policy == PolicyExact {
		return false
	}

	ns, nf := Normalize(search), Normalize(found)
	if ns == "" || nf == "" {
		return false
	}
	if strings.Contains(ns, nf) || strings.Contains(nf, ns) {
		return true
	}
	return strutil.Similarity(ns, nf, metrics.NewJaroWinkler()) >= looseSimilarityThreshold
}
