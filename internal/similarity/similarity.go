// Package similarity scores how close two titles or two article bodies are.
// Title scores follow pg_trgm's trigram model so the SQLite and Postgres
// stores agree on what counts as a near-duplicate.
package similarity

import (
	"sort"
	"strings"
	"unicode"
)

// normalize lowercases, removes punctuation, and collapses whitespace.
func normalize(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			prevSpace = false
		} else if !prevSpace {
			sb.WriteRune(' ')
			prevSpace = true
		}
	}
	return strings.TrimSpace(sb.String())
}

// Trigrams extracts the trigram set of text the way pg_trgm does: every word
// is padded with two spaces in front and one behind before being cut into
// three-rune windows.
func Trigrams(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, word := range strings.Fields(normalize(text)) {
		runes := []rune("  " + word + " ")
		for i := 0; i+3 <= len(runes); i++ {
			set[string(runes[i:i+3])] = struct{}{}
		}
	}
	return set
}

// Jaccard computes |A intersection B| / |A union B|.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// TitleScore returns the trigram similarity of two titles in [0, 1].
func TitleScore(a, b string) float64 {
	return Jaccard(Trigrams(a), Trigrams(b))
}

// Match is one existing title scored against a candidate.
type Match struct {
	Title string
	Score float64
}

// RankTitles scores candidate against every existing title and returns the
// ones scoring at least threshold, best first. Ties keep input order.
func RankTitles(candidate string, existing []string, threshold float64) []Match {
	want := Trigrams(candidate)

	var matches []Match
	for _, title := range existing {
		score := Jaccard(want, Trigrams(title))
		if score >= threshold {
			matches = append(matches, Match{Title: title, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}
