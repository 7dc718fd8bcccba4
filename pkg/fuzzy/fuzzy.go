// Package fuzzy ranks free-text queries against short fields such as company
// names and job titles, tolerating typos and accents.
package fuzzy

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Field is one searchable value with its weight in the final score.
type Field struct {
	Text   string
	Weight float64
}

// Normalize lowercases s, strips diacritics and collapses whitespace, so
// "Société  Générale" and "societe generale" compare equal.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// Distance is the Levenshtein edit distance between the normalized forms of
// a and b.
func Distance(a, b string) int {
	r1 := []rune(Normalize(a))
	r2 := []rune(Normalize(b))
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(r2)]
}

// Threshold is the typo budget for a query: longer queries tolerate more
// edits.
func Threshold(query string) int {
	n := len([]rune(Normalize(query)))
	switch {
	case n <= 3:
		return 0
	case n <= 7:
		return 1
	default:
		return 2
	}
}

// Match reports whether query matches text as a substring, a word prefix or a
// word within the typo budget.
func Match(query, text string) bool {
	return scoreText(Normalize(query), Normalize(text), Threshold(query)) > 0
}

// Score ranks how well query matches the fields. Zero means no match.
func Score(query string, fields ...Field) float64 {
	q := Normalize(query)
	if q == "" {
		return 0
	}
	threshold := Threshold(query)

	total := 0.0
	for _, f := range fields {
		total += f.Weight * scoreText(q, Normalize(f.Text), threshold)
	}
	return total
}

// scoreText returns a value in [0, 1] for already normalized input.
func scoreText(q, text string, threshold int) float64 {
	if q == "" || text == "" {
		return 0
	}
	if text == q {
		return 1
	}
	if strings.Contains(text, q) {
		if containsWord(text, q) {
			return 0.9
		}
		return 0.75
	}

	best := 0.0
	for _, word := range strings.Fields(text) {
		if strings.HasPrefix(word, q) {
			best = max(best, 0.6)
			continue
		}
		if d := Distance(q, word); d <= threshold {
			best = max(best, 0.5-0.15*float64(d))
		}
	}
	return best
}

func containsWord(text, word string) bool {
	for _, w := range strings.Fields(text) {
		if w == word {
			return true
		}
	}
	return false
}
