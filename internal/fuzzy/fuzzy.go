// Package fuzzy scores free-text names against a list of known names.
//
// Scores range from 0 to 100. WRatio combines the plain, partial and token based
// scorers the same way spreadsheet users expect from typo-tolerant lookups:
// "wal mart", "Walmart " and "WALMART" all resolve to the same retailer.
package fuzzy

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/hbollon/go-edlib"
)

// DefaultThreshold is the minimum WRatio score for a match to be accepted.
const DefaultThreshold = 80

// Match is the best scoring choice for a query.
type Match struct {
	Choice string
	Index  int
	Score  int
}

// Normalize lower-cases s, replaces every non alphanumeric rune with a space and
// collapses runs of whitespace.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Ratio is the Indel similarity of a and b: twice their longest common
// subsequence over their combined length.
func Ratio(a, b string) int {
	return round(ratio(a, b))
}

// PartialRatio scores the shorter string against the best matching window of
// the longer one.
func PartialRatio(a, b string) int {
	return round(partialRatio(a, b))
}

// TokenSortRatio compares a and b after sorting their words.
func TokenSortRatio(a, b string) int {
	return round(ratio(sortedTokens(Normalize(a)), sortedTokens(Normalize(b))))
}

// TokenSetRatio compares the shared words of a and b against each side's
// remainder, so extra words on one side are not penalized.
func TokenSetRatio(a, b string) int {
	return round(tokenSet(Normalize(a), Normalize(b), ratio))
}

// WRatio is the weighted best of the other scorers. Partial scorers only take
// part when one string is at least 1.5 times longer than the other.
func WRatio(a, b string) int {
	p1, p2 := Normalize(a), Normalize(b)
	if p1 == "" || p2 == "" {
		return 0
	}

	const unbase = 0.95
	partialScale := 0.9

	base := ratio(p1, p2)
	l1, l2 := float64(runeLen(p1)), float64(runeLen(p2))
	lenRatio := math.Max(l1, l2) / math.Min(l1, l2)

	if lenRatio < 1.5 {
		tsor := ratio(sortedTokens(p1), sortedTokens(p2)) * unbase
		tser := tokenSet(p1, p2, ratio) * unbase
		return round(max(base, tsor, tser))
	}

	if lenRatio > 8 {
		partialScale = 0.6
	}
	partial := partialRatio(p1, p2) * partialScale
	ptsor := partialRatio(sortedTokens(p1), sortedTokens(p2)) * unbase * partialScale
	ptser := tokenSet(p1, p2, partialRatio) * unbase * partialScale
	return round(max(base, partial, ptsor, ptser))
}

// ExtractOne returns the choice with the highest WRatio against query. The first
// choice wins ties. ok is false when query or choices are empty.
func ExtractOne(query string, choices []string) (m Match, ok bool) {
	if Normalize(query) == "" || len(choices) == 0 {
		return Match{}, false
	}
	m.Score = -1
	for i, c := range choices {
		if s := WRatio(query, c); s > m.Score {
			m = Match{Choice: c, Index: i, Score: s}
		}
	}
	return m, true
}

// BestMatch is ExtractOne limited to scores at or above threshold.
func BestMatch(query string, choices []string, threshold int) (Match, bool) {
	m, ok := ExtractOne(query, choices)
	if !ok || m.Score < threshold {
		return Match{}, false
	}
	return m, true
}

func ratio(a, b string) float64 {
	la, lb := runeLen(a), runeLen(b)
	if la == 0 && lb == 0 {
		return 0
	}
	return 200 * float64(edlib.LCS(a, b)) / float64(la+lb)
}

func partialRatio(a, b string) float64 {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}
	s := string(short)
	best := 0.0
	for i := 0; i+len(short) <= len(long); i++ {
		r := ratio(s, string(long[i:i+len(short)]))
		if r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return best
}

func tokenSet(a, b string, score func(string, string) float64) float64 {
	ta, tb := tokenSetOf(a), tokenSetOf(b)
	var inter, onlyA, onlyB []string
	for t := range ta {
		if tb[t] {
			inter = append(inter, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for t := range tb {
		if !ta[t] {
			onlyB = append(onlyB, t)
		}
	}
	sort.Strings(inter)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	t0 := strings.Join(inter, " ")
	t1 := strings.TrimSpace(t0 + " " + strings.Join(onlyA, " "))
	t2 := strings.TrimSpace(t0 + " " + strings.Join(onlyB, " "))

	best := score(t1, t2)
	if t0 != "" {
		best = max(best, score(t0, t1), score(t0, t2))
	}
	return best
}

func tokenSetOf(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range strings.Fields(s) {
		set[t] = true
	}
	return set
}

func sortedTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func runeLen(s string) int {
	return len([]rune(s))
}

func round(f float64) int {
	return int(math.Round(f))
}
