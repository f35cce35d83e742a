// Package fuzzy scores approximate string similarity on a 0..100 scale.
//
// The scorers follow the familiar ratio / partial / token-sort / token-set
// family. WRatio combines them and is what the rate-list matcher uses.
package fuzzy

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Ratio is 100 × (1 − distance / longest length) on lower-cased input.
func Ratio(a, b string) float64 {
	return ratio(strings.ToLower(a), strings.ToLower(b))
}

func ratio(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 100
	}
	d := levenshtein.ComputeDistance(a, b)
	return 100 * (1 - float64(d)/float64(longest))
}

// PartialRatio is the best Ratio of the shorter string against every
// equal-length window of the longer one.
func PartialRatio(a, b string) float64 {
	return partialRatio(strings.ToLower(a), strings.ToLower(b))
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
		if r := ratio(s, string(long[i:i+len(short)])); r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return best
}

// TokenSortRatio compares the inputs after sorting their tokens.
func TokenSortRatio(a, b string) float64 {
	ta, tb := tokens(a), tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	return ratio(sortedJoin(ta), sortedJoin(tb))
}

// TokenSetRatio compares the shared tokens against each side's full set so
// that extra words on one side cost little.
func TokenSetRatio(a, b string) float64 {
	return tokenSet(a, b, ratio)
}

func tokenSet(a, b string, score func(string, string) float64) float64 {
	ta, tb := tokens(a), tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	inA := make(map[string]bool, len(ta))
	for _, t := range ta {
		inA[t] = true
	}
	inB := make(map[string]bool, len(tb))
	for _, t := range tb {
		inB[t] = true
	}

	var common, onlyA, onlyB []string
	for t := range inA {
		if inB[t] {
			common = append(common, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for t := range inB {
		if !inA[t] {
			onlyB = append(onlyB, t)
		}
	}

	t0 := sortedJoin(common)
	t1 := strings.TrimSpace(t0 + " " + sortedJoin(onlyA))
	t2 := strings.TrimSpace(t0 + " " + sortedJoin(onlyB))

	return max(score(t0, t1), score(t0, t2), score(t1, t2))
}

// WRatio picks the best of the other scorers, discounting partial and token
// scores depending on how different the input lengths are.
func WRatio(a, b string) float64 {
	pa, pb := normalise(a), normalise(b)
	if pa == "" || pb == "" {
		return 0
	}

	const unbaseScale = 0.95
	partialScale := 0.90

	base := ratio(pa, pb)

	la, lb := float64(utf8.RuneCountInString(pa)), float64(utf8.RuneCountInString(pb))
	lenRatio := max(la, lb) / min(la, lb)

	if lenRatio < 1.5 {
		return max(base,
			TokenSortRatio(pa, pb)*unbaseScale,
			TokenSetRatio(pa, pb)*unbaseScale)
	}

	if lenRatio >= 8 {
		partialScale = 0.6
	}

	partial := partialRatio(pa, pb) * partialScale
	ptSort := partialRatio(sortedJoin(tokens(pa)), sortedJoin(tokens(pb))) * unbaseScale * partialScale
	ptSet := tokenSet(pa, pb, partialRatio) * unbaseScale * partialScale

	return max(base, partial, ptSort, ptSet)
}

// BestMatch returns the index and WRatio score of the choice closest to
// query. ok is false when query or choices are empty.
func BestMatch(query string, choices []string) (int, float64, bool) {
	if strings.TrimSpace(query) == "" || len(choices) == 0 {
		return -1, 0, false
	}

	best, bestScore := 0, -1.0
	for i, c := range choices {
		if s := WRatio(query, c); s > bestScore {
			best, bestScore = i, s
		}
	}
	return best, bestScore, true
}

// normalise lower-cases s, replaces everything but letters and digits with
// spaces and collapses runs of whitespace.
func normalise(s string) string {
	return strings.Join(tokens(s), " ")
}

func tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func sortedJoin(ts []string) string {
	out := append([]string(nil), ts...)
	sort.Strings(out)
	return strings.Join(out, " ")
}
