// Package fuzzy implements the string similarity measures used for product
// matching. All scores are in the range 0..100 and operate on runes, so
// Hangul and Latin text compare character by character.
package fuzzy

import (
	"sort"
	"strings"
)

const (
	unbaseScale      = 0.95
	partialScale     = 0.90
	longPartialScale = 0.60
)

// Ratio returns the normalized indel similarity of a and b.
func Ratio(a, b string) float64 {
	return ratioRunes([]rune(a), []rune(b))
}

func ratioRunes(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 100
	}
	return 100 * float64(2*lcsLength(a, b)) / float64(total)
}

// lcsLength returns the length of the longest common subsequence.
func lcsLength(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// PartialRatio returns the best Ratio of the shorter string against every
// window of the longer one. Windows sliding off either end are included so a
// match at the border is not penalized twice.
func PartialRatio(a, b string) float64 {
	s, l := []rune(a), []rune(b)
	if len(s) > len(l) {
		s, l = l, s
	}
	if len(s) == 0 {
		if len(l) == 0 {
			return 100
		}
		return 0
	}
	if len(s) == len(l) {
		return ratioRunes(s, l)
	}

	m := len(s)
	best := 0.0
	consider := func(window []rune) bool {
		if r := ratioRunes(s, window); r > best {
			best = r
		}
		return best == 100
	}
	for k := 1; k < m; k++ {
		if consider(l[:k]) {
			return best
		}
	}
	for i := 0; i+m <= len(l); i++ {
		if consider(l[i : i+m]) {
			return best
		}
	}
	for k := m - 1; k >= 1; k-- {
		if consider(l[len(l)-k:]) {
			return best
		}
	}
	return best
}

// TokenSortRatio compares the whitespace tokens of both strings after
// sorting them.
func TokenSortRatio(a, b string) float64 {
	return Ratio(sortedTokens(a), sortedTokens(b))
}

// TokenSetRatio compares the token sets of two strings. Shared tokens count
// once, so duplicated or reordered words do not lower the score.
func TokenSetRatio(a, b string) float64 {
	sect, diffAB, diffBA := tokenSets(a, b)
	if len(sect) == 0 && len(diffAB) == 0 && len(diffBA) == 0 {
		return 0
	}
	if len(sect) > 0 && (len(diffAB) == 0 || len(diffBA) == 0) {
		return 100
	}

	ab := strings.Join(diffAB, " ")
	ba := strings.Join(diffBA, " ")
	if len(sect) == 0 {
		return Ratio(ab, ba)
	}

	common := strings.Join(sect, " ")
	withAB := common + " " + ab
	withBA := common + " " + ba
	return max(Ratio(common, withAB), Ratio(common, withBA), Ratio(withAB, withBA))
}

// partialTokenRatio is PartialRatio applied to token representations.
func partialTokenRatio(a, b string) float64 {
	sect, diffAB, diffBA := tokenSets(a, b)
	if len(sect) > 0 {
		return 100
	}
	best := PartialRatio(sortedTokens(a), sortedTokens(b))
	if len(diffAB) > 0 && len(diffBA) > 0 {
		best = max(best, PartialRatio(strings.Join(diffAB, " "), strings.Join(diffBA, " ")))
	}
	return best
}

// WRatio blends Ratio, PartialRatio and the token measures, weighting the
// partial measures down as the length difference grows.
func WRatio(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	if la == 0 || lb == 0 {
		return 0
	}
	lenRatio := float64(max(la, lb)) / float64(min(la, lb))
	end := Ratio(a, b)

	if lenRatio < 1.5 {
		tokens := max(TokenSortRatio(a, b), TokenSetRatio(a, b))
		return max(end, tokens*unbaseScale)
	}

	scale := partialScale
	if lenRatio >= 8 {
		scale = longPartialScale
	}
	end = max(end, PartialRatio(a, b)*scale)
	return max(end, partialTokenRatio(a, b)*unbaseScale*scale)
}

func sortedTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// tokenSets returns the sorted intersection and both sorted differences of
// the token sets of a and b.
func tokenSets(a, b string) (sect, diffAB, diffBA []string) {
	setA := toSet(strings.Fields(a))
	setB := toSet(strings.Fields(b))
	for t := range setA {
		if _, ok := setB[t]; ok {
			sect = append(sect, t)
		} else {
			diffAB = append(diffAB, t)
		}
	}
	for t := range setB {
		if _, ok := setA[t]; !ok {
			diffBA = append(diffBA, t)
		}
	}
	sort.Strings(sect)
	sort.Strings(diffAB)
	sort.Strings(diffBA)
	return sect, diffAB, diffBA
}

func toSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}
