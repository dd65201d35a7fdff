package fuzzy

import (
	"sort"
	"strings"
)

// Scorer is any of the similarity measures in this package.
type Scorer func(a, b string) float64

// Match is one ranked choice.
type Match struct {
	Choice string
	Score  float64
	Index  int
}

// Extract ranks choices against query with scorer and returns at most
// limit matches, best first. Both sides are lowercased and trimmed before
// scoring. Equal scores keep the order of choices; empty choices are
// skipped. A limit of zero or less returns every choice.
func Extract(query string, choices []string, scorer Scorer, limit int) []Match {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	out := make([]Match, 0, len(choices))
	for i, c := range choices {
		key := strings.ToLower(strings.TrimSpace(c))
		if key == "" {
			continue
		}
		out = append(out, Match{Choice: c, Score: scorer(q, key), Index: i})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
