package fuzzy

import (
	"testing"
	"unicode"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var scorers = map[string]Scorer{
	"ratio":      Ratio,
	"partial":    PartialRatio,
	"token_sort": TokenSortRatio,
	"token_set":  TokenSetRatio,
	"wratio":     WRatio,
}

// TestScorers_Properties checks range and identity for every scorer on
// arbitrary strings, Hangul included.
func TestScorers_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	text := gen.OneGenOf(gen.AlphaString(), gen.UnicodeString(unicode.Hangul), gen.Const("17N1 쿠션"))

	for name, score := range scorers {
		properties.Property(name+" stays within 0..100", prop.ForAll(
			func(a, b string) bool {
				s := score(a, b)
				return s >= 0 && s <= 100
			},
			text, text,
		))
		properties.Property(name+" of a non-empty string with itself is 100", prop.ForAll(
			func(a string) bool {
				return a == "" || score(a, a) == 100
			},
			text,
		))
	}

	properties.Property("ratio is symmetric", prop.ForAll(
		func(a, b string) bool { return Ratio(a, b) == Ratio(b, a) },
		text, text,
	))

	properties.TestingRun(t)
}
