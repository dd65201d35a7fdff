// Package normalize cleans recognized text lines and extracts the signals
// used by line scoring and catalog matching.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

const (
	hangulFirst = '가'
	hangulLast  = '힣'
)

var (
	numberPattern = regexp.MustCompile(`[0-9]{3,}`)
	tokenPattern  = regexp.MustCompile(`[A-Za-z]{3,}`)

	bracketFold = strings.NewReplacer("〔", "(", "〕", ")")

	// lookAlike maps characters OCR engines commonly produce in place of digits.
	lookAlike = map[rune]rune{
		'O': '0', 'o': '0',
		'I': '1', 'l': '1', '|': '1',
		'B': '8', 'S': '5', 'Z': '2',
	}
)

// Signals holds the high precision tokens extracted from raw text.
type Signals struct {
	Numbers []string `json:"numbers"`
	Tokens  []string `json:"tokens"`
}

// IsHangul reports whether r is a precomposed Hangul syllable.
func IsHangul(r rune) bool {
	return r >= hangulFirst && r <= hangulLast
}

// Clean repairs common OCR confusions in a recognized line: full width forms
// become ASCII, "rn" becomes "m", and look-alike letters inside digit heavy
// tokens are folded to digits ("17Nl" -> "17N1"). The result feeds
// scoring and matching only; displayed text keeps the raw form.
func Clean(s string) string {
	if s == "" {
		return s
	}
	s = width.Fold.String(bracketFold.Replace(s))
	s = strings.ReplaceAll(s, "rn", "m")

	var b strings.Builder
	b.Grow(len(s))
	start := 0
	for i, r := range s {
		if unicode.IsSpace(r) {
			b.WriteString(foldToken(s[start:i]))
			b.WriteRune(r)
			start = i + utf8.RuneLen(r)
		}
	}
	b.WriteString(foldToken(s[start:]))
	return b.String()
}

// foldToken folds look-alikes only in tokens where digits outnumber the
// remaining letters, so shade codes are repaired and words like "SPF50" are
// left alone.
func foldToken(tok string) string {
	digits, letters := 0, 0
	for _, r := range tok {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case lookAlike[r] != 0:
		case unicode.IsLetter(r):
			letters++
		}
	}
	if digits == 0 || digits <= letters {
		return tok
	}
	return strings.Map(func(r rune) rune {
		if d, ok := lookAlike[r]; ok {
			return d
		}
		return r
	}, tok)
}

// Key returns the comparison form of s: NFKC normalized, lower cased, with
// everything except Hangul syllables, ASCII letters, digits and spaces
// replaced by spaces and whitespace collapsed.
func Key(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToLower(norm.NFKC.String(s))
	mapped := strings.Map(func(r rune) rune {
		switch {
		case IsHangul(r), r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return ' '
		}
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}

// ExtractSignals returns the 3+ digit runs and the 3+ letter runs (lower
// cased) of the NFKC form of raw, each deduplicated in order of first
// occurrence.
func ExtractSignals(raw string) Signals {
	if raw == "" {
		return Signals{}
	}
	s := norm.NFKC.String(raw)
	tokens := tokenPattern.FindAllString(s, -1)
	for i, t := range tokens {
		tokens[i] = strings.ToLower(t)
	}
	return Signals{
		Numbers: unique(numberPattern.FindAllString(s, -1)),
		Tokens:  unique(tokens),
	}
}

func unique(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// KoreanRatio returns the fraction of runes in s that are Hangul syllables.
func KoreanRatio(s string) float64 {
	total, hangul := 0, 0
	for _, r := range s {
		total++
		if IsHangul(r) {
			hangul++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(hangul) / float64(total)
}

// ContainsHangul reports whether s holds at least one Hangul syllable.
func ContainsHangul(s string) bool {
	return strings.ContainsFunc(s, IsHangul)
}
