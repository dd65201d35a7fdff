package recognizer

import "strings"

// Character sets. A set is a list of runes where "a-b" denotes an inclusive
// range; a dash that cannot form a range is literal.
const (
	DefaultAllowlist  = "가-힣A-Za-z0-9 +&.,/-"
	PrimaryBlocklist  = "`~|{}[]<>^_=#:;\\"
	FallbackBlocklist = "`~|{}[]<>^_="
)

type runeRange struct{ lo, hi rune }

// Charset is a parsed character set.
type Charset struct {
	ranges []runeRange
}

// ParseCharset parses a character set specification.
func ParseCharset(spec string) Charset {
	rs := []rune(spec)
	var cs Charset
	for i := 0; i < len(rs); i++ {
		if i+2 < len(rs) && rs[i+1] == '-' && rs[i] <= rs[i+2] {
			cs.ranges = append(cs.ranges, runeRange{rs[i], rs[i+2]})
			i += 2
			continue
		}
		cs.ranges = append(cs.ranges, runeRange{rs[i], rs[i]})
	}
	return cs
}

// Empty reports whether the set has no characters.
func (c Charset) Empty() bool { return len(c.ranges) == 0 }

// Contains reports whether r belongs to the set.
func (c Charset) Contains(r rune) bool {
	for _, rr := range c.ranges {
		if r >= rr.lo && r <= rr.hi {
			return true
		}
	}
	return false
}

// FilterCharset keeps the runes of s that are in allow (any rune when allow
// is empty) and not in block.
func FilterCharset(s, allow, block string) string {
	if allow == "" && block == "" {
		return s
	}
	a, b := ParseCharset(allow), ParseCharset(block)
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if !a.Empty() && !a.Contains(r) {
			continue
		}
		if b.Contains(r) {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
