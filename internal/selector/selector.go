// Package selector scores candidate texts from the recognition passes and
// picks the one to match against the catalog.
package selector

import (
	"strings"
	"unicode/utf8"

	"github.com/MeKo-Tech/shelfocr/internal/fuzzy"
	"github.com/MeKo-Tech/shelfocr/internal/normalize"
	"github.com/MeKo-Tech/shelfocr/internal/recognizer"
)

// Fallback thresholds for a low-yield variant.
const (
	MinYieldLength     = 6
	MinYieldConfidence = 0.55
)

const (
	tinyPenalty     = 0.25
	shortPenalty    = 0.12
	maxNoisePenalty = 0.15
	noiseWeight     = 0.2
	allowedPunct    = " +-.,/&"
)

// Weights are the coefficients of the candidate score.
type Weights struct {
	Confidence float64 `json:"confidence"`
	Korean     float64 `json:"korean"`
	Brand      float64 `json:"brand"`
	Product    float64 `json:"product"`
}

// DefaultWeights returns 0.5 confidence, 0.2 Korean ratio, 0.2 brand and
// 0.1 product similarity.
func DefaultWeights() Weights {
	return Weights{Confidence: 0.5, Korean: 0.2, Brand: 0.2, Product: 0.1}
}

// Lexicons are the brand and product vocabularies used for scoring.
type Lexicons struct {
	Brands   []string `json:"brands"`
	Products []string `json:"products"`
}

// Candidate is one scored text hypothesis.
type Candidate struct {
	Text              string  `json:"text"`
	Confidence        float64 `json:"conf"`
	Variant           string  `json:"variant"`
	Score             float64 `json:"score"`
	KoreanRatio       float64 `json:"kr"`
	BrandSimilarity   float64 `json:"brand_sim"`
	ProductSimilarity float64 `json:"prod_sim"`
	Penalty           float64 `json:"penalty"`
}

// Selection is the scored candidate list and the chosen one.
type Selection struct {
	Candidates []Candidate `json:"candidates"`
	Best       *Candidate  `json:"best"`
}

// FromLines builds a candidate from a recognition result: the joined text
// after normalize.Clean and the mean line confidence.
func FromLines(variant string, lines []recognizer.Line) Candidate {
	return Candidate{
		Text:       normalize.Clean(recognizer.JoinLines(lines)),
		Confidence: recognizer.MeanConfidence(lines),
		Variant:    variant,
	}
}

// NeedsFallback reports whether a primary pass yielded too little text to
// trust: no lines, or a short joined text at low mean confidence.
func NeedsFallback(lines []recognizer.Line) bool {
	if len(lines) == 0 {
		return true
	}
	joined := recognizer.JoinLines(lines)
	return utf8.RuneCountInString(joined) < MinYieldLength &&
		recognizer.MeanConfidence(lines) < MinYieldConfidence
}

// Selector scores candidates with fixed weights.
type Selector struct {
	weights Weights
}

// New creates a selector.
func New(w Weights) *Selector {
	return &Selector{weights: w}
}

// Weights returns the scoring weights.
func (s *Selector) Weights() Weights { return s.weights }

// Score cleans the candidate text and fills in its score components.
func (s *Selector) Score(c Candidate, lex Lexicons) Candidate {
	c.Text = normalize.Clean(c.Text)
	c.KoreanRatio = normalize.KoreanRatio(c.Text)
	c.BrandSimilarity = Similarity(c.Text, lex.Brands)
	c.ProductSimilarity = Similarity(c.Text, lex.Products)
	c.Penalty = Penalty(c.Text)
	w := s.weights
	c.Score = w.Confidence*c.Confidence + w.Korean*c.KoreanRatio +
		w.Brand*c.BrandSimilarity + w.Product*c.ProductSimilarity - c.Penalty
	return c
}

// Select scores every candidate and returns the highest; the first one
// wins ties. Best is nil only without candidates.
func (s *Selector) Select(cands []Candidate, lex Lexicons) Selection {
	sel := Selection{Candidates: make([]Candidate, len(cands))}
	best := -1
	for i, c := range cands {
		sel.Candidates[i] = s.Score(c, lex)
		if best < 0 || sel.Candidates[i].Score > sel.Candidates[best].Score {
			best = i
		}
	}
	if best >= 0 {
		b := sel.Candidates[best]
		sel.Best = &b
	}
	return sel
}

// Similarity is the best token-set ratio of text against the lexicon,
// scaled to [0,1]. Empty lexicons score 0.
func Similarity(text string, lexicon []string) float64 {
	var best float64
	for _, item := range lexicon {
		best = max(best, fuzzy.TokenSetRatio(text, item))
	}
	return best / 100
}

// Penalty punishes very short texts and texts dominated by characters
// outside Hangul, ASCII letters, digits and " +-.,/&".
func Penalty(text string) float64 {
	t := strings.TrimSpace(text)
	n := utf8.RuneCountInString(t)
	switch {
	case n <= 1:
		return tinyPenalty
	case n <= 3:
		return shortPenalty
	}
	bad := 0
	for _, r := range t {
		if !allowed(r) {
			bad++
		}
	}
	return min(maxNoisePenalty, float64(bad)/float64(n)*noiseWeight)
}

func allowed(r rune) bool {
	switch {
	case r >= '0' && r <= '9', r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		return true
	case normalize.IsHangul(r):
		return true
	default:
		return strings.ContainsRune(allowedPunct, r)
	}
}
