package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/shelfocr/internal/recognizer"
)

func TestPenalty(t *testing.T) {
	tests := []struct {
		text string
		want float64
	}{
		{"", 0.25},
		{"  A  ", 0.25},
		{"ABC", 0.12},
		{"헤라", 0.12},
		{"ABCD", 0},
		{"AB@#", 0.1},
		{"@@@@@@@", 0.15},
		{"헤라 17N1 + SPF50/PA", 0},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.InDelta(t, tt.want, Penalty(tt.text), 1e-9)
		})
	}
}

func TestScore(t *testing.T) {
	s := New(DefaultWeights())

	c := s.Score(Candidate{Text: "헤라", Confidence: 0.8, Variant: "orig"}, Lexicons{})
	assert.InDelta(t, 0.48, c.Score, 1e-9)
	assert.InDelta(t, 1.0, c.KoreanRatio, 1e-9)
	assert.Zero(t, c.BrandSimilarity)
	assert.Equal(t, "orig", c.Variant)

	lex := Lexicons{Brands: []string{"설화수", "헤라"}, Products: []string{"쿠션"}}
	c = s.Score(Candidate{Text: "헤라 쿠션", Confidence: 0.9}, lex)
	assert.InDelta(t, 1.0, c.BrandSimilarity, 1e-9)
	assert.InDelta(t, 1.0, c.ProductSimilarity, 1e-9)
	assert.InDelta(t, 0.8, c.KoreanRatio, 1e-9)
	assert.Zero(t, c.Penalty)
	assert.InDelta(t, 0.91, c.Score, 1e-9)
}

func TestScore_CleansText(t *testing.T) {
	c := New(DefaultWeights()).Score(Candidate{Text: "17Nl", Confidence: 1}, Lexicons{})
	assert.Equal(t, "17N1", c.Text)
}

func TestScore_CustomWeights(t *testing.T) {
	s := New(Weights{Confidence: 1})
	c := s.Score(Candidate{Text: "ABCD", Confidence: 0.7}, Lexicons{Brands: []string{"ABCD"}})
	assert.InDelta(t, 0.7, c.Score, 1e-9)
	assert.Equal(t, Weights{Confidence: 1}, s.Weights())
}

func TestSelect(t *testing.T) {
	s := New(DefaultWeights())

	sel := s.Select(nil, Lexicons{})
	assert.Nil(t, sel.Best)
	assert.Empty(t, sel.Candidates)

	sel = s.Select([]Candidate{
		{Text: "ABCD", Confidence: 0.5, Variant: "orig"},
		{Text: "ABCD", Confidence: 0.5, Variant: "clahe"},
		{Text: "A", Confidence: 0.6, Variant: "gamma"},
	}, Lexicons{})
	require.NotNil(t, sel.Best)
	assert.Equal(t, "orig", sel.Best.Variant, "first candidate wins ties")
	assert.Len(t, sel.Candidates, 3)

	// A candidate scoring below zero is still the best when it is the only one.
	sel = s.Select([]Candidate{{Text: "@", Confidence: 0}}, Lexicons{})
	require.NotNil(t, sel.Best)
	assert.Less(t, sel.Best.Score, 0.0)
}

func TestSelect_PrefersBrandMatch(t *testing.T) {
	lex := Lexicons{Brands: []string{"헤라"}}
	sel := New(DefaultWeights()).Select([]Candidate{
		{Text: "HERA BLACK", Confidence: 0.7, Variant: "orig"},
		{Text: "헤라 블랙", Confidence: 0.6, Variant: "clahe"},
	}, lex)
	require.NotNil(t, sel.Best)
	assert.Equal(t, "clahe", sel.Best.Variant)
}

func TestNeedsFallback(t *testing.T) {
	line := func(text string, conf float64) recognizer.Line {
		return recognizer.Line{Text: text, Confidence: conf}
	}
	tests := []struct {
		name  string
		lines []recognizer.Line
		want  bool
	}{
		{"no lines", nil, true},
		{"short but confident", []recognizer.Line{line("ABC", 0.9)}, false},
		{"short and unsure", []recognizer.Line{line("AB", 0.3)}, true},
		{"long and unsure", []recognizer.Line{line("ABCDEFG", 0.1)}, false},
		{"joined reaches six", []recognizer.Line{line("AB", 0.1), line("CDE", 0.1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NeedsFallback(tt.lines))
		})
	}
}

func TestFromLines(t *testing.T) {
	c := FromLines("sharp", []recognizer.Line{
		{Text: "헤라", Confidence: 0.8},
		{Text: "17Nl", Confidence: 0.6},
	})
	assert.Equal(t, "헤라 17N1", c.Text)
	assert.InDelta(t, 0.7, c.Confidence, 1e-9)
	assert.Equal(t, "sharp", c.Variant)
}

func TestSimilarity(t *testing.T) {
	assert.Zero(t, Similarity("헤라", nil))
	assert.InDelta(t, 1.0, Similarity("헤라 블랙 쿠션", []string{"이니스프리", "헤라"}), 1e-9)
	assert.Less(t, Similarity("ABC", []string{"XYZ"}), 0.5)
}
