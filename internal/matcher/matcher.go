// Package matcher scores recognized text against a product catalog and
// decides whether the best candidate is a confident identification.
package matcher

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/MeKo-Tech/shelfocr/internal/catalog"
	"github.com/MeKo-Tech/shelfocr/internal/fuzzy"
	"github.com/MeKo-Tech/shelfocr/internal/normalize"
)

// Reasons attached to results that have no confident match.
const (
	ReasonNoCandidates  = "no candidate entries"
	ReasonNoText        = "no text recognized"
	ReasonLowConfidence = "low confidence"
)

// Config holds the tuned thresholds and bonus weights.
type Config struct {
	// AcceptBase accepts on string similarity alone.
	AcceptBase float64 `json:"accept_base"`
	// NumericBase accepts when at least one numeric signal matched.
	NumericBase float64 `json:"numeric_base"`
	// TokenBase accepts when numeric and alphabetic signals both matched.
	TokenBase float64 `json:"token_base"`

	NumericBonusPerMatch float64 `json:"numeric_bonus_per_match"`
	NumericBonusCap      float64 `json:"numeric_bonus_cap"`
	TokenBonusPerHit     float64 `json:"token_bonus_per_hit"`
	TokenBonusCap        float64 `json:"token_bonus_cap"`
	PartialBonus         float64 `json:"partial_bonus"`
	PartialThreshold     float64 `json:"partial_threshold"`
	MinTokenLength       int     `json:"min_token_length"`

	TopK int `json:"top_k"`
}

// DefaultConfig returns the thresholds the kiosk was tuned with.
func DefaultConfig() Config {
	return Config{
		AcceptBase:           75,
		NumericBase:          55,
		TokenBase:            50,
		NumericBonusPerMatch: 20,
		NumericBonusCap:      40,
		TokenBonusPerHit:     5,
		TokenBonusCap:        15,
		PartialBonus:         5,
		PartialThreshold:     70,
		MinTokenLength:       3,
		TopK:                 3,
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	var errs []error
	for name, v := range map[string]float64{
		"accept_base":  c.AcceptBase,
		"numeric_base": c.NumericBase,
		"token_base":   c.TokenBase,
	} {
		if v < 0 || v > 100 {
			errs = append(errs, fmt.Errorf("%s must be between 0 and 100, got %.2f", name, v))
		}
	}
	if c.NumericBonusPerMatch < 0 || c.NumericBonusCap < 0 || c.TokenBonusPerHit < 0 ||
		c.TokenBonusCap < 0 || c.PartialBonus < 0 {
		errs = append(errs, errors.New("bonus weights must not be negative"))
	}
	if c.TopK < 1 {
		errs = append(errs, fmt.Errorf("top_k must be at least 1, got %d", c.TopK))
	}
	return errors.Join(errs...)
}

// Detail explains the score of one (query, entry) pair.
type Detail struct {
	BaseScore      float64 `json:"baseScore"`
	PartialBonus   float64 `json:"partialBonus"`
	NumericMatches int     `json:"numericMatches"`
	NumericBonus   float64 `json:"numericBonus"`
	TokenHits      int     `json:"tokenHits"`
	TokenBonus     float64 `json:"tokenBonus"`
	QueryText      string  `json:"queryText"`
}

// Total is the composite score of the pair.
func (d Detail) Total() float64 {
	return d.BaseScore + d.PartialBonus + d.NumericBonus + d.TokenBonus
}

// Scored is a catalog entry with its composite score.
type Scored struct {
	Entry catalog.Entry `json:"entry"`
	Total float64       `json:"total"`
}

// Result is the outcome of matching one set of texts.
type Result struct {
	Best       *catalog.Entry `json:"best"`
	TotalScore float64        `json:"totalScore"`
	TopK       []Scored       `json:"topK"`
	Accepted   bool           `json:"accepted"`
	Detail     Detail         `json:"matchDetail"`
	Reason     string         `json:"reason,omitempty"`
}

// TopEntries returns the top candidates without their scores.
func (r Result) TopEntries() []catalog.Entry {
	out := make([]catalog.Entry, len(r.TopK))
	for i, s := range r.TopK {
		out[i] = s.Entry
	}
	return out
}

// Matcher scores texts against catalogs. It holds no per-call state.
type Matcher struct {
	cfg Config
}

// New creates a matcher with the given configuration.
func New(cfg Config) *Matcher {
	return &Matcher{cfg: cfg}
}

// Config returns the matcher configuration.
func (m *Matcher) Config() Config {
	return m.cfg
}

// Decide applies the tiered acceptance rule. It depends only on the base
// similarity and the signal counts, never on the composite total.
func (m *Matcher) Decide(base float64, numericMatches, tokenHits int) bool {
	switch {
	case base >= m.cfg.AcceptBase:
		return true
	case base >= m.cfg.NumericBase && numericMatches >= 1:
		return true
	case base >= m.cfg.TokenBase && numericMatches >= 1 && tokenHits >= 1:
		return true
	default:
		return false
	}
}

// Match scores every query derived from texts against every catalog entry.
// The best pair is kept even when it fails the acceptance rule, so callers
// can still show a low confidence guess.
func (m *Matcher) Match(texts []string, cat catalog.Catalog) Result {
	if cat.Empty() {
		return Result{Reason: ReasonNoCandidates, TopK: []Scored{}}
	}

	joined := joinNonEmpty(texts)
	signals := normalize.ExtractSignals(joined)

	var (
		best      *catalog.Entry
		bestTotal = -1.0
		bestDet   Detail
	)
	for _, raw := range append([]string{joined}, texts...) {
		q := normalize.Key(raw)
		if q == "" {
			continue
		}
		for i := range cat {
			det := m.score(q, cat[i].NormalizedName, signals)
			det.QueryText = raw
			if total := det.Total(); total > bestTotal {
				bestTotal = total
				best = &cat[i]
				bestDet = det
			}
		}
	}
	if best == nil {
		return Result{Reason: ReasonNoText, TopK: []Scored{}}
	}

	entry := *best
	res := Result{
		Best:       &entry,
		TotalScore: bestTotal,
		TopK:       m.topK(normalize.Key(joined), cat, signals),
		Accepted:   m.Decide(bestDet.BaseScore, bestDet.NumericMatches, bestDet.TokenHits),
		Detail:     bestDet,
	}
	if !res.Accepted {
		res.Reason = ReasonLowConfidence
	}
	return res
}

// topK ranks the catalog against the joined query only. The sort is stable
// so equal totals keep catalog order.
func (m *Matcher) topK(q string, cat catalog.Catalog, signals normalize.Signals) []Scored {
	scored := make([]Scored, 0, len(cat))
	for _, e := range cat {
		det := m.score(q, e.NormalizedName, signals)
		scored = append(scored, Scored{Entry: e, Total: det.Total()})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Total > scored[j].Total
	})
	if len(scored) > m.cfg.TopK {
		scored = scored[:m.cfg.TopK]
	}
	return scored
}

// score computes the composite score of a normalized query against a
// normalized entry name.
func (m *Matcher) score(q, name string, signals normalize.Signals) Detail {
	det := Detail{
		BaseScore: max(fuzzy.WRatio(q, name), fuzzy.TokenSetRatio(q, name)),
	}
	if fuzzy.PartialRatio(q, name) >= m.cfg.PartialThreshold {
		det.PartialBonus = m.cfg.PartialBonus
	}
	for _, n := range signals.Numbers {
		if strings.Contains(name, n) {
			det.NumericMatches++
		}
	}
	for _, t := range signals.Tokens {
		if len(t) >= m.cfg.MinTokenLength && strings.Contains(name, t) {
			det.TokenHits++
		}
	}
	det.NumericBonus = min(m.cfg.NumericBonusCap, float64(det.NumericMatches)*m.cfg.NumericBonusPerMatch)
	det.TokenBonus = min(m.cfg.TokenBonusCap, float64(det.TokenHits)*m.cfg.TokenBonusPerHit)
	return det
}

func joinNonEmpty(texts []string) string {
	parts := make([]string, 0, len(texts))
	for _, t := range texts {
		if t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
