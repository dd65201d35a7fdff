// Package pipeline turns one captured frame into a product decision: it
// generates image variants, recognizes text on each, selects the caption
// candidate and matches the recognized text against the catalog.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"time"

	"github.com/MeKo-Tech/shelfocr/internal/catalog"
	"github.com/MeKo-Tech/shelfocr/internal/matcher"
	"github.com/MeKo-Tech/shelfocr/internal/recognizer"
	"github.com/MeKo-Tech/shelfocr/internal/selector"
	"github.com/MeKo-Tech/shelfocr/internal/variants"
)

// Precondition failures. Every other problem degrades to an empty
// contribution and the run still returns a Result.
var (
	ErrEmptyInput  = errors.New("no frame available")
	ErrNoCatalog   = errors.New("no product catalog")
	errNoRecognize = errors.New("pipeline requires a recognizer")
)

// ReasonNoTextFound is the result reason when every variant, including the
// fallback passes, produced zero lines.
const ReasonNoTextFound = "no text found"

// Config holds the per-run settings.
type Config struct {
	// FrameTimeout bounds one Run. Zero disables the bound.
	FrameTimeout  time.Duration
	Debug         bool
	DebugDir      string
	OverlayFormat string
	Matcher       matcher.Config
	Weights       selector.Weights
}

// DefaultConfig returns the kiosk defaults.
func DefaultConfig() Config {
	return Config{
		FrameTimeout:  8 * time.Second,
		DebugDir:      "debug",
		OverlayFormat: "png",
		Matcher:       matcher.DefaultConfig(),
		Weights:       selector.DefaultWeights(),
	}
}

// Builder constructs a Pipeline with a fluent API.
type Builder struct {
	cfg Config
	rec recognizer.Recognizer
}

// NewBuilder creates a new builder with default config.
func NewBuilder() *Builder {
	return &Builder{cfg: DefaultConfig()}
}

// WithRecognizer sets the text engine. The pipeline takes ownership and
// closes it in Close.
func (b *Builder) WithRecognizer(r recognizer.Recognizer) *Builder {
	b.rec = r
	return b
}

// WithMatcherConfig replaces the matcher thresholds.
func (b *Builder) WithMatcherConfig(cfg matcher.Config) *Builder {
	b.cfg.Matcher = cfg
	return b
}

// WithWeights replaces the candidate scoring weights.
func (b *Builder) WithWeights(w selector.Weights) *Builder {
	b.cfg.Weights = w
	return b
}

// WithFrameTimeout sets the per-frame bound. Negative values are ignored.
func (b *Builder) WithFrameTimeout(d time.Duration) *Builder {
	if d >= 0 {
		b.cfg.FrameTimeout = d
	}
	return b
}

// WithDebug enables debug artifacts under dir.
func (b *Builder) WithDebug(enabled bool, dir string) *Builder {
	b.cfg.Debug = enabled
	if dir != "" {
		b.cfg.DebugDir = dir
	}
	return b
}

// WithOverlayFormat sets the overlay image format (png or jpg).
func (b *Builder) WithOverlayFormat(format string) *Builder {
	if format != "" {
		b.cfg.OverlayFormat = strings.ToLower(format)
	}
	return b
}

// Config returns a copy of the current config.
func (b *Builder) Config() Config { return b.cfg }

// Build validates the configuration and returns the pipeline.
func (b *Builder) Build() (*Pipeline, error) {
	if b.rec == nil {
		return nil, errNoRecognize
	}
	if err := b.cfg.Matcher.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matcher config: %w", err)
	}
	return &Pipeline{
		cfg:      b.cfg,
		rec:      b.rec,
		selector: selector.New(b.cfg.Weights),
		matcher:  matcher.New(b.cfg.Matcher),
	}, nil
}

// Input is the read-only data a run matches against.
type Input struct {
	Catalog  catalog.Catalog
	Lexicons selector.Lexicons
}

// Diagnostics explains how a result was reached.
type Diagnostics struct {
	RunID           string              `json:"runId,omitempty"`
	DebugDir        string              `json:"debugDir,omitempty"`
	OverlayPaths    []string            `json:"perVariantOverlayImagePaths,omitempty"`
	PerVariantLines []recognizer.Result `json:"perVariantRecognizedLines"`
	SkewAngle       float64             `json:"skewAngle"`
	ROI             image.Rectangle     `json:"roi"`
	Duration        time.Duration       `json:"durationNs"`
}

// Result is the decision payload for one frame.
type Result struct {
	matcher.Result
	RawTexts    []string           `json:"rawTexts"`
	Selection   selector.Selection `json:"selection"`
	Diagnostics Diagnostics        `json:"diagnostics"`
}

// Text returns the selected caption, or "" when nothing was recognized.
func (r *Result) Text() string {
	if r == nil || r.Selection.Best == nil {
		return ""
	}
	return r.Selection.Best.Text
}

// Pipeline wires the variant generator, the recognizer, the selector and
// the matcher. Run is safe for concurrent use when the recognizer is.
type Pipeline struct {
	cfg      Config
	rec      recognizer.Recognizer
	selector *selector.Selector
	matcher  *matcher.Matcher
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Recognizer returns the engine the pipeline owns.
func (p *Pipeline) Recognizer() recognizer.Recognizer { return p.rec }

// Run processes one frame. Only ErrEmptyInput, ErrNoCatalog and context
// expiry are returned as errors.
func (p *Pipeline) Run(ctx context.Context, frame image.Image, in Input) (*Result, error) {
	if variants.IsEmpty(frame) {
		return nil, ErrEmptyInput
	}
	if in.Catalog.Empty() {
		return nil, ErrNoCatalog
	}
	if p.cfg.FrameTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.FrameTimeout)
		defer cancel()
	}
	start := time.Now()

	var dbg *debugRun
	if p.cfg.Debug {
		var err error
		if dbg, err = newDebugRun(p.cfg.DebugDir, p.cfg.OverlayFormat, start); err != nil {
			slog.Warn("debug output disabled for this frame", "error", err)
		}
	}

	seq := variants.Generate(frame)
	var (
		results  []recognizer.Result
		cands    []selector.Candidate
		overlays []string
	)
	for {
		v, ok := seq.Next()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("frame processing stopped at variant %s: %w", v.ID, err)
		}
		lines := p.recognize(ctx, v.ID, v.Image, recognizer.PrimaryOptions())
		if selector.NeedsFallback(lines) {
			if fb := withoutBoxes(p.recognize(ctx, recognizer.FallbackVariant, frame, recognizer.FallbackOptions())); len(fb) > 0 {
				results = append(results, recognizer.Result{Variant: recognizer.FallbackVariant, Lines: fb})
				cands = append(cands, selector.FromLines(recognizer.FallbackVariant, fb))
			}
		}
		if len(lines) > 0 {
			results = append(results, recognizer.Result{Variant: v.ID, Lines: lines})
			cands = append(cands, selector.FromLines(v.ID, lines))
		}
		if dbg != nil {
			path, err := dbg.overlay(v, lines)
			if err != nil {
				slog.Warn("failed to write overlay", "variant", v.ID, "error", err)
			} else {
				overlays = append(overlays, path)
			}
		}
	}

	info := seq.Info()
	res := &Result{
		RawTexts: rawTexts(results),
		Diagnostics: Diagnostics{
			OverlayPaths:    overlays,
			PerVariantLines: results,
			SkewAngle:       info.SkewAngle,
			ROI:             info.ROI,
		},
	}
	if len(res.RawTexts) == 0 {
		res.Result = matcher.Result{Reason: ReasonNoTextFound, TopK: []matcher.Scored{}}
	} else {
		res.Selection = p.selector.Select(cands, in.Lexicons)
		res.Result = p.matcher.Match(res.RawTexts, in.Catalog)
	}
	res.Diagnostics.Duration = time.Since(start)

	if dbg != nil {
		res.Diagnostics.RunID = dbg.id
		res.Diagnostics.DebugDir = dbg.dir
		if err := dbg.writeReport(res); err != nil {
			slog.Warn("failed to write debug report", "dir", dbg.dir, "error", err)
		}
	}
	slog.Debug("frame processed",
		"variants", len(results),
		"text", res.Text(),
		"accepted", res.Accepted,
		"score", res.TotalScore,
		"reason", res.Reason,
		"duration", res.Diagnostics.Duration)
	return res, nil
}

// recognize runs one engine pass. Engine errors count as zero lines.
func (p *Pipeline) recognize(ctx context.Context, variant string, img image.Image, opts recognizer.Options) []recognizer.Line {
	lines, err := p.rec.Recognize(ctx, img, opts)
	if err != nil {
		slog.Warn("recognition failed", "engine", p.rec.Name(), "variant", variant, "error", err)
		return nil
	}
	slog.Debug("variant recognized", "variant", variant, "lines", len(lines))
	return lines
}

// Close releases the recognizer.
func (p *Pipeline) Close() error {
	if p == nil || p.rec == nil {
		return nil
	}
	return p.rec.Close()
}

func withoutBoxes(lines []recognizer.Line) []recognizer.Line {
	out := make([]recognizer.Line, len(lines))
	for i, l := range lines {
		l.Box = nil
		out[i] = l
	}
	return out
}

func rawTexts(results []recognizer.Result) []string {
	var out []string
	for _, r := range results {
		for _, l := range r.Lines {
			if l.Text != "" {
				out = append(out, l.Text)
			}
		}
	}
	return out
}
