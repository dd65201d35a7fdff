// Package recognizer defines the contract between the OCR pipeline and the
// scene-text engines that read product labels.
package recognizer

import (
	"context"
	"image"
	"strings"
)

// FallbackVariant tags recognition results of the full-frame retry pass.
const FallbackVariant = "fallback_full"

// Line is one recognized text line normalized at the engine boundary.
type Line struct {
	Text       string        `json:"text"`
	Confidence float64       `json:"conf"`
	Box        []image.Point `json:"box,omitempty"`
}

// Result groups the lines read from one image variant.
type Result struct {
	Variant string `json:"variant"`
	Lines   []Line `json:"lines"`
}

// Joined returns the line texts joined by a space.
func (r Result) Joined() string {
	return JoinLines(r.Lines)
}

// MeanConfidence returns the average line confidence, 0 without lines.
func (r Result) MeanConfidence() float64 {
	return MeanConfidence(r.Lines)
}

// Options tunes a recognition pass. Engines honour the fields they support
// and ignore the rest.
type Options struct {
	TextThreshold     float64 `json:"text_threshold"`
	LowText           float64 `json:"low_text"`
	LinkThreshold     float64 `json:"link_threshold"`
	ContrastThreshold float64 `json:"contrast_threshold"`
	AdjustContrast    float64 `json:"adjust_contrast"`
	CanvasSize        int     `json:"canvas_size"`
	MagRatio          float64 `json:"mag_ratio"`
	Paragraph         bool    `json:"paragraph"`
	Allowlist         string  `json:"allowlist"`
	Blocklist         string  `json:"blocklist"`
}

// Recognizer reads text lines from an image.
type Recognizer interface {
	// Recognize returns the lines found in img. Lines with empty text are
	// never returned.
	Recognize(ctx context.Context, img image.Image, opts Options) ([]Line, error)
	// Name identifies the engine in logs and metrics.
	Name() string
	// Close releases engine resources.
	Close() error
}

// PrimaryOptions is the preset used for every enhanced variant.
func PrimaryOptions() Options {
	return Options{
		TextThreshold:     0.50,
		LowText:           0.18,
		LinkThreshold:     0.25,
		ContrastThreshold: 0.03,
		AdjustContrast:    0.6,
		CanvasSize:        2048,
		MagRatio:          1.7,
		Paragraph:         true,
		Allowlist:         DefaultAllowlist,
		Blocklist:         PrimaryBlocklist,
	}
}

// FallbackOptions is the preset for the full-frame retry.
func FallbackOptions() Options {
	return Options{
		TextThreshold:     0.50,
		LowText:           0.22,
		LinkThreshold:     0.30,
		ContrastThreshold: 0.05,
		AdjustContrast:    0.7,
		CanvasSize:        1920,
		MagRatio:          1.5,
		Paragraph:         false,
		Allowlist:         DefaultAllowlist,
		Blocklist:         FallbackBlocklist,
	}
}

// JoinLines joins non-empty line texts with single spaces.
func JoinLines(lines []Line) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		if l.Text != "" {
			parts = append(parts, l.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// MeanConfidence averages line confidences.
func MeanConfidence(lines []Line) float64 {
	if len(lines) == 0 {
		return 0
	}
	var sum float64
	for _, l := range lines {
		sum += l.Confidence
	}
	return sum / float64(len(lines))
}

// Clean filters each line through the option charsets, clamps confidence
// into [0,1] and drops lines left without text.
func Clean(lines []Line, opts Options) []Line {
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		l.Text = strings.TrimSpace(FilterCharset(l.Text, opts.Allowlist, opts.Blocklist))
		if l.Text == "" {
			continue
		}
		l.Confidence = clamp01(l.Confidence)
		out = append(out, l)
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
