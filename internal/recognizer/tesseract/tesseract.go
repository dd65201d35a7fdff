// Package tesseract adapts the local Tesseract engine to recognizer.Recognizer.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/MeKo-Tech/shelfocr/internal/recognizer"
)

// DefaultLanguages reads Korean labels with Latin brand names.
var DefaultLanguages = []string{"kor", "eng"}

// Config holds Tesseract settings.
type Config struct {
	Languages []string
	// DataDir overrides TESSDATA_PREFIX when set.
	DataDir string
}

// Engine runs Tesseract through a single client. Tesseract clients are not
// safe for concurrent use, so calls are serialized.
type Engine struct {
	mu     sync.Mutex
	client *gosseract.Client
}

var _ recognizer.Recognizer = (*Engine)(nil)

// New creates a Tesseract client for the configured languages.
func New(cfg Config) (*Engine, error) {
	langs := cfg.Languages
	if len(langs) == 0 {
		langs = DefaultLanguages
	}
	client := gosseract.NewClient()
	if cfg.DataDir != "" {
		client.TessdataPrefix = cfg.DataDir
	}
	if err := client.SetLanguage(langs...); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to set tesseract languages %v: %w", langs, err)
	}
	return &Engine{client: client}, nil
}

// Name implements recognizer.Recognizer.
func (e *Engine) Name() string { return "tesseract" }

// Recognize implements recognizer.Recognizer. Paragraph mode reads whole
// text lines; otherwise words are returned from sparse text segmentation.
func (e *Engine) Recognize(ctx context.Context, img image.Image, opts recognizer.Options) ([]recognizer.Line, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prep := recognizer.Prepare(img, opts)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, prep.Image, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image for tesseract: %w", err)
	}

	mode, level := gosseract.PSM_AUTO, gosseract.RIL_TEXTLINE
	if !opts.Paragraph {
		mode, level = gosseract.PSM_SPARSE_TEXT, gosseract.RIL_WORD
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil, recognizer.ErrClosed
	}
	if err := e.client.SetPageSegMode(mode); err != nil {
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := e.client.SetBlacklist(opts.Blocklist); err != nil {
		return nil, fmt.Errorf("failed to set blacklist: %w", err)
	}
	if err := e.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}
	boxes, err := e.client.GetBoundingBoxes(level)
	if err != nil {
		return nil, fmt.Errorf("tesseract recognition failed: %w", err)
	}

	lines := make([]recognizer.Line, 0, len(boxes))
	for _, b := range boxes {
		text := strings.Join(strings.Fields(b.Word), " ")
		if text == "" {
			continue
		}
		lines = append(lines, recognizer.Line{
			Text:       text,
			Confidence: b.Confidence / 100,
			Box:        prep.Unscale(recognizer.RectBox(b.Box)),
		})
	}
	return recognizer.Clean(lines, opts), nil
}

// Close releases the Tesseract client.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}
