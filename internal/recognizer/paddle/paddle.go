// Package paddle runs PaddleOCR detection and recognition models through
// ONNX Runtime.
package paddle

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/shelfocr/internal/mempool"
	"github.com/MeKo-Tech/shelfocr/internal/models"
	"github.com/MeKo-Tech/shelfocr/internal/onnx"
	"github.com/MeKo-Tech/shelfocr/internal/recognizer"
)

const (
	detMultiple     = 32
	recHeight       = 48
	recWidthStep    = 8
	defaultRecWidth = 1280
	verticalAspect  = 1.5
)

// Config locates the models and tunes the sessions.
type Config struct {
	ModelsDir   string
	Detection   string
	Recognition string
	Dictionary  string
	NumThreads  int
	GPU         onnx.GPUConfig
	// MaxRecWidth caps the width of a recognition crop after resizing.
	MaxRecWidth int
}

type model interface {
	Run(onnx.Tensor) (onnx.Tensor, error)
	Close() error
}

// Engine is a two-stage DB detection plus CTC recognition engine.
type Engine struct {
	det, rec    model
	dict        *Dictionary
	maxRecWidth int
}

var _ recognizer.Recognizer = (*Engine)(nil)

// New loads the detection and recognition models and the dictionary.
func New(cfg Config) (*Engine, error) {
	paths := models.ResolvePaths(cfg.ModelsDir, cfg.Detection, cfg.Recognition, cfg.Dictionary)
	if err := paths.Validate(); err != nil {
		return nil, err
	}
	dict, err := LoadDictionary(paths.Dictionary)
	if err != nil {
		return nil, err
	}
	det, err := onnx.NewSession(onnx.SessionConfig{ModelPath: paths.Detection, NumThreads: cfg.NumThreads, GPU: cfg.GPU})
	if err != nil {
		return nil, fmt.Errorf("failed to load detection model: %w", err)
	}
	rec, err := onnx.NewSession(onnx.SessionConfig{ModelPath: paths.Recognition, NumThreads: cfg.NumThreads, GPU: cfg.GPU})
	if err != nil {
		_ = det.Close()
		return nil, fmt.Errorf("failed to load recognition model: %w", err)
	}
	return newEngine(det, rec, dict, cfg.MaxRecWidth), nil
}

func newEngine(det, rec model, dict *Dictionary, maxRecWidth int) *Engine {
	if maxRecWidth <= 0 {
		maxRecWidth = defaultRecWidth
	}
	return &Engine{det: det, rec: rec, dict: dict, maxRecWidth: maxRecWidth}
}

// Name implements recognizer.Recognizer.
func (e *Engine) Name() string { return "paddle" }

// Recognize implements recognizer.Recognizer.
func (e *Engine) Recognize(ctx context.Context, img image.Image, opts recognizer.Options) ([]recognizer.Line, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prep := recognizer.Prepare(img, opts)
	pw, ph := prep.Image.Rect.Dx(), prep.Image.Rect.Dy()
	if pw == 0 || ph == 0 {
		return nil, nil
	}

	regions, mw, mh, err := e.detect(prep.Image, opts)
	if err != nil {
		return nil, err
	}
	sx, sy := float64(pw)/float64(mw), float64(ph)/float64(mh)

	lines := make([]recognizer.Line, 0, len(regions))
	for _, r := range regions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rect := image.Rect(
			int(math.Floor(float64(r.Rect.Min.X)*sx)), int(math.Floor(float64(r.Rect.Min.Y)*sy)),
			int(math.Ceil(float64(r.Rect.Max.X)*sx)), int(math.Ceil(float64(r.Rect.Max.Y)*sy)),
		).Intersect(prep.Image.Rect)
		if rect.Empty() {
			continue
		}
		text, conf, err := e.read(imaging.Crop(prep.Image, rect))
		if err != nil {
			return nil, err
		}
		lines = append(lines, recognizer.Line{
			Text:       text,
			Confidence: conf,
			Box:        prep.Unscale(recognizer.RectBox(rect)),
		})
	}
	lines = recognizer.Clean(lines, opts)
	if opts.Paragraph {
		lines = recognizer.GroupParagraphs(lines, opts.LinkThreshold)
	}
	return lines, nil
}

// detect returns text regions and the probability map size.
func (e *Engine) detect(img *image.NRGBA, opts recognizer.Options) ([]Region, int, int, error) {
	w, h := roundTo(img.Rect.Dx(), detMultiple), roundTo(img.Rect.Dy(), detMultiple)
	in := img
	if w != img.Rect.Dx() || h != img.Rect.Dy() {
		in = imaging.Resize(img, w, h, imaging.Linear)
	}
	t, err := onnx.ImageToTensor(in, onnx.ImageNet)
	if err != nil {
		return nil, 0, 0, err
	}
	out, err := e.det.Run(t)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("detection failed: %w", err)
	}
	if len(out.Shape) < 2 {
		return nil, 0, 0, fmt.Errorf("unexpected detection output shape %v", out.Shape)
	}
	mh, mw := int(out.Shape[len(out.Shape)-2]), int(out.Shape[len(out.Shape)-1])
	if mw <= 0 || mh <= 0 || len(out.Data) < mw*mh {
		return nil, 0, 0, fmt.Errorf("unexpected detection output shape %v", out.Shape)
	}
	return Regions(out.Data[:mw*mh], mw, mh, opts.LowText, opts.TextThreshold), mw, mh, nil
}

// read recognizes a single cropped text line.
func (e *Engine) read(crop *image.NRGBA) (string, float64, error) {
	w, h := crop.Rect.Dx(), crop.Rect.Dy()
	if float64(h) > float64(w)*verticalAspect {
		crop = imaging.Rotate90(crop)
		w, h = h, w
	}
	nw := min(max(int(float64(w)*recHeight/float64(h)), 1), e.maxRecWidth)
	resized := imaging.Resize(crop, nw, recHeight, imaging.Linear)
	padded := roundUp(nw, recWidthStep)

	plane := recHeight * padded
	data := mempool.GetFloat32(3 * plane)
	defer mempool.PutFloat32(data)
	for y := range recHeight {
		for x := range nw {
			i := y*resized.Stride + x*4
			for c := range 3 {
				v := float32(resized.Pix[i+c]) / 255
				data[c*plane+y*padded+x] = (v - onnx.Symmetric.Mean[c]) / onnx.Symmetric.Std[c]
			}
		}
	}
	t, err := onnx.NewImageTensor(data, 3, recHeight, padded)
	if err != nil {
		return "", 0, err
	}
	out, err := e.rec.Run(t)
	if err != nil {
		return "", 0, fmt.Errorf("recognition failed: %w", err)
	}
	if len(out.Shape) != 3 || int(out.Shape[2]) != e.dict.Size() {
		return "", 0, fmt.Errorf("recognition output shape %v does not match dictionary size %d", out.Shape, e.dict.Size())
	}
	dec, err := DecodeGreedy(out.Data, out.Shape, 0)
	if err != nil {
		return "", 0, err
	}
	return e.dict.Decode(dec[0].Indices), dec[0].Confidence(), nil
}

// Close releases both sessions.
func (e *Engine) Close() error {
	return errors.Join(e.det.Close(), e.rec.Close())
}

func roundTo(v, m int) int {
	return max(m, int(math.Round(float64(v)/float64(m)))*m)
}

func roundUp(v, m int) int {
	return (v + m - 1) / m * m
}
