// Package vision adapts Google Cloud Vision text detection to
// recognizer.Recognizer.
package vision

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"

	gvision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/shelfocr/internal/recognizer"
)

// DefaultLanguageHints biases detection toward Korean and English.
var DefaultLanguageHints = []string{"ko", "en"}

type annotator interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error)
	Close() error
}

type clientAnnotator struct {
	client *gvision.ImageAnnotatorClient
}

func (c clientAnnotator) BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
	return c.client.BatchAnnotateImages(ctx, req)
}

func (c clientAnnotator) Close() error { return c.client.Close() }

// Engine calls the Vision API. Credentials come from Application Default
// Credentials.
type Engine struct {
	api   annotator
	hints []string
}

var _ recognizer.Recognizer = (*Engine)(nil)

// New creates a Vision API client.
func New(ctx context.Context, languageHints []string) (*Engine, error) {
	client, err := gvision.NewImageAnnotatorClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}
	return newEngine(clientAnnotator{client: client}, languageHints), nil
}

func newEngine(api annotator, hints []string) *Engine {
	if len(hints) == 0 {
		hints = DefaultLanguageHints
	}
	return &Engine{api: api, hints: hints}
}

// Name implements recognizer.Recognizer.
func (e *Engine) Name() string { return "vision" }

// Close releases the API client.
func (e *Engine) Close() error { return e.api.Close() }

// Recognize implements recognizer.Recognizer. Paragraph mode returns one
// line per detected paragraph, otherwise one line per word.
func (e *Engine) Recognize(ctx context.Context, img image.Image, opts recognizer.Options) ([]recognizer.Line, error) {
	prep := recognizer.Prepare(img, opts)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, prep.Image, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image for vision: %w", err)
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image:        &visionpb.Image{Content: buf.Bytes()},
				Features:     []*visionpb.Feature{{Type: visionpb.Feature_TEXT_DETECTION}},
				ImageContext: &visionpb.ImageContext{LanguageHints: e.hints},
			},
		},
	}
	resp, err := e.api.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("vision API request failed: %w", err)
	}
	if len(resp.GetResponses()) == 0 {
		return nil, nil
	}
	r := resp.GetResponses()[0]
	if r.GetError() != nil {
		return nil, fmt.Errorf("vision API error: %s", r.GetError().GetMessage())
	}

	lines := collectLines(r.GetFullTextAnnotation(), opts.Paragraph)
	for i := range lines {
		lines[i].Box = prep.Unscale(lines[i].Box)
	}
	return recognizer.Clean(lines, opts), nil
}

func collectLines(doc *visionpb.TextAnnotation, paragraph bool) []recognizer.Line {
	var lines []recognizer.Line
	for _, page := range doc.GetPages() {
		for _, block := range page.GetBlocks() {
			for _, para := range block.GetParagraphs() {
				if paragraph {
					var sb strings.Builder
					for _, w := range para.GetWords() {
						writeWord(&sb, w)
					}
					lines = append(lines, recognizer.Line{
						Text:       strings.TrimSpace(sb.String()),
						Confidence: float64(para.GetConfidence()),
						Box:        polyPoints(para.GetBoundingBox()),
					})
					continue
				}
				for _, w := range para.GetWords() {
					var sb strings.Builder
					writeWord(&sb, w)
					lines = append(lines, recognizer.Line{
						Text:       strings.TrimSpace(sb.String()),
						Confidence: float64(w.GetConfidence()),
						Box:        polyPoints(w.GetBoundingBox()),
					})
				}
			}
		}
	}
	return lines
}

// writeWord appends the symbols of w followed by any detected break.
func writeWord(sb *strings.Builder, w *visionpb.Word) {
	for _, s := range w.GetSymbols() {
		sb.WriteString(s.GetText())
		switch s.GetProperty().GetDetectedBreak().GetType() {
		case visionpb.TextAnnotation_DetectedBreak_SPACE,
			visionpb.TextAnnotation_DetectedBreak_SURE_SPACE,
			visionpb.TextAnnotation_DetectedBreak_EOL_SURE_SPACE,
			visionpb.TextAnnotation_DetectedBreak_LINE_BREAK:
			sb.WriteByte(' ')
		}
	}
}

func polyPoints(p *visionpb.BoundingPoly) []image.Point {
	vs := p.GetVertices()
	if len(vs) == 0 {
		return nil
	}
	pts := make([]image.Point, len(vs))
	for i, v := range vs {
		pts[i] = image.Pt(int(v.GetX()), int(v.GetY()))
	}
	return pts
}
