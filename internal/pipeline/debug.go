package pipeline

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/MeKo-Tech/shelfocr/internal/recognizer"
	"github.com/MeKo-Tech/shelfocr/internal/utils"
	"github.com/MeKo-Tech/shelfocr/internal/variants"
)

// DebugReportFile is written into every debug run directory.
const DebugReportFile = "ocr_debug.json"

var (
	boxColor   = color.RGBA{R: 0, G: 220, B: 0, A: 255}
	labelColor = color.RGBA{R: 0, G: 0, B: 0, A: 200}
)

// debugRun owns one <root>/<timestamp>-<uuid>/ directory.
type debugRun struct {
	id     string
	dir    string
	format string
}

func newDebugRun(root, format string, now time.Time) (*debugRun, error) {
	if format == "jpeg" {
		format = "jpg"
	}
	id := uuid.NewString()
	dir := filepath.Join(root, now.Format("20060102_150405")+"-"+id)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create debug dir: %w", err)
	}
	return &debugRun{id: id, dir: dir, format: format}, nil
}

// overlay draws the primary pass boxes over the variant image and saves it.
func (d *debugRun) overlay(v variants.Variant, lines []recognizer.Line) (string, error) {
	dst := RenderOverlay(v.Image, v.ID, lines)
	path := filepath.Join(d.dir, fmt.Sprintf("%s_overlay.%s", v.ID, d.format))
	if err := utils.SaveImage(path, dst); err != nil {
		return "", err
	}
	return path, nil
}

func (d *debugRun) writeReport(res *Result) error {
	data, err := json.MarshalIndent(struct {
		Best    any                 `json:"best"`
		Raw     []recognizer.Result `json:"raw"`
		Overlay []string            `json:"overlays"`
		Match   *Result             `json:"match"`
	}{
		Best:    res.Selection.Best,
		Raw:     res.Diagnostics.PerVariantLines,
		Overlay: res.Diagnostics.OverlayPaths,
		Match:   res,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(d.dir, DebugReportFile), data, 0o600)
}

// RenderOverlay returns an RGBA copy of img with each line box outlined,
// its confidence above the box and the label in the top-left corner.
func RenderOverlay(img image.Image, label string, lines []recognizer.Line) *image.RGBA {
	dst := utils.ToRGBA(img)
	offset := img.Bounds().Min
	for _, l := range lines {
		if len(l.Box) == 0 {
			continue
		}
		pts := make([]image.Point, len(l.Box))
		for i, p := range l.Box {
			pts[i] = p.Sub(offset)
		}
		utils.DrawPolygon(dst, pts, boxColor, 2)
		top := recognizer.BoxBounds(pts).Min
		utils.DrawLabel(dst, image.Pt(top.X, max(top.Y-2, 11)), fmt.Sprintf("%.2f", l.Confidence), color.White, labelColor)
	}
	if label != "" {
		utils.DrawLabel(dst, image.Pt(2, 13), label, color.White, labelColor)
	}
	return dst
}
