// Package testutil provides synthetic frames, stores and pipelines for tests.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Frame sizes used across tests.
var (
	SmallSize  = image.Pt(160, 120)
	MediumSize = image.Pt(320, 240)
	KioskSize  = image.Pt(640, 480)
)

// LabelConfig describes a synthetic product label.
type LabelConfig struct {
	Lines      []string
	Size       image.Point
	Background color.Color
	Foreground color.Color
	FontFace   font.Face
	// Rotation in degrees, counter-clockwise.
	Rotation float64
}

// DefaultLabelConfig returns dark text on a light label.
func DefaultLabelConfig() LabelConfig {
	return LabelConfig{
		Lines:      []string{"HERA", "BLACK CUSHION 17N1"},
		Size:       MediumSize,
		Background: color.RGBA{235, 232, 228, 255},
		Foreground: color.RGBA{20, 20, 20, 255},
		FontFace:   basicfont.Face7x13,
	}
}

// GenerateLabel draws the configured lines centered on the label.
func GenerateLabel(cfg LabelConfig) *image.RGBA {
	img := image.NewRGBA(image.Rectangle{Max: cfg.Size})
	draw.Draw(img, img.Bounds(), &image.Uniform{cfg.Background}, image.Point{}, draw.Src)

	drawer := &font.Drawer{Dst: img, Src: &image.Uniform{cfg.Foreground}, Face: cfg.FontFace}
	lineHeight := cfg.FontFace.Metrics().Height.Ceil()
	startY := (cfg.Size.Y - len(cfg.Lines)*lineHeight) / 2
	for i, line := range cfg.Lines {
		width := font.MeasureString(cfg.FontFace, line).Ceil()
		drawer.Dot = fixed.P((cfg.Size.X-width)/2, startY+(i+1)*lineHeight)
		drawer.DrawString(line)
	}

	if cfg.Rotation != 0 {
		rotated := imaging.Rotate(img, cfg.Rotation, cfg.Background)
		rgba := image.NewRGBA(rotated.Bounds())
		draw.Draw(rgba, rgba.Bounds(), rotated, rotated.Bounds().Min, draw.Src)
		return rgba
	}
	return img
}

// LabelFrame returns a light frame with a dark caption bar, enough for the
// variant generator to find a region of interest.
func LabelFrame() image.Image {
	img := imaging.New(MediumSize.X, MediumSize.Y, color.NRGBA{R: 230, G: 230, B: 230, A: 255})
	return imaging.Paste(img, imaging.New(120, 20, color.Black), image.Pt(60, 100))
}

// BlankFrame returns a uniform frame.
func BlankFrame(size image.Point, c color.Color) image.Image {
	return imaging.New(size.X, size.Y, c)
}

// PNG encodes img.
func PNG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// WriteImage saves img under dir and returns the path. The format follows
// the file extension.
func WriteImage(t testing.TB, dir, name string, img image.Image) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o750))
	path := filepath.Join(dir, name)
	require.NoError(t, imaging.Save(img, path))
	return path
}
