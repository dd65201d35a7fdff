package utils

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSupportedImage(t *testing.T) {
	cases := []struct {
		path string
		ok   bool
	}{
		{"a.jpg", true},
		{"b.JPEG", true},
		{"c.png", true},
		{"d.bmp", true},
		{"e.webp", true},
		{"f.tiff", false},
		{"g.gif", false},
	}
	for _, c := range cases {
		if IsSupportedImage(c.path) != c.ok {
			t.Fatalf("IsSupportedImage(%s) expected %v", c.path, c.ok)
		}
	}
}

func writeTempPNG(t *testing.T, dir string, w, h int, col color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, col)
		}
	}
	path := filepath.Join(dir, "test.png")
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func TestLoadImageAndMetadata(t *testing.T) {
	p := writeTempPNG(t, t.TempDir(), 10, 20, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	img, meta, err := LoadImage(p)
	require.NoError(t, err)
	require.NotNil(t, img)
	assert.Equal(t, "png", meta.Format)
	assert.Equal(t, 10, meta.Width)
	assert.Equal(t, 20, meta.Height)
	assert.Positive(t, meta.SizeBytes)
	assert.Equal(t, p, meta.Path)
}

func TestLoadImage_Errors(t *testing.T) {
	_, _, err := LoadImage("")
	var ie *ImageError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "load", ie.Operation)

	_, _, err = LoadImage("frame.gif")
	assert.ErrorContains(t, err, "unsupported format")

	_, _, err = LoadImage(filepath.Join(t.TempDir(), "missing.png"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestDecodeImage_Garbage(t *testing.T) {
	_, _, err := DecodeImage(strings.NewReader("not an image"))
	var ie *ImageError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "decode", ie.Operation)
}

func TestEncodeAndSave(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	var buf bytes.Buffer
	require.NoError(t, EncodeImage(&buf, img, "jpg"))
	assert.NotZero(t, buf.Len())
	assert.Error(t, EncodeImage(&buf, img, "tiff"))

	path := filepath.Join(t.TempDir(), "out.png")
	require.NoError(t, SaveImage(path, img))
	_, meta, err := LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, 4, meta.Width)
}

func TestFitFrame(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 20, 10))
	src.Set(0, 0, color.RGBA{R: 255, A: 255})

	out := FitFrame(src, 0, 0, true)
	assert.Equal(t, image.Rect(0, 0, 20, 10), out.Bounds())
	r, _, _, _ := out.At(19, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r, "mirrored pixel moves to the right edge")

	out = FitFrame(src, 64, 48, false)
	assert.Equal(t, image.Rect(0, 0, 64, 48), out.Bounds())
}

func TestDrawRectAndPolygon(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 20, 10))
	DrawRect(img, image.Rect(2, 2, 10, 8), color.RGBA{G: 255, A: 255}, 1)
	assert.NotEqual(t, color.RGBA{}, img.RGBAAt(2, 2))

	poly := []image.Point{{12, 2}, {18, 2}, {18, 8}, {12, 8}}
	DrawPolygon(img, poly, color.RGBA{B: 255, A: 255}, 1)
	assert.Equal(t, color.RGBA{B: 255, A: 255}, img.RGBAAt(12, 2))
	assert.Equal(t, color.RGBA{B: 255, A: 255}, img.RGBAAt(15, 8))
}

func TestDrawLabel(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 60, 20))
	DrawLabel(img, image.Pt(2, 14), "clahe", color.White, color.RGBA{R: 200, A: 255})
	assert.Equal(t, color.RGBA{R: 200, A: 255}, img.RGBAAt(2, 14))

	white := 0
	for y := range 20 {
		for x := range 60 {
			if img.RGBAAt(x, y) == (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
				white++
			}
		}
	}
	assert.Positive(t, white)
}

func TestToRGBA(t *testing.T) {
	src := image.NewGray(image.Rect(5, 5, 9, 8))
	out := ToRGBA(src)
	assert.Equal(t, image.Rect(0, 0, 4, 3), out.Bounds())
}
