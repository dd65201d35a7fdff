// Package utils holds image decoding, encoding and drawing helpers shared by
// the CLI, the server and the debug writer.
package utils

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// SupportedImageExtensions lists the file extensions accepted as frames.
var SupportedImageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".webp"}

// MaxFrameSide rejects decoded frames larger than this on either side.
const MaxFrameSide = 8192

// ImageError wraps a failure in one image operation.
type ImageError struct {
	Operation string
	Err       error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageError) Unwrap() error { return e.Err }

// IsSupportedImage reports whether the path has a supported image extension.
func IsSupportedImage(path string) bool {
	return slices.Contains(SupportedImageExtensions, strings.ToLower(filepath.Ext(path)))
}

// ImageMetadata captures lightweight file and pixel information.
type ImageMetadata struct {
	Path      string `json:"path,omitempty"`
	Format    string `json:"format"`
	SizeBytes int64  `json:"size_bytes"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// LoadImage opens and decodes an image file.
func LoadImage(path string) (image.Image, ImageMetadata, error) {
	if path == "" {
		return nil, ImageMetadata{}, &ImageError{Operation: "load", Err: errors.New("empty path")}
	}
	if !IsSupportedImage(path) {
		return nil, ImageMetadata{}, &ImageError{Operation: "load", Err: fmt.Errorf("unsupported format: %s", filepath.Ext(path))}
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: frame paths come from the operator
	if err != nil {
		return nil, ImageMetadata{}, &ImageError{Operation: "load", Err: err}
	}
	img, meta, err := DecodeImage(bytes.NewReader(data))
	if err != nil {
		return nil, ImageMetadata{}, err
	}
	meta.Path = path
	meta.SizeBytes = int64(len(data))
	return img, meta, nil
}

// DecodeImage decodes any registered format and checks the frame size.
func DecodeImage(r io.Reader) (image.Image, ImageMetadata, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, ImageMetadata{}, &ImageError{Operation: "decode", Err: err}
	}
	b := img.Bounds()
	if b.Dx() > MaxFrameSide || b.Dy() > MaxFrameSide {
		return nil, ImageMetadata{}, &ImageError{
			Operation: "decode",
			Err:       fmt.Errorf("image too large: %dx%d exceeds %d", b.Dx(), b.Dy(), MaxFrameSide),
		}
	}
	return img, ImageMetadata{Format: format, Width: b.Dx(), Height: b.Dy()}, nil
}

// EncodeImage writes img as png or jpeg.
func EncodeImage(w io.Writer, img image.Image, format string) error {
	switch strings.ToLower(format) {
	case "png", "":
		return png.Encode(w, img)
	case "jpg", "jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	default:
		return &ImageError{Operation: "encode", Err: fmt.Errorf("unsupported format: %s", format)}
	}
}

// SaveImage encodes img into path using the format implied by the extension.
func SaveImage(path string, img image.Image) error {
	f, err := os.Create(path) //nolint:gosec // G304: debug output path
	if err != nil {
		return &ImageError{Operation: "save", Err: err}
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if err := EncodeImage(f, img, format); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
