package variants

import (
	"fmt"
	"image"
)

// FromBGR wraps a packed 8-bit BGR camera buffer as an opaque NRGBA image.
func FromBGR(pix []byte, width, height int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame dimensions %dx%d", width, height)
	}
	if len(pix) != width*height*3 {
		return nil, fmt.Errorf("frame buffer has %d bytes, want %d for %dx%d BGR", len(pix), width*height*3, width, height)
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i, j := 0, 0; i < len(pix); i, j = i+3, j+4 {
		img.Pix[j] = pix[i+2]
		img.Pix[j+1] = pix[i+1]
		img.Pix[j+2] = pix[i]
		img.Pix[j+3] = 0xff
	}
	return img, nil
}

// IsEmpty reports whether img is nil or has no pixels.
func IsEmpty(img image.Image) bool {
	return img == nil || img.Bounds().Empty()
}
