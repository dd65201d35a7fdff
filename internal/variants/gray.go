package variants

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// newGray allocates a zero-origin gray image so Pix can be indexed as y*w+x.
func newGray(w, h int) *image.Gray {
	return image.NewGray(image.Rect(0, 0, w, h))
}

// Grayscale converts any image to an 8-bit luma plane using the BT.601
// weights (0.299, 0.587, 0.114).
func Grayscale(img image.Image) *image.Gray {
	src := imaging.Clone(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := newGray(w, h)
	for y := range h {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		out := dst.Pix[y*w : y*w+w]
		for x := range w {
			r, g, b := uint32(row[x*4]), uint32(row[x*4+1]), uint32(row[x*4+2])
			out[x] = uint8((19595*r + 38470*g + 7471*b + 1<<15) >> 16)
		}
	}
	return dst
}

// grayToNRGBA expands a gray plane into an opaque color image.
func grayToNRGBA(g *image.Gray) *image.NRGBA {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			v := g.Pix[g.PixOffset(g.Rect.Min.X+x, g.Rect.Min.Y+y)]
			i := y*dst.Stride + x*4
			dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2], dst.Pix[i+3] = v, v, v, 0xff
		}
	}
	return dst
}

// cropGray copies r out of g into a new zero-origin plane.
func cropGray(g *image.Gray, r image.Rectangle) *image.Gray {
	r = r.Intersect(g.Rect)
	dst := newGray(r.Dx(), r.Dy())
	for y := 0; y < r.Dy(); y++ {
		srcOff := g.PixOffset(r.Min.X, r.Min.Y+y)
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+r.Dx()], g.Pix[srcOff:srcOff+r.Dx()])
	}
	return dst
}

// subtractSaturate returns max(a-b, 0) per pixel.
func subtractSaturate(a, b *image.Gray) *image.Gray {
	dst := newGray(a.Rect.Dx(), a.Rect.Dy())
	for i := range dst.Pix {
		if a.Pix[i] > b.Pix[i] {
			dst.Pix[i] = a.Pix[i] - b.Pix[i]
		}
	}
	return dst
}

// NormalizeMinMax stretches the plane linearly to the full 0..255 range.
// A constant plane becomes all zero.
func NormalizeMinMax(g *image.Gray) *image.Gray {
	lo, hi := uint8(255), uint8(0)
	for _, v := range g.Pix {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	dst := newGray(g.Rect.Dx(), g.Rect.Dy())
	if hi == lo {
		return dst
	}
	scale := 255.0 / float64(hi-lo)
	for i, v := range g.Pix {
		dst.Pix[i] = clampUint8(float64(v-lo) * scale)
	}
	return dst
}

// invert returns 255-v per pixel.
func invert(g *image.Gray) *image.Gray {
	dst := newGray(g.Rect.Dx(), g.Rect.Dy())
	for i, v := range g.Pix {
		dst.Pix[i] = 255 - v
	}
	return dst
}

func clampUint8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(math.Round(v))
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// mapLuma applies fn to the Y channel of every pixel in YCbCr space and
// converts back, leaving chroma untouched.
func mapLuma(img *image.NRGBA, fn func(*image.Gray) *image.Gray) *image.NRGBA {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	y := newGray(w, h)
	cb := make([]uint8, w*h)
	cr := make([]uint8, w*h)
	for py := range h {
		for px := range w {
			i := img.PixOffset(img.Rect.Min.X+px, img.Rect.Min.Y+py)
			yy, b, r := color.RGBToYCbCr(img.Pix[i], img.Pix[i+1], img.Pix[i+2])
			y.Pix[py*w+px], cb[py*w+px], cr[py*w+px] = yy, b, r
		}
	}
	y2 := fn(y)
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range y2.Pix {
		r, g, b := color.YCbCrToRGB(y2.Pix[i], cb[i], cr[i])
		dst.Pix[i*4], dst.Pix[i*4+1], dst.Pix[i*4+2], dst.Pix[i*4+3] = r, g, b, 0xff
	}
	return dst
}
