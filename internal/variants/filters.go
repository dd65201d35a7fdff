package variants

import (
	"image"
	"math"
)

// gaussianKernel returns a normalized 1-D kernel. A non-positive sigma is
// derived from the size as 0.3*((ksize-1)*0.5-1)+0.8.
func gaussianKernel(ksize int, sigma float64) []float64 {
	if sigma <= 0 {
		sigma = 0.3*((float64(ksize)-1)*0.5-1) + 0.8
	}
	k := make([]float64, ksize)
	half := ksize / 2
	sum := 0.0
	for i := range k {
		d := float64(i - half)
		k[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// gaussianBlur smooths the plane with a separable kernel, replicating edge
// pixels. The result stays in float to avoid double rounding.
func gaussianBlur(g *image.Gray, ksize int, sigma float64) []float64 {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	k := gaussianKernel(ksize, sigma)
	half := ksize / 2

	tmp := make([]float64, w*h)
	for y := range h {
		for x := range w {
			acc := 0.0
			for i, kv := range k {
				sx := clampInt(x+i-half, 0, w-1)
				acc += kv * float64(g.Pix[y*g.Stride+sx])
			}
			tmp[y*w+x] = acc
		}
	}
	out := make([]float64, w*h)
	for y := range h {
		for x := range w {
			acc := 0.0
			for i, kv := range k {
				sy := clampInt(y+i-half, 0, h-1)
				acc += kv * tmp[sy*w+x]
			}
			out[y*w+x] = acc
		}
	}
	return out
}

// AdaptiveThreshold binarizes with a Gaussian weighted local mean: a pixel
// becomes 255 when it is brighter than mean-c over a block x block window.
func AdaptiveThreshold(g *image.Gray, block int, c float64) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	dst := newGray(w, h)
	if w == 0 || h == 0 {
		return dst
	}
	if block%2 == 0 {
		block++
	}
	mean := gaussianBlur(g, block, 0)
	for i := range dst.Pix {
		if float64(g.Pix[i]) > math.Round(mean[i])-c {
			dst.Pix[i] = 255
		}
	}
	return dst
}

// Bilateral applies an edge-preserving filter over a circular neighbourhood
// of diameter d. Weights fall off with both spatial distance (sigmaSpace)
// and intensity difference (sigmaColor).
func Bilateral(g *image.Gray, d int, sigmaColor, sigmaSpace float64) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	dst := newGray(w, h)
	radius := d / 2
	if radius < 1 || w == 0 || h == 0 {
		copy(dst.Pix, g.Pix)
		return dst
	}

	var colorW [256]float64
	for i := range colorW {
		colorW[i] = math.Exp(-float64(i*i) / (2 * sigmaColor * sigmaColor))
	}
	type tap struct {
		dx, dy int
		w      float64
	}
	var taps []tap
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			r2 := dx*dx + dy*dy
			if r2 > radius*radius {
				continue
			}
			taps = append(taps, tap{dx, dy, math.Exp(-float64(r2) / (2 * sigmaSpace * sigmaSpace))})
		}
	}

	for y := range h {
		for x := range w {
			center := int(g.Pix[y*w+x])
			sum, norm := 0.0, 0.0
			for _, t := range taps {
				sx := clampInt(x+t.dx, 0, w-1)
				sy := clampInt(y+t.dy, 0, h-1)
				v := int(g.Pix[sy*w+sx])
				diff := v - center
				if diff < 0 {
					diff = -diff
				}
				wt := t.w * colorW[diff]
				sum += wt * float64(v)
				norm += wt
			}
			dst.Pix[y*w+x] = clampUint8(sum / norm)
		}
	}
	return dst
}
