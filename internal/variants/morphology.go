package variants

import "image"

// Morphology with rectangular structuring elements. A rectangle is separable,
// so each operation runs as a horizontal pass followed by a vertical pass.
// Pixels outside the image never take part in the min/max.

// Erode returns the per-pixel minimum over a kw x kh window.
func Erode(g *image.Gray, kw, kh int) *image.Gray {
	return rectFilter(g, kw, kh, func(a, b uint8) uint8 { return min(a, b) })
}

// Dilate returns the per-pixel maximum over a kw x kh window.
func Dilate(g *image.Gray, kw, kh int) *image.Gray {
	return rectFilter(g, kw, kh, func(a, b uint8) uint8 { return max(a, b) })
}

// Open is erosion followed by dilation; it removes bright detail smaller
// than the kernel.
func Open(g *image.Gray, kw, kh int) *image.Gray {
	return Dilate(Erode(g, kw, kh), kw, kh)
}

// Close is dilation followed by erosion; it fills dark gaps smaller than
// the kernel.
func Close(g *image.Gray, kw, kh int) *image.Gray {
	return Erode(Dilate(g, kw, kh), kw, kh)
}

// TopHat returns the source minus its opening.
func TopHat(g *image.Gray, kw, kh int) *image.Gray {
	return subtractSaturate(g, Open(g, kw, kh))
}

func rectFilter(g *image.Gray, kw, kh int, pick func(a, b uint8) uint8) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	if w == 0 || h == 0 {
		return newGray(w, h)
	}
	tmp := newGray(w, h)
	for y := range h {
		row := g.Pix[y*g.Stride : y*g.Stride+w]
		windowPass(row, tmp.Pix[y*w:y*w+w], kw, pick)
	}
	dst := newGray(w, h)
	col := make([]uint8, h)
	out := make([]uint8, h)
	for x := range w {
		for y := range h {
			col[y] = tmp.Pix[y*w+x]
		}
		windowPass(col, out, kh, pick)
		for y := range h {
			dst.Pix[y*w+x] = out[y]
		}
	}
	return dst
}

// windowPass reduces src over windows of size k anchored at k/2, the
// anchor convention used for rectangular kernels, so even sizes extend one
// pixel further to the left.
func windowPass(src, dst []uint8, k int, pick func(a, b uint8) uint8) {
	n := len(src)
	if k <= 1 {
		copy(dst, src)
		return
	}
	anchor := k / 2
	for i := range n {
		lo := max(i-anchor, 0)
		hi := min(i-anchor+k-1, n-1)
		v := src[lo]
		for j := lo + 1; j <= hi; j++ {
			v = pick(v, src[j])
		}
		dst[i] = v
	}
}
