package variants

import (
	"image"
	"math"
)

const histBins = 256

// CLAHE performs contrast limited adaptive histogram equalization over a
// tilesX x tilesY grid. clipLimit is relative to a uniform histogram; each
// tile's equalization LUT is blended bilinearly between tile centres.
func CLAHE(g *image.Gray, clipLimit float64, tilesX, tilesY int) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	dst := newGray(w, h)
	if w == 0 || h == 0 {
		return dst
	}
	tilesX = clampInt(tilesX, 1, w)
	tilesY = clampInt(tilesY, 1, h)
	tileW := (w + tilesX - 1) / tilesX
	tileH := (h + tilesY - 1) / tilesY
	// Rounding the tile size up can leave trailing tiles without pixels.
	tilesX = (w + tileW - 1) / tileW
	tilesY = (h + tileH - 1) / tileH

	luts := make([][histBins]uint8, tilesX*tilesY)
	for ty := range tilesY {
		for tx := range tilesX {
			r := image.Rect(tx*tileW, ty*tileH, min((tx+1)*tileW, w), min((ty+1)*tileH, h))
			luts[ty*tilesX+tx] = tileLUT(g, r, clipLimit)
		}
	}

	invW, invH := 1/float64(tileW), 1/float64(tileH)
	for y := range h {
		tyf := float64(y)*invH - 0.5
		ty1 := int(math.Floor(tyf))
		ya := tyf - float64(ty1)
		ty2 := min(ty1+1, tilesY-1)
		ty1 = max(ty1, 0)
		for x := range w {
			txf := float64(x)*invW - 0.5
			tx1 := int(math.Floor(txf))
			xa := txf - float64(tx1)
			tx2 := min(tx1+1, tilesX-1)
			tx1 = max(tx1, 0)

			v := g.Pix[y*w+x]
			top := float64(luts[ty1*tilesX+tx1][v])*(1-xa) + float64(luts[ty1*tilesX+tx2][v])*xa
			bot := float64(luts[ty2*tilesX+tx1][v])*(1-xa) + float64(luts[ty2*tilesX+tx2][v])*xa
			dst.Pix[y*w+x] = clampUint8(top*(1-ya) + bot*ya)
		}
	}
	return dst
}

// tileLUT builds the clipped equalization table of one tile.
func tileLUT(g *image.Gray, r image.Rectangle, clipLimit float64) [histBins]uint8 {
	var hist [histBins]int
	total := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			hist[g.Pix[y*g.Stride+x]]++
			total++
		}
	}

	var lut [histBins]uint8
	if total == 0 {
		return lut
	}

	if clipLimit > 0 {
		limit := max(int(clipLimit*float64(total)/histBins), 1)
		clipped := 0
		for i := range hist {
			if hist[i] > limit {
				clipped += hist[i] - limit
				hist[i] = limit
			}
		}
		batch := clipped / histBins
		residual := clipped - batch*histBins
		for i := range hist {
			hist[i] += batch
		}
		if residual > 0 {
			step := max(histBins/residual, 1)
			for i := 0; i < histBins && residual > 0; i += step {
				hist[i]++
				residual--
			}
		}
	}

	scale := float64(histBins-1) / float64(total)
	sum := 0
	for i := range hist {
		sum += hist[i]
		lut[i] = clampUint8(float64(sum) * scale)
	}
	return lut
}
