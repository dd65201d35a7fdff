package variants

import (
	"image"
	"math"
	"sort"
)

// Deskew parameters.
const (
	cannyLow       = 50
	cannyHigh      = 150
	houghThreshold = 120
	houghAngles    = 180
	maxSkewDegrees = 45.0
)

// Canny returns an edge map (0 or 255) using 3x3 Sobel gradients with an
// L1 magnitude, non-maximum suppression and hysteresis between low and high.
func Canny(g *image.Gray, low, high float64) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	dst := newGray(w, h)
	if w < 3 || h < 3 {
		return dst
	}

	dx := make([]int, w*h)
	dy := make([]int, w*h)
	mag := make([]int, w*h)
	px := func(x, y int) int {
		return int(g.Pix[clampInt(y, 0, h-1)*g.Stride+clampInt(x, 0, w-1)])
	}
	for y := range h {
		for x := range w {
			gx := px(x+1, y-1) + 2*px(x+1, y) + px(x+1, y+1) -
				px(x-1, y-1) - 2*px(x-1, y) - px(x-1, y+1)
			gy := px(x-1, y+1) + 2*px(x, y+1) + px(x+1, y+1) -
				px(x-1, y-1) - 2*px(x, y-1) - px(x+1, y-1)
			i := y*w + x
			dx[i], dy[i] = gx, gy
			mag[i] = absInt(gx) + absInt(gy)
		}
	}

	const (
		weak   = 1
		strong = 2
	)
	tan22 := math.Tan(math.Pi / 8)
	tan67 := math.Tan(3 * math.Pi / 8)
	state := make([]uint8, w*h)
	var stack []int

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			m := mag[i]
			if float64(m) <= low {
				continue
			}
			ax, ay := math.Abs(float64(dx[i])), math.Abs(float64(dy[i]))
			var keep bool
			switch {
			case ay < tan22*ax:
				keep = m > mag[i-1] && m >= mag[i+1]
			case ay > tan67*ax:
				keep = m > mag[i-w] && m >= mag[i+w]
			default:
				s := 1
				if (dx[i] < 0) != (dy[i] < 0) {
					s = -1
				}
				keep = m > mag[i-w-s] && m >= mag[i+w+s]
			}
			if !keep {
				continue
			}
			if float64(m) > high {
				state[i] = strong
				stack = append(stack, i)
			} else {
				state[i] = weak
			}
		}
	}

	// Grow strong edges through 8-connected weak pixels.
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		dst.Pix[i] = 255
		cx, cy := i%w, i/w
		for ny := cy - 1; ny <= cy+1; ny++ {
			for nx := cx - 1; nx <= cx+1; nx++ {
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				ni := ny*w + nx
				if state[ni] == weak {
					state[ni] = strong
					stack = append(stack, ni)
				}
			}
		}
	}
	return dst
}

// HoughAngles runs standard Hough line voting (1 px rho, 1 degree theta) on
// an edge map and returns the theta, in radians, of every accumulator peak
// with more than threshold votes.
func HoughAngles(edges *image.Gray, threshold int) []float64 {
	w, h := edges.Rect.Dx(), edges.Rect.Dy()
	numRho := int(math.Round(float64(w+h)*2 + 1))
	stride := numRho + 2
	acc := make([]int, (houghAngles+2)*stride)

	cosT := make([]float64, houghAngles)
	sinT := make([]float64, houghAngles)
	for n := range houghAngles {
		t := float64(n) * math.Pi / houghAngles
		cosT[n], sinT[n] = math.Cos(t), math.Sin(t)
	}

	offset := (numRho - 1) / 2
	for y := range h {
		for x := range w {
			if edges.Pix[y*edges.Stride+x] == 0 {
				continue
			}
			for n := range houghAngles {
				r := int(math.Round(float64(x)*cosT[n]+float64(y)*sinT[n])) + offset
				acc[(n+1)*stride+r+1]++
			}
		}
	}

	var thetas []float64
	for n := range houghAngles {
		for r := range numRho {
			i := (n+1)*stride + r + 1
			v := acc[i]
			if v > threshold && v > acc[i-1] && v >= acc[i+1] && v > acc[i-stride] && v >= acc[i+stride] {
				thetas = append(thetas, float64(n)*math.Pi/houghAngles)
			}
		}
	}
	return thetas
}

// SkewAngle estimates the dominant text skew in degrees. Each Hough line
// contributes theta*180/pi-90 when it lies strictly inside (-45, 45); the
// result is the median. ok is false when no line qualifies.
func SkewAngle(g *image.Gray) (angle float64, ok bool) {
	thetas := HoughAngles(Canny(g, cannyLow, cannyHigh), houghThreshold)
	angles := make([]float64, 0, len(thetas))
	for _, t := range thetas {
		a := t*180/math.Pi - 90
		if a > -maxSkewDegrees && a < maxSkewDegrees {
			angles = append(angles, a)
		}
	}
	if len(angles) == 0 {
		return 0, false
	}
	return median(angles), true
}

// Deskew rotates g by its estimated skew angle about the integer centre,
// keeping the size and replicating the border. The identity is returned
// when no usable line is found.
func Deskew(g *image.Gray) (*image.Gray, float64) {
	angle, ok := SkewAngle(g)
	if !ok || angle == 0 {
		return cropGray(g, g.Rect), 0
	}
	return Rotate(g, angle), angle
}

// Rotate turns g counter-clockwise by angle degrees about (w/2, h/2) with
// bilinear sampling and a replicated border.
func Rotate(g *image.Gray, angle float64) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	dst := newGray(w, h)
	if w == 0 || h == 0 {
		return dst
	}
	rad := angle * math.Pi / 180
	alpha, beta := math.Cos(rad), math.Sin(rad)
	cx, cy := float64(w/2), float64(h/2)

	at := func(x, y int) float64 {
		return float64(g.Pix[clampInt(y, 0, h-1)*g.Stride+clampInt(x, 0, w-1)])
	}
	for y := range h {
		ry := float64(y) - cy
		for x := range w {
			rx := float64(x) - cx
			sx := alpha*rx - beta*ry + cx
			sy := beta*rx + alpha*ry + cy
			x0, y0 := int(math.Floor(sx)), int(math.Floor(sy))
			fx, fy := sx-float64(x0), sy-float64(y0)
			top := at(x0, y0)*(1-fx) + at(x0+1, y0)*fx
			bot := at(x0, y0+1)*(1-fx) + at(x0+1, y0+1)*fx
			dst.Pix[y*w+x] = clampUint8(top*(1-fy) + bot*fy)
		}
	}
	return dst
}

// median of a non-empty slice; even lengths average the two middle values.
func median(v []float64) float64 {
	s := append([]float64(nil), v...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
