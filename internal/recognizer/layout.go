package recognizer

import (
	"image"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
)

// Prepared is an engine input derived from a variant by Prepare.
type Prepared struct {
	Image *image.NRGBA
	// Scale maps prepared coordinates back to the source: src = p / Scale.
	Scale float64
}

// Prepare magnifies img by opts.MagRatio, keeping the longer side within
// opts.CanvasSize, and stretches its contrast by opts.AdjustContrast when
// the luma spread is below opts.ContrastThreshold.
func Prepare(img image.Image, opts Options) Prepared {
	src := imaging.Clone(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if w == 0 || h == 0 {
		return Prepared{Image: src, Scale: 1}
	}

	scale := opts.MagRatio
	if scale <= 0 {
		scale = 1
	}
	if opts.CanvasSize > 0 {
		if long := float64(max(w, h)) * scale; long > float64(opts.CanvasSize) {
			scale = float64(opts.CanvasSize) / float64(max(w, h))
		}
	}
	out := src
	if scale != 1 {
		nw, nh := max(int(float64(w)*scale), 1), max(int(float64(h)*scale), 1)
		out = imaging.Resize(src, nw, nh, imaging.Lanczos)
		scale = float64(nw) / float64(w)
	}

	if opts.AdjustContrast > 0 && lumaSpread(out) < opts.ContrastThreshold {
		out = imaging.AdjustContrast(out, opts.AdjustContrast*100)
	}
	return Prepared{Image: out, Scale: scale}
}

// Unscale maps a box from prepared to source coordinates.
func (p Prepared) Unscale(box []image.Point) []image.Point {
	if p.Scale == 1 || p.Scale == 0 {
		return box
	}
	out := make([]image.Point, len(box))
	for i, pt := range box {
		out[i] = image.Pt(int(float64(pt.X)/p.Scale), int(float64(pt.Y)/p.Scale))
	}
	return out
}

// lumaSpread returns (p90-p10)/255 of the luma histogram.
func lumaSpread(img *image.NRGBA) float64 {
	var hist [256]int
	n := 0
	for i := 0; i+3 < len(img.Pix); i += 4 {
		r, g, b := int(img.Pix[i]), int(img.Pix[i+1]), int(img.Pix[i+2])
		hist[(299*r+587*g+114*b)/1000]++
		n++
	}
	if n == 0 {
		return 0
	}
	lo, hi := percentile(hist, n, 0.10), percentile(hist, n, 0.90)
	return float64(hi-lo) / 255
}

func percentile(hist [256]int, n int, q float64) int {
	target := int(q * float64(n))
	acc := 0
	for v, c := range hist {
		acc += c
		if acc > target {
			return v
		}
	}
	return 255
}

// RectBox returns the four corners of r clockwise from the top left.
func RectBox(r image.Rectangle) []image.Point {
	return []image.Point{r.Min, {r.Max.X, r.Min.Y}, r.Max, {r.Min.X, r.Max.Y}}
}

// BoxBounds returns the bounding rectangle of a polygon.
func BoxBounds(box []image.Point) image.Rectangle {
	if len(box) == 0 {
		return image.Rectangle{}
	}
	r := image.Rectangle{Min: box[0], Max: box[0]}
	for _, p := range box[1:] {
		r.Min.X, r.Min.Y = min(r.Min.X, p.X), min(r.Min.Y, p.Y)
		r.Max.X, r.Max.Y = max(r.Max.X, p.X), max(r.Max.Y, p.Y)
	}
	return r
}

// GroupParagraphs merges lines whose boxes share a text row into a single
// line read left to right. Two lines share a row when their vertical
// overlap exceeds (1-link) of the shorter height. Lines without a box are
// kept as they are. Merged confidence is the mean of the parts.
func GroupParagraphs(lines []Line, link float64) []Line {
	type item struct {
		line Line
		r    image.Rectangle
	}
	var boxed []item
	var out []Line
	for _, l := range lines {
		if len(l.Box) == 0 {
			out = append(out, l)
			continue
		}
		boxed = append(boxed, item{l, BoxBounds(l.Box)})
	}
	if len(boxed) == 0 {
		return out
	}
	sort.SliceStable(boxed, func(i, j int) bool { return boxed[i].r.Min.Y < boxed[j].r.Min.Y })

	var rows [][]item
	for _, it := range boxed {
		placed := false
		for ri, row := range rows {
			if sameRow(row[0].r, it.r, link) {
				rows[ri] = append(row, it)
				placed = true
				break
			}
		}
		if !placed {
			rows = append(rows, []item{it})
		}
	}

	for _, row := range rows {
		sort.SliceStable(row, func(i, j int) bool { return row[i].r.Min.X < row[j].r.Min.X })
		texts := make([]string, 0, len(row))
		var conf float64
		bounds := row[0].r
		for _, it := range row {
			texts = append(texts, it.line.Text)
			conf += it.line.Confidence
			bounds = bounds.Union(it.r)
		}
		out = append(out, Line{
			Text:       strings.Join(texts, " "),
			Confidence: conf / float64(len(row)),
			Box:        RectBox(bounds),
		})
	}
	return out
}

func sameRow(a, b image.Rectangle, link float64) bool {
	overlap := min(a.Max.Y, b.Max.Y) - max(a.Min.Y, b.Min.Y)
	shorter := min(a.Dy(), b.Dy())
	if shorter <= 0 {
		return false
	}
	return float64(overlap) > (1-link)*float64(shorter)
}
