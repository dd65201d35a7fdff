package paddle

import (
	"container/list"
	"image"
	"sort"

	"github.com/MeKo-Tech/shelfocr/internal/mempool"
)

const (
	unclipRatio = 1.5
	minBoxSide  = 3
)

// Region is a detected text box in probability-map coordinates.
type Region struct {
	Rect  image.Rectangle
	Score float64
}

type blob struct {
	count int
	sum   float64
	rect  image.Rectangle
}

// Regions runs DB post-processing on a w×h probability map. Pixels at or
// above lowText form 4-connected components; components whose mean
// probability reaches textThreshold are expanded by the DB unclip distance
// and returned in reading order.
func Regions(prob []float32, w, h int, lowText, textThreshold float64) []Region {
	if w <= 0 || h <= 0 || len(prob) != w*h {
		return nil
	}
	mask := mempool.GetBool(w * h)
	defer mempool.PutBool(mask)
	for i, p := range prob {
		mask[i] = float64(p) >= lowText
	}

	bounds := image.Rect(0, 0, w, h)
	var out []Region
	for i := range mask {
		if !mask[i] {
			continue
		}
		b := fill(mask, prob, w, h, i)
		score := b.sum / float64(b.count)
		if score < textThreshold || min(b.rect.Dx(), b.rect.Dy()) < minBoxSide {
			continue
		}
		out = append(out, Region{Rect: unclip(b.rect).Intersect(bounds), Score: score})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rect.Min.Y != out[j].Rect.Min.Y {
			return out[i].Rect.Min.Y < out[j].Rect.Min.Y
		}
		return out[i].Rect.Min.X < out[j].Rect.Min.X
	})
	return out
}

// fill consumes the component containing start from mask.
func fill(mask []bool, prob []float32, w, h, start int) blob {
	x0, y0 := start%w, start/w
	b := blob{rect: image.Rect(x0, y0, x0+1, y0+1)}
	q := list.New()
	q.PushBack(start)
	mask[start] = false
	for q.Len() > 0 {
		e := q.Front()
		q.Remove(e)
		i := e.Value.(int)
		x, y := i%w, i/w
		b.count++
		b.sum += float64(prob[i])
		b.rect = b.rect.Union(image.Rect(x, y, x+1, y+1))
		for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			nx, ny := x+d[0], y+d[1]
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			if ni := ny*w + nx; mask[ni] {
				mask[ni] = false
				q.PushBack(ni)
			}
		}
	}
	return b
}

// unclip grows r by area·ratio/perimeter on every side.
func unclip(r image.Rectangle) image.Rectangle {
	area := float64(r.Dx() * r.Dy())
	perimeter := float64(2 * (r.Dx() + r.Dy()))
	d := int(area * unclipRatio / perimeter)
	return r.Inset(-d)
}
