package variants

import (
	"container/list"
	"image"
	"sort"
)

// ROI parameters.
const (
	roiComponents = 3
	roiPadRatio   = 0.12
)

// component holds the size and bounding box of one connected region.
type component struct {
	count                  int
	minX, minY, maxX, maxY int
}

func (c component) bounds() image.Rectangle {
	return image.Rect(c.minX, c.minY, c.maxX+1, c.maxY+1)
}

// RelaxedROI returns the union bounding box of the k largest dark regions
// of a binary image, padded by padRatio*max(W,H) and clipped to the image.
// Text fragmented by glare is kept together this way. The full image is
// returned when there is no dark pixel.
func RelaxedROI(bw *image.Gray, k int, padRatio float64) image.Rectangle {
	w, h := bw.Rect.Dx(), bw.Rect.Dy()
	full := image.Rect(0, 0, w, h)
	mask := make([]bool, w*h)
	for y := range h {
		for x := range w {
			mask[y*w+x] = bw.Pix[y*bw.Stride+x] == 0
		}
	}
	comps := darkComponents(mask, w, h)
	if len(comps) == 0 {
		return full
	}

	sort.SliceStable(comps, func(i, j int) bool { return comps[i].count > comps[j].count })
	k = max(k, 1)
	if len(comps) > k {
		comps = comps[:k]
	}
	box := comps[0].bounds()
	for _, c := range comps[1:] {
		box = box.Union(c.bounds())
	}

	pad := int(padRatio * float64(max(w, h)))
	return box.Inset(-pad).Intersect(full)
}

// darkComponents labels 8-connected regions of mask in raster order.
func darkComponents(mask []bool, w, h int) []component {
	visited := make([]bool, w*h)
	var comps []component
	for y := range h {
		for x := range w {
			i := y*w + x
			if mask[i] && !visited[i] {
				comps = append(comps, floodComponent(mask, visited, w, h, x, y))
			}
		}
	}
	return comps
}

func floodComponent(mask, visited []bool, w, h, startX, startY int) component {
	c := component{minX: startX, minY: startY, maxX: startX, maxY: startY}
	q := list.New()
	start := startY*w + startX
	visited[start] = true
	q.PushBack(start)

	for q.Len() > 0 {
		e := q.Front()
		q.Remove(e)
		ci, _ := e.Value.(int)
		cx, cy := ci%w, ci/w
		c.count++
		c.minX, c.maxX = min(c.minX, cx), max(c.maxX, cx)
		c.minY, c.maxY = min(c.minY, cy), max(c.maxY, cy)

		for ny := cy - 1; ny <= cy+1; ny++ {
			for nx := cx - 1; nx <= cx+1; nx++ {
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				ni := ny*w + nx
				if mask[ni] && !visited[ni] {
					visited[ni] = true
					q.PushBack(ni)
				}
			}
		}
	}
	return c
}
