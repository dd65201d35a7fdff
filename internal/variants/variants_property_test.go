package variants

import (
	"image"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func patternGray(w, h, seed int) *image.Gray {
	g := newGray(w, h)
	for i := range g.Pix {
		g.Pix[i] = uint8((i*31 + seed*17 + (i/w)*7) % 256)
	}
	return g
}

// TestRelaxedROI_WithinBounds verifies the ROI never leaves the image.
func TestRelaxedROI_WithinBounds(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("roi is a non-empty subrectangle of the image", prop.ForAll(
		func(w, h, seed, k int) bool {
			bw := AdaptiveThreshold(patternGray(w, h, seed), 35, 7)
			roi := RelaxedROI(bw, k, 0.12)
			return !roi.Empty() && roi.In(bw.Rect)
		},
		gen.IntRange(1, 60),
		gen.IntRange(1, 60),
		gen.IntRange(0, 100),
		gen.IntRange(0, 5),
	))

	properties.TestingRun(t)
}

// TestMorphology_Ordering verifies erode <= source <= dilate per pixel.
func TestMorphology_Ordering(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("erosion never brightens and dilation never darkens", prop.ForAll(
		func(w, h, k, seed int) bool {
			g := patternGray(w, h, seed)
			e, d := Erode(g, k, k), Dilate(g, k, k)
			for i := range g.Pix {
				if e.Pix[i] > g.Pix[i] || d.Pix[i] < g.Pix[i] {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 40),
		gen.IntRange(1, 40),
		gen.IntRange(1, 9),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}

// TestAdaptiveThreshold_Binary verifies the threshold only emits 0 or 255.
func TestAdaptiveThreshold_Binary(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("binary output with unchanged size", prop.ForAll(
		func(w, h, block, seed int) bool {
			g := patternGray(w, h, seed)
			bw := AdaptiveThreshold(g, block, 7)
			if bw.Rect != g.Rect {
				return false
			}
			for _, v := range bw.Pix {
				if v != 0 && v != 255 {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 50),
		gen.IntRange(1, 50),
		gen.IntRange(3, 35),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}

// TestGenerate_AlwaysNineVariants checks the count for arbitrary sizes.
func TestGenerate_AlwaysNineVariants(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 10
	properties := gopter.NewProperties(params)

	properties.Property("non-empty frames give Count variants", prop.ForAll(
		func(w, h int) bool {
			frame := grayToNRGBA(patternGray(w, h, w+h))
			return len(Generate(frame).Collect()) == Count
		},
		gen.IntRange(1, 48),
		gen.IntRange(1, 48),
	))

	properties.TestingRun(t)
}
