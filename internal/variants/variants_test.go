package variants

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformGray(w, h int, v uint8) *image.Gray {
	g := newGray(w, h)
	for i := range g.Pix {
		g.Pix[i] = v
	}
	return g
}

func uniformFrame(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// labelFrame draws dark word-like blocks on a light background.
func labelFrame(w, h int) *image.NRGBA {
	img := uniformFrame(w, h, color.NRGBA{230, 225, 220, 255})
	dark := color.NRGBA{20, 20, 30, 255}
	for _, r := range []image.Rectangle{
		image.Rect(20, 20, 70, 32),
		image.Rect(80, 20, 120, 32),
		image.Rect(20, 45, 100, 55),
	} {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				img.SetNRGBA(x, y, dark)
			}
		}
	}
	return img
}

func fillGray(g *image.Gray, r image.Rectangle, v uint8) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			g.Pix[y*g.Stride+x] = v
		}
	}
}

func TestGenerate_CountAndOrder(t *testing.T) {
	seq := Generate(labelFrame(160, 90))
	vs := seq.Collect()

	require.Len(t, vs, Count)
	require.Len(t, IDs, Count)
	for i, v := range vs {
		assert.Equal(t, IDs[i], v.ID)
		require.NotNil(t, v.Image)
		assert.False(t, v.Image.Bounds().Empty(), "variant %s is empty", v.ID)
	}

	orig := vs[0].Image.Bounds()
	for _, v := range vs[1:6] {
		assert.Equal(t, orig.Size(), v.Image.Bounds().Size(), "variant %s", v.ID)
	}
	assert.Equal(t, image.Pt(orig.Dy(), orig.Dx()), vs[6].Image.Bounds().Size())
	assert.Equal(t, orig.Size(), vs[7].Image.Bounds().Size())
	assert.Equal(t, image.Pt(orig.Dy(), orig.Dx()), vs[8].Image.Bounds().Size())

	_, ok := seq.Next()
	assert.False(t, ok, "sequence must not restart")
	assert.Empty(t, seq.Collect())
}

func TestGenerate_EmptyFrame(t *testing.T) {
	assert.Empty(t, Generate(nil).Collect())
	assert.Empty(t, Generate(image.NewNRGBA(image.Rect(0, 0, 0, 0))).Collect())
	assert.Equal(t, Info{}, Generate(nil).Info())
}

func TestGenerate_UniformFrameKeepsWholeImage(t *testing.T) {
	frame := uniformFrame(50, 40, color.NRGBA{200, 200, 200, 255})
	seq := Generate(frame)
	info := seq.Info()

	assert.Equal(t, 0.0, info.SkewAngle)
	assert.Equal(t, frame.Bounds(), info.ROI)

	vs := seq.Collect()
	require.Len(t, vs, Count)
	assert.Equal(t, image.Pt(50, 40), vs[0].Image.Bounds().Size())

	sharp := vs[5].Image.(*image.NRGBA)
	for i := 0; i < len(sharp.Pix); i += 4 {
		assert.InDelta(t, 200, int(sharp.Pix[i]), 1)
	}
}

func TestGenerate_ROIOffsetFollowsFrameBounds(t *testing.T) {
	frame := uniformFrame(60, 40, color.NRGBA{200, 200, 200, 255})
	sub := frame.SubImage(image.Rect(10, 5, 60, 40))
	info := Generate(sub).Info()
	assert.Equal(t, sub.Bounds(), info.ROI)
}

func TestFromBGR(t *testing.T) {
	img, err := FromBGR([]byte{1, 2, 3, 10, 20, 30}, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{3, 2, 1, 255}, img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{30, 20, 10, 255}, img.NRGBAAt(1, 0))

	_, err = FromBGR([]byte{1, 2, 3}, 2, 1)
	assert.Error(t, err)
	_, err = FromBGR(nil, 0, 0)
	assert.Error(t, err)
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(nil))
	assert.True(t, IsEmpty(image.NewGray(image.Rect(0, 0, 5, 0))))
	assert.False(t, IsEmpty(image.NewGray(image.Rect(0, 0, 1, 1))))
}

func TestGrayscale(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	img.SetNRGBA(0, 0, color.NRGBA{255, 255, 255, 255})
	img.SetNRGBA(1, 0, color.NRGBA{255, 0, 0, 255})
	img.SetNRGBA(2, 0, color.NRGBA{0, 0, 0, 255})

	g := Grayscale(img)
	assert.Equal(t, []uint8{255, 76, 0}, g.Pix)
}

func TestNormalizeMinMax(t *testing.T) {
	g := newGray(3, 1)
	copy(g.Pix, []uint8{10, 20, 30})
	assert.Equal(t, []uint8{0, 128, 255}, NormalizeMinMax(g).Pix)

	flat := uniformGray(4, 4, 90)
	for _, v := range NormalizeMinMax(flat).Pix {
		assert.Equal(t, uint8(0), v)
	}
}

func TestErodeDilate(t *testing.T) {
	g := newGray(5, 5)
	g.Pix[2*5+2] = 255

	d := Dilate(g, 3, 3)
	for y := range 5 {
		for x := range 5 {
			want := uint8(0)
			if x >= 1 && x <= 3 && y >= 1 && y <= 3 {
				want = 255
			}
			assert.Equal(t, want, d.Pix[y*5+x], "dilate (%d,%d)", x, y)
		}
	}

	e := Erode(d, 3, 3)
	assert.Equal(t, uint8(255), e.Pix[2*5+2])
	assert.Equal(t, uint8(0), e.Pix[1*5+1])
}

func TestTopHat(t *testing.T) {
	flat := uniformGray(30, 30, 120)
	for _, v := range TopHat(flat, 21, 21).Pix {
		assert.Equal(t, uint8(0), v)
	}

	spot := uniformGray(30, 30, 100)
	fillGray(spot, image.Rect(14, 14, 16, 16), 200)
	th := TopHat(spot, 5, 5)
	assert.Equal(t, uint8(100), th.Pix[14*30+14])
	assert.Equal(t, uint8(0), th.Pix[0])
}

func TestAdaptiveThreshold(t *testing.T) {
	flat := uniformGray(20, 20, 128)
	for _, v := range AdaptiveThreshold(flat, 35, 7).Pix {
		assert.Equal(t, uint8(255), v)
	}

	g := uniformGray(40, 40, 220)
	fillGray(g, image.Rect(18, 18, 22, 22), 10)
	bw := AdaptiveThreshold(g, 35, 7)
	assert.Equal(t, uint8(0), bw.Pix[20*40+20])
	assert.Equal(t, uint8(255), bw.Pix[2*40+2])
}

func TestBilateral_PreservesFlatAndStep(t *testing.T) {
	flat := uniformGray(12, 12, 77)
	for _, v := range Bilateral(flat, 7, 50, 50).Pix {
		assert.Equal(t, uint8(77), v)
	}

	step := newGray(20, 10)
	fillGray(step, image.Rect(10, 0, 20, 10), 255)
	out := Bilateral(step, 7, 50, 50)
	assert.Equal(t, uint8(0), out.Pix[5*20+0])
	assert.Equal(t, uint8(255), out.Pix[5*20+19])
}

func TestCLAHE_KeepsSizeAndFlatPlanesFlat(t *testing.T) {
	g := uniformGray(64, 48, 90)
	out := CLAHE(g, 2.0, 8, 8)
	require.Equal(t, g.Rect, out.Rect)
	first := out.Pix[0]
	for _, v := range out.Pix {
		assert.Equal(t, first, v)
	}

	assert.Empty(t, CLAHE(newGray(0, 0), 2.0, 8, 8).Pix)
}

func TestCLAHE_StretchesLowContrast(t *testing.T) {
	g := newGray(64, 64)
	for y := range 64 {
		for x := range 64 {
			g.Pix[y*64+x] = uint8(100 + (x+y)%8)
		}
	}
	out := CLAHE(g, 2.0, 8, 8)
	lo, hi := uint8(255), uint8(0)
	for _, v := range out.Pix {
		lo, hi = min(lo, v), max(hi, v)
	}
	assert.Greater(t, int(hi)-int(lo), 7)
}

func TestCanny_VerticalStep(t *testing.T) {
	g := newGray(20, 20)
	fillGray(g, image.Rect(10, 0, 20, 20), 255)
	edges := Canny(g, 50, 150)

	for y := range 20 {
		for x := range 20 {
			want := uint8(0)
			if x == 9 && y >= 1 && y <= 18 {
				want = 255
			}
			assert.Equal(t, want, edges.Pix[y*20+x], "edge (%d,%d)", x, y)
		}
	}
}

func TestCanny_Uniform(t *testing.T) {
	for _, v := range Canny(uniformGray(16, 16, 128), 50, 150).Pix {
		assert.Equal(t, uint8(0), v)
	}
}

func TestSkewAngle(t *testing.T) {
	_, ok := SkewAngle(uniformGray(100, 100, 200))
	assert.False(t, ok)

	stripes := uniformGray(200, 100, 230)
	for y := 10; y < 100; y += 20 {
		fillGray(stripes, image.Rect(0, y, 200, y+8), 20)
	}
	angle, ok := SkewAngle(stripes)
	require.True(t, ok)
	assert.InDelta(t, 0, angle, 1.0)
}

func TestDeskew_IdentityWithoutLines(t *testing.T) {
	g := uniformGray(30, 20, 50)
	out, angle := Deskew(g)
	assert.Equal(t, 0.0, angle)
	assert.Equal(t, g.Pix, out.Pix)
}

func TestRotate(t *testing.T) {
	g := newGray(9, 7)
	for i := range g.Pix {
		g.Pix[i] = uint8(i)
	}
	assert.Equal(t, g.Pix, Rotate(g, 0).Pix)

	r := Rotate(g, 13)
	assert.Equal(t, g.Rect, r.Rect)
	// The centre pixel is a fixed point.
	assert.Equal(t, g.Pix[3*9+4], r.Pix[3*9+4])
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 2.0, median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, median([]float64{4, 1, 2, 3}))
	in := []float64{3, 1, 2}
	median(in)
	assert.Equal(t, []float64{3, 1, 2}, in)
}

func TestRelaxedROI(t *testing.T) {
	bw := uniformGray(200, 100, 255)
	fillGray(bw, image.Rect(10, 10, 30, 30), 0)
	fillGray(bw, image.Rect(60, 10, 70, 20), 0)
	fillGray(bw, image.Rect(100, 10, 106, 16), 0)
	fillGray(bw, image.Rect(180, 80, 182, 82), 0)

	tests := []struct {
		name string
		k    int
		pad  float64
		want image.Rectangle
	}{
		{"top three unpadded", 3, 0, image.Rect(10, 10, 106, 30)},
		{"top three padded and clipped", 3, 0.12, image.Rect(0, 0, 130, 54)},
		{"largest only", 1, 0, image.Rect(10, 10, 30, 30)},
		{"all components", 10, 0, image.Rect(10, 10, 182, 82)},
		{"k below one acts as one", 0, 0, image.Rect(10, 10, 30, 30)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RelaxedROI(bw, tt.k, tt.pad))
		})
	}
}

func TestRelaxedROI_NoDarkPixels(t *testing.T) {
	bw := uniformGray(40, 30, 255)
	assert.Equal(t, image.Rect(0, 0, 40, 30), RelaxedROI(bw, 3, 0.12))
}

func TestDarkComponents_EightConnected(t *testing.T) {
	w, h := 4, 4
	mask := make([]bool, w*h)
	mask[0] = true       // (0,0)
	mask[1*w+1] = true   // (1,1) diagonal to (0,0)
	mask[3*w+3] = true   // (3,3) isolated
	comps := darkComponents(mask, w, h)
	require.Len(t, comps, 2)
	assert.Equal(t, 2, comps[0].count)
	assert.Equal(t, image.Rect(0, 0, 2, 2), comps[0].bounds())
	assert.Equal(t, 1, comps[1].count)
}

func TestBinarize_OnlyBinaryValues(t *testing.T) {
	bw := Binarize(Grayscale(labelFrame(160, 90)))
	require.Equal(t, image.Rect(0, 0, 160, 90), bw.Rect)
	for _, v := range bw.Pix {
		assert.True(t, v == 0 || v == 255)
	}
}
