// Package variants derives the fixed set of enhanced and rotated images that
// are fed to the text recognizer for a single camera frame.
package variants

import (
	"image"

	"github.com/disintegration/imaging"
)

// Variant identifiers, in generation order.
const (
	IDOrig   = "orig"
	IDCLAHE  = "clahe"
	IDGamma  = "gamma"
	IDBin    = "bin"
	IDTopHat = "tophat"
	IDSharp  = "sharp"
	IDRot90  = "rot90"
	IDRot180 = "rot180"
	IDRot270 = "rot270"
)

// IDs lists every variant identifier in the order they are produced.
var IDs = []string{IDOrig, IDCLAHE, IDGamma, IDBin, IDTopHat, IDSharp, IDRot90, IDRot180, IDRot270}

// Count is the number of variants produced for a non-empty frame.
const Count = 9

// Enhancement parameters.
const (
	illumKernel    = 25
	bilateralD     = 7
	bilateralSigma = 50.0
	claheClip      = 2.0
	claheTiles     = 8
	threshBlock    = 35
	threshC        = 7.0
	closeKernel    = 2
	gammaValue     = 1.4
	tophatKernel   = 21
	sharpSigma     = 1.2
	sharpAmount    = 1.5
)

// Variant is one derived image.
type Variant struct {
	ID    string
	Image image.Image
}

// Info describes the geometry found while preparing a frame.
type Info struct {
	// SkewAngle is the rotation in degrees applied to the analysis plane.
	SkewAngle float64
	// ROI is the crop taken from the frame, in frame coordinates.
	ROI image.Rectangle
}

// Sequence yields the variants of a frame one at a time. The analysis work
// runs on the first call to Next and each variant is built on demand. A
// Sequence is not safe for concurrent use and cannot be restarted.
type Sequence struct {
	frame    image.Image
	prepared bool
	builders []func() image.Image
	pos      int
	info     Info
}

// Generate returns the variant sequence for frame. An empty frame yields
// no variants.
func Generate(frame image.Image) *Sequence {
	return &Sequence{frame: frame}
}

// Next returns the next variant, or false once the sequence is exhausted.
func (s *Sequence) Next() (Variant, bool) {
	if !s.prepared {
		s.prepare()
	}
	if s.pos >= len(s.builders) {
		return Variant{}, false
	}
	v := Variant{ID: IDs[s.pos], Image: s.builders[s.pos]()}
	s.builders[s.pos] = nil
	s.pos++
	return v, true
}

// Collect drains the remaining variants into a slice.
func (s *Sequence) Collect() []Variant {
	var out []Variant
	for {
		v, ok := s.Next()
		if !ok {
			return out
		}
		out = append(out, v)
	}
}

// Info returns the skew angle and ROI. It prepares the frame if needed.
func (s *Sequence) Info() Info {
	if !s.prepared {
		s.prepare()
	}
	return s.info
}

func (s *Sequence) prepare() {
	s.prepared = true
	if IsEmpty(s.frame) {
		return
	}

	base := imaging.Clone(s.frame)
	gray, angle := Deskew(Grayscale(base))
	bw := Binarize(gray)
	roi := RelaxedROI(bw, roiComponents, roiPadRatio)
	if roi.Empty() {
		roi = base.Rect
	}

	s.info = Info{SkewAngle: angle, ROI: roi.Add(s.frame.Bounds().Min)}
	crop := imaging.Crop(base, roi)
	s.builders = []func() image.Image{
		func() image.Image { return crop },
		func() image.Image {
			return mapLuma(crop, func(y *image.Gray) *image.Gray {
				return CLAHE(y, claheClip, claheTiles, claheTiles)
			})
		},
		func() image.Image { return imaging.AdjustGamma(crop, gammaValue) },
		func() image.Image { return grayToNRGBA(cropGray(bw, roi)) },
		func() image.Image {
			return grayToNRGBA(NormalizeMinMax(TopHat(Grayscale(crop), tophatKernel, tophatKernel)))
		},
		func() image.Image { return unsharp(crop, sharpSigma, sharpAmount) },
		func() image.Image { return imaging.Rotate270(crop) },
		func() image.Image { return imaging.Rotate180(crop) },
		func() image.Image { return imaging.Rotate90(crop) },
	}
}

// Binarize produces the analysis mask: illumination flattening, bilateral
// denoise, CLAHE, adaptive Gaussian threshold and a small closing.
func Binarize(gray *image.Gray) *image.Gray {
	illum := NormalizeMinMax(subtractSaturate(gray, Open(gray, illumKernel, illumKernel)))
	den := Bilateral(illum, bilateralD, bilateralSigma, bilateralSigma)
	cla := CLAHE(den, claheClip, claheTiles, claheTiles)
	bw := AdaptiveThreshold(cla, threshBlock, threshC)
	return Close(bw, closeKernel, closeKernel)
}

// unsharp returns amount*img - (amount-1)*blur(img) per channel.
func unsharp(img *image.NRGBA, sigma, amount float64) *image.NRGBA {
	blur := imaging.Blur(img, sigma)
	dst := image.NewNRGBA(img.Rect)
	for i := 0; i < len(dst.Pix); i += 4 {
		for c := range 3 {
			v := amount*float64(img.Pix[i+c]) - (amount-1)*float64(blur.Pix[i+c])
			dst.Pix[i+c] = clampUint8(v)
		}
		dst.Pix[i+3] = img.Pix[i+3]
	}
	return dst
}
