package onnx

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Tensor is a row-major float32 tensor; images use NCHW.
type Tensor struct {
	Data  []float32
	Shape []int64
}

// NewImageTensor wraps CHW data as a [1, C, H, W] tensor.
func NewImageTensor(data []float32, c, h, w int) (Tensor, error) {
	if data == nil {
		return Tensor{}, errors.New("nil data")
	}
	if len(data) != c*h*w {
		return Tensor{}, fmt.Errorf("unexpected data length: got %d, want %d", len(data), c*h*w)
	}
	return Tensor{Data: data, Shape: []int64{1, int64(c), int64(h), int64(w)}}, nil
}

// Verify checks that the shape has positive dimensions matching the data.
func (t Tensor) Verify() error {
	if len(t.Shape) == 0 {
		return errors.New("empty shape")
	}
	n := 1
	for i, d := range t.Shape {
		if d <= 0 {
			return fmt.Errorf("dimension %d must be > 0, got %d", i, d)
		}
		n *= int(d)
	}
	if n != len(t.Data) {
		return fmt.Errorf("tensor data length %d != %d for shape %v", len(t.Data), n, t.Shape)
	}
	return nil
}

// Normalization selects the per-channel mean and std applied to [0,1]
// pixel values.
type Normalization struct {
	Mean [3]float32
	Std  [3]float32
}

// Standard normalizations for PaddleOCR models.
var (
	// ImageNet is used by DB text detection.
	ImageNet = Normalization{Mean: [3]float32{0.485, 0.456, 0.406}, Std: [3]float32{0.229, 0.224, 0.225}}
	// Symmetric maps pixels to [-1, 1] for CTC recognition.
	Symmetric = Normalization{Mean: [3]float32{0.5, 0.5, 0.5}, Std: [3]float32{0.5, 0.5, 0.5}}
)

// ImageToTensor converts img into a normalized [1, 3, H, W] tensor.
func ImageToTensor(img image.Image, norm Normalization) (Tensor, error) {
	if img == nil {
		return Tensor{}, errors.New("input image is nil")
	}
	src := imaging.Clone(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	plane := w * h
	data := make([]float32, 3*plane)
	for y := range h {
		for x := range w {
			i := y*src.Stride + x*4
			o := y*w + x
			for c := range 3 {
				v := float32(src.Pix[i+c]) / 255
				data[c*plane+o] = (v - norm.Mean[c]) / norm.Std[c]
			}
		}
	}
	return NewImageTensor(data, 3, h, w)
}
