package paddle

import (
	"fmt"
	"math"
)

// Decoded is a greedy CTC path after collapsing repeats and blanks.
type Decoded struct {
	Indices []int
	Probs   []float64
}

// Confidence is the mean per-character probability, 0 when empty.
func (d Decoded) Confidence() float64 {
	if len(d.Probs) == 0 {
		return 0
	}
	var s float64
	for _, p := range d.Probs {
		s += p
	}
	return s / float64(len(d.Probs))
}

// DecodeGreedy decodes [N, T, C] recognition output with best-path CTC.
func DecodeGreedy(logits []float32, shape []int64, blank int) ([]Decoded, error) {
	if len(shape) != 3 {
		return nil, fmt.Errorf("expected [N, T, C] output, got shape %v", shape)
	}
	n, steps, classes := int(shape[0]), int(shape[1]), int(shape[2])
	if n <= 0 || steps <= 0 || classes <= 0 || len(logits) != n*steps*classes {
		return nil, fmt.Errorf("invalid recognition output: %d values for shape %v", len(logits), shape)
	}

	out := make([]Decoded, n)
	for b := range n {
		prev := -1
		var dec Decoded
		for t := range steps {
			off := (b*steps + t) * classes
			row := logits[off : off+classes]
			idx := argmax(row)
			if idx != blank && idx != prev {
				dec.Indices = append(dec.Indices, idx)
				dec.Probs = append(dec.Probs, probOf(row, idx))
			}
			prev = idx
		}
		out[b] = dec
	}
	return out, nil
}

func argmax(v []float32) int {
	idx := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[idx] {
			idx = i
		}
	}
	return idx
}

// probOf returns v[idx] when v already looks like a distribution and the
// softmax probability otherwise.
func probOf(v []float32, idx int) float64 {
	var sum float64
	lo, hi := v[0], v[0]
	for _, x := range v {
		sum += float64(x)
		lo, hi = min(lo, x), max(hi, x)
	}
	if sum > 0.99 && sum < 1.01 && lo >= 0 && hi <= 1 {
		return float64(v[idx])
	}
	var denom float64
	for _, x := range v {
		denom += math.Exp(float64(x - hi))
	}
	return math.Exp(float64(v[idx]-hi)) / denom
}
