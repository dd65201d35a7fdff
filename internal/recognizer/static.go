package recognizer

import (
	"context"
	"image"
	"sync"
)

// Func adapts a function to the Recognizer interface.
type Func func(ctx context.Context, img image.Image, opts Options) ([]Line, error)

// Recognize implements Recognizer.
func (f Func) Recognize(ctx context.Context, img image.Image, opts Options) ([]Line, error) {
	return f(ctx, img, opts)
}

// Name implements Recognizer.
func (Func) Name() string { return "func" }

// Close implements Recognizer.
func (Func) Close() error { return nil }

// Static returns fixed lines for every image. It backs the "static" engine
// kind used for demos and tests without OCR models.
type Static struct {
	Lines []Line
	// Err, when set, is returned instead of lines.
	Err error

	mu    sync.Mutex
	calls int
}

// NewStatic returns a Static recognizer emitting one line per text at
// confidence conf.
func NewStatic(conf float64, texts ...string) *Static {
	s := &Static{}
	for _, t := range texts {
		s.Lines = append(s.Lines, Line{Text: t, Confidence: conf})
	}
	return s
}

// Recognize implements Recognizer.
func (s *Static) Recognize(ctx context.Context, _ image.Image, opts Options) ([]Line, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return Clean(append([]Line(nil), s.Lines...), opts), nil
}

// Calls returns how many times Recognize ran.
func (s *Static) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Name implements Recognizer.
func (*Static) Name() string { return "static" }

// Close implements Recognizer.
func (*Static) Close() error { return nil }
