package recognizer

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
)

// ErrClosed is returned by a Lazy recognizer after Close.
var ErrClosed = errors.New("recognizer closed")

// Factory builds a recognizer on first use.
type Factory func() (Recognizer, error)

// Lazy defers engine construction until the first Recognize call. Model
// loading is expensive, so the engine is built at most once and shared by
// all callers.
type Lazy struct {
	name    string
	factory Factory

	once   sync.Once
	mu     sync.RWMutex
	engine Recognizer
	err    error
	closed bool
}

// NewLazy wraps factory. name is reported before the engine exists.
func NewLazy(name string, factory Factory) *Lazy {
	return &Lazy{name: name, factory: factory}
}

// Get returns the engine, building it on the first call.
func (l *Lazy) Get() (Recognizer, error) {
	l.build()
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return nil, ErrClosed
	}
	return l.engine, l.err
}

func (l *Lazy) build() {
	l.once.Do(func() {
		eng, err := l.factory()
		l.mu.Lock()
		defer l.mu.Unlock()
		if err != nil {
			l.err = err
			slog.Error("Failed to initialize OCR engine", "engine", l.name, "error", err)
			return
		}
		if l.closed {
			_ = eng.Close()
			l.err = ErrClosed
			return
		}
		l.engine = eng
		slog.Info("OCR engine initialized", "engine", eng.Name())
	})
}

// Initialized reports whether the engine has been built successfully.
func (l *Lazy) Initialized() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.engine != nil
}

// Recognize implements Recognizer. The read lock is held for the whole
// call so Close waits for in-flight recognitions before releasing the engine.
func (l *Lazy) Recognize(ctx context.Context, img image.Image, opts Options) ([]Line, error) {
	l.build()
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return nil, ErrClosed
	}
	if l.err != nil {
		return nil, l.err
	}
	return l.engine.Recognize(ctx, img, opts)
}

// Name implements Recognizer.
func (l *Lazy) Name() string { return l.name }

// Close releases the engine if it was built. Later calls fail with ErrClosed.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if l.engine == nil {
		return nil
	}
	err := l.engine.Close()
	l.engine = nil
	return err
}
