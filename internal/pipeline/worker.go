package pipeline

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
)

// ErrWorkerClosed is delivered for frames submitted after Close.
var ErrWorkerClosed = errors.New("pipeline worker closed")

// Outcome is the completion of one submitted frame.
type Outcome struct {
	Result *Result
	Err    error
}

type job struct {
	ctx   context.Context //nolint:containedctx // carried to the worker goroutine
	frame image.Image
	in    Input
	done  chan Outcome
}

// Worker runs frames through a pipeline on a dedicated goroutine so the
// caller, typically the capture loop, never blocks on recognition.
type Worker struct {
	p     *Pipeline
	input func() Input

	mu     sync.RWMutex
	closed bool
	jobs   chan job
	wg     sync.WaitGroup
}

// NewWorker starts a worker. input is called once per frame so a catalog
// reload is picked up by the next submission. queue is the number of frames
// that may wait behind the one in progress.
func NewWorker(p *Pipeline, input func() Input, queue int) *Worker {
	w := &Worker{p: p, input: input, jobs: make(chan job, max(queue, 0))}
	w.wg.Add(1)
	go w.loop()
	return w
}

// Submit queues frame and returns a channel that receives exactly one
// Outcome and is then closed. It blocks while the queue is full unless ctx
// ends first.
func (w *Worker) Submit(ctx context.Context, frame image.Image) <-chan Outcome {
	done := make(chan Outcome, 1)
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		done <- Outcome{Err: ErrWorkerClosed}
		close(done)
		return done
	}
	select {
	case w.jobs <- job{ctx: ctx, frame: frame, in: w.input(), done: done}:
	case <-ctx.Done():
		done <- Outcome{Err: ctx.Err()}
		close(done)
	}
	return done
}

// Close stops accepting frames and waits for queued ones to finish. It does
// not close the pipeline.
func (w *Worker) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.jobs)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for j := range w.jobs {
		var out Outcome
		if err := j.ctx.Err(); err != nil {
			out.Err = err
		} else {
			out.Result, out.Err = w.p.Run(j.ctx, j.frame, j.in)
		}
		if out.Err != nil {
			slog.Debug("frame failed", "error", out.Err)
		}
		j.done <- out
		close(j.done)
	}
}
