package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"
)

type frameJob struct {
	index int
	frame image.Image
}

type frameResult struct {
	index  int
	result *Result
	err    error
}

// RunBatch processes frames with up to workers goroutines and returns the
// results in input order. A failed frame leaves a nil slot; the first such
// error is returned alongside the partial results.
func (p *Pipeline) RunBatch(ctx context.Context, frames []image.Image, in Input, workers int) ([]*Result, error) {
	if len(frames) == 0 {
		return nil, errors.New("no frames provided")
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(frames))

	jobs := make(chan frameJob, len(frames))
	results := make(chan frameResult, len(frames))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				res, err := p.Run(ctx, job.frame, in)
				results <- frameResult{index: job.index, result: res, err: err}
			}
		}()
	}
	for i, f := range frames {
		jobs <- frameJob{index: i, frame: f}
	}
	close(jobs)
	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]*Result, len(frames))
	errs := make([]error, len(frames))
	for r := range results {
		ordered[r.index] = r.result
		errs[r.index] = r.err
	}
	if err := ctx.Err(); err != nil {
		return ordered, err
	}
	for i, err := range errs {
		if err != nil {
			return ordered, fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return ordered, nil
}
