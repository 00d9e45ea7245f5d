// ABOUTME: Bounds how many decode() runs may execute concurrently, process-wide
// ABOUTME: Backs spec §5's MAX_THREADS blocking worker pool with x/sync/semaphore
package decode

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pool is a blocking worker bound: Run waits for a free slot before
// executing fn, capping the number of decode() runs active at once at
// maxThreads regardless of how many sessions are playing.
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool builds a Pool that admits at most maxThreads concurrent Run
// calls; maxThreads <= 0 is treated as 1.
func NewPool(maxThreads int) *Pool {
	if maxThreads <= 0 {
		maxThreads = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(maxThreads))}
}

// Run blocks until a worker slot is free, runs fn, then releases the slot.
// If ctx is cancelled before a slot frees up, fn never runs and Run returns
// ctx.Err().
func (p *Pool) Run(ctx context.Context, fn func() (Result, error)) (Result, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return Completed, err
	}
	defer p.sem.Release(1)
	return fn()
}
