// Package engine provides a bounded worker pool and an associative-fold
// combinator, the two primitives the controller uses to run an indexed unit
// of work (an experiment, a shot bucket) across a capped number of goroutines
// and fold the per-unit results back together. The pool keeps the classic
// shape of a bounded set of workers feeding a synchronous fold step, built
// on golang.org/x/sync so the concurrency cap is a semaphore weight instead
// of a fixed channel of worker goroutines.
package engine

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Pool runs up to `concurrency` invocations of a per-index function at once.
type Pool struct {
	concurrency int64
}

// NewPool returns a Pool that runs at most concurrency jobs simultaneously.
// concurrency below 1 is treated as 1 (no parallelism, run sequentially).
func NewPool(concurrency int) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pool{concurrency: int64(concurrency)}
}

// Run invokes fn(i) for every i in [0, n), with at most p.concurrency calls
// in flight. fn is expected to capture its own error into the result it
// produces rather than returning it. Run does not abort the remaining jobs
// when one fn call fails, matching the controller's partial-failure
// semantics where one experiment's error never stops its siblings.
func (p *Pool) Run(ctx context.Context, n int, fn func(ctx context.Context, i int)) error {
	if n <= 0 {
		return nil
	}
	sem := semaphore.NewWeighted(p.concurrency)
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < n; i++ {
		i := i
		if err := sem.Acquire(gctx, 1); err != nil {
			// Only a caller-cancelled ctx reaches here; nothing has started
			// for the remaining indices, so we stop scheduling them and wait
			// for the calls already in flight before returning.
			_ = g.Wait()
			return err
		}
		g.Go(func() error {
			defer sem.Release(1)
			fn(gctx, i)
			return nil
		})
	}

	return g.Wait()
}
