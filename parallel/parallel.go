// Package parallel runs the data-parallel loops of the engine. Every
// iteration owns a disjoint output slot, so no locking is done here.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Workers resolves a configured worker count, 0 or less means one per CPU.
func Workers(n int) int {
	if n <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}

// For calls fn(i) for i in [0,n) on up to workers goroutines. With one
// worker the loop runs inline. The first error cancels the remaining
// iterations.
func For(ctx context.Context, n, workers int, fn func(i int) error) error {
	workers = Workers(workers)
	if workers == 1 || n <= 1 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		i := i
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Chunks splits [0,n) into contiguous ranges handled by fn(lo, hi), one
// range per worker. Used for cheap per-element loops like skinning.
func Chunks(ctx context.Context, n, workers int, fn func(lo, hi int) error) error {
	workers = Workers(workers)
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		if n == 0 {
			return nil
		}
		return fn(0, n)
	}
	size := (n + workers - 1) / workers
	return For(ctx, workers, workers, func(c int) error {
		lo := c * size
		hi := lo + size
		if hi > n {
			hi = n
		}
		if lo >= hi {
			return nil
		}
		return fn(lo, hi)
	})
}

// Ranges is Chunks for bodies that cannot fail and need no cancellation.
func Ranges(n, workers int, fn func(lo, hi int)) {
	_ = Chunks(context.Background(), n, workers, func(lo, hi int) error {
		fn(lo, hi)
		return nil
	})
}

// Forker runs fork-join tasks with a global bound on extra goroutines.
// When no slot is free a task runs inline on the caller, so nested forks
// never wait on each other for slots.
type Forker struct {
	sem *semaphore.Weighted
}

// NewForker allows up to workers-1 tasks besides the calling goroutine.
// A nil *Forker runs everything inline.
func NewForker(workers int) *Forker {
	workers = Workers(workers)
	if workers <= 1 {
		return nil
	}
	return &Forker{sem: semaphore.NewWeighted(int64(workers - 1))}
}

// Fork runs task(i) for i in [0,n) and returns once all have finished.
func (f *Forker) Fork(n int, task func(i int)) {
	if f == nil || n == 1 {
		for i := 0; i < n; i++ {
			task(i)
		}
		return
	}

	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		if f.sem.TryAcquire(1) {
			g.Go(func() error {
				defer f.sem.Release(1)
				task(i)
				return nil
			})
		} else {
			task(i)
		}
	}
	g.Wait()
}
