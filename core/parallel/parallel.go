// Package parallel provides the bounded worker pool used for independent
// fit/score tasks during tuning. Tasks share only immutable inputs and write
// results into caller-owned slots, so the pool needs no locking beyond the
// final join.
package parallel

import (
	"context"
	"runtime"
	"sync"

	"github.com/aokisawa/riskbench/pkg/errors"
)

// Pool runs batches of independent tasks on a fixed number of workers. A Pool
// is scoped to one tuning phase: create it, run one or more batches, let it go.
type Pool struct {
	workers int
}

// NewPool creates a pool with the given worker count. A count below 1 selects
// the number of logical CPUs.
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &Pool{workers: workers}
}

// Workers returns the configured worker count.
func (p *Pool) Workers() int {
	return p.workers
}

// Run executes fn for every task index in [0, tasks) and blocks until all
// tasks finish (the join before aggregation). Panics inside fn are recovered
// into errors. The returned slice has one entry per task; nil means success.
// A cancelled context stops the dispatch of not-yet-started tasks, which are
// reported with the context's error; running tasks are never interrupted.
func (p *Pool) Run(ctx context.Context, tasks int, fn func(i int) error) []error {
	errs := make([]error, tasks)
	if tasks == 0 {
		return errs
	}

	workers := p.workers
	if workers > tasks {
		workers = tasks
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				errs[i] = errors.SafeExecute("parallel task", func() error {
					return fn(i)
				})
			}
		}()
	}

	for i := 0; i < tasks; i++ {
		if err := ctx.Err(); err != nil {
			for j := i; j < tasks; j++ {
				errs[j] = err
			}
			break
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return errs
}
