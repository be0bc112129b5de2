package thames

import (
	"context"
	"sync"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/maxhlc/thames/algebra"
	"github.com/maxhlc/thames/propagator"
)

// batchJob is one initial state to propagate.
type batchJob struct {
	index int
	x0    []float64
}

type batchResult struct {
	index int
	traj  propagator.Trajectory[algebra.Real]
	err   error
}

// Pool propagates many independent states on a fixed number of goroutines.
type Pool struct {
	workers int
	logger  kitlog.Logger
}

// NewPool returns a pool of the given number of workers, at least one.
func NewPool(workers int, logger kitlog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	return &Pool{workers: workers, logger: logger}
}

// Workers returns the number of goroutines of the pool.
func (p *Pool) Workers() int {
	return p.workers
}

// PropagateBatch propagates each of states through ts. The trajectories and errors are in the
// order of the states; a failed propagation is logged and its trajectory left empty. The returned
// error is only ever that of ctx, in which case nothing else is returned.
func (p *Pool) PropagateBatch(ctx context.Context, prop *propagator.Propagator[algebra.Real], ts []float64, states [][]float64) ([]propagator.Trajectory[algebra.Real], []error, error) {
	if len(states) == 0 {
		return nil, nil, ctx.Err()
	}
	jobs := make(chan batchJob, p.workers*2)
	results := make(chan batchResult, p.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				start := time.Now()
				traj, err := prop.PropagateTimes(ts, algebra.Reals(job.x0))
				observePropagation(prop.Formulation(), "real", time.Since(start), traj.Stats, err)
				select {
				case results <- batchResult{job.index, traj, err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, x0 := range states {
			select {
			case jobs <- batchJob{i, x0}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	trajs := make([]propagator.Trajectory[algebra.Real], len(states))
	errs := make([]error, len(states))
	for res := range results {
		if res.err != nil {
			errs[res.index] = res.err
			level.Warn(p.logger).Log("subsys", "batch", "state", res.index, "err", res.err)
			continue
		}
		trajs[res.index] = res.traj
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return trajs, errs, nil
}

func countFailed(errs []error) int {
	var n int
	for _, err := range errs {
		if err != nil {
			n++
		}
	}
	return n
}
