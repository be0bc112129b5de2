package integrator

import (
	"fmt"
	"math"
	"strings"

	"github.com/maxhlc/thames/algebra"
	"github.com/ready-steady/ode/dopri"
)

// dormandPrince integrates a real system with github.com/ready-steady/ode/dopri. That integrator
// needs increasing abscissae, so the system is integrated in τ = dir·(t - ts[0]).
func dormandPrince(f System[algebra.Real], y0 []algebra.Real, ts []float64, cfg Config) ([][]algebra.Real, Stats, error) {
	var stats Stats
	t0 := ts[0]
	dir := math.Copysign(1, ts[len(ts)-1]-t0)
	τs := make([]float64, len(ts))
	for i, t := range ts {
		τs[i] = dir * (t - t0)
	}
	integ, err := dopri.New(&dopri.Config{
		TryStep:  math.Min(cfg.Step, τs[len(τs)-1]),
		AbsError: cfg.AbsTol,
		RelError: cfg.RelTol,
	})
	if err != nil {
		return nil, stats, err
	}
	var evalErr error
	dydx := func(τ float64, y, dy []float64) {
		if evalErr != nil {
			// dopri has no way to abort; keep it stepping cheaply until it returns.
			for i := range dy {
				dy[i] = 0
			}
			return
		}
		d, err := evaluate(f, t0+dir*τ, algebra.Reals(y), &stats)
		if err != nil {
			evalErr = err
			for i := range dy {
				dy[i] = 0
			}
			return
		}
		for i, v := range d {
			dy[i] = dir * float64(v)
		}
	}
	ys, _, dstats, err := integ.ComputeWithStats(dydx, algebra.Floats(y0), τs)
	if evalErr != nil {
		return nil, stats, evalErr
	}
	if err != nil {
		if strings.Contains(err.Error(), "underflow") {
			return nil, stats, fmt.Errorf("dormand-prince: %v: %w", err, ErrStepSizeUnderflow)
		}
		return nil, stats, err
	}
	stats.Steps = dstats.Steps
	stats.Rejections = dstats.Rejections

	nd := len(y0)
	out := make([][]algebra.Real, len(ts))
	if len(ts) == 2 {
		// With two abscissae every internal step is returned; only the end point is wanted.
		out[0] = copyState(y0)
		out[1] = algebra.Reals(ys[len(ys)-nd:])
		return out, stats, nil
	}
	for i := range out {
		out[i] = algebra.Reals(ys[i*nd : (i+1)*nd])
	}
	return out, stats, nil
}
