package integrator

import (
	"fmt"
	"math"

	"github.com/maxhlc/thames/algebra"
)

// Cash-Karp 5(4) tableau.
var (
	ckC = [6]float64{0, 1.0 / 5, 3.0 / 10, 3.0 / 5, 1, 7.0 / 8}
	ckA = [6][]float64{
		nil,
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{3.0 / 10, -9.0 / 10, 6.0 / 5},
		{-11.0 / 54, 5.0 / 2, -70.0 / 27, 35.0 / 27},
		{1631.0 / 55296, 175.0 / 512, 575.0 / 13824, 44275.0 / 110592, 253.0 / 4096},
	}
	ckB5 = []float64{37.0 / 378, 0, 250.0 / 621, 125.0 / 594, 0, 512.0 / 1771}
	ckB4 = []float64{2825.0 / 27648, 0, 18575.0 / 48384, 13525.0 / 55296, 277.0 / 14336, 1.0 / 4}
	ckE  = func() []float64 {
		e := make([]float64, 6)
		for i := range e {
			e[i] = ckB5[i] - ckB4[i]
		}
		return e
	}()
)

// Step size control.
const (
	safety   = 0.9
	minScale = 0.2
	maxScale = 5.0
)

// cashKarp integrates with local extrapolation (the fifth order solution is propagated).
func cashKarp[T algebra.Number[T]](f System[T], y0 []T, ts []float64, cfg Config) ([][]T, Stats, error) {
	var stats Stats
	dir := math.Copysign(1, ts[len(ts)-1]-ts[0])
	out := make([][]T, 1, len(ts))
	out[0] = copyState(y0)

	y := copyState(y0)
	t := ts[0]
	h := cfg.Step
	k := make([][]T, 6)
	var err error
	if k[0], err = evaluate(f, t, y, &stats); err != nil {
		return nil, stats, err
	}
	rejections := 0
	for _, target := range ts[1:] {
		for dir*(target-t) > 0 {
			step := h
			clamped := false
			if remaining := math.Abs(target - t); step >= remaining {
				step, clamped = remaining, true
			}
			if step < cfg.MinStep && !clamped {
				return nil, stats, fmt.Errorf("step %g below %g at t=%g: %w", step, cfg.MinStep, t, ErrStepSizeUnderflow)
			}
			hs := dir * step
			for s := 1; s < 6; s++ {
				ys := combine(y, hs, ckA[s], k)
				if k[s], err = evaluate(f, t+ckC[s]*hs, ys, &stats); err != nil {
					return nil, stats, err
				}
			}
			ynew := combine(y, hs, ckB5, k)
			yerr := combine(zeroLike(y), hs, ckE, k)

			var errNorm float64
			for i := range y {
				sc := cfg.AbsTol + cfg.RelTol*math.Max(y[i].Norm(), ynew[i].Norm())
				errNorm = math.Max(errNorm, yerr[i].Norm()/sc)
			}
			if math.IsNaN(errNorm) {
				return nil, stats, fmt.Errorf("error estimate at t=%g: %w", t, ErrDynamicsEvaluation)
			}
			if errNorm > 1 {
				stats.Rejections++
				rejections++
				if rejections > cfg.MaxRejections {
					return nil, stats, fmt.Errorf("%d consecutive rejections at t=%g: %w", rejections, t, ErrStepSizeUnderflow)
				}
				h = step * math.Max(minScale, safety*math.Pow(errNorm, -0.25))
				if h < cfg.MinStep {
					return nil, stats, fmt.Errorf("step %g below %g at t=%g: %w", h, cfg.MinStep, t, ErrStepSizeUnderflow)
				}
				continue
			}
			rejections = 0
			stats.Steps++
			grow := maxScale
			if errNorm > 0 {
				grow = math.Min(maxScale, safety*math.Pow(errNorm, -0.2))
			}
			if next := step * grow; !clamped || next > h {
				h = next
			}
			y = ynew
			if clamped {
				t = target
			} else {
				t += hs
			}
			if k[0], err = evaluate(f, t, y, &stats); err != nil {
				return nil, stats, err
			}
		}
		out = append(out, copyState(y))
	}
	return out, stats, nil
}

func zeroLike[T algebra.Number[T]](y []T) []T {
	z := make([]T, len(y))
	for i := range y {
		z[i] = y[i].Lift(0)
	}
	return z
}
