package integrator

import (
	"math"

	"github.com/ChristopherRabotin/ode"
	"github.com/maxhlc/thames/algebra"
)

// substeps returns the number of equal steps of at most h covering dt.
func substeps(dt, h float64) int {
	n := int(math.Ceil(math.Abs(dt)/h - 1e-9))
	if n < 1 {
		n = 1
	}
	return n
}

// rk4 is the classical fixed step method over any algebra. Each output interval is split into
// equal steps no longer than cfg.Step so that the outputs are hit exactly.
func rk4[T algebra.Number[T]](f System[T], y0 []T, ts []float64, cfg Config) ([][]T, Stats, error) {
	var stats Stats
	out := make([][]T, 1, len(ts))
	out[0] = copyState(y0)
	y := copyState(y0)
	for i := 1; i < len(ts); i++ {
		n := substeps(ts[i]-ts[i-1], cfg.Step)
		h := (ts[i] - ts[i-1]) / float64(n)
		for j := 0; j < n; j++ {
			t := ts[i-1] + float64(j)*h
			k1, err := evaluate(f, t, y, &stats)
			if err != nil {
				return nil, stats, err
			}
			k2, err := evaluate(f, t+h/2, combine(y, h/2, []float64{1}, [][]T{k1}), &stats)
			if err != nil {
				return nil, stats, err
			}
			k3, err := evaluate(f, t+h/2, combine(y, h/2, []float64{1}, [][]T{k2}), &stats)
			if err != nil {
				return nil, stats, err
			}
			k4, err := evaluate(f, t+h, combine(y, h, []float64{1}, [][]T{k3}), &stats)
			if err != nil {
				return nil, stats, err
			}
			y = combine(y, h, []float64{1.0 / 6, 1.0 / 3, 1.0 / 3, 1.0 / 6}, [][]T{k1, k2, k3, k4})
			stats.Steps++
		}
		out = append(out, copyState(y))
	}
	return out, stats, nil
}

// odeLeg adapts one output interval of a real system to ode.Integrable. The ode package only steps
// forwards, so the leg is integrated in τ = dir·(t - t0).
type odeLeg struct {
	f     System[algebra.Real]
	t0    float64
	dir   float64
	τEnd  float64
	half  float64 // half a step, to stop on the last step despite rounding of τ
	state []float64
	stats *Stats
	err   error
}

func (l *odeLeg) GetState() []float64 {
	return l.state
}

func (l *odeLeg) SetState(τ float64, s []float64) {
	l.state = s
	l.stats.Steps++
}

func (l *odeLeg) Stop(τ float64) bool {
	return l.err != nil || τ >= l.τEnd-l.half
}

func (l *odeLeg) Func(τ float64, s []float64) []float64 {
	dy := make([]float64, len(s))
	if l.err != nil {
		return dy
	}
	d, err := evaluate(l.f, l.t0+l.dir*τ, algebra.Reals(s), l.stats)
	if err != nil {
		l.err = err
		return dy
	}
	for i, v := range d {
		dy[i] = l.dir * float64(v)
	}
	return dy
}

// rk4ODE runs the fixed step method of github.com/ChristopherRabotin/ode on a real system.
func rk4ODE(f System[algebra.Real], y0 []algebra.Real, ts []float64, cfg Config) ([][]algebra.Real, Stats, error) {
	var stats Stats
	out := make([][]algebra.Real, 1, len(ts))
	out[0] = copyState(y0)
	state := algebra.Floats(y0)
	for i := 1; i < len(ts); i++ {
		dt := ts[i] - ts[i-1]
		n := substeps(dt, cfg.Step)
		h := math.Abs(dt) / float64(n)
		leg := &odeLeg{
			f:     f,
			t0:    ts[i-1],
			dir:   math.Copysign(1, dt),
			τEnd:  math.Abs(dt),
			half:  h / 2,
			state: state,
			stats: &stats,
		}
		if _, _, err := ode.NewRK4(0, h, leg).Solve(); err != nil {
			return nil, stats, err
		}
		if leg.err != nil {
			return nil, stats, leg.err
		}
		state = leg.state
		out = append(out, algebra.Reals(state))
	}
	return out, stats, nil
}
