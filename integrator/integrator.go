// Package integrator advances a state through time with Runge-Kutta methods which are generic over
// the algebra of the state.
package integrator

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/maxhlc/thames/algebra"
)

var (
	// ErrInvalidStepDirection is returned when the step does not point from the start to the end
	// time, or when the output times are not strictly monotone.
	ErrInvalidStepDirection = errors.New("invalid step direction")
	// ErrStepSizeUnderflow is returned when the adaptive step cannot meet the tolerances.
	ErrStepSizeUnderflow = errors.New("step size underflow")
	// ErrDynamicsEvaluation is returned when the equations of motion produce a non-finite value.
	ErrDynamicsEvaluation = errors.New("dynamics evaluation error")
	// ErrDimensionMismatch is returned for a state of the wrong length.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrUnsupportedMethod is returned for a method which cannot integrate the state's algebra.
	ErrUnsupportedMethod = errors.New("unsupported method")
)

// System is a first order ODE, returning dy/dt as a new slice.
type System[T algebra.Number[T]] func(t float64, y []T) []T

// Method selects the stepper.
type Method uint8

const (
	// CashKarp is the adaptive Cash-Karp 5(4) embedded pair.
	CashKarp Method = iota
	// RK4 is the classical fixed step fourth order method.
	RK4
	// DormandPrince is the adaptive Dormand-Prince 5(4) pair, for real states only.
	DormandPrince
)

func (m Method) String() string {
	switch m {
	case CashKarp:
		return "CashKarp"
	case RK4:
		return "RK4"
	case DormandPrince:
		return "DormandPrince"
	default:
		panic("unknown method")
	}
}

// MethodFromString returns the method from its name.
func MethodFromString(name string) (Method, error) {
	switch strings.ToLower(name) {
	case "cashkarp", "rk45", "":
		return CashKarp, nil
	case "rk4", "fixed":
		return RK4, nil
	case "dormandprince", "dopri":
		return DormandPrince, nil
	default:
		return 0, fmt.Errorf("unknown integration method '%s': %w", name, ErrUnsupportedMethod)
	}
}

// Default tolerances.
const (
	DefaultAbsTol = 1e-10
	DefaultRelTol = 1e-10
)

// Config configures an integration.
type Config struct {
	Method Method
	AbsTol float64
	RelTol float64
	// Step is the initial trial step of the adaptive methods and the step of RK4. Only its magnitude
	// is used. Zero uses the first output interval.
	Step float64
	// MinStep is the smallest accepted step magnitude. Zero uses 1e-13 of the span.
	MinStep float64
	// MaxRejections caps consecutive rejected trial steps. Zero uses 100.
	MaxRejections int
}

func (c Config) withDefaults(ts []float64) Config {
	if c.AbsTol <= 0 {
		c.AbsTol = DefaultAbsTol
	}
	if c.RelTol <= 0 {
		c.RelTol = DefaultRelTol
	}
	span := math.Abs(ts[len(ts)-1] - ts[0])
	if c.Step == 0 {
		c.Step = math.Abs(ts[1] - ts[0])
	}
	c.Step = math.Abs(c.Step)
	if c.MinStep <= 0 {
		c.MinStep = 1e-13 * span
	}
	if c.MaxRejections <= 0 {
		c.MaxRejections = 100
	}
	return c
}

// Stats counts the work done by an integration.
type Stats struct {
	Evaluations uint
	Steps       uint
	Rejections  uint
}

// Integrate returns the states at each of ts, starting from y0 at ts[0]. The times must be
// strictly monotone, in either direction; every output lands exactly on its time. Any error
// discards the whole result.
func Integrate[T algebra.Number[T]](f System[T], y0 []T, ts []float64, cfg Config) (ys [][]T, stats Stats, err error) {
	if len(ts) == 0 {
		return nil, stats, fmt.Errorf("no output times: %w", ErrInvalidStepDirection)
	}
	if len(ts) == 1 {
		return [][]T{copyState(y0)}, stats, nil
	}
	dir := math.Copysign(1, ts[1]-ts[0])
	for i := 1; i < len(ts); i++ {
		if !(dir*(ts[i]-ts[i-1]) > 0) {
			return nil, stats, fmt.Errorf("output time %g after %g: %w", ts[i], ts[i-1], ErrInvalidStepDirection)
		}
	}
	cfg = cfg.withDefaults(ts)

	defer algebra.Catch(&err)
	switch cfg.Method {
	case CashKarp:
		return cashKarp(f, y0, ts, cfg)
	case RK4:
		if fr, ok := any(f).(System[algebra.Real]); ok {
			out, st, err := rk4ODE(fr, any(y0).([]algebra.Real), ts, cfg)
			if err != nil {
				return nil, st, err
			}
			return any(out).([][]T), st, nil
		}
		return rk4(f, y0, ts, cfg)
	case DormandPrince:
		fr, ok := any(f).(System[algebra.Real])
		if !ok {
			return nil, stats, fmt.Errorf("%s with %T states: %w", cfg.Method, y0[0], ErrUnsupportedMethod)
		}
		out, st, err := dormandPrince(fr, any(y0).([]algebra.Real), ts, cfg)
		if err != nil {
			return nil, st, err
		}
		return any(out).([][]T), st, nil
	default:
		return nil, stats, fmt.Errorf("method %d: %w", cfg.Method, ErrUnsupportedMethod)
	}
}

func copyState[T any](y []T) []T {
	return append([]T(nil), y...)
}

// evaluate calls f and checks the derivative.
func evaluate[T algebra.Number[T]](f System[T], t float64, y []T, stats *Stats) ([]T, error) {
	stats.Evaluations++
	dy := f(t, y)
	if len(dy) != len(y) {
		return nil, fmt.Errorf("derivative of length %d for a state of length %d: %w", len(dy), len(y), ErrDimensionMismatch)
	}
	for i, v := range dy {
		if !v.IsFinite() {
			return nil, fmt.Errorf("component %d at t=%g: %w", i, t, ErrDynamicsEvaluation)
		}
	}
	return dy, nil
}

// combine returns y + h·Σ aᵢ·kᵢ.
func combine[T algebra.Number[T]](y []T, h float64, a []float64, ks [][]T) []T {
	out := copyState(y)
	for j, aj := range a {
		if aj == 0 {
			continue
		}
		for i := range out {
			out[i] = out[i].Add(ks[j][i].Scale(h * aj))
		}
	}
	return out
}
