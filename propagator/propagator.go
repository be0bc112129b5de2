// Package propagator integrates the motion of an orbiting body under the central attraction and a
// set of perturbations, for real or polynomial states.
package propagator

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/maxhlc/thames/algebra"
	"github.com/maxhlc/thames/astro"
	"github.com/maxhlc/thames/integrator"
	"github.com/maxhlc/thames/perturbation"
)

// Errors of the propagation layer. They are those of the integrator, so either package's
// sentinels match with errors.Is.
var (
	ErrInvalidStepDirection = integrator.ErrInvalidStepDirection
	ErrStepSizeUnderflow    = integrator.ErrStepSizeUnderflow
	ErrDynamicsEvaluation   = integrator.ErrDynamicsEvaluation
	ErrDimensionMismatch    = integrator.ErrDimensionMismatch
	ErrUnsupportedMethod    = integrator.ErrUnsupportedMethod
)

// Formulation selects the state which is integrated.
type Formulation uint8

const (
	// Cowell integrates the Cartesian state directly.
	Cowell Formulation = iota + 1
	// GEqOE integrates the generalised equinoctial orbital elements.
	GEqOE
)

func (f Formulation) String() string {
	switch f {
	case Cowell:
		return "Cowell"
	case GEqOE:
		return "GEqOE"
	}
	panic("cannot stringify unknown formulation")
}

// FormulationFromString returns the formulation from its name, ignoring case.
func FormulationFromString(name string) (Formulation, error) {
	switch strings.ToLower(name) {
	case "cowell", "cartesian":
		return Cowell, nil
	case "geqoe":
		return GEqOE, nil
	}
	return 0, fmt.Errorf("unknown equations of motion '%s'", name)
}

// Options tune the integration. The zero value is the adaptive Cash-Karp method with the default
// tolerances.
type Options struct {
	Method integrator.Method
	AbsTol float64
	RelTol float64
}

// Trajectory is the sequence of propagated samples, in the units of the initial state.
type Trajectory[T algebra.Number[T]] struct {
	Times  []float64
	States [][]T
	Stats  integrator.Stats
}

// Len returns the number of samples.
func (t Trajectory[T]) Len() int {
	return len(t.Times)
}

// Final returns the last state.
func (t Trajectory[T]) Final() []T {
	return t.States[len(t.States)-1]
}

// Propagator propagates states of the algebra T. It only holds read-only configuration, so it may
// be shared between goroutines.
type Propagator[T algebra.Number[T]] struct {
	formulation Formulation
	body        astro.CelestialObject
	perts       *perturbation.Combiner[T]
	opts        Options
}

// New returns a propagator about body. The propagation runs in the dimensional factors of the
// combiner: states and times are converted to those units on the way in and back on the way out.
// A nil combiner is free flight in dimensional units.
func New[T algebra.Number[T]](formulation Formulation, body astro.CelestialObject, perts *perturbation.Combiner[T], opts Options) *Propagator[T] {
	if formulation != Cowell && formulation != GEqOE {
		panic(fmt.Sprintf("unknown formulation %d", formulation))
	}
	if perts == nil {
		perts = perturbation.NewCombiner[T](astro.Unity())
	}
	return &Propagator[T]{formulation, body, perts, opts}
}

// Formulation returns the equations of motion in use.
func (p *Propagator[T]) Formulation() Formulation {
	return p.formulation
}

// Factors returns the dimensional factors of the integration.
func (p *Propagator[T]) Factors() astro.DimensionalFactors {
	return p.perts.Factors()
}

// Epochs returns tStart + k·tStep for every k strictly before tEnd, followed by tEnd itself. A
// sample within a billionth of a step of tEnd is merged with it.
func Epochs(tStart, tEnd, tStep float64) ([]float64, error) {
	if tStep == 0 || math.IsNaN(tStep) {
		return nil, fmt.Errorf("zero time step: %w", ErrInvalidStepDirection)
	}
	if math.IsInf(tStep, 0) || math.IsNaN(tStart) || math.IsInf(tStart, 0) || math.IsNaN(tEnd) || math.IsInf(tEnd, 0) {
		return nil, fmt.Errorf("step %g from %g to %g: %w", tStep, tStart, tEnd, ErrInvalidStepDirection)
	}
	if tEnd == tStart {
		return []float64{tStart}, nil
	}
	if math.Signbit(tStep) != math.Signbit(tEnd-tStart) {
		return nil, fmt.Errorf("step %g from %g to %g: %w", tStep, tStart, tEnd, ErrInvalidStepDirection)
	}
	dir := math.Copysign(1, tStep)
	ts := []float64{tStart}
	for k := 1; ; k++ {
		t := tStart + float64(k)*tStep
		if dir*(tEnd-t) <= 1e-9*math.Abs(tStep) {
			break
		}
		ts = append(ts, t)
	}
	return append(ts, tEnd), nil
}

// Propagate returns the trajectory from x0 at tStart to tEnd, sampled every tStep. The whole
// trajectory is discarded on failure.
func (p *Propagator[T]) Propagate(tStart, tEnd, tStep float64, x0 []T) (Trajectory[T], error) {
	if len(x0) != 6 {
		return Trajectory[T]{}, fmt.Errorf("initial state of length %d: %w", len(x0), ErrDimensionMismatch)
	}
	ts, err := Epochs(tStart, tEnd, tStep)
	if err != nil {
		return Trajectory[T]{}, err
	}
	return p.propagate(ts, x0, math.Abs(tStep))
}

// PropagateTimes returns the states at each of ts, from x0 at ts[0]. The times must be strictly
// monotone.
func (p *Propagator[T]) PropagateTimes(ts []float64, x0 []T) (Trajectory[T], error) {
	if len(x0) != 6 {
		return Trajectory[T]{}, fmt.Errorf("initial state of length %d: %w", len(x0), ErrDimensionMismatch)
	}
	if len(ts) == 0 {
		return Trajectory[T]{}, fmt.Errorf("no output times: %w", ErrInvalidStepDirection)
	}
	return p.propagate(ts, x0, 0)
}

// PropagateMany propagates each of xs over the same epochs, one after the other.
func (p *Propagator[T]) PropagateMany(tStart, tEnd, tStep float64, xs [][]T) ([]Trajectory[T], error) {
	out := make([]Trajectory[T], len(xs))
	for i, x0 := range xs {
		traj, err := p.Propagate(tStart, tEnd, tStep, x0)
		if err != nil {
			return nil, fmt.Errorf("state #%d: %w", i, err)
		}
		out[i] = traj
	}
	return out, nil
}

// propagate runs the integration in the units of the combiner. step is the initial trial step in
// seconds; zero lets the integrator pick it.
func (p *Propagator[T]) propagate(ts []float64, x0 []T, step float64) (traj Trajectory[T], err error) {
	if len(ts) == 1 {
		return Trajectory[T]{Times: []float64{ts[0]}, States: [][]T{append([]T(nil), x0...)}}, nil
	}
	defer algebra.Catch(&err)
	f := p.perts.Factors()
	μ := p.body.GM() * f.Time * f.Time / (f.Length * f.Length * f.Length)
	τs := make([]float64, len(ts))
	for i, t := range ts {
		τs[i] = t / f.Time
	}
	y0 := astro.NondimensionaliseCartesian(x0, f)

	// Failures of the equations of motion which are not algebra errors end up here.
	var dynErr error
	var sys integrator.System[T]
	switch p.formulation {
	case Cowell:
		sys = cowell(μ, p.perts)
	case GEqOE:
		if y0, err = astro.CartesianToGEqOE(τs[0], y0, μ, p.perts.Potential); err != nil {
			return Trajectory[T]{}, err
		}
		sys = geqoe(μ, p.perts, &dynErr)
	}

	cfg := integrator.Config{
		Method: p.opts.Method,
		AbsTol: p.opts.AbsTol,
		RelTol: p.opts.RelTol,
		Step:   step / f.Time,
	}
	ys, stats, err := integrator.Integrate(sys, y0, τs, cfg)
	if dynErr != nil {
		return Trajectory[T]{}, fmt.Errorf("%s equations of motion: %w", p.formulation, dynErr)
	}
	if errors.Is(err, algebra.ErrSingularDivision) {
		// A polynomial radius through zero.
		return Trajectory[T]{}, fmt.Errorf("%s equations of motion: %w: %w", p.formulation, ErrDynamicsEvaluation, err)
	}
	if err != nil {
		return Trajectory[T]{}, err
	}

	traj = Trajectory[T]{Times: append([]float64(nil), ts...), States: make([][]T, len(ys)), Stats: stats}
	for i, y := range ys {
		if p.formulation == GEqOE {
			if y, err = astro.GEqOEToCartesian(τs[i], y, μ, p.perts.Potential); err != nil {
				return Trajectory[T]{}, err
			}
		}
		traj.States[i] = astro.DimensionaliseCartesian(y, f)
	}
	return traj, nil
}
