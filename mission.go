package thames

import (
	"context"
	"fmt"
	"os"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/maxhlc/thames/algebra"
	"github.com/maxhlc/thames/astro"
	"github.com/maxhlc/thames/perturbation"
	"github.com/maxhlc/thames/propagator"
)

// polynomial is an algebra whose values expose their coefficients.
type polynomial[T any] interface {
	algebra.Number[T]
	Basis() *algebra.Basis
	Coefficients() []float64
}

// Mission runs a scenario: it builds the models, propagates the nominal state (or its polynomial
// expansion) and any batch of further states, and gathers the results for export.
type Mission struct {
	Scenario *Scenario
	logger   kitlog.Logger
	pool     *Pool
}

// NewMission returns a mission for sc. A nil logger logs nothing.
func NewMission(sc *Scenario, logger kitlog.Logger) *Mission {
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	logger = kitlog.With(logger, "scenario", sc.Name)
	return &Mission{sc, logger, NewPool(sc.Workers, logger)}
}

// NewDefaultLogger returns the logfmt logger on stdout used by the command line.
func NewDefaultLogger() kitlog.Logger {
	return kitlog.With(kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout)), "ts", kitlog.DefaultTimestampUTC)
}

// InitialState returns the nominal Cartesian initial state in km and km/s.
func (m *Mission) InitialState() ([]float64, error) {
	sc := m.Scenario
	x := append([]float64(nil), sc.States.Values...)
	switch sc.States.Type {
	case StateKeplerian:
		// Angles are given in degrees.
		for i := 2; i < 6; i++ {
			x[i] = astro.Deg2rad(x[i])
		}
		if x[0] <= 0 || x[1] < 0 || x[1] >= 1 {
			return nil, invalid("keplerian elements %v are not of an elliptic orbit", sc.States.Values)
		}
		return astro.KeplerianToCartesian(x, sc.Body.GM()), nil
	case StateGEqOE:
		perts, err := buildCombiner[algebra.Real](sc, astro.Unity())
		if err != nil {
			return nil, err
		}
		rv, err := astro.GEqOEToCartesian(0, algebra.Reals(x), sc.Body.GM(), perts.Potential)
		if err != nil {
			return nil, invalid("generalised elements %v: %s", x, err)
		}
		return algebra.Floats(rv), nil
	default:
		return x, nil
	}
}

// Factors returns the dimensional factors of the run.
func (m *Mission) Factors(x0 []float64) astro.DimensionalFactors {
	if m.Scenario.Propagator.NonDimensional {
		return astro.FactorsFromState(x0, m.Scenario.Body.GM())
	}
	return astro.Unity()
}

func buildCombiner[T algebra.Number[T]](sc *Scenario, f astro.DimensionalFactors) (*perturbation.Combiner[T], error) {
	perts := perturbation.NewCombiner[T](f)
	if sc.HasJ2() {
		if err := perts.AddModel(perturbation.NewJ2[T](sc.Body, f)); err != nil {
			return nil, err
		}
	}
	if sc.HasDrag() {
		var atm perturbation.Atmosphere[T]
		var err error
		if table := sc.Perturbations.Table; table != nil {
			atm, err = perturbation.NewTabulated[T](table.Altitudes, table.Densities, table.ScaleHeights)
		} else {
			atm, err = perturbation.NewAtmosphere[T](sc.Perturbations.Atmosphere)
		}
		if err != nil {
			return nil, invalid("%s", err)
		}
		drag := perturbation.NewDrag[T](sc.Body, sc.Spacecraft.Cd, sc.Spacecraft.Area, sc.Spacecraft.Mass, atm, f)
		if err := perts.AddModel(drag); err != nil {
			return nil, err
		}
	}
	return perts, nil
}

func buildPropagator[T algebra.Number[T]](sc *Scenario, f astro.DimensionalFactors) (*propagator.Propagator[T], error) {
	perts, err := buildCombiner[T](sc, f)
	if err != nil {
		return nil, err
	}
	opts := propagator.Options{
		Method: sc.Propagator.Method,
		AbsTol: sc.Propagator.AbsTol,
		RelTol: sc.Propagator.RelTol,
	}
	return propagator.New(sc.Propagator.Equations, sc.Body, perts, opts), nil
}

// Run propagates the scenario. Cancelling ctx stops the batch and sample propagations between
// states; the nominal propagation itself always runs to completion.
func (m *Mission) Run(ctx context.Context) (*Result, error) {
	sc := m.Scenario
	start := time.Now()
	x0, err := m.InitialState()
	if err != nil {
		return nil, err
	}
	f := m.Factors(x0)
	ts, err := propagator.Epochs(0, sc.Propagator.Span(), sc.Propagator.Step)
	if err != nil {
		return nil, invalid("%s", err)
	}
	level.Info(m.logger).Log("subsys", "prop", "status", "starting", "equations", sc.Propagator.Equations,
		"method", sc.Propagator.Method, "epochs", len(ts), "polynomial", sc.Polynomial.Enabled, "nondimensional", !f.IsUnity())

	var batch [][]float64
	if sc.States.File != "" {
		if batch, err = m.readBatch(); err != nil {
			return nil, err
		}
	}

	res := newResult(sc, ts)
	if !sc.Polynomial.Enabled {
		err = m.runScalar(ctx, res, x0, f, ts)
	} else {
		basis := algebra.NewBasis(6, sc.Polynomial.Degree)
		switch sc.Polynomial.Type {
		case PolynomialChebyshev:
			err = runPolynomial[algebra.Chebyshev](ctx, m, res, algebra.ChebyshevFactory{Basis: basis}, x0, batch, f, ts)
		default:
			err = runPolynomial[algebra.Taylor](ctx, m, res, algebra.TaylorFactory{Basis: basis}, x0, batch, f, ts)
		}
	}
	if err != nil {
		level.Error(m.logger).Log("subsys", "prop", "status", "failed", "err", err)
		return nil, err
	}

	if batch != nil {
		if err := m.runBatch(ctx, res, batch, f, ts); err != nil {
			return nil, err
		}
	}
	res.Stats.WallTime = time.Since(start).Seconds()
	level.Info(m.logger).Log("subsys", "prop", "status", "finished", "duration", time.Since(start),
		"steps", res.Stats.Steps, "evaluations", res.Stats.Evaluations, "rejections", res.Stats.Rejections)
	return res, nil
}

func (m *Mission) runScalar(ctx context.Context, res *Result, x0 []float64, f astro.DimensionalFactors, ts []float64) error {
	prop, err := buildPropagator[algebra.Real](m.Scenario, f)
	if err != nil {
		return err
	}
	traj, err := timedPropagation(prop, ts, algebra.Reals(x0))
	if err != nil {
		return err
	}
	res.setStats(traj.Stats)
	for _, x := range traj.States {
		res.States = append(res.States, algebra.Floats(x))
	}
	return nil
}

// runPolynomial expands the dynamics over the uncertainty box of x0, widened to hold any batch
// states so that they can be evaluated through the expansion.
func runPolynomial[T polynomial[T]](ctx context.Context, m *Mission, res *Result, factory algebra.Factory[T], x0 []float64, batch [][]float64, f astro.DimensionalFactors, ts []float64) error {
	sc := m.Scenario
	lo, hi := make([]float64, 6), make([]float64, 6)
	for i := range lo {
		lo[i] = x0[i] - sc.States.Uncertainty[i]
		hi[i] = x0[i] + sc.States.Uncertainty[i]
	}
	lo, hi = CoveringBox(batch, lo, hi)
	init := make([]T, 6)
	for i := range init {
		init[i] = factory.Variable(i, lo[i], hi[i])
	}
	prop, err := buildPropagator[T](sc, f)
	if err != nil {
		return err
	}
	traj, err := timedPropagation(prop, ts, init)
	if err != nil {
		return err
	}
	res.setStats(traj.Stats)

	basis := init[0].Basis()
	poly := &PolynomialResult{
		Type:      sc.Polynomial.Type,
		Variables: basis.Vars(),
		Degree:    basis.Degree(),
		Lower:     lo,
		Upper:     hi,
	}
	for k := 0; k < basis.Len(); k++ {
		poly.Exponents = append(poly.Exponents, basis.Exponents(k))
	}
	nominal := StateToSample(x0, lo, hi)
	for _, x := range traj.States {
		coeffs := make([][]float64, len(x))
		for i, c := range x {
			coeffs[i] = c.Coefficients()
		}
		poly.Coefficients = append(poly.Coefficients, coeffs)
		res.States = append(res.States, EvalState(x, nominal))
	}
	res.Polynomial = poly

	if len(batch) > 0 {
		points := make([][]float64, len(batch))
		for i, x := range batch {
			points[i] = StateToSample(x, lo, hi)
		}
		res.Cloud = evalSamples(traj.States, points)
		level.Debug(m.logger).Log("subsys", "cloud", "states", len(batch))
	}

	var ξs [][]float64
	switch {
	case sc.Samples.Len() == 0:
		return nil
	case sc.Samples.Type == SamplesGrid:
		ξs = GridSamples(sc.Samples.Points, 6)
	default:
		ξs = UniformSamples(sc.Samples.Count, 6, sc.Samples.Seed)
	}
	samples := evalSamples(traj.States, ξs)
	res.Samples = samples

	// Monte Carlo validation of the expansion against scalar propagations of the samples.
	scalar, err := buildPropagator[algebra.Real](sc, f)
	if err != nil {
		return err
	}
	initial := make([][]float64, len(ξs))
	for s, ξ := range ξs {
		initial[s] = SampleToState(ξ, lo, hi)
	}
	trajs, errs, err := m.pool.PropagateBatch(ctx, scalar, ts, initial)
	if err != nil {
		return err
	}
	failed := countFailed(errs)
	var approx, exact [][]float64
	for s, tr := range trajs {
		if tr.Len() == 0 {
			continue
		}
		approx = append(approx, samples.States[s][len(ts)-1])
		exact = append(exact, algebra.Floats(tr.Final()))
	}
	v := Validate(approx, exact)
	v.Failed = failed
	samples.Validation = &v
	level.Info(m.logger).Log("subsys", "validation", "samples", v.Samples, "failed", failed,
		"mean_pos_err(km)", v.MeanPosition, "max_pos_err(km)", v.MaxPosition)
	return nil
}

// evalSamples evaluates a polynomial trajectory at each of ξs.
func evalSamples[T polynomial[T]](traj [][]T, ξs [][]float64) *SampleResult {
	out := &SampleResult{Points: ξs}
	for _, ξ := range ξs {
		states := make([][]float64, len(traj))
		for k, x := range traj {
			states[k] = EvalState(x, ξ)
		}
		out.States = append(out.States, states)
	}
	return out
}

func (m *Mission) readBatch() ([][]float64, error) {
	fd, err := os.Open(m.Scenario.States.File)
	if err != nil {
		return nil, err
	}
	defer fd.Close()
	states, err := ReadStates(fd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.Scenario.States.File, err)
	}
	return states, nil
}

// runBatch propagates each batch state on its own. When the batch was also evaluated through the
// polynomial expansion, the final states validate it.
func (m *Mission) runBatch(ctx context.Context, res *Result, states [][]float64, f astro.DimensionalFactors, ts []float64) error {
	prop, err := buildPropagator[algebra.Real](m.Scenario, f)
	if err != nil {
		return err
	}
	trajs, errs, err := m.pool.PropagateBatch(ctx, prop, ts, states)
	if err != nil {
		return err
	}
	failed := countFailed(errs)
	for i, tr := range trajs {
		bt := BatchTrajectory{Initial: states[i]}
		if errs[i] != nil {
			bt.Error = errs[i].Error()
		}
		for _, x := range tr.States {
			bt.States = append(bt.States, algebra.Floats(x))
		}
		res.Batch = append(res.Batch, bt)
	}
	level.Info(m.logger).Log("subsys", "batch", "states", len(states), "failed", failed)

	if res.Cloud == nil {
		return nil
	}
	var approx, exact [][]float64
	for i, tr := range trajs {
		if tr.Len() == 0 {
			continue
		}
		approx = append(approx, res.Cloud.States[i][len(ts)-1])
		exact = append(exact, algebra.Floats(tr.Final()))
	}
	v := Validate(approx, exact)
	v.Failed = failed
	res.Cloud.Validation = &v
	level.Info(m.logger).Log("subsys", "validation", "cloud", v.Samples, "failed", failed,
		"mean_pos_err(km)", v.MeanPosition, "max_pos_err(km)", v.MaxPosition)
	return nil
}

// timedPropagation runs one propagation and records it in the metrics.
func timedPropagation[T algebra.Number[T]](prop *propagator.Propagator[T], ts []float64, x0 []T) (propagator.Trajectory[T], error) {
	start := time.Now()
	traj, err := prop.PropagateTimes(ts, x0)
	observePropagation(prop.Formulation(), algebraName[T](), time.Since(start), traj.Stats, err)
	return traj, err
}
