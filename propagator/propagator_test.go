package propagator

import (
	"errors"
	"math"
	"testing"

	"github.com/maxhlc/thames/algebra"
	"github.com/maxhlc/thames/astro"
	"github.com/maxhlc/thames/integrator"
	"github.com/maxhlc/thames/perturbation"
	"gonum.org/v1/gonum/floats"
)

var (
	leo    = []float64{7000, 0, 0, 0, 7.5, 0}
	leoInc = astro.KeplerianToCartesian([]float64{7000, 0.01, 45 * math.Pi / 180, 0.3, 0.5, 0.2}, astro.Earth.GM())
)

func period(x []float64) float64 {
	a := astro.CartesianToKeplerian(x, astro.Earth.GM())[0]
	return 2 * math.Pi * math.Sqrt(a*a*a/astro.Earth.GM())
}

func j2Combiner[T algebra.Number[T]](t *testing.T, f astro.DimensionalFactors, drag bool) *perturbation.Combiner[T] {
	perts := perturbation.NewCombiner[T](f)
	if err := perts.AddModel(perturbation.NewJ2[T](astro.Earth, f)); err != nil {
		t.Fatal(err)
	}
	if drag {
		atm, err := perturbation.NewAtmosphere[T](perturbation.PresetUSSA76)
		if err != nil {
			t.Fatal(err)
		}
		if err := perts.AddModel(perturbation.NewDrag[T](astro.Earth, 2.2, 10, 500, atm, f)); err != nil {
			t.Fatal(err)
		}
	}
	return perts
}

// closeRV compares position and velocity errors separately.
func closeRV(got, exp []float64, posTol, velTol float64) bool {
	dr := floats.Distance(got[:3], exp[:3], 2)
	dv := floats.Distance(got[3:], exp[3:], 2)
	return dr <= posTol && dv <= velTol
}

func propagateReal(t *testing.T, p *Propagator[algebra.Real], tStart, tEnd, tStep float64, x0 []float64) Trajectory[algebra.Real] {
	traj, err := p.Propagate(tStart, tEnd, tStep, algebra.Reals(x0))
	if err != nil {
		t.Fatalf("%s: %s", p.Formulation(), err)
	}
	return traj
}

func TestEpochs(t *testing.T) {
	for _, test := range []struct {
		start, end, step float64
		exp              []float64
	}{
		{0, 10, 3, []float64{0, 3, 6, 9, 10}},
		{0, 9, 3, []float64{0, 3, 6, 9}},
		{0, 1, 0.1, []float64{0, 0.1, 0.2, 0.30000000000000004, 0.4, 0.5, 0.6000000000000001, 0.7000000000000001, 0.8, 0.9, 1}},
		{5, -1, -2, []float64{5, 3, 1, -1}},
		{5, 5, 1, []float64{5}},
		{5, 5, -1, []float64{5}},
	} {
		ts, err := Epochs(test.start, test.end, test.step)
		if err != nil {
			t.Fatal(err)
		}
		if !floats.Equal(ts, test.exp) {
			t.Fatalf("epochs(%g, %g, %g): got %v exp %v", test.start, test.end, test.step, ts, test.exp)
		}
	}
	inf, nan := math.Inf(1), math.NaN()
	for _, bad := range [][3]float64{
		{0, 10, -1}, {0, -10, 1}, {0, 10, 0}, {0, 0, 0},
		{0, inf, 60}, {0, -inf, -60}, {0, nan, 60}, {nan, 10, 1}, {-inf, 10, 1}, {0, 10, inf}, {0, 10, nan},
	} {
		if _, err := Epochs(bad[0], bad[1], bad[2]); !errors.Is(err, ErrInvalidStepDirection) {
			t.Fatalf("%v: expected invalid step direction, got %v", bad, err)
		}
	}
}

func TestTwoBodyPeriodic(t *testing.T) {
	T := period(leo)
	for _, formulation := range []Formulation{Cowell, GEqOE} {
		p := New[algebra.Real](formulation, astro.Earth, nil, Options{})
		traj := propagateReal(t, p, 0, T, 60, leo)
		if traj.Times[traj.Len()-1] != T || traj.Len() != int(math.Ceil(T/60))+1 {
			t.Fatalf("%s: %d samples ending at %f", formulation, traj.Len(), traj.Times[traj.Len()-1])
		}
		if got := algebra.Floats(traj.Final()); !closeRV(got, leo, 1e-4, 1e-7) {
			t.Fatalf("%s: not periodic\ngot %v\nexp %v", formulation, got, leo)
		}
		// Starting at apogee, the perigee is half a period away.
		half := algebra.Floats(traj.States[0])
		for i, ti := range traj.Times {
			if math.Abs(ti-T/2) < 30 {
				half = algebra.Floats(traj.States[i])
			}
		}
		if r := floats.Norm(half[:3], 2); r > 6900 {
			t.Fatalf("%s: radius half an orbit later %f", formulation, r)
		}
	}
}

func TestMethodsAgree(t *testing.T) {
	ref := propagateReal(t, New[algebra.Real](Cowell, astro.Earth, nil, Options{}), 0, 3000, 100, leo)
	for _, test := range []struct {
		opts Options
		step float64
	}{
		{Options{Method: integrator.RK4}, 5},
		{Options{Method: integrator.DormandPrince, AbsTol: 1e-12, RelTol: 1e-12}, 100},
	} {
		traj := propagateReal(t, New[algebra.Real](Cowell, astro.Earth, nil, test.opts), 0, 3000, test.step, leo)
		if got, exp := algebra.Floats(traj.Final()), algebra.Floats(ref.Final()); !closeRV(got, exp, 1e-4, 1e-7) {
			t.Fatalf("%s\ngot %v\nexp %v", test.opts.Method, got, exp)
		}
	}
}

func TestEnergyWithJ2(t *testing.T) {
	perts := j2Combiner[algebra.Real](t, astro.Unity(), false)
	p := New(Cowell, astro.Earth, perts, Options{})
	energy := func(x []algebra.Real) float64 {
		R, V := algebra.Split(x)
		return float64(V.Dot(V)/2 - algebra.Real(astro.Earth.GM())/R.Norm() + perts.Potential(0, R))
	}
	traj := propagateReal(t, p, 0, 2*period(leoInc), 600, leoInc)
	e0 := energy(traj.States[0])
	for i, x := range traj.States {
		if e := energy(x); math.Abs(e-e0) > 1e-7*math.Abs(e0) {
			t.Fatalf("energy drift at t=%f: %g -> %g", traj.Times[i], e0, e)
		}
	}
}

func TestCowellGEqOEAgree(t *testing.T) {
	for _, drag := range []bool{false, true} {
		perts := j2Combiner[algebra.Real](t, astro.Unity(), drag)
		x0 := leoInc
		if drag {
			// Low enough for the atmosphere to matter.
			x0 = astro.KeplerianToCartesian([]float64{6800, 0.001, 1, 0.3, 0.5, 0.2}, astro.Earth.GM())
		}
		cowell := propagateReal(t, New(Cowell, astro.Earth, perts, Options{}), 0, 7200, 600, x0)
		geqoe := propagateReal(t, New(GEqOE, astro.Earth, perts, Options{}), 0, 7200, 600, x0)
		for i := range cowell.States {
			got, exp := algebra.Floats(geqoe.States[i]), algebra.Floats(cowell.States[i])
			if !closeRV(got, exp, 1e-4, 1e-7) {
				t.Fatalf("drag=%v at t=%f\ngeqoe  %v\ncowell %v", drag, cowell.Times[i], got, exp)
			}
		}
	}
}

func TestJ2NodalRegression(t *testing.T) {
	perts := j2Combiner[algebra.Real](t, astro.Unity(), false)
	kep0 := astro.CartesianToKeplerian(leoInc, astro.Earth.GM())
	a, e, inc := kep0[0], kep0[1], kep0[2]
	n := math.Sqrt(astro.Earth.GM() / (a * a * a))
	pr := a * (1 - e*e)
	Ωdot := -1.5 * n * astro.Earth.J2 * math.Pow(astro.Earth.Radius/pr, 2) * math.Cos(inc)
	span := 15 * period(leoInc)
	for _, formulation := range []Formulation{Cowell, GEqOE} {
		traj := propagateReal(t, New(formulation, astro.Earth, perts, Options{}), 0, span, span/4, leoInc)
		kep := astro.CartesianToKeplerian(algebra.Floats(traj.Final()), astro.Earth.GM())
		ΔΩ := astro.AngleWrap(kep[3] - kep0[3])
		if exp := Ωdot * span; math.Abs(ΔΩ-exp) > 0.05*math.Abs(exp) {
			t.Fatalf("%s: RAAN drift %f exp %f", formulation, ΔΩ, exp)
		}
	}
}

func TestBackward(t *testing.T) {
	perts := j2Combiner[algebra.Real](t, astro.Unity(), true)
	for _, formulation := range []Formulation{Cowell, GEqOE} {
		p := New(formulation, astro.Earth, perts, Options{})
		fwd := propagateReal(t, p, 0, 3000, 300, leoInc)
		bwd := propagateReal(t, p, 3000, 0, -300, algebra.Floats(fwd.Final()))
		if bwd.Times[bwd.Len()-1] != 0 {
			t.Fatalf("%s: backward run ends at %f", formulation, bwd.Times[bwd.Len()-1])
		}
		if got := algebra.Floats(bwd.Final()); !closeRV(got, leoInc, 1e-4, 1e-7) {
			t.Fatalf("%s: did not return\ngot %v\nexp %v", formulation, got, leoInc)
		}
	}
}

func TestNonDimensional(t *testing.T) {
	f := astro.FactorsFromState(leoInc, astro.Earth.GM())
	for _, formulation := range []Formulation{Cowell, GEqOE} {
		dim := New(formulation, astro.Earth, j2Combiner[algebra.Real](t, astro.Unity(), true), Options{})
		nondim := New(formulation, astro.Earth, j2Combiner[algebra.Real](t, f, true), Options{})
		if !dim.Factors().IsUnity() || nondim.Factors() != f {
			t.Fatal("factors not taken from the combiner")
		}
		a := propagateReal(t, dim, 0, 5000, 1000, leoInc)
		b := propagateReal(t, nondim, 0, 5000, 1000, leoInc)
		if !floats.Equal(a.Times, b.Times) {
			t.Fatalf("%s: times differ %v %v", formulation, a.Times, b.Times)
		}
		for i := range a.States {
			if got, exp := algebra.Floats(b.States[i]), algebra.Floats(a.States[i]); !closeRV(got, exp, 1e-4, 1e-7) {
				t.Fatalf("%s at t=%f\nnon-dimensional %v\ndimensional     %v", formulation, a.Times[i], got, exp)
			}
		}
	}
}

func TestPolynomialState(t *testing.T) {
	basis := algebra.NewBasis(6, 3)
	halfWidths := []float64{1, 1, 1, 1e-3, 1e-3, 1e-3}
	x0 := make([]algebra.Taylor, 6)
	for i := range x0 {
		x0[i] = algebra.TaylorVariable(basis, i, leoInc[i]-halfWidths[i], leoInc[i]+halfWidths[i])
	}
	f := astro.FactorsFromState(leoInc, astro.Earth.GM())
	corner := []float64{1, -1, 0.5, -0.5, 1, 0}
	cornerState := make([]float64, 6)
	for i := range cornerState {
		cornerState[i] = leoInc[i] + corner[i]*halfWidths[i]
	}
	for _, formulation := range []Formulation{Cowell, GEqOE} {
		poly := New(formulation, astro.Earth, j2Combiner[algebra.Taylor](t, f, false), Options{})
		traj, err := poly.Propagate(0, 3000, 1000, x0)
		if err != nil {
			t.Fatalf("%s: %s", formulation, err)
		}
		scalarProp := New(formulation, astro.Earth, j2Combiner[algebra.Real](t, f, false), Options{})
		nominal := propagateReal(t, scalarProp, 0, 3000, 1000, leoInc)
		perturbed := propagateReal(t, scalarProp, 0, 3000, 1000, cornerState)
		for k, x := range traj.States {
			centre := make([]float64, 6)
			atCorner := make([]float64, 6)
			for i, c := range x {
				centre[i] = c.Eval(make([]float64, 6))
				atCorner[i] = c.Eval(corner)
			}
			if exp := algebra.Floats(nominal.States[k]); !closeRV(centre, exp, 1e-5, 1e-8) {
				t.Fatalf("%s centre at t=%f\ngot %v\nexp %v", formulation, traj.Times[k], centre, exp)
			}
			if exp := algebra.Floats(perturbed.States[k]); !closeRV(atCorner, exp, 1e-4, 1e-7) {
				t.Fatalf("%s corner at t=%f\ngot %v\nexp %v", formulation, traj.Times[k], atCorner, exp)
			}
		}
	}
}

func TestPropagateMany(t *testing.T) {
	p := New[algebra.Real](Cowell, astro.Earth, nil, Options{})
	xs := [][]algebra.Real{algebra.Reals(leo), algebra.Reals(leoInc)}
	trajs, err := p.PropagateMany(0, 1000, 500, xs)
	if err != nil {
		t.Fatal(err)
	}
	for i, traj := range trajs {
		single := propagateReal(t, p, 0, 1000, 500, algebra.Floats(xs[i]))
		if !floats.Equal(algebra.Floats(traj.Final()), algebra.Floats(single.Final())) {
			t.Fatalf("state %d differs from a single propagation", i)
		}
	}
	xs = append(xs, algebra.Reals(leo[:5]))
	if _, err := p.PropagateMany(0, 1000, 500, xs); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected dimension mismatch, got %v", err)
	}

	ts := []float64{0, 100, 250, 1000}
	traj, err := p.PropagateTimes(ts, algebra.Reals(leo))
	if err != nil {
		t.Fatal(err)
	}
	if !floats.Equal(traj.Times, ts) {
		t.Fatalf("times: got %v", traj.Times)
	}
	if !closeRV(algebra.Floats(traj.Final()), algebra.Floats(trajs[0].Final()), 1e-4, 1e-7) {
		t.Fatal("multi-epoch run differs from the sampled run")
	}
}

func TestPropagateErrors(t *testing.T) {
	p := New[algebra.Real](GEqOE, astro.Earth, nil, Options{})
	if _, err := p.Propagate(0, 100, 10, algebra.Reals(leo[:4])); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected dimension mismatch, got %v", err)
	}
	if _, err := p.Propagate(0, 100, -10, algebra.Reals(leo)); !errors.Is(err, ErrInvalidStepDirection) {
		t.Fatalf("expected invalid step direction, got %v", err)
	}
	if _, err := p.PropagateTimes([]float64{0, 10, 5}, algebra.Reals(leo)); !errors.Is(err, ErrInvalidStepDirection) {
		t.Fatalf("expected invalid step direction, got %v", err)
	}
	traj, err := p.Propagate(100, 100, 10, algebra.Reals(leo))
	if err != nil || traj.Len() != 1 || !floats.Equal(algebra.Floats(traj.Final()), leo) {
		t.Fatalf("empty span: %v (%v)", traj, err)
	}
	// Escape trajectories have no generalised elements.
	if _, err := p.Propagate(0, 100, 10, algebra.Reals([]float64{7000, 0, 0, 0, 12, 0})); !errors.Is(err, astro.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}

	basis := algebra.NewBasis(6, 2)
	x0 := make([]algebra.Taylor, 6)
	for i := range x0 {
		x0[i] = algebra.TaylorVariable(basis, i, leo[i], leo[i]+0.1)
	}
	// A polynomial radius with a zero constant term has no inverse.
	origin := make([]algebra.Taylor, 6)
	for i := range origin {
		if i < 3 {
			origin[i] = algebra.TaylorVariable(basis, i, -1, 1)
		} else {
			origin[i] = algebra.TaylorVariable(basis, i, leo[i], leo[i]+1e-3)
		}
	}
	_, err = New[algebra.Taylor](Cowell, astro.Earth, nil, Options{}).Propagate(0, 100, 10, origin)
	if !errors.Is(err, ErrDynamicsEvaluation) || !errors.Is(err, algebra.ErrSingularDivision) {
		t.Fatalf("expected a dynamics evaluation error, got %v", err)
	}
	if _, err := New[algebra.Real](Cowell, astro.Earth, nil, Options{}).Propagate(0, math.Inf(1), 60, algebra.Reals(leo)); !errors.Is(err, ErrInvalidStepDirection) {
		t.Fatalf("expected an invalid step direction for an infinite span, got %v", err)
	}

	poly := New[algebra.Taylor](Cowell, astro.Earth, nil, Options{Method: integrator.DormandPrince})
	if _, err := poly.Propagate(0, 100, 10, x0); !errors.Is(err, ErrUnsupportedMethod) {
		t.Fatalf("expected unsupported method, got %v", err)
	}

	// A trajectory through the centre of the Earth.
	fall := New[algebra.Real](Cowell, astro.Earth, nil, Options{})
	if _, err := fall.Propagate(0, 3000, 100, algebra.Reals([]float64{7000, 0, 0, 0, 0, 0})); err == nil {
		t.Fatal("expected a failed radial fall")
	}
	assertPanic(t, func() {
		New[algebra.Real](Formulation(9), astro.Earth, nil, Options{})
	})
}

func assertPanic(t *testing.T, f func()) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("code did not panic")
		}
	}()
	f()
}
