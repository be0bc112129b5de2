package propagator

import (
	"math"

	"github.com/maxhlc/thames/algebra"
	"github.com/maxhlc/thames/astro"
	"github.com/maxhlc/thames/integrator"
	"github.com/maxhlc/thames/perturbation"
)

// geqoe returns the rates of the generalised equinoctial elements (ν, p1, p2, L, q1, q2) of Baù,
// Hernando-Ayuso and Bombardelli (2021). A failed recovery of the Cartesian state is stored in fail
// and reported to the integrator as a non-finite derivative.
func geqoe[T algebra.Number[T]](μ float64, perts *perturbation.Combiner[T], fail *error) integrator.System[T] {
	return func(t float64, g []T) []T {
		x, err := astro.GEqOEToCartesian(t, g, μ, perts.Potential)
		if err != nil {
			if *fail == nil {
				*fail = err
			}
			nan := g[0].Lift(math.NaN())
			return []T{nan, nan, nan, nan, nan, nan}
		}
		ν, p1, p2, q1, q2 := g[0], g[1], g[2], g[4], g[5]
		R, V := algebra.Split(x)
		r := R.Norm()
		r2 := r.Mul(r)
		drdt := R.Dot(V).Div(r)

		U := perts.Potential(t, R)
		F := perts.AccelerationTotal(t, R, V)
		P := perts.AccelerationNonPotential(t, R, V)

		// Rate of the total energy.
		edot := perts.PotentialRate(t, R, V).Add(P.Dot(V))
		νdot := ν.Scale(1 / (μ * μ)).Pow(1.0 / 3).Mul(edot).Scale(-3)

		ex, ey := astro.EquinoctialFrame(q1, q2)
		er := R.Scale(r.Pow(-1))
		cl, sl := er.Dot(ex), er.Dot(ey)
		hwh := q1.Mul(cl).Sub(q2.Mul(sl))

		H := R.Cross(V)
		h := H.Norm()
		eh := H.Scale(h.Pow(-1))

		// Generalised angular momentum and semi-latus rectum.
		ueff := h.Mul(h).Div(r2.Scale(2)).Add(U)
		c := r2.Mul(ueff).Scale(2).Sqrt()
		p := c.Mul(c).Scale(1 / μ)

		Fr, Fh := F.Dot(er), F.Dot(eh)
		ζ := r.Div(p)
		ζt := ζ.AddConst(1)

		hc := h.Sub(c).Div(r2)
		rhF := r.Div(h).Mul(hwh).Mul(Fh)
		w := U.Scale(2).Sub(r.Mul(Fr))
		rdc := r.Mul(drdt).Div(c)
		re := r.Scale(1 / μ).Mul(edot)
		ic := c.Pow(-1)

		p1dot := p2.Mul(hc.Sub(rhF)).
			Add(ic.Mul(rdc.Mul(p1).Add(ζt.Mul(p2)).Add(ζ.Mul(cl))).Mul(w)).
			Add(re.Mul(ζ.Mul(p1).Add(ζt.Mul(sl))))
		p2dot := p1.Mul(rhF.Sub(hc)).
			Add(ic.Mul(rdc.Mul(p2).Sub(ζt.Mul(p1)).Sub(ζ.Mul(sl))).Mul(w)).
			Add(re.Mul(ζ.Mul(p2).Add(ζt.Mul(cl))))

		a := ν.Mul(ν).Pow(-1).Scale(μ).Pow(1.0 / 3)
		α := p1.Mul(p1).Add(p2.Mul(p2)).Neg().AddConst(1).Sqrt().AddConst(1).Pow(-1)
		Ldot := ν.Add(hc).Sub(rhF).
			Add(r.Mul(drdt).Mul(c).Scale(1 / (μ * μ)).Mul(ζt).Mul(α).Mul(edot)).
			Add(ic.Mul(α.Pow(-1).Add(α.Mul(r.Div(a).Neg().AddConst(1)))).Mul(w))

		qfac := r.Div(h.Scale(2)).Mul(Fh).Mul(q1.Mul(q1).Add(q2.Mul(q2)).AddConst(1))
		return []T{νdot, p1dot, p2dot, Ldot, qfac.Mul(sl), qfac.Mul(cl)}
	}
}
