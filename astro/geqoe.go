package astro

import (
	"fmt"
	"math"

	"github.com/maxhlc/thames/algebra"
	"github.com/maxhlc/thames/tools"
)

// Potential is the perturbing potential energy U(t, R) used to build the generalised elements.
type Potential[T algebra.Number[T]] func(t float64, R algebra.Vec3[T]) T

// Kepler-equation solve of the generalised eccentric longitude.
const (
	geqoeTol     = 1e-12
	geqoeMaxIter = 50
)

// EquinoctialFrame returns the in-plane unit vectors of the equinoctial frame of (q1, q2).
func EquinoctialFrame[T algebra.Number[T]](q1, q2 T) (ex, ey algebra.Vec3[T]) {
	q1s, q2s := q1.Mul(q1), q2.Mul(q2)
	efac := q1s.Add(q2s).AddConst(1).Pow(-1)
	q1q2 := q1.Mul(q2).Scale(2)
	ex = algebra.Vec3[T]{q2s.Sub(q1s).AddConst(1), q1q2, q1.Scale(-2)}.Scale(efac)
	ey = algebra.Vec3[T]{q1q2, q1s.Sub(q2s).AddConst(1), q2.Scale(2)}.Scale(efac)
	return
}

// CartesianToGEqOE returns the generalised equinoctial elements (ν, p1, p2, L, q1, q2) of a
// Cartesian state (Baù, Hernando-Ayuso and Bombardelli, 2021).
func CartesianToGEqOE[T algebra.Number[T]](t float64, x []T, μ float64, U Potential[T]) (g []T, err error) {
	if len(x) != 6 {
		return nil, fmt.Errorf("cartesian state of length %d: %w", len(x), ErrInvalidState)
	}
	defer algebra.Catch(&err)
	R, V := algebra.Split(x)
	r := R.Norm()
	r2 := r.Mul(r)
	drdt := R.Dot(V).Div(r)
	H := R.Cross(V)
	h := H.Norm()

	// Effective potential energy and total energy.
	ueff := h.Mul(h).Div(r2.Scale(2)).Add(U(t, R))
	energy := drdt.Mul(drdt).Scale(0.5).Sub(r.Pow(-1).Scale(μ)).Add(ueff)
	if energy.Constant() >= 0 {
		return nil, fmt.Errorf("non-negative generalised energy %g: %w", energy.Constant(), ErrInvalidState)
	}
	ν := energy.Scale(-2).Pow(1.5).Scale(1 / μ)

	// Plane orientation from tan(i/2)·(sin Ω, cos Ω).
	hhz := h.Add(H[2])
	q1 := H[0].Div(hhz)
	q2 := H[1].Neg().Div(hhz)
	ex, ey := EquinoctialFrame(q1, q2)
	er := R.Scale(r.Pow(-1))
	cl, sl := er.Dot(ex), er.Dot(ey)

	c := r2.Mul(ueff).Scale(2).Sqrt()
	p := c.Mul(c).Scale(1 / μ)
	pfac1 := p.Div(r).AddConst(-1)
	pfac2 := c.Mul(drdt).Scale(1 / μ)
	p1 := pfac1.Mul(sl).Sub(pfac2.Mul(cl))
	p2 := pfac1.Mul(cl).Add(pfac2.Mul(sl))

	a := ν.Mul(ν).Pow(-1).Scale(μ).Pow(1.0 / 3)
	w := a.Pow(-1).Scale(μ).Sqrt()
	cw := c.Mul(w)
	scfac1 := cw.Sub(r.Mul(drdt).Mul(drdt)).AddConst(μ)
	scfac2 := drdt.Mul(c.Add(w.Mul(r)))
	S := scfac1.Mul(sl).Sub(scfac2.Mul(cl))
	C := scfac1.Mul(cl).Add(scfac2.Mul(sl))
	L := S.Atan2(C).Add(C.Mul(p1).Sub(S.Mul(p2)).Div(cw.AddConst(μ)))
	return []T{ν, p1, p2, L, q1, q2}, nil
}

// GEqOEToCartesian is the inverse of CartesianToGEqOE. The generalised eccentric longitude is
// found with Newton-Raphson, so it may fail with tools.ErrConvergenceFailure.
func GEqOEToCartesian[T algebra.Number[T]](t float64, g []T, μ float64, U Potential[T]) (x []T, err error) {
	if len(g) != 6 {
		return nil, fmt.Errorf("geqoe state of length %d: %w", len(g), ErrInvalidState)
	}
	defer algebra.Catch(&err)
	ν, p1, p2, L, q1, q2 := g[0], g[1], g[2], g[3], g[4], g[5]

	// Solve K + p1 cos K - p2 sin K = L with L brought into [-π, π].
	L = L.AddConst(-2 * math.Pi * math.Round(L.Constant()/(2*math.Pi)))
	fk := func(k T) T { return k.Add(p1.Mul(k.Cos())).Sub(p2.Mul(k.Sin())).Sub(L) }
	dfk := func(k T) T { return p1.Mul(k.Sin()).Add(p2.Mul(k.Cos())).Neg().AddConst(1) }
	k, err := tools.NewtonRaphson(fk, dfk, L, geqoeTol, geqoeMaxIter)
	if err != nil {
		return nil, fmt.Errorf("generalised eccentric longitude: %w", err)
	}
	sink, cosk := k.Sin(), k.Cos()

	a := ν.Mul(ν).Pow(-1).Scale(μ).Pow(1.0 / 3)
	r := a.Mul(p1.Mul(sink).Add(p2.Mul(cosk)).Neg().AddConst(1))
	drdt := a.Scale(μ).Sqrt().Div(r).Mul(p2.Mul(sink).Sub(p1.Mul(cosk)))

	β := p1.Mul(p1).Add(p2.Mul(p2)).Neg().AddConst(1).Sqrt()
	α := β.AddConst(1).Pow(-1)
	ar := a.Div(r)
	αp1p2 := α.Mul(p1).Mul(p2)
	sinl := ar.Mul(αp1p2.Mul(cosk).Add(α.Mul(p2).Mul(p2).Neg().AddConst(1).Mul(sink)).Sub(p1))
	cosl := ar.Mul(αp1p2.Mul(sink).Add(α.Mul(p1).Mul(p1).Neg().AddConst(1).Mul(cosk)).Sub(p2))

	ex, ey := EquinoctialFrame(q1, q2)
	er := ex.Scale(cosl).Add(ey.Scale(sinl))
	ef := ey.Scale(cosl).Sub(ex.Scale(sinl))
	R := er.Scale(r)

	c := ν.Pow(-1).Scale(μ * μ).Pow(1.0 / 3).Mul(β)
	h := c.Mul(c).Sub(r.Mul(r).Mul(U(t, R)).Scale(2)).Sqrt()
	V := er.Scale(drdt).Add(ef.Scale(h.Div(r)))
	return algebra.Join(R, V), nil
}
