package astro

import (
	"errors"
	"math"

	"github.com/maxhlc/thames/algebra"
	"gonum.org/v1/gonum/mat"
)

const (
	eccentricityε = 1e-12
	angleε        = 1e-12
)

// ErrInvalidState is returned for a state vector which is not six elements long or which does
// not describe a bound orbit where one is required.
var ErrInvalidState = errors.New("invalid state")

// CartesianToKeplerian returns (a, e, i, Ω, ω, ν) of a Cartesian state, angles in radians.
// Circular and equatorial orbits use the usual alternate angles (Vallado, RV2COE).
func CartesianToKeplerian(x []float64, μ float64) []float64 {
	R, V := algebra.Split(algebra.Reals(x))
	r := float64(R.Norm())
	v := float64(V.Norm())
	a := 1 / (2/r - v*v/μ)
	H := R.Cross(V)
	h := float64(H.Norm())
	E := V.Cross(H).ScaleFloat(1 / μ).Sub(R.ScaleFloat(1 / r))
	e := float64(E.Norm())
	i := math.Acos(float64(H[2]) / h)
	eNear := e < eccentricityε
	iNear := math.Abs(i) < angleε
	N := algebra.Vec3[algebra.Real]{-H[1], H[0], 0}
	n := float64(N.Norm())

	var Ω float64
	if !iNear {
		Ω = math.Acos(float64(N[0]) / n)
		if N[1] < 0 {
			Ω = 2*math.Pi - Ω
		}
	}

	var ω float64
	switch {
	case iNear && eNear:
	case iNear:
		ω = math.Atan2(float64(E[1]), float64(E[0]))
		if H[2] < 0 {
			ω = 2*math.Pi - ω
		}
	default:
		ω = math.Acos(clamp(float64(N.Dot(E)) / (n * e)))
		if E[2] < 0 {
			ω = 2*math.Pi - ω
		}
	}

	var ν float64
	switch {
	case iNear && eNear:
		ν = math.Acos(clamp(float64(R[0]) / r))
		if V[0] > 0 {
			ν = 2*math.Pi - ν
		}
	case eNear:
		ν = math.Acos(clamp(float64(N.Dot(R)) / (n * r)))
		if R[2] < 0 {
			ν = 2*math.Pi - ν
		}
	default:
		ν = math.Acos(clamp(float64(E.Dot(R)) / (e * r)))
		if R.Dot(V) < 0 {
			ν = 2*math.Pi - ν
		}
	}
	return []float64{a, e, i, Ω, ω, ν}
}

// KeplerianToCartesian returns the Cartesian state of (a, e, i, Ω, ω, ν), angles in radians.
func KeplerianToCartesian(kep []float64, μ float64) []float64 {
	a, e, i, Ω, ω, ν := kep[0], kep[1], kep[2], kep[3], kep[4], kep[5]
	sinν, cosν := math.Sincos(ν)
	p := a * (1 - e*e)
	r := p / (1 + e*cosν)
	fac := math.Sqrt(μ / p)
	o := mat.NewVecDense(3, []float64{r * cosν, r * sinν, 0})
	dodt := mat.NewVecDense(3, []float64{-fac * sinν, fac * (e + cosν), 0})
	rot := PQW2ECI(i, ω, Ω)
	var R, V mat.VecDense
	R.MulVec(rot, o)
	V.MulVec(rot, dodt)
	return []float64{R.AtVec(0), R.AtVec(1), R.AtVec(2), V.AtVec(0), V.AtVec(1), V.AtVec(2)}
}

// PQW2ECI returns the rotation from the perifocal frame to the inertial frame, R3(-Ω)·R1(-i)·R3(-ω).
func PQW2ECI(i, ω, Ω float64) *mat.Dense {
	var tmp, rot mat.Dense
	tmp.Mul(R3(-Ω), R1(-i))
	rot.Mul(&tmp, R3(-ω))
	return &rot
}

// R1 rotation about the 1st axis.
func R1(x float64) *mat.Dense {
	s, c := math.Sincos(x)
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, c, s, 0, -s, c})
}

// R3 rotation about the 3rd axis.
func R3(x float64) *mat.Dense {
	s, c := math.Sincos(x)
	return mat.NewDense(3, 3, []float64{c, s, 0, -s, c, 0, 0, 0, 1})
}

func clamp(c float64) float64 {
	return math.Max(-1, math.Min(1, c))
}
