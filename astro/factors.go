package astro

import (
	"math"

	"github.com/maxhlc/thames/algebra"
)

// DimensionalFactors are the reference scales of a non-dimensional run. A model built with a set
// of factors takes and returns quantities in those units.
type DimensionalFactors struct {
	Length   float64 // km
	Velocity float64 // km/s
	Time     float64 // s
	Grav     float64 // km³/s²
	Mass     float64 // kg
}

// Unity returns the identity factors of a dimensional run.
func Unity() DimensionalFactors {
	return DimensionalFactors{1, 1, 1, 1, 1}
}

// FactorsFromState derives the factors from a nominal Cartesian state: the length is the semi-major
// axis, or the radius when the orbit is not elliptic.
func FactorsFromState(x []float64, μ float64) DimensionalFactors {
	R, V := algebra.Split(algebra.Reals(x))
	r := float64(R.Norm())
	v := float64(V.Norm())
	length := 1 / (2/r - v*v/μ)
	if !(length > 0) || math.IsInf(length, 0) {
		length = r
	}
	return DimensionalFactors{
		Length:   length,
		Velocity: math.Sqrt(μ / length),
		Time:     math.Sqrt(length * length * length / μ),
		Grav:     μ,
		Mass:     1,
	}
}

// IsUnity returns whether f are the identity factors.
func (f DimensionalFactors) IsUnity() bool {
	return f == Unity()
}

// NondimensionaliseCartesian returns x in the units of f.
func NondimensionaliseCartesian[T algebra.Number[T]](x []T, f DimensionalFactors) []T {
	return scaleCartesian(x, 1/f.Length, 1/f.Velocity)
}

// DimensionaliseCartesian is the inverse of NondimensionaliseCartesian.
func DimensionaliseCartesian[T algebra.Number[T]](x []T, f DimensionalFactors) []T {
	return scaleCartesian(x, f.Length, f.Velocity)
}

func scaleCartesian[T algebra.Number[T]](x []T, l, v float64) []T {
	out := make([]T, len(x))
	for i := range x {
		if i < 3 {
			out[i] = x[i].Scale(l)
		} else {
			out[i] = x[i].Scale(v)
		}
	}
	return out
}

// Nominal returns the constant terms of a state.
func Nominal[T algebra.Number[T]](x []T) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v.Constant()
	}
	return out
}
