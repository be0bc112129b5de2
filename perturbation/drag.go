package perturbation

import (
	"github.com/maxhlc/thames/algebra"
	"github.com/maxhlc/thames/astro"
)

// Drag is the atmospheric drag of a cannonball spacecraft in an atmosphere co-rotating with the
// central body. It has no potential.
type Drag[T algebra.Number[T]] struct {
	radius float64 // central body radius, km
	length float64
	w      float64 // rotation rate in units of the factors
	k      float64 // -½·Cd·A/m with the unit conversions folded in
	atm    Atmosphere[T]

	factors astro.DimensionalFactors
}

// NewDrag returns the drag model of a spacecraft with drag coefficient cd, cross-section area
// (m²) and mass (kg), in the units of f.
func NewDrag[T algebra.Number[T]](body astro.CelestialObject, cd, area, mass float64, atm Atmosphere[T], f astro.DimensionalFactors) *Drag[T] {
	return &Drag[T]{
		radius: body.Radius,
		length: f.Length,
		w:      body.RotRate * f.Time,
		// ρ·A/m is in 1/m; the 1e3 brings it to 1/km and the length factor to the model units.
		k:       -0.5 * cd * area / mass * 1e3 * f.Length,
		atm:     atm,
		factors: f,
	}
}

// Factors implements Model.
func (m *Drag[T]) Factors() astro.DimensionalFactors {
	return m.factors
}

// Altitude returns the altitude in km of a position in model units.
func (m *Drag[T]) Altitude(R algebra.Vec3[T]) T {
	return R.Norm().Scale(m.length).AddConst(-m.radius)
}

// Potential implements Model.
func (m *Drag[T]) Potential(t float64, R algebra.Vec3[T]) T {
	return R[0].Lift(0)
}

// PotentialDerivative implements Model.
func (m *Drag[T]) PotentialDerivative(t float64, R, V algebra.Vec3[T]) algebra.Vec3[T] {
	return zeroVec(R[0])
}

// AccelerationNonPotential implements Model.
func (m *Drag[T]) AccelerationNonPotential(t float64, R, V algebra.Vec3[T]) algebra.Vec3[T] {
	ρ := m.atm.Density(m.Altitude(R))
	// V - ω×R with ω along the polar axis.
	Vrel := algebra.Vec3[T]{
		V[0].Add(R[1].Scale(m.w)),
		V[1].Sub(R[0].Scale(m.w)),
		V[2],
	}
	return Vrel.Scale(ρ.Mul(Vrel.Norm())).ScaleFloat(m.k)
}

// AccelerationTotal implements Model.
func (m *Drag[T]) AccelerationTotal(t float64, R, V algebra.Vec3[T]) algebra.Vec3[T] {
	return m.AccelerationNonPotential(t, R, V)
}
