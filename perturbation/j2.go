package perturbation

import (
	"github.com/maxhlc/thames/algebra"
	"github.com/maxhlc/thames/astro"
)

// J2 is the oblateness of the central body. It has no non-potential part.
type J2[T algebra.Number[T]] struct {
	μ, j2, radius float64
	factors       astro.DimensionalFactors
}

// NewJ2 returns the J2 model of body in the units of f.
func NewJ2[T algebra.Number[T]](body astro.CelestialObject, f astro.DimensionalFactors) *J2[T] {
	return &J2[T]{
		μ:       body.GM() / f.Grav,
		j2:      body.J2,
		radius:  body.Radius / f.Length,
		factors: f,
	}
}

// Factors implements Model.
func (m *J2[T]) Factors() astro.DimensionalFactors {
	return m.factors
}

// Potential implements Model.
func (m *J2[T]) Potential(t float64, R algebra.Vec3[T]) T {
	r := R.Norm()
	sφ := R[2].Div(r)
	return algebra.Square(sφ).Scale(3).AddConst(-1).Mul(r.Pow(-3)).Scale(0.5 * m.j2 * m.μ * m.radius * m.radius)
}

// PotentialDerivative implements Model.
func (m *J2[T]) PotentialDerivative(t float64, R, V algebra.Vec3[T]) algebra.Vec3[T] {
	r := R.Norm()
	fac1 := r.Pow(-5).Scale(-1.5 * m.μ * m.j2 * m.radius * m.radius)
	fac2 := algebra.Square(R[2].Div(r)).Scale(5)
	inPlane := fac2.Neg().AddConst(1)
	return algebra.Vec3[T]{
		fac1.Mul(R[0]).Mul(inPlane),
		fac1.Mul(R[1]).Mul(inPlane),
		fac1.Mul(R[2]).Mul(fac2.Neg().AddConst(3)),
	}
}

// AccelerationNonPotential implements Model.
func (m *J2[T]) AccelerationNonPotential(t float64, R, V algebra.Vec3[T]) algebra.Vec3[T] {
	return zeroVec(R[0])
}

// AccelerationTotal implements Model.
func (m *J2[T]) AccelerationTotal(t float64, R, V algebra.Vec3[T]) algebra.Vec3[T] {
	return m.PotentialDerivative(t, R, V)
}
