// Package perturbation defines the force models added to the central-body attraction and the
// combiner which sums them.
package perturbation

import (
	"errors"

	"github.com/maxhlc/thames/algebra"
	"github.com/maxhlc/thames/astro"
)

var (
	// ErrFactorMismatch is returned when combining models built with different dimensional factors.
	ErrFactorMismatch = errors.New("dimensional factors mismatch")
	// ErrInvalidAtmosphere is returned for a malformed density table or an unknown preset.
	ErrInvalidAtmosphere = errors.New("invalid atmosphere")
)

// Model is a perturbing force. The potential U is a potential energy, so the total perturbing
// acceleration is -∇U plus the non-potential part. All quantities are in the units of Factors.
type Model[T algebra.Number[T]] interface {
	// Potential returns U(t, R); zero for models without a potential.
	Potential(t float64, R algebra.Vec3[T]) T
	// PotentialDerivative returns the acceleration -∇U.
	PotentialDerivative(t float64, R, V algebra.Vec3[T]) algebra.Vec3[T]
	// AccelerationNonPotential returns the acceleration which does not derive from U.
	AccelerationNonPotential(t float64, R, V algebra.Vec3[T]) algebra.Vec3[T]
	// AccelerationTotal is the sum of PotentialDerivative and AccelerationNonPotential.
	AccelerationTotal(t float64, R, V algebra.Vec3[T]) algebra.Vec3[T]
	Factors() astro.DimensionalFactors
}

// PotentialRater is implemented by models whose potential depends explicitly on time.
type PotentialRater[T algebra.Number[T]] interface {
	// PotentialRate returns ∂U/∂t.
	PotentialRate(t float64, R, V algebra.Vec3[T]) T
}

func zeroVec[T algebra.Number[T]](like T) algebra.Vec3[T] {
	z := like.Lift(0)
	return algebra.Vec3[T]{z, z, z}
}
