package perturbation

import (
	"fmt"

	"github.com/maxhlc/thames/algebra"
	"github.com/maxhlc/thames/astro"
)

// Combiner sums an ordered set of models. It is itself a Model, and an empty combiner is free
// flight. Models must all be added before the combiner is shared.
type Combiner[T algebra.Number[T]] struct {
	factors astro.DimensionalFactors
	models  []Model[T]
}

// NewCombiner returns an empty combiner working in the units of f.
func NewCombiner[T algebra.Number[T]](f astro.DimensionalFactors) *Combiner[T] {
	return &Combiner[T]{factors: f}
}

// AddModel appends m. Models are not de-duplicated.
func (c *Combiner[T]) AddModel(m Model[T]) error {
	if m.Factors() != c.factors {
		return fmt.Errorf("model %T has %+v, combiner has %+v: %w", m, m.Factors(), c.factors, ErrFactorMismatch)
	}
	c.models = append(c.models, m)
	return nil
}

// Len returns the number of models.
func (c *Combiner[T]) Len() int {
	return len(c.models)
}

// Models returns the models in registration order.
func (c *Combiner[T]) Models() []Model[T] {
	return append([]Model[T](nil), c.models...)
}

// Factors implements Model.
func (c *Combiner[T]) Factors() astro.DimensionalFactors {
	return c.factors
}

// Potential implements Model.
func (c *Combiner[T]) Potential(t float64, R algebra.Vec3[T]) T {
	U := R[0].Lift(0)
	for _, m := range c.models {
		U = U.Add(m.Potential(t, R))
	}
	return U
}

// PotentialRate implements PotentialRater; models which do not implement it are time invariant.
func (c *Combiner[T]) PotentialRate(t float64, R, V algebra.Vec3[T]) T {
	Ut := R[0].Lift(0)
	for _, m := range c.models {
		if r, ok := m.(PotentialRater[T]); ok {
			Ut = Ut.Add(r.PotentialRate(t, R, V))
		}
	}
	return Ut
}

// PotentialDerivative implements Model.
func (c *Combiner[T]) PotentialDerivative(t float64, R, V algebra.Vec3[T]) algebra.Vec3[T] {
	return c.fold(R[0], func(m Model[T]) algebra.Vec3[T] { return m.PotentialDerivative(t, R, V) })
}

// AccelerationNonPotential implements Model.
func (c *Combiner[T]) AccelerationNonPotential(t float64, R, V algebra.Vec3[T]) algebra.Vec3[T] {
	return c.fold(R[0], func(m Model[T]) algebra.Vec3[T] { return m.AccelerationNonPotential(t, R, V) })
}

// AccelerationTotal implements Model.
func (c *Combiner[T]) AccelerationTotal(t float64, R, V algebra.Vec3[T]) algebra.Vec3[T] {
	return c.fold(R[0], func(m Model[T]) algebra.Vec3[T] { return m.AccelerationTotal(t, R, V) })
}

func (c *Combiner[T]) fold(like T, f func(Model[T]) algebra.Vec3[T]) algebra.Vec3[T] {
	A := zeroVec(like)
	for _, m := range c.models {
		A = A.Add(f(m))
	}
	return A
}
