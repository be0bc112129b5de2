package propagator

import (
	"github.com/maxhlc/thames/algebra"
	"github.com/maxhlc/thames/integrator"
	"github.com/maxhlc/thames/perturbation"
)

// cowell returns ṙ = v, v̇ = -μr/|r|³ + a_p.
func cowell[T algebra.Number[T]](μ float64, perts *perturbation.Combiner[T]) integrator.System[T] {
	return func(t float64, y []T) []T {
		R, V := algebra.Split(y)
		r := R.Norm()
		acc := R.Scale(r.Pow(-3).Scale(-μ)).Add(perts.AccelerationTotal(t, R, V))
		return algebra.Join(V, acc)
	}
}
