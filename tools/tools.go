// Package tools provides the scalar and generic root finders used by the element conversions and
// by the analysis helpers.
package tools

import (
	"errors"
	"fmt"
	"math"

	"github.com/maxhlc/thames/algebra"
)

var (
	// ErrConvergenceFailure is returned when an iteration reaches its cap without meeting its tolerance.
	ErrConvergenceFailure = errors.New("iteration did not converge")
	// ErrInvalidBracket is returned for an empty bracket or a non-positive tolerance.
	ErrInvalidBracket = errors.New("invalid bracket")
)

const defaultMaxIter = 100

// NewtonRaphson finds a root of f starting from x0, iterating x ← x - f(x)/df(x) until the norm of
// the residual drops below tol. For polynomial algebras the whole polynomial is iterated, so the
// result is the root as a function of the expansion variables.
func NewtonRaphson[T algebra.Number[T]](f, df func(T) T, x0 T, tol float64, maxIter int) (x T, err error) {
	defer algebra.Catch(&err)
	if maxIter <= 0 {
		maxIter = defaultMaxIter
	}
	x = x0
	fx := f(x)
	for i := 0; i < maxIter; i++ {
		if fx.Norm() < tol {
			return x, nil
		}
		x = x.Sub(fx.Div(df(x)))
		fx = f(x)
		if !fx.IsFinite() {
			break
		}
	}
	if fx.Norm() < tol {
		return x, nil
	}
	return x, fmt.Errorf("newton-raphson after %d iterations (residual %g): %w", maxIter, fx.Norm(), ErrConvergenceFailure)
}

// invφ is 1/φ where φ is the golden ratio.
var invφ = (math.Sqrt(5) - 1) / 2

// GoldenSection returns the minimiser of a unimodal f over [a, b] to within tol. A tolerance below
// the float spacing of the bracket cannot be met: the midpoint of the narrowest bracket is returned
// with ErrConvergenceFailure.
func GoldenSection(f func(float64) float64, a, b, tol float64) (float64, error) {
	if !(a < b) || !(tol > 0) {
		return math.NaN(), fmt.Errorf("[%g, %g] with tolerance %g: %w", a, b, tol, ErrInvalidBracket)
	}
	// Each iteration shrinks the bracket by invφ; the margin covers rounding.
	maxIter := int(math.Ceil(math.Log(tol/(b-a))/math.Log(invφ))) + 10
	c := b - invφ*(b-a)
	d := a + invφ*(b-a)
	fc, fd := f(c), f(d)
	for i := 0; b-a > tol; i++ {
		if i >= maxIter || !(a < c && c < d && d < b) {
			return (a + b) / 2, fmt.Errorf("golden section stalled at [%g, %g] above tolerance %g: %w", a, b, tol, ErrConvergenceFailure)
		}
		if fc < fd {
			b, d, fd = d, c, fc
			c = b - invφ*(b-a)
			fc = f(c)
		} else {
			a, c, fc = c, d, fd
			d = a + invφ*(b-a)
			fd = f(d)
		}
	}
	return (a + b) / 2, nil
}

// GoldenSectionRoot finds a root of f in [a, b] by minimising |f|.
func GoldenSectionRoot(f func(float64) float64, a, b, tol float64) (float64, error) {
	return GoldenSection(func(x float64) float64 { return math.Abs(f(x)) }, a, b, tol)
}

// Linspace returns n evenly spaced values from a to b inclusive.
func Linspace(a, b float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{a}
	}
	out := make([]float64, n)
	step := (b - a) / float64(n-1)
	for i := range out {
		out[i] = a + float64(i)*step
	}
	out[n-1] = b
	return out
}
