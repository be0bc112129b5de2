package algebra

import "math"

// Real is a plain float64 satisfying Number.
// Division by zero follows IEEE rules; non-finite results are caught by the integrators.
type Real float64

// Add implements Number.
func (x Real) Add(y Real) Real { return x + y }

// Sub implements Number.
func (x Real) Sub(y Real) Real { return x - y }

// Mul implements Number.
func (x Real) Mul(y Real) Real { return x * y }

// Div implements Number.
func (x Real) Div(y Real) Real { return x / y }

// Neg implements Number.
func (x Real) Neg() Real { return -x }

// Scale implements Number.
func (x Real) Scale(f float64) Real { return x * Real(f) }

// AddConst implements Number.
func (x Real) AddConst(c float64) Real { return x + Real(c) }

// Pow implements Number.
func (x Real) Pow(p float64) Real { return Real(math.Pow(float64(x), p)) }

// Sqrt implements Number.
func (x Real) Sqrt() Real { return Real(math.Sqrt(float64(x))) }

// Exp implements Number.
func (x Real) Exp() Real { return Real(math.Exp(float64(x))) }

// Log implements Number.
func (x Real) Log() Real { return Real(math.Log(float64(x))) }

// Sin implements Number.
func (x Real) Sin() Real { return Real(math.Sin(float64(x))) }

// Cos implements Number.
func (x Real) Cos() Real { return Real(math.Cos(float64(x))) }

// Atan implements Number.
func (x Real) Atan() Real { return Real(math.Atan(float64(x))) }

// Atan2 implements Number.
func (y Real) Atan2(x Real) Real { return Real(math.Atan2(float64(y), float64(x))) }

// Constant implements Number.
func (x Real) Constant() float64 { return float64(x) }

// Lift implements Number.
func (x Real) Lift(v float64) Real { return Real(v) }

// Norm implements Number.
func (x Real) Norm() float64 { return math.Abs(float64(x)) }

// IsFinite implements Number.
func (x Real) IsFinite() bool {
	return !math.IsNaN(float64(x)) && !math.IsInf(float64(x), 0)
}

// Eval implements Number; a real has no variables so the point is ignored.
func (x Real) Eval(xi []float64) float64 { return float64(x) }

// RealFactory builds Real values. Variables collapse to the middle of their interval.
type RealFactory struct{}

// Constant implements Factory.
func (RealFactory) Constant(v float64) Real { return Real(v) }

// Variable implements Factory.
func (RealFactory) Variable(i int, lo, hi float64) Real { return Real(0.5 * (lo + hi)) }

// Reals converts a float64 slice.
func Reals(v []float64) []Real {
	out := make([]Real, len(v))
	for i, x := range v {
		out[i] = Real(x)
	}
	return out
}

// Floats converts a Real slice.
func Floats(v []Real) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
