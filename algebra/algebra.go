// Package algebra defines the number types the propagation code is generic over: plain reals and
// truncated multivariate polynomials expanded in the Taylor (monomial) or Chebyshev basis.
//
// Polynomial operators cannot return errors without breaking the operator chaining the dynamics
// are written with, so a failed operation panics with an *Error. Exported entry points recover it
// with Catch and return it as a normal error.
package algebra

import (
	"errors"
	"fmt"
)

var (
	// ErrDegreeMismatch is raised when combining polynomials which do not share a basis.
	ErrDegreeMismatch = errors.New("degree mismatch")
	// ErrSingularDivision is raised when dividing by a polynomial whose constant term vanishes.
	ErrSingularDivision = errors.New("singular division")
	// ErrVariableCount is raised when evaluating a polynomial at a point of the wrong size.
	ErrVariableCount = errors.New("variable count mismatch")
)

// Error is the panic value of a failed algebra operation.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("algebra: %s: %s", e.Op, e.Err)
}

// Unwrap allows errors.Is on the sentinel.
func (e *Error) Unwrap() error {
	return e.Err
}

func raise(op string, err error) {
	panic(&Error{Op: op, Err: err})
}

// Catch recovers an algebra panic into err and re-panics anything else.
// Use as `defer algebra.Catch(&err)`.
func Catch(err *error) {
	if r := recover(); r != nil {
		if ae, ok := r.(*Error); ok {
			*err = ae
			return
		}
		panic(r)
	}
}

// Number is the operator set shared by Real, Taylor and Chebyshev.
// Every operation returns a new value; operands are never modified.
type Number[T any] interface {
	Add(T) T
	Sub(T) T
	Mul(T) T
	Div(T) T
	Neg() T
	Scale(float64) T
	AddConst(float64) T
	Pow(float64) T
	Sqrt() T
	Exp() T
	Log() T
	Sin() T
	Cos() T
	Atan() T
	// Atan2 returns the four-quadrant arctangent of the receiver over x.
	Atan2(x T) T
	// Constant returns the zeroth-order term.
	Constant() float64
	// Lift returns the constant v in the receiver's algebra (same basis for polynomials).
	Lift(v float64) T
	// Norm returns the largest absolute coefficient.
	Norm() float64
	IsFinite() bool
	// Eval evaluates the value at a point of the normalised domain [-1, 1]^n.
	Eval(xi []float64) float64
}

// Factory creates values of an algebra without needing an existing operand.
type Factory[T Number[T]] interface {
	Constant(v float64) T
	// Variable returns the i-th independent variable spanning [lo, hi].
	Variable(i int, lo, hi float64) T
}

// Quo is the checked form of a.Div(b).
func Quo[T Number[T]](a, b T) (q T, err error) {
	defer Catch(&err)
	return a.Div(b), nil
}

// Square returns x·x.
func Square[T Number[T]](x T) T {
	return x.Mul(x)
}

// Cube returns x·x·x.
func Cube[T Number[T]](x T) T {
	return x.Mul(x).Mul(x)
}
