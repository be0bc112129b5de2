package algebra

import (
	"bytes"
	"fmt"
	"math"
)

// Chebyshev is a truncated multivariate polynomial in the tensor Chebyshev basis over [-1, 1]^n.
// Elementary functions are applied by interpolating them over the range of the argument, which
// keeps the approximation uniform over the whole uncertainty domain.
type Chebyshev struct {
	b *Basis
	c []float64
}

// NewChebyshev returns the constant polynomial v over b.
func NewChebyshev(b *Basis, v float64) Chebyshev {
	c := make([]float64, b.Len())
	c[0] = v
	return Chebyshev{b, c}
}

// NewChebyshevCoefficients returns the polynomial over b with a copy of the given coefficients.
func NewChebyshevCoefficients(b *Basis, coeffs []float64) Chebyshev {
	if len(coeffs) != b.Len() {
		raise("coefficients", ErrDegreeMismatch)
	}
	c := make([]float64, len(coeffs))
	copy(c, coeffs)
	return Chebyshev{b, c}
}

// ChebyshevVariable returns (lo+hi)/2 + (hi-lo)/2·T₁(ξᵢ).
func ChebyshevVariable(b *Basis, i int, lo, hi float64) Chebyshev {
	if i < 0 || i >= b.nvar {
		raise("variable", ErrVariableCount)
	}
	p := NewChebyshev(b, 0.5*(lo+hi))
	if b.degree > 0 {
		p.c[1+i] = 0.5 * (hi - lo)
	}
	return p
}

// ChebyshevFactory builds Chebyshev values over a fixed basis.
type ChebyshevFactory struct {
	Basis *Basis
}

// Constant implements Factory.
func (f ChebyshevFactory) Constant(v float64) Chebyshev { return NewChebyshev(f.Basis, v) }

// Variable implements Factory.
func (f ChebyshevFactory) Variable(i int, lo, hi float64) Chebyshev {
	return ChebyshevVariable(f.Basis, i, lo, hi)
}

// Basis returns the basis of p.
func (p Chebyshev) Basis() *Basis { return p.b }

// Coefficients returns a copy of the coefficients in basis order.
func (p Chebyshev) Coefficients() []float64 {
	out := make([]float64, len(p.c))
	copy(out, p.c)
	return out
}

// Coefficient returns the k-th coefficient.
func (p Chebyshev) Coefficient(k int) float64 { return p.c[k] }

func (p Chebyshev) check(op string, q Chebyshev) {
	if p.b != q.b {
		raise(op, ErrDegreeMismatch)
	}
}

func (p Chebyshev) with(c []float64) Chebyshev { return Chebyshev{p.b, c} }

// Add implements Number.
func (p Chebyshev) Add(q Chebyshev) Chebyshev {
	p.check("add", q)
	c := make([]float64, len(p.c))
	for k := range c {
		c[k] = p.c[k] + q.c[k]
	}
	return p.with(c)
}

// Sub implements Number.
func (p Chebyshev) Sub(q Chebyshev) Chebyshev {
	p.check("sub", q)
	c := make([]float64, len(p.c))
	for k := range c {
		c[k] = p.c[k] - q.c[k]
	}
	return p.with(c)
}

// Mul implements Number.
func (p Chebyshev) Mul(q Chebyshev) Chebyshev {
	p.check("mul", q)
	c := make([]float64, len(p.c))
	for _, t := range p.b.chebTable() {
		if a := p.c[t.i]; a != 0 {
			c[t.k] += t.w * a * q.c[t.j]
		}
	}
	return p.with(c)
}

// Div implements Number.
func (p Chebyshev) Div(q Chebyshev) Chebyshev {
	p.check("div", q)
	return p.Mul(q.inv("div"))
}

func (p Chebyshev) inv(op string) Chebyshev {
	lo, hi := p.Range()
	if p.c[0] == 0 || (lo <= 0 && hi >= 0) {
		raise(op, ErrSingularDivision)
	}
	return p.apply(func(x float64) float64 { return 1 / x })
}

// Neg implements Number.
func (p Chebyshev) Neg() Chebyshev { return p.Scale(-1) }

// Scale implements Number.
func (p Chebyshev) Scale(f float64) Chebyshev {
	c := make([]float64, len(p.c))
	for k, v := range p.c {
		c[k] = f * v
	}
	return p.with(c)
}

// AddConst implements Number.
func (p Chebyshev) AddConst(v float64) Chebyshev {
	c := p.Coefficients()
	c[0] += v
	return p.with(c)
}

// apply composes f with p through the degree-d interpolant of f over p's range, evaluated with
// the Clenshaw recurrence on the argument rescaled to [-1, 1].
func (p Chebyshev) apply(f func(float64) float64) Chebyshev {
	lo, hi := p.Range()
	if hi == lo {
		return p.Lift(f(lo))
	}
	a := chebInterp(f, lo, hi, p.b.degree)
	u := p.AddConst(-0.5 * (lo + hi)).Scale(2 / (hi - lo))
	u2 := u.Scale(2)
	b1, b2 := p.Lift(0), p.Lift(0)
	for k := len(a) - 1; k >= 1; k-- {
		b1, b2 = u2.Mul(b1).Sub(b2).AddConst(a[k]), b1
	}
	return u.Mul(b1).Sub(b2).AddConst(a[0])
}

// Pow implements Number.
func (p Chebyshev) Pow(α float64) Chebyshev {
	if α >= 0 && α == math.Trunc(α) {
		return p.powInt(int(α))
	}
	if lo, hi := p.Range(); α < 0 && lo <= 0 && hi >= 0 {
		raise("pow", ErrSingularDivision)
	}
	return p.apply(func(x float64) float64 { return math.Pow(x, α) })
}

func (p Chebyshev) powInt(n int) Chebyshev {
	out := p.Lift(1)
	base := p
	for n > 0 {
		if n&1 == 1 {
			out = out.Mul(base)
		}
		base = base.Mul(base)
		n >>= 1
	}
	return out
}

// Sqrt implements Number.
func (p Chebyshev) Sqrt() Chebyshev { return p.apply(math.Sqrt) }

// Exp implements Number.
func (p Chebyshev) Exp() Chebyshev { return p.apply(math.Exp) }

// Log implements Number.
func (p Chebyshev) Log() Chebyshev { return p.apply(math.Log) }

// Sin implements Number.
func (p Chebyshev) Sin() Chebyshev { return p.apply(math.Sin) }

// Cos implements Number.
func (p Chebyshev) Cos() Chebyshev { return p.apply(math.Cos) }

// Atan implements Number.
func (p Chebyshev) Atan() Chebyshev { return p.apply(math.Atan) }

// Atan2 implements Number.
func (p Chebyshev) Atan2(x Chebyshev) Chebyshev {
	p.check("atan2", x)
	return atan2Poly("atan2", p, x)
}

// Constant implements Number. Note that the T₀ coefficient is the mean of p over the domain, not
// its value at the origin; use Eval for the latter.
func (p Chebyshev) Constant() float64 { return p.c[0] }

// Lift implements Number.
func (p Chebyshev) Lift(v float64) Chebyshev { return NewChebyshev(p.b, v) }

// Norm implements Number.
func (p Chebyshev) Norm() float64 {
	var n float64
	for _, v := range p.c {
		n = math.Max(n, math.Abs(v))
	}
	return n
}

// IsFinite implements Number.
func (p Chebyshev) IsFinite() bool {
	for _, v := range p.c {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Range bounds p over [-1, 1]^n using |Tₖ| <= 1.
func (p Chebyshev) Range() (lo, hi float64) {
	var r float64
	for _, v := range p.c[1:] {
		r += math.Abs(v)
	}
	return p.c[0] - r, p.c[0] + r
}

// Eval implements Number.
func (p Chebyshev) Eval(xi []float64) float64 {
	if len(xi) != p.b.nvar {
		raise("eval", ErrVariableCount)
	}
	ts := make([][]float64, len(xi))
	for v, x := range xi {
		ts[v] = make([]float64, p.b.degree+1)
		ts[v][0] = 1
		if p.b.degree > 0 {
			ts[v][1] = x
		}
		for d := 2; d <= p.b.degree; d++ {
			ts[v][d] = 2*x*ts[v][d-1] - ts[v][d-2]
		}
	}
	var s float64
	for k, c := range p.c {
		if c == 0 {
			continue
		}
		term := c
		for v, e := range p.b.exps[k] {
			term *= ts[v][e]
		}
		s += term
	}
	return s
}

func (p Chebyshev) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Chebyshev(vars=%d, degree=%d)[", p.b.nvar, p.b.degree)
	for k, v := range p.c {
		if k > 0 {
			buf.WriteByte(' ')
		}
		fmt.Fprintf(&buf, "%g", v)
	}
	buf.WriteByte(']')
	return buf.String()
}
