package algebra

import (
	"bytes"
	"fmt"
	"math"
)

// Taylor is a truncated multivariate polynomial in the monomial basis. The variables live on
// [-1, 1], so a coefficient bounds the contribution of its monomial.
type Taylor struct {
	b *Basis
	c []float64
}

// NewTaylor returns the constant polynomial v over b.
func NewTaylor(b *Basis, v float64) Taylor {
	c := make([]float64, b.Len())
	c[0] = v
	return Taylor{b, c}
}

// NewTaylorCoefficients returns the polynomial over b with a copy of the given coefficients.
func NewTaylorCoefficients(b *Basis, coeffs []float64) Taylor {
	if len(coeffs) != b.Len() {
		raise("coefficients", ErrDegreeMismatch)
	}
	c := make([]float64, len(coeffs))
	copy(c, coeffs)
	return Taylor{b, c}
}

// TaylorVariable returns (lo+hi)/2 + (hi-lo)/2·ξᵢ.
func TaylorVariable(b *Basis, i int, lo, hi float64) Taylor {
	if i < 0 || i >= b.nvar {
		raise("variable", ErrVariableCount)
	}
	p := NewTaylor(b, 0.5*(lo+hi))
	if b.degree > 0 {
		p.c[1+i] = 0.5 * (hi - lo)
	}
	return p
}

// TaylorFactory builds Taylor values over a fixed basis.
type TaylorFactory struct {
	Basis *Basis
}

// Constant implements Factory.
func (f TaylorFactory) Constant(v float64) Taylor { return NewTaylor(f.Basis, v) }

// Variable implements Factory.
func (f TaylorFactory) Variable(i int, lo, hi float64) Taylor {
	return TaylorVariable(f.Basis, i, lo, hi)
}

// Basis returns the basis of p.
func (p Taylor) Basis() *Basis { return p.b }

// Coefficients returns a copy of the coefficients in basis order.
func (p Taylor) Coefficients() []float64 {
	out := make([]float64, len(p.c))
	copy(out, p.c)
	return out
}

// Coefficient returns the k-th coefficient.
func (p Taylor) Coefficient(k int) float64 { return p.c[k] }

func (p Taylor) check(op string, q Taylor) {
	if p.b != q.b {
		raise(op, ErrDegreeMismatch)
	}
}

func (p Taylor) with(c []float64) Taylor { return Taylor{p.b, c} }

// Add implements Number.
func (p Taylor) Add(q Taylor) Taylor {
	p.check("add", q)
	c := make([]float64, len(p.c))
	for k := range c {
		c[k] = p.c[k] + q.c[k]
	}
	return p.with(c)
}

// Sub implements Number.
func (p Taylor) Sub(q Taylor) Taylor {
	p.check("sub", q)
	c := make([]float64, len(p.c))
	for k := range c {
		c[k] = p.c[k] - q.c[k]
	}
	return p.with(c)
}

// Mul implements Number. Terms above the basis degree are discarded.
func (p Taylor) Mul(q Taylor) Taylor {
	p.check("mul", q)
	c := make([]float64, len(p.c))
	for _, t := range p.b.taylorTable() {
		c[t.k] += p.c[t.i] * q.c[t.j]
	}
	return p.with(c)
}

// Div implements Number.
func (p Taylor) Div(q Taylor) Taylor {
	p.check("div", q)
	return p.Mul(q.inv("div"))
}

// Neg implements Number.
func (p Taylor) Neg() Taylor { return p.Scale(-1) }

// Scale implements Number.
func (p Taylor) Scale(f float64) Taylor {
	c := make([]float64, len(p.c))
	for k, v := range p.c {
		c[k] = f * v
	}
	return p.with(c)
}

// AddConst implements Number.
func (p Taylor) AddConst(v float64) Taylor {
	c := p.Coefficients()
	c[0] += v
	return p.with(c)
}

// compose evaluates Σ a[k]·δᵏ, δ = p − p₀, by Horner's scheme. Since δ has no constant term
// δᵏ vanishes for k above the degree, which makes the truncated composition exact.
func (p Taylor) compose(a []float64) Taylor {
	δ := p.AddConst(-p.c[0])
	out := p.Lift(a[len(a)-1])
	for k := len(a) - 2; k >= 0; k-- {
		out = out.Mul(δ).AddConst(a[k])
	}
	return out
}

func (p Taylor) inv(op string) Taylor {
	if p.c[0] == 0 {
		raise(op, ErrSingularDivision)
	}
	return p.compose(invSeries(p.c[0], p.b.degree))
}

// Pow implements Number.
func (p Taylor) Pow(α float64) Taylor {
	if p.c[0] == 0 {
		if α >= 0 && α == math.Trunc(α) {
			return p.powInt(int(α))
		}
		raise("pow", ErrSingularDivision)
	}
	return p.compose(powSeries(p.c[0], α, p.b.degree))
}

func (p Taylor) powInt(n int) Taylor {
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
func (p Taylor) Sqrt() Taylor {
	if p.c[0] == 0 {
		raise("sqrt", ErrSingularDivision)
	}
	return p.compose(powSeries(p.c[0], 0.5, p.b.degree))
}

// Exp implements Number.
func (p Taylor) Exp() Taylor { return p.compose(expSeries(p.c[0], p.b.degree)) }

// Log implements Number.
func (p Taylor) Log() Taylor {
	if p.c[0] == 0 {
		raise("log", ErrSingularDivision)
	}
	return p.compose(logSeries(p.c[0], p.b.degree))
}

// Sin implements Number.
func (p Taylor) Sin() Taylor {
	s, _ := sinCosSeries(p.c[0], p.b.degree)
	return p.compose(s)
}

// Cos implements Number.
func (p Taylor) Cos() Taylor {
	_, c := sinCosSeries(p.c[0], p.b.degree)
	return p.compose(c)
}

// Atan implements Number using atan(p) = atan(p₀) + atan(δ/(1 + p₀·p)).
func (p Taylor) Atan() Taylor {
	p0 := p.c[0]
	u := p.AddConst(-p0).Div(p.Scale(p0).AddConst(1))
	a := atanSeries(p.b.degree)
	a[0] = math.Atan(p0)
	return u.compose(a)
}

// Atan2 implements Number.
func (p Taylor) Atan2(x Taylor) Taylor {
	p.check("atan2", x)
	return atan2Poly("atan2", p, x)
}

// Constant implements Number.
func (p Taylor) Constant() float64 { return p.c[0] }

// Lift implements Number.
func (p Taylor) Lift(v float64) Taylor { return NewTaylor(p.b, v) }

// Norm implements Number.
func (p Taylor) Norm() float64 {
	var n float64
	for _, v := range p.c {
		n = math.Max(n, math.Abs(v))
	}
	return n
}

// IsFinite implements Number.
func (p Taylor) IsFinite() bool {
	for _, v := range p.c {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Range bounds p over [-1, 1]^n.
func (p Taylor) Range() (lo, hi float64) {
	var r float64
	for _, v := range p.c[1:] {
		r += math.Abs(v)
	}
	return p.c[0] - r, p.c[0] + r
}

// Eval implements Number.
func (p Taylor) Eval(xi []float64) float64 {
	if len(xi) != p.b.nvar {
		raise("eval", ErrVariableCount)
	}
	pows := make([][]float64, len(xi))
	for v, x := range xi {
		pows[v] = make([]float64, p.b.degree+1)
		pows[v][0] = 1
		for d := 1; d <= p.b.degree; d++ {
			pows[v][d] = pows[v][d-1] * x
		}
	}
	var s float64
	for k, c := range p.c {
		if c == 0 {
			continue
		}
		term := c
		for v, e := range p.b.exps[k] {
			term *= pows[v][e]
		}
		s += term
	}
	return s
}

func (p Taylor) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Taylor(vars=%d, degree=%d)[", p.b.nvar, p.b.degree)
	for k, v := range p.c {
		if k > 0 {
			buf.WriteByte(' ')
		}
		fmt.Fprintf(&buf, "%g", v)
	}
	buf.WriteByte(']')
	return buf.String()
}
