package algebra

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestBasis(t *testing.T) {
	b := NewBasis(6, 4)
	if b.Len() != 210 {
		t.Fatalf("expected 210 monomials, got %d", b.Len())
	}
	if NewBasis(6, 4) != b {
		t.Fatal("bases are not shared")
	}
	for i := 0; i < 6; i++ {
		e := b.Exponents(1 + i)
		for v, p := range e {
			if (v == i && p != 1) || (v != i && p != 0) {
				t.Fatalf("monomial %d is not variable %d: %v", 1+i, i, e)
			}
		}
		if b.Index(e) != 1+i {
			t.Fatalf("index of %v: got %d", e, b.Index(e))
		}
	}
	for k := 1; k < b.Len(); k++ {
		if b.Order(k) < b.Order(k-1) {
			t.Fatalf("monomials not graded at %d", k)
		}
	}
	if b.Index([]int{5, 0, 0, 0, 0, 0}) != -1 {
		t.Fatal("monomial above the degree should not be indexed")
	}
	assertPanic(t, func() {
		NewBasis(0, 3)
	})
}

func taylorFixtures() (a, b, c Taylor) {
	basis := NewBasis(3, 4)
	x := TaylorVariable(basis, 0, 0.5, 1.5)
	y := TaylorVariable(basis, 1, -2, 2)
	z := TaylorVariable(basis, 2, 3, 3.2)
	a = x.Mul(y).Add(z.Scale(0.3)).AddConst(-1)
	b = z.Mul(z).Add(x).AddConst(2)
	c = y.Mul(y).Mul(x).Sub(z)
	return
}

func TestTaylorIdentities(t *testing.T) {
	a, b, c := taylorFixtures()
	if !coefficientsEqual(a.Add(b).Sub(b).Coefficients(), a.Coefficients(), 1e-12) {
		t.Fatal("(a+b)-b != a")
	}
	if !coefficientsEqual(a.Mul(b).Div(b).Coefficients(), a.Coefficients(), 1e-10) {
		t.Fatalf("(a*b)/b != a\n%s\n%s", a.Mul(b).Div(b), a)
	}
	if !coefficientsEqual(a.Mul(b).Coefficients(), b.Mul(a).Coefficients(), 1e-12) {
		t.Fatal("product does not commute")
	}
	if !coefficientsEqual(a.Add(b).Coefficients(), b.Add(a).Coefficients(), 0) {
		t.Fatal("sum does not commute")
	}
	if !coefficientsEqual(a.Mul(b.Add(c)).Coefficients(), a.Mul(b).Add(a.Mul(c)).Coefficients(), 1e-10) {
		t.Fatal("product does not distribute")
	}
}

func TestTaylorTruncation(t *testing.T) {
	basis := NewBasis(2, 3)
	x := TaylorVariable(basis, 0, -1, 1)
	// x^4 is above the degree and must vanish entirely.
	if x.Pow(4).Norm() != 0 {
		t.Fatalf("x^4 should truncate to zero: %s", x.Pow(4))
	}
	x3 := x.Mul(x).Mul(x)
	if k := basis.Index([]int{3, 0}); x3.Coefficient(k) != 1 {
		t.Fatalf("x^3 coefficient: %f", x3.Coefficient(k))
	}
}

func TestTaylorElementary(t *testing.T) {
	basis := NewBasis(2, 8)
	x := TaylorVariable(basis, 0, 0.98, 1.02)
	y := TaylorVariable(basis, 1, -0.52, -0.48)
	at := func(pt []float64) (float64, float64) {
		return 1 + 0.02*pt[0], -0.5 + 0.02*pt[1]
	}
	testValues := []struct {
		name string
		poly Taylor
		exp  func(x, y float64) float64
	}{
		{"sin", x.Sin(), func(x, y float64) float64 { return math.Sin(x) }},
		{"cos", y.Cos(), func(x, y float64) float64 { return math.Cos(y) }},
		{"exp", x.Mul(y).Exp(), func(x, y float64) float64 { return math.Exp(x * y) }},
		{"log", x.Log(), func(x, y float64) float64 { return math.Log(x) }},
		{"sqrt", x.Sqrt(), func(x, y float64) float64 { return math.Sqrt(x) }},
		{"pow", x.Pow(-1.5), func(x, y float64) float64 { return math.Pow(x, -1.5) }},
		{"inv", x.Lift(1).Div(y), func(x, y float64) float64 { return 1 / y }},
		{"atan", y.Atan(), func(x, y float64) float64 { return math.Atan(y) }},
		{"atan2", y.Atan2(x), func(x, y float64) float64 { return math.Atan2(y, x) }},
		{"atan2 q3", y.Atan2(x.Neg()), func(x, y float64) float64 { return math.Atan2(y, -x) }},
	}
	for _, test := range testValues {
		for _, pt := range samplePoints(2) {
			xv, yv := at(pt)
			if got, exp := test.poly.Eval(pt), test.exp(xv, yv); !scalar.EqualWithinAbs(got, exp, 1e-10) {
				t.Fatalf("%s at %v: got %.15f exp %.15f", test.name, pt, got, exp)
			}
		}
	}
}

func TestTaylorErrors(t *testing.T) {
	a := NewTaylor(NewBasis(2, 3), 1)
	b := NewTaylor(NewBasis(2, 4), 1)
	assertAlgebraError(t, ErrDegreeMismatch, func() { a.Add(b) })
	assertAlgebraError(t, ErrDegreeMismatch, func() { a.Mul(b) })
	zero := TaylorVariable(a.Basis(), 0, -1, 1)
	if _, err := Quo(a, zero); err == nil {
		t.Fatal("expected singular division")
	}
	assertAlgebraError(t, ErrSingularDivision, func() { zero.Pow(0.5) })
	assertAlgebraError(t, ErrVariableCount, func() { a.Eval([]float64{0}) })
	if q, err := Quo(a, a.Scale(2)); err != nil || q.Constant() != 0.5 {
		t.Fatalf("1/2: got %v (%v)", q, err)
	}
	// A panic which is not an algebra error must not be swallowed.
	assertPanic(t, func() {
		var err error
		defer Catch(&err)
		panic("boom")
	})
}

func TestTaylorRange(t *testing.T) {
	basis := NewBasis(2, 2)
	x := TaylorVariable(basis, 0, 1, 3)
	lo, hi := x.Mul(x).Range()
	// x² = 4 + 4ξ + ξ², bounded by [4-5, 4+5].
	if lo != -1 || hi != 9 {
		t.Fatalf("range: got [%f, %f]", lo, hi)
	}
}
