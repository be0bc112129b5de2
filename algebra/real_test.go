package algebra

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

func TestReal(t *testing.T) {
	x := Real(2)
	if x.Pow(3) != 8 || x.Sqrt().Mul(x.Sqrt()) != Real(math.Sqrt(2)*math.Sqrt(2)) {
		t.Fatal("real power")
	}
	if Real(1).Atan2(Real(-1)) != Real(3*math.Pi/4) {
		t.Fatalf("atan2: %f", Real(1).Atan2(Real(-1)))
	}
	if Real(1).Div(0).IsFinite() {
		t.Fatal("1/0 should not be finite")
	}
	if x.Lift(5) != 5 || x.Constant() != 2 || Real(-3).Norm() != 3 {
		t.Fatal("real accessors")
	}
	if q, err := Quo(Real(1), Real(4)); err != nil || q != 0.25 {
		t.Fatalf("quo: %f (%v)", q, err)
	}
	if !floats.Equal(Floats(Reals([]float64{1, 2})), []float64{1, 2}) {
		t.Fatal("conversion round trip")
	}
	var f Factory[Real] = RealFactory{}
	if f.Variable(3, 1, 2) != 1.5 {
		t.Fatal("real variable should sit at the middle of its interval")
	}
}

func TestVec3(t *testing.T) {
	i := Vec3[Real]{1, 0, 0}
	j := Vec3[Real]{0, 1, 0}
	k := Vec3[Real]{0, 0, 1}
	if i.Cross(j) != k || j.Cross(k) != i {
		t.Fatal("i x j != k")
	}
	// From Vallado
	R := Vec3[Real]{6524.834, 6862.875, 6448.296}
	V := Vec3[Real]{4.901327, 5.533756, -1.976341}
	H := R.Cross(V)
	exp := []float64{-4.924667792015100e4, 4.450050424118601e4, 0.246964476137900e4}
	for c := 0; c < 3; c++ {
		if !scalar.EqualWithinAbs(float64(H[c]), exp[c], 1e-6) {
			t.Fatalf("cross component %d: got %f exp %f", c, H[c], exp[c])
		}
	}
	if !scalar.EqualWithinAbs(float64(R.Norm()), 11456.57, 1e-2) {
		t.Fatalf("norm: %f", R.Norm())
	}
	if !scalar.EqualWithinAbs(float64(R.Unit().Norm()), 1, 1e-15) {
		t.Fatal("unit vector is not unit")
	}
	r, v := Split(Join(R, V))
	if r != R || v != V {
		t.Fatal("split/join")
	}
}

func TestVec3Polynomial(t *testing.T) {
	basis := NewBasis(3, 2)
	var R Vec3[Taylor]
	for c := range R {
		R[c] = TaylorVariable(basis, c, 1, 3)
	}
	n := R.Norm()
	for _, pt := range samplePoints(3) {
		x := []float64{2 + pt[0], 2 + pt[1], 2 + pt[2]}
		exp := floats.Norm(x, 2)
		// Second order over a wide box: only the centre is exact.
		if got := n.Eval(pt); !scalar.EqualWithinAbs(got, exp, 0.05) {
			t.Fatalf("norm at %v: got %f exp %f", pt, got, exp)
		}
	}
	if !scalar.EqualWithinAbs(n.Constant(), math.Sqrt(12), 1e-14) {
		t.Fatalf("norm centre: %f", n.Constant())
	}
}
