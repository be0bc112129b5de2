package algebra

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func assertPanic(t *testing.T, f func()) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("code did not panic")
		}
	}()
	f()
}

// assertAlgebraError runs f and checks that it fails with the given sentinel.
func assertAlgebraError(t *testing.T, target error, f func()) {
	var err error
	func() {
		defer Catch(&err)
		f()
	}()
	if !errors.Is(err, target) {
		t.Fatalf("expected %v, got %v", target, err)
	}
}

func coefficientsEqual(a, b []float64, tol float64) bool {
	return len(a) == len(b) && floats.EqualApprox(a, b, tol)
}

// samplePoints returns a few points of [-1, 1]^n, origin included.
func samplePoints(n int) [][]float64 {
	pts := [][]float64{make([]float64, n)}
	for _, s := range []float64{-0.8, -0.3, 0.45, 1} {
		pt := make([]float64, n)
		for v := range pt {
			pt[v] = s * float64(v+1) / float64(n)
		}
		pts = append(pts, pt)
	}
	return pts
}
