package algebra

import "math"

// Coefficients of univariate Taylor series about x0, up to degree n, as used by Taylor.compose.

func invSeries(x0 float64, n int) []float64 {
	a := make([]float64, n+1)
	a[0] = 1 / x0
	for k := 1; k <= n; k++ {
		a[k] = -a[k-1] / x0
	}
	return a
}

// powSeries expands (x0 + δ)^α with the generalised binomial coefficients.
func powSeries(x0, α float64, n int) []float64 {
	a := make([]float64, n+1)
	a[0] = math.Pow(x0, α)
	for k := 1; k <= n; k++ {
		a[k] = a[k-1] * (α - float64(k-1)) / (float64(k) * x0)
	}
	return a
}

func expSeries(x0 float64, n int) []float64 {
	a := make([]float64, n+1)
	a[0] = math.Exp(x0)
	for k := 1; k <= n; k++ {
		a[k] = a[k-1] / float64(k)
	}
	return a
}

func logSeries(x0 float64, n int) []float64 {
	a := make([]float64, n+1)
	a[0] = math.Log(x0)
	for k := 1; k <= n; k++ {
		a[k] = math.Pow(-1, float64(k+1)) / (float64(k) * math.Pow(x0, float64(k)))
	}
	return a
}

// sinCosSeries returns the expansions of sin and cos about x0.
func sinCosSeries(x0 float64, n int) (sin, cos []float64) {
	s, c := math.Sincos(x0)
	sin = make([]float64, n+1)
	cos = make([]float64, n+1)
	fact := 1.0
	for k := 0; k <= n; k++ {
		if k > 0 {
			fact *= float64(k)
		}
		// k-th derivatives cycle through sin, cos, -sin, -cos.
		switch k % 4 {
		case 0:
			sin[k], cos[k] = s, c
		case 1:
			sin[k], cos[k] = c, -s
		case 2:
			sin[k], cos[k] = -s, -c
		case 3:
			sin[k], cos[k] = -c, s
		}
		sin[k] /= fact
		cos[k] /= fact
	}
	return
}

// atanSeries expands atan(u) about zero.
func atanSeries(n int) []float64 {
	a := make([]float64, n+1)
	for k := 1; k <= n; k += 2 {
		a[k] = 1 / float64(k)
		if (k/2)%2 == 1 {
			a[k] = -a[k]
		}
	}
	return a
}

// atan2Poly uses atan2(y, x) = atan2(y0, x0) + atan((y·x0 − x·y0)/(x·x0 + y·y0)), whose second
// term has a vanishing constant part.
func atan2Poly[T Number[T]](op string, y, x T) T {
	y0, x0 := y.Constant(), x.Constant()
	if x0 == 0 && y0 == 0 {
		raise(op, ErrSingularDivision)
	}
	num := y.Scale(x0).Sub(x.Scale(y0))
	den := x.Scale(x0).Add(y.Scale(y0))
	return num.Div(den).Atan().AddConst(math.Atan2(y0, x0))
}

// chebInterp returns the n+1 coefficients of the Chebyshev interpolant of f over [lo, hi],
// sampled at the Chebyshev nodes of the first kind.
func chebInterp(f func(float64) float64, lo, hi float64, n int) []float64 {
	m := n + 1
	mid, half := 0.5*(hi+lo), 0.5*(hi-lo)
	fx := make([]float64, m)
	for j := range fx {
		fx[j] = f(mid + half*math.Cos(math.Pi*(float64(j)+0.5)/float64(m)))
	}
	a := make([]float64, m)
	for k := range a {
		var s float64
		for j, v := range fx {
			s += v * math.Cos(math.Pi*float64(k)*(float64(j)+0.5)/float64(m))
		}
		a[k] = 2 * s / float64(m)
	}
	a[0] *= 0.5
	return a
}
