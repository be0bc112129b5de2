package thames

import (
	"math"

	"github.com/maxhlc/thames/algebra"
	"github.com/maxhlc/thames/tools"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distmv"
)

// StateToSample maps x in the box [lo, hi] onto [-1, 1]ⁿ, the domain of the polynomial variables.
func StateToSample(x, lo, hi []float64) []float64 {
	ξ := make([]float64, len(x))
	for i := range x {
		ξ[i] = (2*x[i] - (lo[i] + hi[i])) / (hi[i] - lo[i])
	}
	return ξ
}

// SampleToState is the inverse of StateToSample.
func SampleToState(ξ, lo, hi []float64) []float64 {
	x := make([]float64, len(ξ))
	for i := range ξ {
		x[i] = 0.5*(lo[i]+hi[i]) + 0.5*(hi[i]-lo[i])*ξ[i]
	}
	return x
}

// UniformSamples draws n points uniformly over [-1, 1]^dim. The same seed gives the same points.
func UniformSamples(n, dim int, seed uint64) [][]float64 {
	bounds := make([]r1.Interval, dim)
	for i := range bounds {
		bounds[i] = r1.Interval{Min: -1, Max: 1}
	}
	dist := distmv.NewUniform(bounds, rand.NewSource(seed))
	out := make([][]float64, n)
	for i := range out {
		out[i] = dist.Rand(nil)
	}
	return out
}

// GridSamples returns the n^dim points of the regular grid over [-1, 1]^dim, corners included.
func GridSamples(n, dim int) [][]float64 {
	axes := make([][]float64, dim)
	for i := range axes {
		axes[i] = tools.Linspace(-1, 1, n)
	}
	return CartesianPermutations(axes)
}

// CoveringBox widens [lo, hi] until it holds every state.
func CoveringBox(states [][]float64, lo, hi []float64) ([]float64, []float64) {
	lo, hi = append([]float64(nil), lo...), append([]float64(nil), hi...)
	for _, x := range states {
		for i, v := range x {
			lo[i] = math.Min(lo[i], v)
			hi[i] = math.Max(hi[i], v)
		}
	}
	return lo, hi
}

// CartesianPermutations returns every combination taking one value per dimension, the last
// dimension varying fastest.
func CartesianPermutations(points [][]float64) [][]float64 {
	if len(points) == 0 {
		return nil
	}
	total := 1
	for _, p := range points {
		total *= len(p)
	}
	out := make([][]float64, 0, total)
	idx := make([]int, len(points))
	for n := 0; n < total; n++ {
		perm := make([]float64, len(points))
		for d, i := range idx {
			perm[d] = points[d][i]
		}
		out = append(out, perm)
		for d := len(idx) - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < len(points[d]) {
				break
			}
			idx[d] = 0
		}
	}
	return out
}

// EvalState evaluates every component of a state at ξ.
func EvalState[T algebra.Number[T]](x []T, ξ []float64) []float64 {
	out := make([]float64, len(x))
	for i, c := range x {
		out[i] = c.Eval(ξ)
	}
	return out
}

// Validation summarises the error of polynomial evaluations against scalar propagations of the
// same samples, in km and km/s.
type Validation struct {
	Samples      int     `json:"samples"`
	Failed       int     `json:"failed"`
	MeanPosition float64 `json:"mean_position_error"`
	StdPosition  float64 `json:"std_position_error"`
	MaxPosition  float64 `json:"max_position_error"`
	MeanVelocity float64 `json:"mean_velocity_error"`
	StdVelocity  float64 `json:"std_velocity_error"`
	MaxVelocity  float64 `json:"max_velocity_error"`
}

// Validate compares pairs of Cartesian states.
func Validate(approx, exact [][]float64) Validation {
	v := Validation{Samples: len(approx)}
	if len(approx) == 0 {
		return v
	}
	dr := make([]float64, len(approx))
	dv := make([]float64, len(approx))
	for i := range approx {
		dr[i] = floats.Distance(approx[i][:3], exact[i][:3], 2)
		dv[i] = floats.Distance(approx[i][3:], exact[i][3:], 2)
	}
	v.MeanPosition, v.StdPosition = stat.MeanStdDev(dr, nil)
	v.MeanVelocity, v.StdVelocity = stat.MeanStdDev(dv, nil)
	v.MaxPosition, v.MaxVelocity = floats.Max(dr), floats.Max(dv)
	if len(approx) == 1 {
		// The sample deviation of a single value is undefined.
		v.StdPosition, v.StdVelocity = 0, 0
	}
	return v
}
