package perturbation

import (
	"fmt"
	"strings"

	"github.com/maxhlc/thames/algebra"
)

// Atmosphere returns the density in kg/m³ at an altitude in km.
type Atmosphere[T algebra.Number[T]] interface {
	Density(alt T) T
}

// Tabulated is a piecewise exponential density profile: within band i,
// ρ = ρᵢ·exp(-(alt - hᵢ)/Hᵢ). Altitudes outside the table use the nearest band.
type Tabulated[T algebra.Number[T]] struct {
	geo, rho, scale []float64
}

// NewTabulated validates and copies a density table given as parallel arrays of base altitude (km),
// base density (kg/m³) and scale height (km).
func NewTabulated[T algebra.Number[T]](geo, rho, scale []float64) (*Tabulated[T], error) {
	if len(geo) == 0 || len(geo) != len(rho) || len(geo) != len(scale) {
		return nil, fmt.Errorf("table lengths %d, %d, %d: %w", len(geo), len(rho), len(scale), ErrInvalidAtmosphere)
	}
	for i := range geo {
		if i > 0 && geo[i] <= geo[i-1] {
			return nil, fmt.Errorf("altitude %g after %g: %w", geo[i], geo[i-1], ErrInvalidAtmosphere)
		}
		if !(scale[i] > 0) {
			return nil, fmt.Errorf("scale height %g at %g km: %w", scale[i], geo[i], ErrInvalidAtmosphere)
		}
		if rho[i] < 0 {
			return nil, fmt.Errorf("density %g at %g km: %w", rho[i], geo[i], ErrInvalidAtmosphere)
		}
	}
	return &Tabulated[T]{
		geo:   append([]float64(nil), geo...),
		rho:   append([]float64(nil), rho...),
		scale: append([]float64(nil), scale...),
	}, nil
}

// band returns the index of the band containing alt, clamped to the table.
func (a *Tabulated[T]) band(alt float64) int {
	last := len(a.geo) - 1
	if alt >= a.geo[last] {
		return last
	}
	ii := 0
	for jj := 0; jj < last; jj++ {
		if alt >= a.geo[jj] && alt < a.geo[jj+1] {
			ii = jj
		}
	}
	return ii
}

// Density implements Atmosphere. The band of a polynomial altitude is picked from its constant term.
func (a *Tabulated[T]) Density(alt T) T {
	ii := a.band(alt.Constant())
	return alt.AddConst(-a.geo[ii]).Scale(-1 / a.scale[ii]).Exp().Scale(a.rho[ii])
}

// Exponential is the density profile a·exp(b·alt + c) + d.
type Exponential[T algebra.Number[T]] struct {
	A, B, C, D float64
}

// Density implements Atmosphere.
func (a Exponential[T]) Density(alt T) T {
	return alt.Scale(a.B).AddConst(a.C).Exp().Scale(a.A).AddConst(a.D)
}

// LogPolynomial is the density profile exp(Σ cᵢ·xⁱ) with x the altitude mapped from Domain to [-1, 1].
type LogPolynomial[T algebra.Number[T]] struct {
	Domain [2]float64
	Coeffs []float64
}

// Density implements Atmosphere.
func (a LogPolynomial[T]) Density(alt T) T {
	x := alt.AddConst(-a.Domain[0]).Scale(2 / (a.Domain[1] - a.Domain[0])).AddConst(-1)
	s := alt.Lift(0)
	for i := len(a.Coeffs) - 1; i >= 0; i-- {
		s = s.Mul(x).AddConst(a.Coeffs[i])
	}
	return s.Exp()
}

// Vacuum has zero density everywhere.
type Vacuum[T algebra.Number[T]] struct{}

// Density implements Atmosphere.
func (Vacuum[T]) Density(alt T) T {
	return alt.Lift(0)
}

// Preset names accepted by NewAtmosphere.
const (
	PresetUSSA76  = "USSA76"
	PresetWertz   = "Wertz"
	PresetWertzE  = "WertzE"
	PresetWertzP  = "WertzP"
	PresetWertzP1 = "WertzP1"
	PresetVacuum  = "Vacuum"
)

// NewAtmosphere returns the named preset. Names are case insensitive; "none" is Vacuum.
func NewAtmosphere[T algebra.Number[T]](name string) (Atmosphere[T], error) {
	switch strings.ToLower(name) {
	case "ussa76":
		return &Tabulated[T]{bandAltitudes, ussa76Density, ussa76Scale}, nil
	case "wertz":
		return &Tabulated[T]{bandAltitudes, wertzDensity, wertzScale}, nil
	case "wertze":
		return Exponential[T]{A: 1, B: -0.02068349, C: -18.19556173}, nil
	case "wertzp":
		return LogPolynomial[T]{
			Domain: [2]float64{250, 1000},
			Coeffs: []float64{-29.91193741, -5.39085723, 1.37374917, 0.79993813, 0.15368597, -0.44942173},
		}, nil
	case "wertzp1":
		return LogPolynomial[T]{Domain: [2]float64{250, 1000}, Coeffs: []float64{-29.41808788, -5.10257202}}, nil
	case "vacuum", "none":
		return Vacuum[T]{}, nil
	default:
		return nil, fmt.Errorf("unknown atmosphere preset '%s': %w", name, ErrInvalidAtmosphere)
	}
}

var bandAltitudes = []float64{
	0, 25, 30, 40, 50, 60, 70,
	80, 90, 100, 110, 120, 130, 140,
	150, 180, 200, 250, 300, 350, 400,
	450, 500, 600, 700, 800, 900, 1000,
}

var ussa76Density = []float64{
	1.225, 4.008e-2, 1.841e-2, 3.996e-3, 1.027e-3, 3.097e-4, 8.283e-5,
	1.846e-5, 3.416e-6, 5.606e-7, 9.708e-8, 2.222e-8, 8.152e-9, 3.831e-9,
	2.076e-9, 5.194e-10, 2.541e-10, 6.073e-11, 1.916e-11, 7.014e-12, 2.803e-12,
	1.184e-12, 5.215e-13, 1.137e-13, 3.070e-14, 1.136e-14, 5.759e-15, 3.561e-15,
}

// The 1000 km band takes the scale height of the Wertz table.
var ussa76Scale = []float64{
	7.310, 6.427, 6.546, 7.360, 8.342, 7.583, 6.661,
	5.927, 5.533, 5.703, 6.782, 9.973, 13.243, 16.322,
	21.652, 27.974, 34.934, 43.342, 49.755, 54.513, 58.019,
	60.980, 65.654, 76.377, 100.587, 147.203, 208.020, 268.000,
}

var wertzDensity = []float64{
	1.225e+00, 3.899e-02, 1.774e-02, 3.972e-03, 1.057e-03, 3.206e-04, 8.770e-05,
	1.905e-05, 3.396e-06, 5.297e-07, 9.661e-08, 2.438e-08, 8.484e-09, 3.845e-09,
	2.070e-09, 5.464e-10, 2.789e-10, 7.248e-11, 2.418e-11, 9.518e-12, 3.725e-12,
	1.585e-12, 6.967e-13, 1.454e-13, 3.614e-14, 1.170e-14, 5.245e-15, 3.019e-15,
}

var wertzScale = []float64{
	7.249, 6.349, 6.682, 7.554, 8.382, 7.714, 6.549,
	5.799, 5.382, 5.877, 7.263, 9.473, 12.636, 16.149,
	22.523, 29.740, 37.105, 45.546, 53.628, 53.298, 58.515,
	60.828, 63.822, 71.835, 88.667, 124.640, 181.050, 268.000,
}
