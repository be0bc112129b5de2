package astro

import "math"

const (
	deg2rad = math.Pi / 180
)

// Deg2rad converts degrees to radians in [0, 2π).
func Deg2rad(a float64) float64 {
	return wrapPositive(a*deg2rad, 2*math.Pi)
}

// Rad2deg converts radians to degrees in [0, 360).
func Rad2deg(a float64) float64 {
	return wrapPositive(a/deg2rad, 360)
}

// wrapPositive reduces x into [0, period).
func wrapPositive(x, period float64) float64 {
	x = math.Mod(x, period)
	if x < 0 {
		x += period
	}
	// A tiny negative x rounds up to the period.
	if x >= period {
		x = 0
	}
	return x
}

// AngleWrap wraps θ into [-π, π).
func AngleWrap(θ float64) float64 {
	θ = math.Mod(θ+math.Pi, 2*math.Pi)
	if θ < 0 {
		θ += 2 * math.Pi
	}
	return θ - math.Pi
}
