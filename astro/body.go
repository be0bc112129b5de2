// Package astro holds the central-body constants, the (non)dimensionalisation factors and the
// state conversions consumed by the propagators.
package astro

import (
	"fmt"
	"strings"
)

// CelestialObject defines a central body.
type CelestialObject struct {
	Name    string
	Radius  float64 // km
	μ       float64 // km³/s²
	J2      float64
	RotRate float64 // rad/s
}

// NewCelestialObject returns a custom central body.
func NewCelestialObject(name string, radius, μ, j2, rotRate float64) CelestialObject {
	return CelestialObject{name, radius, μ, j2, rotRate}
}

// GM returns μ (which is unexported because it's a lowercase letter)
func (c CelestialObject) GM() float64 {
	return c.μ
}

// String implements the Stringer interface.
func (c CelestialObject) String() string {
	return c.Name + " body"
}

// CelestialObjectFromString returns the object from its name
func CelestialObjectFromString(name string) (CelestialObject, error) {
	switch strings.ToLower(name) {
	case "earth", "":
		return Earth, nil
	default:
		return CelestialObject{}, fmt.Errorf("undefined central body '%s'", name)
	}
}

// Earth is home.
var Earth = CelestialObject{"Earth", 6378.13646, 398600.44144982, 1.082635854e-3, 7.292115855306587e-5}
