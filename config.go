package thames

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/maxhlc/thames/algebra"
	"github.com/maxhlc/thames/astro"
	"github.com/maxhlc/thames/integrator"
	"github.com/maxhlc/thames/perturbation"
	"github.com/maxhlc/thames/propagator"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// ErrInvalidScenario is returned for a scenario which cannot be run.
var ErrInvalidScenario = errors.New("invalid scenario")

// EnvPrefix prefixes the environment variables overriding scenario keys, e.g. THAMES_PROPAGATOR_ATOL.
const EnvPrefix = "THAMES"

// State representations accepted for the initial states.
const (
	StateCartesian = "cartesian"
	StateKeplerian = "keplerian"
	StateGEqOE     = "geqoe"
)

// Polynomial algebras.
const (
	PolynomialTaylor    = "taylor"
	PolynomialChebyshev = "chebyshev"
)

// Spacecraft holds the physical properties used by the drag model.
type Spacecraft struct {
	Mass float64 // kg
	Area float64 // m²
	Cd   float64
}

// AtmosphereTable is a custom tabulated exponential atmosphere.
type AtmosphereTable struct {
	Altitudes    []float64 // km
	Densities    []float64 // kg/m³
	ScaleHeights []float64 // km
}

// PerturbationConfig selects the force models. There is a single entry per kind of model.
type PerturbationConfig struct {
	Geopotential string // "J2" or "none"
	Atmosphere   string // preset, "custom" or "none"
	Table        *AtmosphereTable
}

// PropagatorConfig configures the propagation.
type PropagatorConfig struct {
	Start, End     time.Time
	Step           float64 // s
	Equations      propagator.Formulation
	Method         integrator.Method
	AbsTol, RelTol float64
	NonDimensional bool
}

// Span returns the propagation span in seconds.
func (c PropagatorConfig) Span() float64 {
	return c.End.Sub(c.Start).Seconds()
}

// PolynomialConfig configures uncertainty propagation.
type PolynomialConfig struct {
	Enabled bool
	Type    string
	Degree  int
}

// StatesConfig holds the initial states. Uncertainty half-widths are Cartesian (km, km/s) and apply
// around the Cartesian nominal.
type StatesConfig struct {
	Type        string
	Values      []float64
	Uncertainty []float64
	// File is an optional point file of further Cartesian initial states, propagated as a batch.
	File string
}

// Sample point layouts over [-1, 1]⁶.
const (
	SamplesRandom = "random"
	SamplesGrid   = "grid"
)

// SamplesConfig configures the sampling of polynomial results. Random sampling draws Count points
// from Seed; a grid takes Points evenly spaced values per dimension, so Points⁶ points.
type SamplesConfig struct {
	Type   string
	Count  int
	Points int
	Seed   uint64
}

// Len returns the number of sample points.
func (c SamplesConfig) Len() int {
	if c.Type == SamplesGrid {
		n := 1
		for i := 0; i < 6; i++ {
			n *= c.Points
		}
		return n
	}
	return c.Count
}

// OutputConfig configures the exports.
type OutputConfig struct {
	Directory string
	Format    string // "json", "csv" or "all"
}

// Scenario is a complete run configuration.
type Scenario struct {
	Name          string
	Body          astro.CelestialObject
	Spacecraft    Spacecraft
	Perturbations PerturbationConfig
	Propagator    PropagatorConfig
	Polynomial    PolynomialConfig
	States        StatesConfig
	Samples       SamplesConfig
	Output        OutputConfig
	Workers       int
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("metadata.name", "thames")
	v.SetDefault("metadata.body", "earth")
	v.SetDefault("perturbation.geopotential", "none")
	v.SetDefault("perturbation.atmosphere", "none")
	v.SetDefault("propagator.equations", "Cowell")
	v.SetDefault("propagator.method", "CashKarp")
	v.SetDefault("propagator.atol", integrator.DefaultAbsTol)
	v.SetDefault("propagator.rtol", integrator.DefaultRelTol)
	v.SetDefault("propagator.non_dimensional", true)
	v.SetDefault("polynomial.type", "Taylor")
	v.SetDefault("polynomial.degree", 3)
	v.SetDefault("states.type", "Cartesian")
	v.SetDefault("samples.type", SamplesRandom)
	v.SetDefault("samples.seed", 1)
	v.SetDefault("output.directory", ".")
	v.SetDefault("output.format", "all")
	v.SetDefault("run.workers", 4)
	return v
}

// LoadScenario reads a scenario file. The format follows the extension (TOML, JSON or YAML).
func LoadScenario(path string) (*Scenario, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	sc, err := scenarioFrom(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if sc.States.File != "" && !filepath.IsAbs(sc.States.File) {
		sc.States.File = filepath.Join(filepath.Dir(path), sc.States.File)
	}
	return sc, nil
}

// ReadScenario reads a scenario of the given format ("toml", "json", "yaml").
func ReadScenario(r io.Reader, format string) (*Scenario, error) {
	v := newViper()
	v.SetConfigType(format)
	if err := v.ReadConfig(r); err != nil {
		return nil, err
	}
	return scenarioFrom(v)
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidScenario)
}

func scenarioFrom(v *viper.Viper) (*Scenario, error) {
	sc := &Scenario{Name: v.GetString("metadata.name"), Workers: v.GetInt("run.workers")}
	var err error
	if sc.Body, err = astro.CelestialObjectFromString(v.GetString("metadata.body")); err != nil {
		return nil, invalid("%s", err)
	}

	sc.Spacecraft = Spacecraft{
		Mass: v.GetFloat64("spacecraft.mass"),
		Area: v.GetFloat64("spacecraft.area"),
		Cd:   v.GetFloat64("spacecraft.cd"),
	}

	sc.Perturbations.Geopotential = v.GetString("perturbation.geopotential")
	switch strings.ToLower(sc.Perturbations.Geopotential) {
	case "j2", "none", "":
	default:
		return nil, invalid("unknown geopotential '%s'", sc.Perturbations.Geopotential)
	}
	sc.Perturbations.Atmosphere = v.GetString("perturbation.atmosphere")
	switch atm := strings.ToLower(sc.Perturbations.Atmosphere); atm {
	case "none", "":
	case "custom":
		table := &AtmosphereTable{}
		if table.Altitudes, err = floatSlice(v, "perturbation.altitudes"); err != nil {
			return nil, err
		}
		if table.Densities, err = floatSlice(v, "perturbation.densities"); err != nil {
			return nil, err
		}
		if table.ScaleHeights, err = floatSlice(v, "perturbation.scale_heights"); err != nil {
			return nil, err
		}
		sc.Perturbations.Table = table
		if _, err := perturbation.NewTabulated[algebra.Real](sc.Perturbations.Table.Altitudes, sc.Perturbations.Table.Densities, sc.Perturbations.Table.ScaleHeights); err != nil {
			return nil, invalid("%s", err)
		}
	default:
		if _, err := perturbation.NewAtmosphere[algebra.Real](atm); err != nil {
			return nil, invalid("%s", err)
		}
	}
	if sc.HasDrag() && (sc.Spacecraft.Mass <= 0 || sc.Spacecraft.Area < 0 || sc.Spacecraft.Cd < 0) {
		return nil, invalid("drag needs a positive mass and non-negative area and cd, got %+v", sc.Spacecraft)
	}

	if sc.Propagator, err = propagatorConfig(v); err != nil {
		return nil, err
	}

	sc.Polynomial = PolynomialConfig{
		Enabled: v.GetBool("polynomial.enabled"),
		Type:    strings.ToLower(v.GetString("polynomial.type")),
		Degree:  v.GetInt("polynomial.degree"),
	}
	if sc.Polynomial.Enabled {
		if sc.Polynomial.Type != PolynomialTaylor && sc.Polynomial.Type != PolynomialChebyshev {
			return nil, invalid("unknown polynomial type '%s'", sc.Polynomial.Type)
		}
		if sc.Polynomial.Degree < 1 {
			return nil, invalid("polynomial degree %d", sc.Polynomial.Degree)
		}
		if sc.Propagator.Method == integrator.DormandPrince {
			return nil, invalid("%s cannot propagate polynomials", sc.Propagator.Method)
		}
	}

	sc.States = StatesConfig{
		Type: strings.ToLower(v.GetString("states.type")),
		File: v.GetString("states.file"),
	}
	if sc.States.Values, err = floatSlice(v, "states.values"); err != nil {
		return nil, err
	}
	if sc.States.Uncertainty, err = floatSlice(v, "states.uncertainty"); err != nil {
		return nil, err
	}
	switch sc.States.Type {
	case StateCartesian, StateKeplerian, StateGEqOE:
	default:
		return nil, invalid("unknown state type '%s'", sc.States.Type)
	}
	if len(sc.States.Values) != 6 {
		return nil, invalid("%d state values", len(sc.States.Values))
	}
	if sc.Polynomial.Enabled {
		if len(sc.States.Uncertainty) != 6 {
			return nil, invalid("%d uncertainty half-widths", len(sc.States.Uncertainty))
		}
		for i, w := range sc.States.Uncertainty {
			if !(w > 0) {
				return nil, invalid("uncertainty half-width %d is %g", i, w)
			}
		}
	}

	sc.Samples = SamplesConfig{
		Type:   strings.ToLower(v.GetString("samples.type")),
		Count:  v.GetInt("samples.count"),
		Points: v.GetInt("samples.points"),
		Seed:   uint64(v.GetInt64("samples.seed")),
	}
	switch sc.Samples.Type {
	case SamplesRandom:
		if sc.Samples.Count < 0 {
			return nil, invalid("%d samples", sc.Samples.Count)
		}
	case SamplesGrid:
		// Both ends of each dimension are on the grid.
		if sc.Samples.Points < 2 {
			return nil, invalid("%d grid points per dimension", sc.Samples.Points)
		}
	default:
		return nil, invalid("unknown sample type '%s'", sc.Samples.Type)
	}
	sc.Output = OutputConfig{Directory: v.GetString("output.directory"), Format: strings.ToLower(v.GetString("output.format"))}
	switch sc.Output.Format {
	case "json", "csv", "all":
	default:
		return nil, invalid("unknown output format '%s'", sc.Output.Format)
	}
	if sc.Workers < 1 {
		sc.Workers = 1
	}
	return sc, nil
}

func propagatorConfig(v *viper.Viper) (PropagatorConfig, error) {
	var c PropagatorConfig
	var err error
	if c.Start, err = readJDEorTime(v, "propagator.start"); err != nil {
		return c, err
	}
	if c.End, err = readJDEorTime(v, "propagator.end"); err != nil {
		return c, err
	}
	c.Step = v.GetFloat64("propagator.step")
	if c.Equations, err = propagator.FormulationFromString(v.GetString("propagator.equations")); err != nil {
		return c, invalid("%s", err)
	}
	if c.Method, err = integrator.MethodFromString(v.GetString("propagator.method")); err != nil {
		return c, invalid("%s", err)
	}
	c.AbsTol = v.GetFloat64("propagator.atol")
	c.RelTol = v.GetFloat64("propagator.rtol")
	c.NonDimensional = v.GetBool("propagator.non_dimensional")
	if !(c.AbsTol > 0) || !(c.RelTol > 0) {
		return c, invalid("tolerances must be positive, got atol=%g rtol=%g", c.AbsTol, c.RelTol)
	}
	if _, err := propagator.Epochs(0, c.Span(), c.Step); err != nil {
		return c, invalid("step of %g s from %s to %s", c.Step, c.Start, c.End)
	}
	return c, nil
}

// readJDEorTime reads an epoch given either as a Julian date or as a timestamp.
func readJDEorTime(v *viper.Viper, key string) (time.Time, error) {
	if !v.IsSet(key) {
		return time.Time{}, invalid("missing %s", key)
	}
	if jde := v.GetFloat64(key); jde != 0 {
		return julian.JDToTime(jde).UTC(), nil
	}
	dt := v.GetTime(key)
	if dt.IsZero() {
		return time.Time{}, invalid("cannot read %s = %v as a Julian date or a time", key, v.Get(key))
	}
	return dt.UTC(), nil
}

// floatSlice reads a list of numbers. Environment overrides are given as "1,2,3".
func floatSlice(v *viper.Viper, key string) ([]float64, error) {
	var raw []interface{}
	switch x := v.Get(key).(type) {
	case nil:
		return nil, nil
	case string:
		for _, f := range strings.FieldsFunc(x, func(r rune) bool { return r == ',' || r == ' ' || r == '[' || r == ']' }) {
			raw = append(raw, f)
		}
	default:
		var err error
		if raw, err = cast.ToSliceE(x); err != nil {
			return nil, invalid("%s: %s", key, err)
		}
	}
	out := make([]float64, len(raw))
	for i, r := range raw {
		f, err := cast.ToFloat64E(r)
		if err != nil {
			return nil, invalid("%s[%d]: %s", key, i, err)
		}
		out[i] = f
	}
	return out, nil
}

// HasDrag returns whether the scenario includes atmospheric drag.
func (sc *Scenario) HasDrag() bool {
	atm := strings.ToLower(sc.Perturbations.Atmosphere)
	return atm != "" && atm != "none" && atm != "vacuum"
}

// HasJ2 returns whether the scenario includes the J2 geopotential.
func (sc *Scenario) HasJ2() bool {
	return strings.EqualFold(sc.Perturbations.Geopotential, "j2")
}
