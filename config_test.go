package thames

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/maxhlc/thames/integrator"
	"github.com/maxhlc/thames/propagator"
	"gonum.org/v1/gonum/floats"
)

const leoScenario = `
[metadata]
name = "leo"
body = "Earth"

[spacecraft]
mass = 500.0
area = 10.0
cd = 2.2

[perturbation]
geopotential = "J2"
atmosphere = "USSA76"

[propagator]
start = 2020-01-01T00:00:00Z
end = 2020-01-01T01:00:00Z
step = 600.0
equations = "GEqOE"
method = "CashKarp"
atol = 1e-10
rtol = 1e-10

[states]
type = "cartesian"
values = [7000.0, 0.0, 0.0, 0.0, 7.5, 0.0]
`

func TestReadScenario(t *testing.T) {
	sc, err := ReadScenario(strings.NewReader(leoScenario), "toml")
	if err != nil {
		t.Fatal(err)
	}
	if sc.Name != "leo" || sc.Body.Name != "Earth" {
		t.Fatalf("incorrect metadata: %s %s", sc.Name, sc.Body)
	}
	if !sc.HasJ2() || !sc.HasDrag() {
		t.Fatal("expected J2 and drag")
	}
	if sc.Spacecraft != (Spacecraft{Mass: 500, Area: 10, Cd: 2.2}) {
		t.Fatalf("incorrect spacecraft %+v", sc.Spacecraft)
	}
	p := sc.Propagator
	if p.Equations != propagator.GEqOE || p.Method != integrator.CashKarp {
		t.Fatalf("incorrect propagator %s %s", p.Equations, p.Method)
	}
	if p.Span() != 3600 || p.Step != 600 {
		t.Fatalf("span %f step %f", p.Span(), p.Step)
	}
	if p.AbsTol != 1e-10 || p.RelTol != 1e-10 || !p.NonDimensional {
		t.Fatalf("incorrect tolerances or scaling: %+v", p)
	}
	if !floats.Equal(sc.States.Values, []float64{7000, 0, 0, 0, 7.5, 0}) {
		t.Fatalf("incorrect values %v", sc.States.Values)
	}
	if sc.Polynomial.Enabled || sc.Output.Format != "all" || sc.Workers != 4 {
		t.Fatalf("incorrect defaults %+v %+v %d", sc.Polynomial, sc.Output, sc.Workers)
	}
	if sc.Samples.Type != SamplesRandom || sc.Samples.Len() != 0 {
		t.Fatalf("incorrect sample defaults %+v", sc.Samples)
	}

	grid, err := ReadScenario(strings.NewReader(strings.Replace(leoScenario, "[states]", "[samples]\ntype = \"Grid\"\npoints = 3\n\n[states]", 1)), "toml")
	if err != nil {
		t.Fatal(err)
	}
	if grid.Samples.Type != SamplesGrid || grid.Samples.Points != 3 || grid.Samples.Len() != 729 {
		t.Fatalf("incorrect grid %+v", grid.Samples)
	}
}

func TestReadScenarioJulianDate(t *testing.T) {
	doc := strings.Replace(leoScenario, "start = 2020-01-01T00:00:00Z", "start = 2458849.5", 1)
	sc, err := ReadScenario(strings.NewReader(doc), "toml")
	if err != nil {
		t.Fatal(err)
	}
	exp := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	if d := sc.Propagator.Start.Sub(exp); d > time.Millisecond || d < -time.Millisecond {
		t.Fatalf("start %s instead of %s", sc.Propagator.Start, exp)
	}
}

func TestReadScenarioEnvOverride(t *testing.T) {
	t.Setenv("THAMES_PROPAGATOR_ATOL", "1e-6")
	t.Setenv("THAMES_PROPAGATOR_METHOD", "RK4")
	sc, err := ReadScenario(strings.NewReader(leoScenario), "toml")
	if err != nil {
		t.Fatal(err)
	}
	if sc.Propagator.AbsTol != 1e-6 {
		t.Fatalf("atol %g not overridden", sc.Propagator.AbsTol)
	}
	if sc.Propagator.Method != integrator.RK4 {
		t.Fatalf("method %s not overridden", sc.Propagator.Method)
	}
}

func TestReadScenarioInvalid(t *testing.T) {
	for _, tc := range []struct {
		name  string
		edits []string
	}{
		{"body", []string{`body = "Earth"`, `body = "Vulcan"`}},
		{"geopotential", []string{`geopotential = "J2"`, `geopotential = "J4"`}},
		{"atmosphere", []string{`atmosphere = "USSA76"`, `atmosphere = "MSIS"`}},
		{"mass", []string{`mass = 500.0`, `mass = 0.0`}},
		{"equations", []string{`equations = "GEqOE"`, `equations = "Kepler"`}},
		{"method", []string{`method = "CashKarp"`, `method = "Euler"`}},
		{"tolerance", []string{`atol = 1e-10`, `atol = -1.0`}},
		{"step sign", []string{`step = 600.0`, `step = -600.0`}},
		{"zero step", []string{`step = 600.0`, `step = 0.0`}},
		{"missing end", []string{`end = 2020-01-01T01:00:00Z`, ``}},
		{"state type", []string{`type = "cartesian"`, `type = "polar"`}},
		{"state length", []string{`values = [7000.0, 0.0, 0.0, 0.0, 7.5, 0.0]`, `values = [7000.0, 0.0, 7.5]`}},
		{"polynomial without uncertainty", []string{"[states]", "[polynomial]\nenabled = true\n\n[states]"}},
		{"polynomial with DOPRI", []string{
			`method = "CashKarp"`, `method = "DormandPrince"`,
			"[states]", "[polynomial]\nenabled = true\n\n[states]\nuncertainty = [1.0, 1.0, 1.0, 0.001, 0.001, 0.001]",
		}},
		{"polynomial degree", []string{"[states]", "[polynomial]\nenabled = true\ndegree = 0\n\n[states]\nuncertainty = [1.0, 1.0, 1.0, 0.001, 0.001, 0.001]"}},
		{"output format", []string{"[states]", "[output]\nformat = \"xml\"\n\n[states]"}},
		{"sample type", []string{"[states]", "[samples]\ntype = \"sobol\"\n\n[states]"}},
		{"grid points", []string{"[states]", "[samples]\ntype = \"grid\"\npoints = 1\n\n[states]"}},
		{"negative count", []string{"[states]", "[samples]\ncount = -3\n\n[states]"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			doc := strings.NewReplacer(tc.edits...).Replace(leoScenario)
			if doc == leoScenario {
				t.Fatalf("%q not found in the scenario", tc.edits)
			}
			if _, err := ReadScenario(strings.NewReader(doc), "toml"); !errors.Is(err, ErrInvalidScenario) {
				t.Fatalf("expected an invalid scenario, got %v", err)
			}
		})
	}
}

func TestReadScenarioCustomAtmosphere(t *testing.T) {
	doc := strings.Replace(leoScenario, `atmosphere = "USSA76"`, `atmosphere = "custom"
altitudes = [0.0, 100.0, 500.0]
densities = [1.225, 5.297e-7, 6.967e-13]
scale_heights = [7.249, 5.877, 63.822]`, 1)
	sc, err := ReadScenario(strings.NewReader(doc), "toml")
	if err != nil {
		t.Fatal(err)
	}
	if sc.Perturbations.Table == nil || len(sc.Perturbations.Table.Altitudes) != 3 {
		t.Fatalf("incorrect table %+v", sc.Perturbations.Table)
	}
	bad := strings.Replace(doc, "scale_heights = [7.249, 5.877, 63.822]", "scale_heights = [7.249]", 1)
	if _, err := ReadScenario(strings.NewReader(bad), "toml"); !errors.Is(err, ErrInvalidScenario) {
		t.Fatalf("expected an invalid table, got %v", err)
	}
}

func TestLoadScenarioStatesFile(t *testing.T) {
	dir := t.TempDir()
	doc := strings.Replace(leoScenario, "[states]", "[states]\nfile = \"batch.csv\"", 1)
	path := filepath.Join(dir, "leo.toml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatal(err)
	}
	if exp := filepath.Join(dir, "batch.csv"); sc.States.File != exp {
		t.Fatalf("states file %s instead of %s", sc.States.File, exp)
	}
	if _, err := LoadScenario(filepath.Join(dir, "missing.toml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
