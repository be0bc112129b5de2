package thames

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/maxhlc/thames/integrator"
	"github.com/soniakeys/meeus/v3/julian"
)

// Epoch is an output time as UTC, Julian date and seconds from the start.
type Epoch struct {
	UTC     time.Time `json:"utc"`
	JD      float64   `json:"jd"`
	Seconds float64   `json:"t"`
}

// PolynomialResult holds the polynomial expansion of each state component at each epoch.
type PolynomialResult struct {
	Type      string    `json:"type"`
	Variables int       `json:"variables"`
	Degree    int       `json:"degree"`
	Lower     []float64 `json:"lower"`
	Upper     []float64 `json:"upper"`
	// Exponents lists the monomials in coefficient order.
	Exponents [][]int `json:"exponents"`
	// Coefficients are indexed by epoch, component then monomial.
	Coefficients [][][]float64 `json:"coefficients"`
}

// SampleResult holds the polynomial evaluated at sample points of [-1, 1]⁶.
type SampleResult struct {
	Points     [][]float64   `json:"points"`
	States     [][][]float64 `json:"states"` // sample, epoch, component
	Validation *Validation   `json:"validation,omitempty"`
}

// BatchTrajectory is the propagation of one state of the batch file.
type BatchTrajectory struct {
	Initial []float64   `json:"initial"`
	States  [][]float64 `json:"states,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// RunStats describes the work done by a run.
type RunStats struct {
	WallTime    float64 `json:"wall_time_s"`
	Evaluations uint    `json:"evaluations"`
	Steps       uint    `json:"steps"`
	Rejections  uint    `json:"rejections"`
}

// Result gathers everything a mission exports.
type Result struct {
	Name      string  `json:"name"`
	Body      string  `json:"body"`
	Equations string  `json:"equations"`
	Method    string  `json:"method"`
	AbsTol    float64 `json:"atol"`
	RelTol    float64 `json:"rtol"`
	Epochs    []Epoch `json:"epochs"`
	// States are the nominal Cartesian states, or the polynomials evaluated at the centre.
	States     [][]float64       `json:"states"`
	Polynomial *PolynomialResult `json:"polynomial,omitempty"`
	Samples    *SampleResult     `json:"samples,omitempty"`
	Cloud      *SampleResult     `json:"cloud,omitempty"` // the polynomial at the batch states
	Batch      []BatchTrajectory `json:"batch,omitempty"`
	Stats      RunStats          `json:"stats"`
}

func newResult(sc *Scenario, ts []float64) *Result {
	return &Result{
		Name:      sc.Name,
		Body:      sc.Body.Name,
		Equations: sc.Propagator.Equations.String(),
		Method:    sc.Propagator.Method.String(),
		AbsTol:    sc.Propagator.AbsTol,
		RelTol:    sc.Propagator.RelTol,
		Epochs:    Epochs(sc.Propagator.Start, ts),
	}
}

func (r *Result) setStats(s integrator.Stats) {
	r.Stats.Evaluations += s.Evaluations
	r.Stats.Steps += s.Steps
	r.Stats.Rejections += s.Rejections
}

// Epochs returns the epochs of ts seconds after start.
func Epochs(start time.Time, ts []float64) []Epoch {
	out := make([]Epoch, len(ts))
	for i, t := range ts {
		utc := start.Add(time.Duration(t * float64(time.Second))).UTC()
		out[i] = Epoch{UTC: utc, JD: julian.TimeToJD(utc), Seconds: t}
	}
	return out
}

// WriteResult writes the result files into dir and returns their paths. format is "json", "csv" or
// "all".
func WriteResult(dir, format string, r *Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	var paths []string
	create := func(suffix string, write func(io.Writer) error) error {
		path := filepath.Join(dir, r.Name+suffix)
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := write(f); err != nil {
			f.Close()
			return fmt.Errorf("%s: %w", path, err)
		}
		paths = append(paths, path)
		return f.Close()
	}
	if format == "json" || format == "all" {
		if err := create(".json", func(w io.Writer) error { return WriteJSON(w, r) }); err != nil {
			return paths, err
		}
	}
	if format == "csv" || format == "all" {
		if err := create(".csv", func(w io.Writer) error { return WritePoints(w, r.Epochs, r.States) }); err != nil {
			return paths, err
		}
		if r.Samples != nil {
			if err := create("-samples.csv", func(w io.Writer) error { return WriteSamplePoints(w, r.Epochs, r.Samples.States) }); err != nil {
				return paths, err
			}
		}
		if r.Cloud != nil {
			if err := create("-cloud.csv", func(w io.Writer) error { return WriteSamplePoints(w, r.Epochs, r.Cloud.States) }); err != nil {
				return paths, err
			}
		}
	}
	return paths, nil
}

// WriteJSON writes the result as an indented JSON document.
func WriteJSON(w io.Writer, r *Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// ReadJSON reads a result written by WriteJSON.
func ReadJSON(rd io.Reader) (*Result, error) {
	var r Result
	if err := json.NewDecoder(rd).Decode(&r); err != nil {
		return nil, err
	}
	return &r, nil
}

var pointHeader = []string{"jd", "t", "x", "y", "z", "vx", "vy", "vz"}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 17, 64)
}

// WritePoints writes one CSV row of "jd, t, x, y, z, vx, vy, vz" per epoch, in km and km/s.
func WritePoints(w io.Writer, epochs []Epoch, states [][]float64) error {
	if len(epochs) != len(states) {
		return fmt.Errorf("%d epochs for %d states", len(epochs), len(states))
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(pointHeader); err != nil {
		return err
	}
	for i, x := range states {
		record := []string{formatFloat(epochs[i].JD), formatFloat(epochs[i].Seconds)}
		for _, v := range x {
			record = append(record, formatFloat(v))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSamplePoints writes the sampled states with a leading sample number.
func WriteSamplePoints(w io.Writer, epochs []Epoch, samples [][][]float64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"sample"}, pointHeader...)); err != nil {
		return err
	}
	for s, states := range samples {
		for i, x := range states {
			record := []string{strconv.Itoa(s), formatFloat(epochs[i].JD), formatFloat(epochs[i].Seconds)}
			for _, v := range x {
				record = append(record, formatFloat(v))
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// Point is a row of a point file.
type Point struct {
	JD      float64
	Seconds float64
	State   []float64
}

// Time returns the UTC time of the point.
func (p Point) Time() time.Time {
	return julian.JDToTime(p.JD).UTC()
}

// ReadPoints reads a file written by WritePoints.
func ReadPoints(r io.Reader) ([]Point, error) {
	records, err := readRecords(r)
	if err != nil {
		return nil, err
	}
	var points []Point
	for n, rec := range records {
		if n == 0 && rec[0] == pointHeader[0] {
			continue
		}
		vals, err := parseRecord(rec, 8)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n+1, err)
		}
		points = append(points, Point{JD: vals[0], Seconds: vals[1], State: vals[2:]})
	}
	return points, nil
}

// ReadStates reads Cartesian states, one "x, y, z, vx, vy, vz" row each. Lines starting with '#'
// are comments.
func ReadStates(r io.Reader) ([][]float64, error) {
	records, err := readRecords(r)
	if err != nil {
		return nil, err
	}
	states := make([][]float64, 0, len(records))
	for n, rec := range records {
		x, err := parseRecord(rec, 6)
		if err != nil {
			return nil, fmt.Errorf("state %d: %w", n+1, err)
		}
		states = append(states, x)
	}
	if len(states) == 0 {
		return nil, errors.New("no states")
	}
	return states, nil
}

func readRecords(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	return cr.ReadAll()
}

func parseRecord(rec []string, n int) ([]float64, error) {
	if len(rec) != n {
		return nil, fmt.Errorf("%d fields, expected %d", len(rec), n)
	}
	out := make([]float64, n)
	for i, f := range rec {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
