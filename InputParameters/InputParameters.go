package InputParameters

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofmm/eikonal"
	"github.com/notargets/gofmm/grid"
	"github.com/notargets/gofmm/model"
	"github.com/notargets/gofmm/raytrace"
)

var ErrInput = errors.New("invalid input parameters")

// Axis is either a uniform axis (Min, Step, N) or an explicit list of Values.
type Axis struct {
	Min    float64   `json:"Min"`
	Step   float64   `json:"Step"`
	N      int       `json:"N"`
	Values []float64 `json:"Values"`
}

func (ax Axis) Build() (vals []float64, err error) {
	if len(ax.Values) != 0 {
		vals = ax.Values
		return
	}
	if ax.N < 1 || (ax.N > 1 && !(ax.Step > 0)) {
		err = fmt.Errorf("%w: axis needs N >= 1 and Step > 0, have N=%d Step=%g", ErrInput, ax.N, ax.Step)
		return
	}
	vals = grid.NewUniformAxis(ax.Min, ax.Step, ax.N)
	return
}

// Slowness selects one of a uniform slowness, a uniform velocity or a layered
// model file sampled along DepthAxis.
type Slowness struct {
	Value     float64 `json:"Value"`
	Velocity  float64 `json:"Velocity"`
	Model     string  `json:"Model"`
	Wave      string  `json:"Wave"`
	DepthAxis int     `json:"DepthAxis"`
}

type Ray struct {
	StepLength float64 `json:"StepLength"`
	StepFactor float64 `json:"StepFactor"`
	MaxPoints  int     `json:"MaxPoints"`
}

// Parameters obtained from the YAML input file
type Parameters struct {
	Title        string      `json:"Title"`
	Method       string      `json:"Method"`
	Precision    string      `json:"Precision"`
	Coordinates  string      `json:"Coordinates"`
	X            Axis        `json:"X"`
	Y            Axis        `json:"Y"`
	Z            Axis        `json:"Z"`
	Slowness     Slowness    `json:"Slowness"`
	Source       []float64   `json:"Source"`
	Order        int         `json:"Order"`
	RefineFactor int         `json:"RefineFactor"`
	RefineRadius int         `json:"RefineRadius"`
	Eps          float64     `json:"Eps"`
	MaxLoops     int         `json:"MaxLoops"`
	Parallel     bool        `json:"Parallel"`
	Threads      int         `json:"Threads"`
	Receivers    [][]float64 `json:"Receivers"`
	Ray          Ray         `json:"Ray"`
}

func (ip *Parameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, ip)
}

func (ip *Parameters) Print(w io.Writer) {
	fmt.Fprintf(w, "\"%s\"\t\t= Title\n", ip.Title)
	fmt.Fprintf(w, "[%s]\t\t\t= Method\n", ip.Method)
	fmt.Fprintf(w, "[%s]\t\t\t= Precision\n", ip.precision())
	fmt.Fprintf(w, "[%s]\t\t\t= Coordinates\n", ip.Coordinates)
	for n, ax := range []Axis{ip.X, ip.Y, ip.Z} {
		if len(ax.Values) != 0 {
			fmt.Fprintf(w, "%d values\t\t= Axis %d\n", len(ax.Values), n)
			continue
		}
		fmt.Fprintf(w, "%8.5f + %d x %8.5f\t= Axis %d\n", ax.Min, ax.N, ax.Step, n)
	}
	fmt.Fprintf(w, "%v\t\t= Source\n", ip.Source)
	fmt.Fprintf(w, "[%d]\t\t\t\t= Order\n", ip.Order)
	if ip.RefineFactor > 1 {
		fmt.Fprintf(w, "[%d, %d]\t\t\t= Refine Factor, Radius\n", ip.RefineFactor, ip.RefineRadius)
	}
	fmt.Fprintf(w, "%8.5g\t\t= Eps\n", ip.Eps)
	fmt.Fprintf(w, "[%d]\t\t\t\t= Max Loops\n", ip.MaxLoops)
	fmt.Fprintf(w, "[%t]\t\t\t= Parallel\n", ip.Parallel)
	fmt.Fprintf(w, "[%d]\t\t\t\t= Receivers\n", len(ip.Receivers))
}

func (ip *Parameters) precision() string {
	if ip.Precision == "" {
		return "float64"
	}
	return strings.ToLower(ip.Precision)
}

// Single reports whether fields are computed in float32.
func (ip *Parameters) Single() bool { return ip.precision() == "float32" }

func (ip *Parameters) Validate() (err error) {
	if p := ip.precision(); p != "float32" && p != "float64" {
		return fmt.Errorf("%w: precision %q", ErrInput, ip.Precision)
	}
	if _, ok := grid.CoordNames[strings.ToLower(ip.Coordinates)]; !ok {
		return fmt.Errorf("%w: coordinates %q", ErrInput, ip.Coordinates)
	}
	if ip.Method != "" {
		if _, err = eikonal.NewMethod(ip.Method); err != nil {
			return
		}
	}
	if len(ip.Source) != 3 {
		return fmt.Errorf("%w: source needs 3 coordinates, have %d", ErrInput, len(ip.Source))
	}
	for n, rcv := range ip.Receivers {
		if len(rcv) != 3 {
			return fmt.Errorf("%w: receiver %d needs 3 coordinates, have %d", ErrInput, n, len(rcv))
		}
	}
	var (
		s     = ip.Slowness
		count int
	)
	for _, set := range []bool{s.Value != 0, s.Velocity != 0, s.Model != ""} {
		if set {
			count++
		}
	}
	switch {
	case count != 1:
		return fmt.Errorf("%w: slowness needs exactly one of Value, Velocity, Model", ErrInput)
	case s.Value < 0, s.Velocity < 0:
		return fmt.Errorf("%w: negative slowness or velocity", ErrInput)
	case s.DepthAxis < 0 || s.DepthAxis > 2:
		return fmt.Errorf("%w: depth axis %d", ErrInput, s.DepthAxis)
	}
	if s.Model != "" {
		if _, err = model.NewWave(s.wave()); err != nil {
			return fmt.Errorf("%w: %v", ErrInput, err)
		}
	}
	return
}

func (s Slowness) wave() string {
	if s.Wave == "" {
		return "P"
	}
	return s.Wave
}

func (ip *Parameters) Grid() (g *grid.Grid, err error) {
	var (
		axes [3][]float64
	)
	for n, ax := range []Axis{ip.X, ip.Y, ip.Z} {
		if axes[n], err = ax.Build(); err != nil {
			return
		}
	}
	sys, ok := grid.CoordNames[strings.ToLower(ip.Coordinates)]
	if !ok {
		return nil, fmt.Errorf("%w: coordinates %q", ErrInput, ip.Coordinates)
	}
	return grid.NewGrid(axes[0], axes[1], axes[2], sys)
}

func (ip *Parameters) SourcePoint() r3.Vec {
	return r3.Vec{X: ip.Source[0], Y: ip.Source[1], Z: ip.Source[2]}
}

func (ip *Parameters) ReceiverPoints() (pts []r3.Vec) {
	pts = make([]r3.Vec, len(ip.Receivers))
	for n, rcv := range ip.Receivers {
		pts[n] = r3.Vec{X: rcv[0], Y: rcv[1], Z: rcv[2]}
	}
	return
}

// SolverConfig maps the parameters onto an eikonal.Config. Zero values keep
// the solver defaults.
func (ip *Parameters) SolverConfig(logger logrus.FieldLogger) (cfg eikonal.Config, err error) {
	cfg = eikonal.DefaultConfig()
	if ip.Method != "" {
		if cfg.Method, err = eikonal.NewMethod(ip.Method); err != nil {
			return
		}
	}
	if ip.Order != 0 {
		cfg.Order = ip.Order
	}
	if ip.MaxLoops != 0 {
		cfg.MaxLoops = ip.MaxLoops
	}
	cfg.RefineFactor = ip.RefineFactor
	cfg.RefineRadius = ip.RefineRadius
	cfg.Eps = ip.Eps
	cfg.Parallel = ip.Parallel
	cfg.Threads = ip.Threads
	cfg.Logger = logger
	return
}

func (ip *Parameters) RayOptions(logger logrus.FieldLogger, g *grid.Grid) (opt raytrace.Options) {
	opt = raytrace.Options{
		StepLength: ip.Ray.StepLength,
		StepFactor: ip.Ray.StepFactor,
		MaxPoints:  ip.Ray.MaxPoints,
		Logger:     logger,
	}
	if opt.StepLength == 0 {
		// Half the smallest spacing of the non-degenerate axes
		for n := 0; n < 3; n++ {
			if g.N[n] < 2 {
				continue
			}
			if h := (g.Axes[n][1] - g.Axes[n][0]) / 2; opt.StepLength == 0 || h < opt.StepLength {
				opt.StepLength = h
			}
		}
	}
	return
}

// BuildSlowness discretizes the slowness description on g.
func BuildSlowness[T grid.Real](ip *Parameters, g *grid.Grid) (slow []T, err error) {
	var (
		s = ip.Slowness
	)
	switch {
	case s.Value != 0:
		slow = grid.NewField(g.Size(), T(s.Value))
	case s.Velocity != 0:
		slow = grid.NewField(g.Size(), T(1/s.Velocity))
	case s.Model != "":
		var (
			m *model.Layered
			w model.Wave
		)
		if m, err = model.ReadLayeredFile(s.Model); err != nil {
			return
		}
		if w, err = model.NewWave(s.wave()); err != nil {
			return
		}
		slow = model.Slowness[T](m, g, s.DepthAxis, w)
	default:
		err = fmt.Errorf("%w: no slowness given", ErrInput)
	}
	return
}
