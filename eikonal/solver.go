// Package eikonal solves |grad T| = s for first-arrival travel times on a
// structured grid, by fast marching or by fast sweeping.
package eikonal

import (
	"fmt"
	"math"
	"strings"

	"github.com/notargets/gofmm/grid"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r3"
)

type Method uint

const (
	FastMarching Method = iota
	FastSweeping
)

var (
	MethodNames = map[string]Method{
		"fmm":          FastMarching,
		"fastmarching": FastMarching,
		"fsm":          FastSweeping,
		"fastsweeping": FastSweeping,
	}
	MethodPrintNames = []string{"Fast Marching", "Fast Sweeping"}
)

func (m Method) Print() (txt string) {
	txt = MethodPrintNames[m]
	return
}

func NewMethod(label string) (m Method, err error) {
	var (
		ok bool
	)
	label = strings.ToLower(label)
	if m, ok = MethodNames[label]; !ok {
		err = fmt.Errorf("%w: %q", ErrMethod, label)
	}
	return
}

const (
	DefaultOrder    = 2
	DefaultMaxLoops = 10
)

// Config carries every tunable of a solve. The zero value of Order and
// MaxLoops selects the defaults; a nil Logger logs to the logrus standard
// logger.
type Config struct {
	Method Method
	Order  int // 1, 2 or 3 (experimental)
	// Local source refinement, enabled with RefineFactor > 1 and RefineRadius >= 1
	RefineFactor int
	RefineRadius int
	// Fast sweeping only
	Eps      float64
	MaxLoops int
	Parallel bool
	Threads  int // 0 uses DefaultThreads()
	Logger   logrus.FieldLogger
}

func DefaultConfig() Config {
	return Config{
		Method:   FastMarching,
		Order:    DefaultOrder,
		MaxLoops: DefaultMaxLoops,
	}
}

func (cfg Config) refine() bool {
	return cfg.RefineFactor > 1 && cfg.RefineRadius >= 1
}

// resolve fills defaults and validates the configuration.
func (cfg Config) resolve() (Config, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Order == 0 {
		cfg.Order = DefaultOrder
	}
	if cfg.MaxLoops == 0 {
		cfg.MaxLoops = DefaultMaxLoops
	}
	switch {
	case cfg.Order < 1 || cfg.Order > MaxOrder:
		return cfg, fmt.Errorf("%w: order %d not in 1..%d", ErrConfig, cfg.Order, MaxOrder)
	case cfg.RefineFactor < 0 || cfg.RefineRadius < 0:
		return cfg, fmt.Errorf("%w: refinement factor %d radius %d", ErrConfig, cfg.RefineFactor, cfg.RefineRadius)
	case math.IsNaN(cfg.Eps) || cfg.Eps < 0:
		return cfg, fmt.Errorf("%w: eps %g", ErrConfig, cfg.Eps)
	case cfg.MaxLoops < 1 && !cfg.Parallel:
		return cfg, fmt.Errorf("%w: max loops %d", ErrConfig, cfg.MaxLoops)
	case cfg.Threads < 0:
		return cfg, fmt.Errorf("%w: threads %d", ErrConfig, cfg.Threads)
	}
	if cfg.Order == MaxOrder {
		cfg.Logger.WithField("order", cfg.Order).Warn("third order stencil is experimental and may be unstable")
	}
	if cfg.refine() {
		cfg.Logger.WithFields(logrus.Fields{
			"factor": cfg.RefineFactor,
			"radius": cfg.RefineRadius,
		}).Warn("source refinement is experimental")
	}
	return cfg, nil
}

// Result is the output of a Solver. Sweeps is zero for fast marching.
type Result[T grid.Real] struct {
	TravelTime []T
	Sweeps     int
}

// Solver is implemented by both solution methods.
type Solver[T grid.Real] interface {
	Solve(g *grid.Grid, slow []T, src r3.Vec) (Result[T], error)
	SolveFrom(g *grid.Grid, slow, initial []T) (Result[T], error)
	Config() Config
}

func NewSolver[T grid.Real](cfg Config) (s Solver[T], err error) {
	switch cfg.Method {
	case FastMarching:
		s = &fastMarching[T]{cfg: cfg}
	case FastSweeping:
		s = &fastSweeping[T]{cfg: cfg}
	default:
		err = fmt.Errorf("%w: %d", ErrMethod, cfg.Method)
	}
	return
}

type fastMarching[T grid.Real] struct {
	cfg Config
}

func (fm *fastMarching[T]) Config() Config { return fm.cfg }

func (fm *fastMarching[T]) Solve(g *grid.Grid, slow []T, src r3.Vec) (r Result[T], err error) {
	r.TravelTime, err = FastMarch(g, slow, src, fm.cfg)
	return
}

func (fm *fastMarching[T]) SolveFrom(g *grid.Grid, slow, initial []T) (r Result[T], err error) {
	r.TravelTime, err = FastMarchFrom(g, slow, initial, fm.cfg)
	return
}

type fastSweeping[T grid.Real] struct {
	cfg Config
}

func (fs *fastSweeping[T]) Config() Config { return fs.cfg }

func (fs *fastSweeping[T]) Solve(g *grid.Grid, slow []T, src r3.Vec) (r Result[T], err error) {
	r.TravelTime, r.Sweeps, err = FastSweep(g, slow, src, fs.cfg)
	return
}

func (fs *fastSweeping[T]) SolveFrom(g *grid.Grid, slow, initial []T) (r Result[T], err error) {
	r.TravelTime, r.Sweeps, err = FastSweepFrom(g, slow, initial, fs.cfg)
	return
}
