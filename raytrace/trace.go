// Package raytrace recovers ray paths from a finished travel-time field by
// steepest descent from the receiver back to the source.
package raytrace

import (
	"errors"
	"fmt"
	"math"

	"github.com/notargets/gofmm/grid"
	"github.com/notargets/gofmm/interp"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrStep: non-positive step length or fewer than two path points allowed.
var ErrStep = errors.New("raytrace: invalid step configuration")

const (
	DefaultStepFactor = 3
	DefaultMaxPoints  = 10000
	// maxHalvings bounds the step reductions tried when a step does not lower
	// the travel time
	maxHalvings = 5
)

type Options struct {
	StepLength float64 // arc length of one step
	// Near-source capture distance in steps, 0 selects DefaultStepFactor
	StepFactor float64
	MaxPoints  int // 0 selects DefaultMaxPoints
	Logger     logrus.FieldLogger
}

func (o Options) resolve() (Options, error) {
	if o.StepFactor == 0 {
		o.StepFactor = DefaultStepFactor
	}
	if o.MaxPoints == 0 {
		o.MaxPoints = DefaultMaxPoints
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	if !(o.StepLength > 0) || math.IsInf(o.StepLength, 0) || !(o.StepFactor > 0) || o.MaxPoints < 2 {
		return o, fmt.Errorf("%w: step %g factor %g points %d", ErrStep, o.StepLength, o.StepFactor, o.MaxPoints)
	}
	return o, nil
}

// Trace walks down the gradient of tt from rcv to src. It returns the
// interpolated travel time at the receiver and the path, receiver first and
// src last, never longer than MaxPoints.
func Trace[T grid.Real](tt []T, g *grid.Grid, src, rcv r3.Vec, opt Options) (t T, path []r3.Vec, err error) {
	var (
		p         = rcv
		capture   float64
		truncated bool
	)
	if opt, err = opt.resolve(); err != nil {
		return
	}
	if err = g.CheckShape(len(tt)); err != nil {
		return
	}
	if err = g.CheckPoint(src); err != nil {
		return
	}
	if t, err = interp.Sample(tt, g, rcv); err != nil {
		return
	}
	capture = max(opt.StepFactor*opt.StepLength, g.CellDiagonal())
	path = append(path, rcv)
	for {
		if len(path) >= opt.MaxPoints-1 {
			truncated = true
			break
		}
		var (
			v    T
			grad r3.Vec
		)
		if v, grad, err = interp.SampleGradient(tt, g, p); err != nil {
			return 0, nil, err
		}
		gn := r3.Norm(grad)
		if gn == 0 || float64(v) <= capture*gn || g.Distance(p, src) <= capture {
			break
		}
		var (
			dir   = r3.Scale(-1/gn, grad)
			h     = opt.StepLength
			next  r3.Vec
			moved bool
			vNext T
		)
		for n := 0; n <= maxHalvings; n++ {
			next = advance(g, p, dir, h)
			if vNext, err = interp.Sample(tt, g, next); err != nil {
				return 0, nil, err
			}
			if vNext < v {
				moved = true
				break
			}
			h /= 2
		}
		if !moved {
			opt.Logger.WithFields(logrus.Fields{
				"at":   p,
				"time": float64(v),
			}).Debug("ray stalled, connecting to source")
			break
		}
		path = append(path, next)
		p = next
	}
	if truncated {
		opt.Logger.WithFields(logrus.Fields{
			"maxPoints": opt.MaxPoints,
			"remaining": g.Distance(p, src),
		}).Warn("ray path truncated")
	}
	path = append(path, src)
	return
}

// advance moves p by arc length h along the physical unit direction dir,
// converting to coordinate increments with the local metric, and clamps the
// result to the grid box.
func advance(g *grid.Grid, p, dir r3.Vec, h float64) (q r3.Vec) {
	var (
		d = [3]float64{dir.X, dir.Y, dir.Z}
		c = [3]float64{p.X, p.Y, p.Z}
	)
	for n := 0; n < 3; n++ {
		if g.N[n] < 2 {
			continue
		}
		c[n] += h * d[n] / g.ScaleAt(n, p)
		lo, hi := g.Axes[n][0], g.Axes[n][g.N[n]-1]
		c[n] = math.Min(math.Max(c[n], lo), hi)
	}
	q = r3.Vec{X: c[0], Y: c[1], Z: c[2]}
	return
}
