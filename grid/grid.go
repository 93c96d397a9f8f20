// Package grid describes the structured 3-D node lattice the eikonal solvers
// work on: three ascending coordinate axes, a coordinate system flag and a
// flattened int64 addressing scheme for node-valued fields.
package grid

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Real is the element type of slowness and travel-time fields.
type Real interface {
	~float32 | ~float64
}

type CoordSystem uint8

const (
	Cartesian CoordSystem = iota // (x, y, z)
	Spherical                    // (r, theta, phi), angles in radians
)

var (
	CoordNames = map[string]CoordSystem{
		"":          Cartesian,
		"cartesian": Cartesian,
		"spherical": Spherical,
	}
	CoordPrintNames = []string{"Cartesian", "Spherical"}
)

func (cs CoordSystem) Print() (txt string) {
	txt = CoordPrintNames[cs]
	return
}

// sinFloor keeps the phi metric finite on the polar axis.
const sinFloor = 1e-12

// Grid holds the axes of a structured lattice. Axes are never modified after
// construction, so a Grid can be shared by concurrent solves.
type Grid struct {
	Axes  [3][]float64
	N     [3]int
	Sys   CoordSystem
	nyz   int64
	size  int64
	sinTh []float64 // |sin(theta)| per node of axis 1, spherical only
}

func NewGrid(x, y, z []float64, sys CoordSystem) (g *Grid, err error) {
	var (
		axes = [3][]float64{x, y, z}
	)
	if sys != Cartesian && sys != Spherical {
		return nil, fmt.Errorf("unknown coordinate system %d", sys)
	}
	for n, ax := range axes {
		if len(ax) == 0 {
			return nil, fmt.Errorf("%w: axis %d", ErrEmptyAxis, n)
		}
		for i := 1; i < len(ax); i++ {
			if !(ax[i] > ax[i-1]) {
				return nil, fmt.Errorf("%w: axis %d at node %d (%g after %g)",
					ErrOrder, n, i, ax[i], ax[i-1])
			}
		}
	}
	if sys == Spherical && x[0] <= 0 {
		return nil, fmt.Errorf("%w: radius axis must be positive, got %g", ErrOrder, x[0])
	}
	g = &Grid{
		Sys: sys,
	}
	for n, ax := range axes {
		g.Axes[n] = ax
		g.N[n] = len(ax)
	}
	g.nyz = int64(g.N[1]) * int64(g.N[2])
	g.size = int64(g.N[0]) * g.nyz
	if sys == Spherical {
		g.sinTh = make([]float64, g.N[1])
		for j, th := range y {
			g.sinTh[j] = math.Abs(math.Sin(th))
			if g.sinTh[j] < sinFloor {
				g.sinTh[j] += sinFloor
			}
		}
	}
	return
}

// NewUniformAxis returns n coordinates starting at min separated by step.
func NewUniformAxis(min, step float64, n int) (ax []float64) {
	ax = make([]float64, n)
	for i := range ax {
		ax[i] = min + float64(i)*step
	}
	return
}

// Size is the total number of nodes.
func (g *Grid) Size() int64 { return g.size }

func (g *Grid) Index(i, j, k int) int64 {
	return int64(i)*g.nyz + int64(j)*int64(g.N[2]) + int64(k)
}

func (g *Grid) Unravel(idx int64) (i, j, k int) {
	var (
		nz = int64(g.N[2])
	)
	i = int(idx / g.nyz)
	j = int((idx % g.nyz) / nz)
	k = int(idx % nz)
	return
}

// Stride is the flattened distance between neighbors along an axis.
func (g *Grid) Stride(axis int) int64 {
	switch axis {
	case 0:
		return g.nyz
	case 1:
		return int64(g.N[2])
	default:
		return 1
	}
}

// CheckShape verifies a flattened field matches the node count.
func (g *Grid) CheckShape(n int) error {
	if int64(n) != g.size {
		return fmt.Errorf("%w: have %d values, grid %dx%dx%d needs %d",
			ErrShape, n, g.N[0], g.N[1], g.N[2], g.size)
	}
	return nil
}

// CheckPoint fails with ErrBounds when p is outside the axis range on any axis.
func (g *Grid) CheckPoint(p r3.Vec) error {
	var (
		c = [3]float64{p.X, p.Y, p.Z}
	)
	for n, ax := range g.Axes {
		if math.IsNaN(c[n]) || c[n] < ax[0] || c[n] > ax[len(ax)-1] {
			return fmt.Errorf("%w: coordinate %g on axis %d not in [%g, %g]",
				ErrBounds, c[n], n, ax[0], ax[len(ax)-1])
		}
	}
	return nil
}

// Coord returns the coordinates of node (i,j,k).
func (g *Grid) Coord(i, j, k int) r3.Vec {
	return r3.Vec{X: g.Axes[0][i], Y: g.Axes[1][j], Z: g.Axes[2][k]}
}

// Locate returns the largest index whose coordinate is <= v, clamped to the
// axis. Values at or beyond the last node return the last index.
func (g *Grid) Locate(axis int, v float64) int {
	var (
		ax          = g.Axes[axis]
		left, right = 0, len(ax) - 1
	)
	if v <= ax[0] {
		return 0
	}
	if v >= ax[right] {
		return right
	}
	for right-left > 1 {
		mid := left + (right-left)>>1
		if ax[mid] <= v {
			left = mid
		} else {
			right = mid
		}
	}
	return left
}

// Cell returns the lower corner of the cell containing v; on axes with more
// than one node the returned index is at most n-2.
func (g *Grid) Cell(axis int, v float64) (i int) {
	i = g.Locate(axis, v)
	if i == g.N[axis]-1 && i > 0 {
		i--
	}
	return
}

// Nearest returns the node closest to p along each axis.
func (g *Grid) Nearest(p r3.Vec) (ijk [3]int) {
	var (
		c = [3]float64{p.X, p.Y, p.Z}
	)
	for n, ax := range g.Axes {
		i := g.Locate(n, c[n])
		if i < len(ax)-1 && math.Abs(ax[i+1]-c[n]) < math.Abs(ax[i]-c[n]) {
			i++
		}
		ijk[n] = i
	}
	return
}

// Scale is the metric factor converting a coordinate increment on an axis to
// arc length at node row (i, j): 1, r and r*sin(theta) in spherical mode.
func (g *Grid) Scale(axis, i, j int) float64 {
	if g.Sys != Spherical {
		return 1
	}
	switch axis {
	case 1:
		return g.Axes[0][i]
	case 2:
		return g.Axes[0][i] * g.sinTh[j]
	}
	return 1
}

// ScaleAt is Scale evaluated at an arbitrary point.
func (g *Grid) ScaleAt(axis int, p r3.Vec) float64 {
	if g.Sys != Spherical {
		return 1
	}
	switch axis {
	case 1:
		return p.X
	case 2:
		s := math.Abs(math.Sin(p.Y))
		if s < sinFloor {
			s += sinFloor
		}
		return p.X * s
	}
	return 1
}

// Step is the arc length between node ijk and its neighbor m nodes away in
// direction dir (+1/-1) along axis. The metric is taken at the node itself.
func (g *Grid) Step(axis int, ijk [3]int, dir, m int) float64 {
	var (
		ax = g.Axes[axis]
		i0 = ijk[axis]
	)
	return math.Abs(ax[i0+dir*m]-ax[i0]) * g.Scale(axis, ijk[0], ijk[1])
}

// Cartesian converts a point of the grid's coordinate system to (x, y, z).
func (g *Grid) Cartesian(p r3.Vec) r3.Vec {
	if g.Sys != Spherical {
		return p
	}
	var (
		r, th, ph = p.X, p.Y, p.Z
	)
	return r3.Vec{
		X: r * math.Sin(th) * math.Cos(ph),
		Y: r * math.Sin(th) * math.Sin(ph),
		Z: r * math.Cos(th),
	}
}

// Distance is the straight-line distance between two points.
func (g *Grid) Distance(a, b r3.Vec) float64 {
	return r3.Norm(r3.Sub(g.Cartesian(a), g.Cartesian(b)))
}

// CellDiagonal is the arc length of the diagonal of the first cell, used as
// the ray tracer's near-source capture distance.
func (g *Grid) CellDiagonal() (d float64) {
	var (
		sum float64
	)
	for n, ax := range g.Axes {
		if len(ax) < 2 {
			continue
		}
		h := (ax[1] - ax[0]) * g.Scale(n, 0, 0)
		sum += h * h
	}
	d = math.Sqrt(sum)
	return
}

// Inf is the "unknown" travel time in precision T.
func Inf[T Real]() T {
	return T(math.Inf(1))
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite[T Real](v T) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// NewField returns a field of n values set to val.
func NewField[T Real](n int64, val T) (f []T) {
	f = make([]T, n)
	for i := range f {
		f[i] = val
	}
	return
}
