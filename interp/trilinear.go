// Package interp samples node-valued fields at arbitrary points by
// multilinear interpolation over the enclosing grid cell.
package interp

import (
	"fmt"

	"github.com/notargets/gofmm/grid"
	"gonum.org/v1/gonum/spatial/r3"
)

// Cell is the interpolation stencil of one point: the bracketing node indices
// on each axis and the fractional position between them. On single-node axes
// both indices coincide and the fraction is zero, so the stencil collapses to
// 4, 2 or 1 nodes.
type Cell struct {
	g    *grid.Grid
	Lo   [3]int
	Hi   [3]int
	Frac [3]float64
	h    [3]float64 // coordinate width of the cell per axis, 0 on degenerate axes
	at   r3.Vec
}

// Locate builds the cell stencil for p, failing with grid.ErrBounds when p is
// outside the axes.
func Locate(g *grid.Grid, p r3.Vec) (c Cell, err error) {
	if err = g.CheckPoint(p); err != nil {
		return
	}
	var (
		v = [3]float64{p.X, p.Y, p.Z}
	)
	c = Cell{g: g, at: p}
	for n := 0; n < 3; n++ {
		lo := g.Cell(n, v[n])
		hi := lo
		if lo+1 < g.N[n] {
			hi = lo + 1
		}
		c.Lo[n], c.Hi[n] = lo, hi
		if hi != lo {
			x1, x2 := g.Axes[n][lo], g.Axes[n][hi]
			c.h[n] = x2 - x1
			c.Frac[n] = (v[n] - x1) / c.h[n]
		}
	}
	return
}

// corner returns node index and weight of corner (a,b,c) with a,b,c in {0,1}.
func (c Cell) corner(a, b, d int) (idx int64, w float64) {
	var (
		ijk [3]int
		sel = [3]int{a, b, d}
	)
	w = 1
	for n := 0; n < 3; n++ {
		if sel[n] == 0 {
			ijk[n] = c.Lo[n]
			w *= 1 - c.Frac[n]
		} else {
			ijk[n] = c.Hi[n]
			w *= c.Frac[n]
		}
	}
	idx = c.g.Index(ijk[0], ijk[1], ijk[2])
	return
}

// Value interpolates field at the cell's point. Corners with zero weight are
// skipped, so a point on a node reproduces that node's value exactly even when
// its neighbors are unresolved.
func Value[T grid.Real](c Cell, field []T) (v T, err error) {
	var (
		sum float64
	)
	for a := 0; a < 2; a++ {
		for b := 0; b < 2; b++ {
			for d := 0; d < 2; d++ {
				idx, w := c.corner(a, b, d)
				if w == 0 {
					continue
				}
				fv := field[idx]
				if !grid.IsFinite(fv) {
					return v, fmt.Errorf("%w: node %d near %v", grid.ErrUnresolved, idx, c.at)
				}
				sum += w * float64(fv)
			}
		}
	}
	v = T(sum)
	return
}

// Gradient returns the physical gradient of the interpolant at the cell's
// point: derivative along each axis divided by the local metric factor, so the
// spherical components are (dT/dr, dT/(r dtheta), dT/(r sin(theta) dphi)).
// Degenerate axes contribute a zero component.
func Gradient[T grid.Real](c Cell, field []T) (grad r3.Vec, err error) {
	var (
		gr [3]float64
	)
	for n := 0; n < 3; n++ {
		if c.h[n] == 0 {
			continue
		}
		var (
			sum float64
		)
		for a := 0; a < 2; a++ {
			for b := 0; b < 2; b++ {
				for d := 0; d < 2; d++ {
					sel := [3]int{a, b, d}
					idx, _ := c.corner(a, b, d)
					// Weight derivative: product of the other two axis weights
					w := 1.
					for m := 0; m < 3; m++ {
						if m == n {
							continue
						}
						if sel[m] == 0 {
							w *= 1 - c.Frac[m]
						} else {
							w *= c.Frac[m]
						}
					}
					if w == 0 {
						continue
					}
					fv := field[idx]
					if !grid.IsFinite(fv) {
						return grad, fmt.Errorf("%w: node %d near %v", grid.ErrUnresolved, idx, c.at)
					}
					if sel[n] == 0 {
						sum -= w * float64(fv)
					} else {
						sum += w * float64(fv)
					}
				}
			}
		}
		gr[n] = sum / (c.h[n] * c.g.ScaleAt(n, c.at))
	}
	grad = r3.Vec{X: gr[0], Y: gr[1], Z: gr[2]}
	return
}

// Sample interpolates field at p.
func Sample[T grid.Real](field []T, g *grid.Grid, p r3.Vec) (v T, err error) {
	var (
		c Cell
	)
	if err = g.CheckShape(len(field)); err != nil {
		return
	}
	if c, err = Locate(g, p); err != nil {
		return
	}
	return Value(c, field)
}

// SampleGradient interpolates field and its physical gradient at p.
func SampleGradient[T grid.Real](field []T, g *grid.Grid, p r3.Vec) (v T, grad r3.Vec, err error) {
	var (
		c Cell
	)
	if c, err = Locate(g, p); err != nil {
		return
	}
	if v, err = Value(c, field); err != nil {
		return
	}
	grad, err = Gradient(c, field)
	return
}
