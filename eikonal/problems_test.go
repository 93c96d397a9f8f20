package eikonal

import (
	"math"
	"testing"

	"github.com/notargets/gofmm/grid"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// planeProblem is a 2-D cartesian grid (z has a single node) with uniform
// slowness 1.
func planeProblem(t *testing.T, h float64, nx, ny int) (g *grid.Grid, slow []float64) {
	var err error
	g, err = grid.NewGrid(grid.NewUniformAxis(0, h, nx), grid.NewUniformAxis(0, h, ny), []float64{0}, grid.Cartesian)
	require.NoError(t, err)
	slow = grid.NewField(g.Size(), 1.)
	return
}

// waveProblem has smoothly varying slowness, so the sweeps need more than
// the minimum number of loops.
func waveProblem(t *testing.T) (g *grid.Grid, slow []float64) {
	var err error
	h := 0.25
	g, err = grid.NewGrid(grid.NewUniformAxis(0, h, 60), grid.NewUniformAxis(0, h, 40), []float64{0}, grid.Cartesian)
	require.NoError(t, err)
	slow = make([]float64, g.Size())
	for i := 0; i < g.N[0]; i++ {
		for j := 0; j < g.N[1]; j++ {
			slow[g.Index(i, j, 0)] = 1 + 0.5*math.Sin(g.Axes[0][i])*math.Sin(g.Axes[1][j])
		}
	}
	return
}

// straightRayErrors returns |tt - s*distance| per node for uniform slowness s.
func straightRayErrors[T grid.Real](g *grid.Grid, tt []T, src r3.Vec, s float64) (errs []float64) {
	errs = make([]float64, g.Size())
	for i := 0; i < g.N[0]; i++ {
		for j := 0; j < g.N[1]; j++ {
			for k := 0; k < g.N[2]; k++ {
				idx := g.Index(i, j, k)
				errs[idx] = math.Abs(float64(tt[idx]) - s*g.Distance(g.Coord(i, j, k), src))
			}
		}
	}
	return
}

func meanAndMax(errs []float64) (mean, mx float64) {
	mean = stat.Mean(errs, nil)
	mx = floats.Max(errs)
	return
}

func maxAbsDiff(a, b []float64) float64 {
	d := make([]float64, len(a))
	floats.SubTo(d, a, b)
	for i := range d {
		d[i] = math.Abs(d[i])
	}
	return floats.Max(d)
}
