package eikonal

import (
	"fmt"
	"math"

	"github.com/notargets/gofmm/grid"
	"gonum.org/v1/gonum/spatial/r3"
)

// checkSlowness rejects fields the stencil cannot use.
func checkSlowness[T grid.Real](g *grid.Grid, slow []T) (err error) {
	if err = g.CheckShape(len(slow)); err != nil {
		return
	}
	for idx, s := range slow {
		if math.IsNaN(float64(s)) || s < 0 {
			i, j, k := g.Unravel(int64(idx))
			return fmt.Errorf("%w: %g at node (%d,%d,%d)", ErrSlowness, float64(s), i, j, k)
		}
	}
	return
}

// sourceSeeds returns a fresh travel-time field holding the analytic times
// around a point source, plus the indices of those seeded nodes.
func sourceSeeds[T grid.Real](g *grid.Grid, slow []T, src r3.Vec, cfg Config) (tt []T, seeds []int64, err error) {
	if err = g.CheckPoint(src); err != nil {
		return
	}
	tt = grid.NewField(g.Size(), grid.Inf[T]())
	if cfg.refine() {
		seeds, err = refinedSeeds(g, slow, src, cfg, tt)
		return
	}
	seeds = analyticSeeds(g, slow, src, tt)
	return
}

// initialSeeds copies a caller supplied field; every finite value is a seed
// and anything else is unknown.
func initialSeeds[T grid.Real](g *grid.Grid, initial []T) (tt []T, seeds []int64, err error) {
	if err = g.CheckShape(len(initial)); err != nil {
		return
	}
	tt = make([]T, len(initial))
	for idx, t := range initial {
		if grid.IsFinite(t) {
			tt[idx] = t
			seeds = append(seeds, int64(idx))
		} else {
			tt[idx] = grid.Inf[T]()
		}
	}
	if len(seeds) == 0 {
		err = ErrNoSeed
		tt = nil
	}
	return
}

// analyticSeeds sets straight-ray times, distance times the node slowness, on
// the cell enclosing src and on the 3x3x3 block around the earliest corner of
// that cell. Axes with a single node collapse the blocks.
func analyticSeeds[T grid.Real](g *grid.Grid, slow []T, src r3.Vec, tt []T) (seeds []int64) {
	var (
		c       = [3]float64{src.X, src.Y, src.Z}
		lo, hi  [3]int
		minIdx  int64 = -1
		minTime       = grid.Inf[T]()
	)
	set := func(i, j, k int) {
		idx := g.Index(i, j, k)
		for _, s := range seeds {
			if s == idx {
				return
			}
		}
		tt[idx] = T(g.Distance(g.Coord(i, j, k), src)) * slow[idx]
		seeds = append(seeds, idx)
	}
	for n := 0; n < 3; n++ {
		lo[n] = g.Cell(n, c[n])
		hi[n] = min(lo[n]+1, g.N[n]-1)
	}
	for i := lo[0]; i <= hi[0]; i++ {
		for j := lo[1]; j <= hi[1]; j++ {
			for k := lo[2]; k <= hi[2]; k++ {
				set(i, j, k)
				if idx := g.Index(i, j, k); minIdx < 0 || tt[idx] < minTime {
					minIdx, minTime = idx, tt[idx]
				}
			}
		}
	}
	ci, cj, ck := g.Unravel(minIdx)
	var (
		ctr = [3]int{ci, cj, ck}
	)
	for n := 0; n < 3; n++ {
		lo[n] = max(ctr[n]-1, 0)
		hi[n] = min(ctr[n]+1, g.N[n]-1)
	}
	for i := lo[0]; i <= hi[0]; i++ {
		for j := lo[1]; j <= hi[1]; j++ {
			for k := lo[2]; k <= hi[2]; k++ {
				set(i, j, k)
			}
		}
	}
	return
}
