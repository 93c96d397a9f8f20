package eikonal

import (
	"fmt"

	"github.com/notargets/gofmm/grid"
	"github.com/notargets/gofmm/interp"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r3"
)

// refinedSeeds solves the source neighborhood on a locally refined grid and
// copies the times of coincident nodes into tt as seeds.
//
// The sub-grid spans RefineRadius nodes on each side of the node nearest to
// src, with every interval split into RefineFactor parts. The sub-solve stops
// as soon as its front touches a face that lies inside the main grid, so only
// nodes reached from the inside are copied back.
func refinedSeeds[T grid.Real](g *grid.Grid, slow []T, src r3.Vec, cfg Config, tt []T) (seeds []int64, err error) {
	var (
		near     = g.Nearest(src)
		factor   = cfg.RefineFactor
		lo, hi   [3]int
		subAxes  [3][]float64
		sg       *grid.Grid
		stopEdge [6]bool
	)
	for n := 0; n < 3; n++ {
		lo[n] = max(near[n]-cfg.RefineRadius, 0)
		hi[n] = min(near[n]+cfg.RefineRadius, g.N[n]-1)
		ax := g.Axes[n]
		for i := lo[n]; i < hi[n]; i++ {
			dx := (ax[i+1] - ax[i]) / float64(factor)
			for f := 0; f < factor; f++ {
				subAxes[n] = append(subAxes[n], ax[i]+float64(f)*dx)
			}
		}
		subAxes[n] = append(subAxes[n], ax[hi[n]])
		stopEdge[2*n] = lo[n] > 0
		stopEdge[2*n+1] = hi[n] < g.N[n]-1
	}
	if sg, err = grid.NewGrid(subAxes[0], subAxes[1], subAxes[2], g.Sys); err != nil {
		return nil, fmt.Errorf("refined source grid: %w", err)
	}
	var (
		subSlow = make([]T, sg.Size())
		subTT   = grid.NewField(sg.Size(), grid.Inf[T]())
		c       interp.Cell
	)
	for i := 0; i < sg.N[0]; i++ {
		for j := 0; j < sg.N[1]; j++ {
			for k := 0; k < sg.N[2]; k++ {
				if c, err = interp.Locate(g, sg.Coord(i, j, k)); err != nil {
					return
				}
				if subSlow[sg.Index(i, j, k)], err = interp.Value(c, slow); err != nil {
					return
				}
			}
		}
	}
	m := newMarcher(sg, subSlow, subTT, cfg.Order)
	m.stopEdges = stopEdge
	m.seed(analyticSeeds(sg, subSlow, src, subTT))
	m.march()

	for i := 0; i < sg.N[0]; i += factor {
		for j := 0; j < sg.N[1]; j += factor {
			for k := 0; k < sg.N[2]; k += factor {
				sIdx := sg.Index(i, j, k)
				if !m.isKnown(sIdx) {
					continue
				}
				idx := g.Index(lo[0]+i/factor, lo[1]+j/factor, lo[2]+k/factor)
				tt[idx] = subTT[sIdx]
				seeds = append(seeds, idx)
			}
		}
	}
	cfg.Logger.WithFields(logrus.Fields{
		"factor":    factor,
		"radius":    cfg.RefineRadius,
		"subNodes":  sg.Size(),
		"finalized": m.finalized,
		"seeds":     len(seeds),
	}).Debug("refined source solve")
	return
}
