package eikonal

import (
	"github.com/notargets/gofmm/grid"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r3"
)

type nodeStatus uint8

const (
	far nodeStatus = iota
	trial
	known
)

// marcher owns the state of one fast marching pass. It is not shared between
// solves.
type marcher[T grid.Real] struct {
	g      *grid.Grid
	slow   []T
	tt     []T
	status []nodeStatus
	band   narrowBand[T]
	st     *Stencil[T]
	last   T // most recently finalized time
	// stopEdges halts the march once a node on a flagged face (axis low, axis
	// high, ...) is finalized
	stopEdges [6]bool
	finalized int64
}

func newMarcher[T grid.Real](g *grid.Grid, slow, tt []T, order int) (m *marcher[T]) {
	m = &marcher[T]{
		g:      g,
		slow:   slow,
		tt:     tt,
		status: make([]nodeStatus, g.Size()),
		st:     NewStencil[T](g, order),
		// Seeds are not ordered, so causality is enforced only once marching
		last: -grid.Inf[T](),
	}
	return
}

func (m *marcher[T]) isKnown(idx int64) bool { return m.status[idx] == known }

// seed finalizes the given nodes at their current times and queues their
// neighbors.
func (m *marcher[T]) seed(seeds []int64) {
	for _, idx := range seeds {
		m.status[idx] = known
		m.finalized++
	}
	for _, idx := range seeds {
		m.visitNeighbors(idx)
	}
}

// march runs the front until the band is empty or a stop edge is reached.
func (m *marcher[T]) march() {
	for m.band.Len() > 0 {
		idx, t := m.band.Pop()
		if m.status[idx] == known || t != m.tt[idx] {
			continue // stale
		}
		m.status[idx] = known
		m.finalized++
		m.last = t
		if m.onStopEdge(idx) {
			return
		}
		m.visitNeighbors(idx)
	}
}

func (m *marcher[T]) visitNeighbors(idx int64) {
	var (
		g       = m.g
		i, j, k = g.Unravel(idx)
		ijk     = [3]int{i, j, k}
	)
	for axis := 0; axis < 3; axis++ {
		stride := g.Stride(axis)
		for _, d := range [2]int{-1, 1} {
			if ijk[axis]+d < 0 || ijk[axis]+d > g.N[axis]-1 {
				continue
			}
			nb := idx + int64(d)*stride
			if m.status[nb] == known {
				continue
			}
			nbIJK := ijk
			nbIJK[axis] += d
			t, ok := m.st.Update(m.tt, m.isKnown, nbIJK[0], nbIJK[1], nbIJK[2], m.slow[nb])
			if !ok {
				t = m.tt[idx] + T(g.Step(axis, nbIJK, -d, 1))*m.slow[nb]
			}
			if t < m.last {
				t = m.last
			}
			if t < m.tt[nb] {
				m.tt[nb] = t
				m.status[nb] = trial
				m.band.Push(nb, t)
			}
		}
	}
}

func (m *marcher[T]) onStopEdge(idx int64) bool {
	var (
		i, j, k = m.g.Unravel(idx)
		ijk     = [3]int{i, j, k}
	)
	for axis := 0; axis < 3; axis++ {
		if m.stopEdges[2*axis] && ijk[axis] == 0 {
			return true
		}
		if m.stopEdges[2*axis+1] && ijk[axis] == m.g.N[axis]-1 {
			return true
		}
	}
	return false
}

// FastMarch computes first-arrival times from a point source by ordered
// front expansion.
func FastMarch[T grid.Real](g *grid.Grid, slow []T, src r3.Vec, cfg Config) (tt []T, err error) {
	var (
		seeds []int64
	)
	if cfg, err = cfg.resolve(); err != nil {
		return
	}
	if err = checkSlowness(g, slow); err != nil {
		return
	}
	if tt, seeds, err = sourceSeeds(g, slow, src, cfg); err != nil {
		return nil, err
	}
	fastMarch(g, slow, tt, seeds, cfg)
	return
}

// FastMarchFrom continues from a pre-seeded field: every finite entry of
// initial is kept as a finalized time. initial itself is not modified.
func FastMarchFrom[T grid.Real](g *grid.Grid, slow, initial []T, cfg Config) (tt []T, err error) {
	var (
		seeds []int64
	)
	if cfg, err = cfg.resolve(); err != nil {
		return
	}
	if err = checkSlowness(g, slow); err != nil {
		return
	}
	if tt, seeds, err = initialSeeds(g, initial); err != nil {
		return
	}
	fastMarch(g, slow, tt, seeds, cfg)
	return
}

func fastMarch[T grid.Real](g *grid.Grid, slow, tt []T, seeds []int64, cfg Config) {
	m := newMarcher(g, slow, tt, cfg.Order)
	m.seed(seeds)
	m.march()
	cfg.Logger.WithFields(logrus.Fields{
		"nodes":     g.Size(),
		"seeds":     len(seeds),
		"finalized": m.finalized,
		"order":     cfg.Order,
	}).Debug("fast marching complete")
}
