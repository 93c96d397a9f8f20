package eikonal

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/notargets/gofmm/grid"
	"github.com/notargets/gofmm/utils"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r3"
)

// SweepsPerLoop is the number of octant orderings of one loop.
const SweepsPerLoop = 8

var defaultThreads atomic.Int64

func init() {
	defaultThreads.Store(int64(runtime.NumCPU()))
}

// SetDefaultThreads sets the worker count used by parallel sweeps whose
// Config.Threads is zero. Values below one restore the number of CPUs. It must
// not be changed while a parallel solve is running.
func SetDefaultThreads(n int) {
	if n < 1 {
		n = runtime.NumCPU()
	}
	defaultThreads.Store(int64(n))
}

func DefaultThreads() int { return int(defaultThreads.Load()) }

func anyFinite(int64) bool { return true }

// sweeper holds the state of one fast sweeping solve.
type sweeper[T grid.Real] struct {
	g     *grid.Grid
	slow  []T
	tt    []T
	fixed []bool
	// One stencil per worker, stencils carry scratch space
	stencils []*Stencil[T]
}

// FastSweep computes first-arrival times from a point source by repeated
// Gauss-Seidel sweeps in the 8 octant orderings. It returns the field and the
// number of sweeps executed.
func FastSweep[T grid.Real](g *grid.Grid, slow []T, src r3.Vec, cfg Config) (tt []T, sweeps int, err error) {
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
		return nil, 0, err
	}
	sweeps = fastSweep(g, slow, tt, seeds, cfg)
	return
}

// FastSweepFrom sweeps a pre-seeded field; finite entries of initial are held
// fixed. initial itself is not modified.
func FastSweepFrom[T grid.Real](g *grid.Grid, slow, initial []T, cfg Config) (tt []T, sweeps int, err error) {
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
	sweeps = fastSweep(g, slow, tt, seeds, cfg)
	return
}

func fastSweep[T grid.Real](g *grid.Grid, slow, tt []T, seeds []int64, cfg Config) (sweeps int) {
	var (
		threads  = 1
		maxLoops = cfg.MaxLoops
		loops    int
	)
	if cfg.Parallel {
		threads = cfg.Threads
		if threads == 0 {
			threads = DefaultThreads()
		}
		if maxLoops < 2 {
			cfg.Logger.WithFields(logrus.Fields{
				"requested": maxLoops,
				"used":      2,
			}).Warn("parallel fast sweeping needs at least 2 loops, raising the loop count")
			maxLoops = 2
		}
	}
	sw := &sweeper[T]{
		g:        g,
		slow:     slow,
		tt:       tt,
		fixed:    make([]bool, g.Size()),
		stencils: make([]*Stencil[T], threads),
	}
	for np := range sw.stencils {
		sw.stencils[np] = NewStencil[T](g, cfg.Order)
	}
	for _, idx := range seeds {
		sw.fixed[idx] = true
	}
	for loops = 1; loops <= maxLoops; loops++ {
		var (
			maxUpdate T
		)
		for o := 0; o < SweepsPerLoop; o++ {
			var upd T
			if cfg.Parallel {
				upd = sw.sweepPlanes(o)
			} else {
				upd = sw.sweep(o)
			}
			maxUpdate = max(maxUpdate, upd)
		}
		sweeps += SweepsPerLoop
		cfg.Logger.WithFields(logrus.Fields{
			"loop":      loops,
			"maxUpdate": float64(maxUpdate),
		}).Debug("fast sweeping loop")
		if float64(maxUpdate) <= cfg.Eps {
			break
		}
	}
	return
}

// relax lowers the time at one node to the stencil value and returns the
// decrease.
func (sw *sweeper[T]) relax(st *Stencil[T], i, j, k int) (upd T) {
	idx := sw.g.Index(i, j, k)
	if sw.fixed[idx] {
		return
	}
	t, ok := st.Update(sw.tt, anyFinite, i, j, k, sw.slow[idx])
	if ok && t < sw.tt[idx] {
		upd = sw.tt[idx] - t
		sw.tt[idx] = t
	}
	return
}

// unflip maps a traversal index of ordering o to a node index. Bit n of o
// reverses axis n.
func (sw *sweeper[T]) unflip(o, axis, a int) int {
	if o&(1<<axis) != 0 {
		return sw.g.N[axis] - 1 - a
	}
	return a
}

// sweep is one serial Gauss-Seidel pass in ordering o.
func (sw *sweeper[T]) sweep(o int) (maxUpdate T) {
	var (
		N  = sw.g.N
		st = sw.stencils[0]
	)
	for a := 0; a < N[0]; a++ {
		i := sw.unflip(o, 0, a)
		for b := 0; b < N[1]; b++ {
			j := sw.unflip(o, 1, b)
			for c := 0; c < N[2]; c++ {
				k := sw.unflip(o, 2, c)
				maxUpdate = max(maxUpdate, sw.relax(st, i, j, k))
			}
		}
	}
	return
}

// sweepPlanes is sweep executed as a sequence of diagonal planes a+b+c = L
// of the flipped indices. Every axis neighbor of a node lies on plane L-1 or
// L+1 (L-2 or L+2 for second order), matching what the node sees in the
// serial pass, so planes are split across workers and the result is
// identical. The plane is parametrized by the longest axis, split by the
// workers, and the next longest; the shortest is derived.
func (sw *sweeper[T]) sweepPlanes(o int) (maxUpdate T) {
	var (
		N       = sw.g.N
		ax      = longestAxes(N)
		n0, n1  = N[ax[0]], N[ax[1]]
		n2      = N[ax[2]]
		levels  = n0 + n1 + n2 - 2
		updates = make([]T, len(sw.stencils))
		wg      = sync.WaitGroup{}
	)
	for L := 0; L < levels; L++ {
		var (
			uMin = max(0, L-(n1-1)-(n2-1))
			uMax = min(n0-1, L)
			NP   = utils.ParallelDegree(len(sw.stencils), uMax-uMin+1)
			pm   = utils.NewPartitionMap(NP, uMax-uMin+1)
		)
		plane := func(np int) {
			var (
				st         = sw.stencils[np]
				kMin, kMax = pm.GetBucketRange(np)
				abc        [3]int
			)
			for u := uMin + kMin; u < uMin+kMax; u++ {
				for v := max(0, L-u-(n2-1)); v <= min(n1-1, L-u); v++ {
					abc[ax[0]] = sw.unflip(o, ax[0], u)
					abc[ax[1]] = sw.unflip(o, ax[1], v)
					abc[ax[2]] = sw.unflip(o, ax[2], L-u-v)
					updates[np] = max(updates[np], sw.relax(st, abc[0], abc[1], abc[2]))
				}
			}
		}
		if NP == 1 {
			plane(0)
			continue
		}
		for np := 0; np < NP; np++ {
			wg.Add(1)
			go func(np int) {
				defer wg.Done()
				plane(np)
			}(np)
		}
		wg.Wait()
	}
	for _, upd := range updates {
		maxUpdate = max(maxUpdate, upd)
	}
	return
}

// longestAxes orders the axes by decreasing node count.
func longestAxes(N [3]int) (ax [3]int) {
	ax = [3]int{0, 1, 2}
	for a := 0; a < 2; a++ {
		for b := a + 1; b < 3; b++ {
			if N[ax[b]] > N[ax[a]] {
				ax[a], ax[b] = ax[b], ax[a]
			}
		}
	}
	return
}
