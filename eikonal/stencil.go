package eikonal

import (
	"math"

	"github.com/notargets/gofmm/grid"
)

// MaxOrder is the highest supported one-sided difference order. Order 3 works
// but is numerically unstable on many fields and is reported as experimental.
const MaxOrder = 3

// Available reports whether the travel time stored at a node may be used as
// upwind data by the stencil.
type Available func(idx int64) bool

// axisTerm is one axis' contribution a*T - b to the discretized gradient.
type axisTerm[T grid.Real] struct {
	a, b T
	tau  T // b/a, the time at which the axis derivative vanishes
}

// Stencil computes the upwind finite-difference solution of |grad T| = s at
// a single node from the available neighbor values.
type Stencil[T grid.Real] struct {
	g     *grid.Grid
	order int
	// Scratch buffers, sized for MaxOrder
	offs  [MaxOrder + 1]float64
	vals  [MaxOrder + 1]T
	terms [3]axisTerm[T]
}

func NewStencil[T grid.Real](g *grid.Grid, order int) *Stencil[T] {
	if order < 1 {
		order = 1
	}
	if order > MaxOrder {
		order = MaxOrder
	}
	return &Stencil[T]{g: g, order: order}
}

func (st *Stencil[T]) Order() int { return st.order }

// Update returns the causal stencil value at node (i,j,k) for slowness s and
// false when no axis offers usable upwind data.
func (st *Stencil[T]) Update(tt []T, avail Available, i, j, k int, s T) (t T, ok bool) {
	var (
		g     = st.g
		ijk   = [3]int{i, j, k}
		idx   = g.Index(i, j, k)
		nTerm int
	)
	for axis := 0; axis < 3; axis++ {
		if term, found := st.axis(tt, avail, ijk, idx, axis); found {
			st.terms[nTerm] = term
			nTerm++
		}
	}
	if nTerm == 0 {
		return
	}
	terms := st.terms[:nTerm]
	// Insertion sort by tau, at most three terms
	for n := 1; n < nTerm; n++ {
		for m := n; m > 0 && terms[m].tau < terms[m-1].tau; m-- {
			terms[m], terms[m-1] = terms[m-1], terms[m]
		}
	}

	// One axis: a*T - b = s
	t = (terms[0].b + s) / terms[0].a
	ok = true
	var (
		A, B, C = terms[0].a * terms[0].a, terms[0].a * terms[0].b, terms[0].b*terms[0].b - s*s
	)
	for n := 1; n < nTerm; n++ {
		if t <= terms[n].tau {
			break
		}
		a, b := terms[n].a, terms[n].b
		A2, B2, C2 := A+a*a, B+a*b, C+b*b
		// A T^2 - 2 B T + C = 0, larger root
		disc := B2*B2 - A2*C2
		if disc < 0 {
			break
		}
		tn := (B2 + T(math.Sqrt(float64(disc)))) / A2
		if tn < terms[n].tau {
			break
		}
		t, A, B, C = tn, A2, B2, C2
	}
	return
}

// axis builds the one-sided difference term along one axis, choosing the side
// with the smaller adjacent value and reducing the order when fewer
// monotonically decreasing upwind values are available.
func (st *Stencil[T]) axis(tt []T, avail Available, ijk [3]int, idx int64, axis int) (term axisTerm[T], found bool) {
	var (
		g      = st.g
		n      = g.N[axis]
		i0     = ijk[axis]
		stride = g.Stride(axis)
		dir    int
		best   = grid.Inf[T]()
	)
	if n < 2 {
		return
	}
	for _, d := range [2]int{-1, 1} {
		if i0+d < 0 || i0+d > n-1 {
			continue
		}
		nb := idx + int64(d)*stride
		if !avail(nb) || !grid.IsFinite(tt[nb]) {
			continue
		}
		if tt[nb] < best {
			best, dir = tt[nb], d
		}
	}
	if dir == 0 {
		return
	}
	// Collect upwind values
	var (
		m = 1
	)
	st.offs[1] = g.Step(axis, ijk, dir, 1)
	st.vals[1] = best
	for ; m < st.order; m++ {
		ii := i0 + dir*(m+1)
		if ii < 0 || ii > n-1 {
			break
		}
		nb := idx + int64(dir*(m+1))*stride
		if !avail(nb) || !(tt[nb] < st.vals[m]) {
			break
		}
		st.vals[m+1] = tt[nb]
		st.offs[m+1] = g.Step(axis, ijk, dir, m+1)
	}
	a, b := derivativeCoefficients(st.offs[1:m+1], st.vals[1:m+1])
	term = axisTerm[T]{a: a, b: b, tau: b / a}
	found = true
	return
}

// derivativeCoefficients differentiates the Lagrange interpolant through the
// node (offset 0) and upwind values at increasing offsets d. The magnitude of
// the one-sided derivative at the node is a*T0 - b.
func derivativeCoefficients[T grid.Real](d []float64, vals []T) (a, b T) {
	var (
		af, bf float64
	)
	for m := range d {
		af += 1 / d[m]
		// L_m'(0) = (1/d_m) * prod_{l != m} (-d_l)/(d_m - d_l)
		w := 1 / d[m]
		for l := range d {
			if l == m {
				continue
			}
			w *= -d[l] / (d[m] - d[l])
		}
		bf += w * float64(vals[m])
	}
	a, b = T(af), T(bf)
	return
}
