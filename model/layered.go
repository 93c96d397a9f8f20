// Package model describes 1-D layered earth models and discretizes them into
// slowness fields for the eikonal solvers.
package model

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/notargets/gofmm/grid"
)

// ErrModel: malformed or physically invalid layered model.
var ErrModel = errors.New("model: invalid layered model")

type Wave uint8

const (
	P Wave = iota
	S
)

var (
	WaveNames = map[string]Wave{
		"p": P,
		"s": S,
	}
	WavePrintNames = []string{"P", "S"}
)

func (w Wave) Print() (txt string) {
	txt = WavePrintNames[w]
	return
}

func NewWave(label string) (w Wave, err error) {
	var (
		ok bool
	)
	if w, ok = WaveNames[strings.ToLower(label)]; !ok {
		err = fmt.Errorf("unknown wave type %q", label)
	}
	return
}

// velocityFloor replaces zero velocities (fluid S waves) so slowness stays
// finite.
const velocityFloor = 1e-5

// Layer is one row of a model file: thickness, P and S velocity, density and
// the two quality factors.
type Layer struct {
	Thickness float64
	Vp, Vs    float64
	Rho       float64
	Qa, Qb    float64
}

// Layered is a stack of flat layers. The last layer extends to infinite depth
// whatever its thickness.
type Layered struct {
	Layers []Layer
	tops   []float64
}

func NewLayered(layers []Layer) (m *Layered, err error) {
	var (
		top float64
	)
	if len(layers) == 0 {
		return nil, fmt.Errorf("%w: no layers", ErrModel)
	}
	m = &Layered{
		Layers: layers,
		tops:   make([]float64, len(layers)),
	}
	for n, l := range layers {
		for _, v := range []float64{l.Thickness, l.Vp, l.Vs, l.Rho, l.Qa, l.Qb} {
			if v < 0 || math.IsNaN(v) {
				return nil, fmt.Errorf("%w: layer %d has a negative value", ErrModel, n+1)
			}
		}
		m.tops[n] = top
		top += l.Thickness
	}
	return
}

// Layer returns the index of the layer containing depth.
func (m *Layered) Layer(depth float64) (n int) {
	for n = 0; n < len(m.Layers)-1; n++ {
		if depth < m.tops[n+1] {
			return
		}
	}
	return
}

// Velocity at depth for the wave type, floored away from zero.
func (m *Layered) Velocity(depth float64, w Wave) (v float64) {
	l := m.Layers[m.Layer(depth)]
	v = l.Vp
	if w == S {
		v = l.Vs
	}
	if v == 0 {
		v += velocityFloor
	}
	return
}

// MinThickness is the thinnest non-zero layer, 0 for a single half-space.
func (m *Layered) MinThickness() (h float64) {
	for _, l := range m.Layers {
		if l.Thickness > 0 && (h == 0 || l.Thickness < h) {
			h = l.Thickness
		}
	}
	return
}

// Slowness discretizes the model on g, reading depth from the coordinate of
// depthAxis.
func Slowness[T grid.Real](m *Layered, g *grid.Grid, depthAxis int, w Wave) (slow []T) {
	var (
		ijk [3]int
	)
	slow = make([]T, g.Size())
	for i := 0; i < g.N[0]; i++ {
		for j := 0; j < g.N[1]; j++ {
			for k := 0; k < g.N[2]; k++ {
				ijk = [3]int{i, j, k}
				depth := g.Axes[depthAxis][ijk[depthAxis]]
				slow[g.Index(i, j, k)] = T(1 / m.Velocity(depth, w))
			}
		}
	}
	return
}
