package raytrace

import (
	"math"
	"testing"

	"github.com/notargets/gofmm/eikonal"
	"github.com/notargets/gofmm/grid"
	"github.com/notargets/gofmm/interp"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func solveUniform(t *testing.T, g *grid.Grid, src r3.Vec) (tt []float64) {
	var err error
	tt, err = eikonal.FastMarch(g, grid.NewField(g.Size(), 1.), src, eikonal.DefaultConfig())
	require.NoError(t, err)
	return
}

// offLine is the largest distance of a path point from the straight segment
// a-b, measured in cartesian space.
func offLine(g *grid.Grid, path []r3.Vec, a, b r3.Vec) (d float64) {
	var (
		ca = g.Cartesian(a)
		u  = r3.Unit(r3.Sub(g.Cartesian(b), ca))
	)
	for _, p := range path {
		d = math.Max(d, r3.Norm(r3.Cross(r3.Sub(g.Cartesian(p), ca), u)))
	}
	return
}

func pathLength(g *grid.Grid, path []r3.Vec) (l float64) {
	for i := 1; i < len(path); i++ {
		l += g.Distance(path[i-1], path[i])
	}
	return
}

func TestTraceCartesian(t *testing.T) {
	g, err := grid.NewGrid(grid.NewUniformAxis(0, 0.125, 240), grid.NewUniformAxis(0, 0.125, 160),
		[]float64{0}, grid.Cartesian)
	require.NoError(t, err)
	var (
		src = r3.Vec{X: 10, Y: 12.5}
		rcv = r3.Vec{X: 25, Y: 5}
		tt  = solveUniform(t, g, src)
		opt = Options{StepLength: 0.1}
	)
	trt, path, err := Trace(tt, g, src, rcv, opt)
	require.NoError(t, err)

	// Receiver time is the interpolated field value
	v, err := interp.Sample(tt, g, rcv)
	require.NoError(t, err)
	assert.Equal(t, v, trt)
	assert.InDelta(t, g.Distance(src, rcv), trt, 0.05)

	require.GreaterOrEqual(t, len(path), 2)
	assert.LessOrEqual(t, len(path), DefaultMaxPoints)
	assert.Equal(t, rcv, path[0])
	assert.Equal(t, src, path[len(path)-1])
	assert.Less(t, offLine(g, path, src, rcv), 0.2)
	assert.InDelta(t, g.Distance(src, rcv), pathLength(g, path), 0.1)
	for _, p := range path {
		require.NoError(t, g.CheckPoint(p))
	}
	{ // Repeated calls are identical
		_, path2, err := Trace(tt, g, src, rcv, opt)
		require.NoError(t, err)
		assert.Equal(t, path, path2)
	}
}

func TestTraceLimits(t *testing.T) {
	g, err := grid.NewGrid(grid.NewUniformAxis(0, 0.125, 240), grid.NewUniformAxis(0, 0.125, 160),
		[]float64{0}, grid.Cartesian)
	require.NoError(t, err)
	var (
		src = r3.Vec{X: 10, Y: 12.5}
		tt  = solveUniform(t, g, src)
	)
	{ // Truncated at MaxPoints, still ending on the source
		logger, hook := test.NewNullLogger()
		_, path, err := Trace(tt, g, src, r3.Vec{X: 25, Y: 5}, Options{StepLength: 0.1, MaxPoints: 5, Logger: logger})
		require.NoError(t, err)
		assert.Len(t, path, 5)
		assert.Equal(t, src, path[4])
		require.NotNil(t, hook.LastEntry())
		assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	}
	{ // Receiver on the source
		trt, path, err := Trace(tt, g, src, src, Options{StepLength: 0.1})
		require.NoError(t, err)
		assert.Equal(t, 0., trt)
		assert.Equal(t, []r3.Vec{src, src}, path)
	}
	{ // Errors
		_, _, err := Trace(tt, g, src, r3.Vec{X: 31, Y: 5}, Options{StepLength: 0.1})
		assert.ErrorIs(t, err, grid.ErrBounds)
		_, _, err = Trace(tt, g, r3.Vec{X: -1}, r3.Vec{X: 25, Y: 5}, Options{StepLength: 0.1})
		assert.ErrorIs(t, err, grid.ErrBounds)
		_, _, err = Trace(tt, g, src, r3.Vec{X: 25, Y: 5}, Options{})
		assert.ErrorIs(t, err, ErrStep)
		_, _, err = Trace(tt, g, src, r3.Vec{X: 25, Y: 5}, Options{StepLength: 0.1, MaxPoints: 1})
		assert.ErrorIs(t, err, ErrStep)
		_, _, err = Trace(tt[1:], g, src, r3.Vec{X: 25, Y: 5}, Options{StepLength: 0.1})
		assert.ErrorIs(t, err, grid.ErrShape)
	}
}

func TestTraceUnresolved(t *testing.T) {
	g, err := grid.NewGrid(grid.NewUniformAxis(0, 1, 20), grid.NewUniformAxis(0, 1, 20), []float64{0}, grid.Cartesian)
	require.NoError(t, err)
	slow := grid.NewField(g.Size(), 1.)
	for j := 0; j < g.N[1]; j++ {
		slow[g.Index(10, j, 0)] = math.Inf(1)
	}
	src := r3.Vec{X: 3, Y: 3}
	tt, err := eikonal.FastMarch(g, slow, src, eikonal.DefaultConfig())
	require.NoError(t, err)
	_, path, err := Trace(tt, g, src, r3.Vec{X: 15.5, Y: 4}, Options{StepLength: 0.5})
	assert.ErrorIs(t, err, grid.ErrUnresolved)
	assert.Nil(t, path)
	// The reachable side still traces
	_, _, err = Trace(tt, g, src, r3.Vec{X: 8, Y: 15}, Options{StepLength: 0.5})
	assert.NoError(t, err)
}

func TestTraceSpherical(t *testing.T) {
	g, err := grid.NewGrid(grid.NewUniformAxis(1, 0.02, 51), grid.NewUniformAxis(math.Pi/2-0.3, 0.012, 51),
		[]float64{0}, grid.Spherical)
	require.NoError(t, err)
	var (
		src = r3.Vec{X: 1.5, Y: math.Pi / 2}
		rcv = r3.Vec{X: 1.9, Y: math.Pi/2 + 0.25}
		tt  = solveUniform(t, g, src)
	)
	trt, path, err := Trace(tt, g, src, rcv, Options{StepLength: 0.01})
	require.NoError(t, err)
	assert.InDelta(t, g.Distance(src, rcv), trt, 0.01)
	assert.Equal(t, src, path[len(path)-1])
	assert.Less(t, offLine(g, path, src, rcv), 0.02)
}
