package eikonal

import (
	"math"
	"testing"

	"github.com/notargets/gofmm/grid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestMethod(t *testing.T) {
	m, err := NewMethod("FSM")
	require.NoError(t, err)
	assert.Equal(t, FastSweeping, m)
	assert.Equal(t, "Fast Sweeping", m.Print())
	m, err = NewMethod("fmm")
	require.NoError(t, err)
	assert.Equal(t, "Fast Marching", m.Print())
	_, err = NewMethod("dijkstra")
	assert.ErrorIs(t, err, ErrMethod)
}

func TestSolver(t *testing.T) {
	g, slow := planeProblem(t, 0.25, 40, 30)
	src := r3.Vec{X: 4, Y: 3}
	initial := grid.NewField(g.Size(), math.Inf(1))
	initial[g.Index(16, 12, 0)] = 0
	for _, method := range []Method{FastMarching, FastSweeping} {
		cfg := DefaultConfig()
		cfg.Method = method
		s, err := NewSolver[float64](cfg)
		require.NoError(t, err)
		assert.Equal(t, method, s.Config().Method)

		r, err := s.Solve(g, slow, src)
		require.NoError(t, err)
		assert.Len(t, r.TravelTime, int(g.Size()))
		assert.Equal(t, 0., r.TravelTime[g.Index(16, 12, 0)])
		if method == FastSweeping {
			assert.Positive(t, r.Sweeps)
		} else {
			assert.Zero(t, r.Sweeps)
		}
		mean, _ := meanAndMax(straightRayErrors(g, r.TravelTime, src, 1))
		assert.Less(t, mean, 0.08)

		r, err = s.SolveFrom(g, slow, initial)
		require.NoError(t, err)
		assert.Equal(t, 0., r.TravelTime[g.Index(16, 12, 0)])

		_, err = s.Solve(g, slow, r3.Vec{X: 100})
		assert.ErrorIs(t, err, grid.ErrBounds)
	}
	_, err := NewSolver[float32](Config{Method: Method(9)})
	assert.ErrorIs(t, err, ErrMethod)
}

func TestConfigResolve(t *testing.T) {
	{ // Zero value picks defaults
		cfg, err := Config{}.resolve()
		require.NoError(t, err)
		assert.Equal(t, DefaultOrder, cfg.Order)
		assert.Equal(t, DefaultMaxLoops, cfg.MaxLoops)
		assert.NotNil(t, cfg.Logger)
	}
	{ // Experimental features are announced
		logger, hook := test.NewNullLogger()
		cfg := DefaultConfig()
		cfg.Order = 3
		cfg.RefineFactor, cfg.RefineRadius = 2, 2
		cfg.Logger = logger
		_, err := cfg.resolve()
		require.NoError(t, err)
		require.Len(t, hook.AllEntries(), 2)
		for _, e := range hook.AllEntries() {
			assert.Equal(t, logrus.WarnLevel, e.Level)
		}
	}
	{ // Refinement needs both factor and radius
		assert.False(t, Config{RefineFactor: 4}.refine())
		assert.False(t, Config{RefineFactor: 1, RefineRadius: 3}.refine())
		assert.True(t, Config{RefineFactor: 2, RefineRadius: 1}.refine())
	}
}
