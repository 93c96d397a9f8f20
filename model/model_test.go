package model

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/notargets/gofmm/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoLayers = `# crust over mantle
 5.0 6.0 3.5 2.7 600 300

0.0 8.0 0.0 3.3 1000 500
`

func TestReadLayered(t *testing.T) {
	m, err := ReadLayered(strings.NewReader(twoLayers))
	require.NoError(t, err)
	require.Len(t, m.Layers, 2)
	assert.Equal(t, Layer{Thickness: 5, Vp: 6, Vs: 3.5, Rho: 2.7, Qa: 600, Qb: 300}, m.Layers[0])
	assert.Equal(t, 5., m.MinThickness())

	assert.Equal(t, 0, m.Layer(-1))
	assert.Equal(t, 0, m.Layer(4.99))
	assert.Equal(t, 1, m.Layer(5))
	assert.Equal(t, 1, m.Layer(500))
	assert.Equal(t, 6., m.Velocity(1, P))
	assert.Equal(t, 3.5, m.Velocity(1, S))
	// Fluid half-space: zero S velocity is floored
	assert.Equal(t, velocityFloor, m.Velocity(10, S))

	{ // Rejections
		_, err = ReadLayered(strings.NewReader("1 2 3\n"))
		assert.ErrorIs(t, err, ErrModel)
		_, err = ReadLayered(strings.NewReader("1 -2 3 4 5 6\n"))
		assert.ErrorIs(t, err, ErrModel)
		_, err = ReadLayered(strings.NewReader("# nothing\n"))
		assert.ErrorIs(t, err, ErrModel)
	}
}

func TestReadLayeredFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crust.mod")
	require.NoError(t, os.WriteFile(path, []byte(twoLayers), 0o644))
	m, err := ReadLayeredFile(path)
	require.NoError(t, err)
	assert.Len(t, m.Layers, 2)
	_, err = ReadLayeredFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestSlowness(t *testing.T) {
	m, err := ReadLayered(strings.NewReader(twoLayers))
	require.NoError(t, err)
	g, err := grid.NewGrid([]float64{0, 1}, []float64{0}, grid.NewUniformAxis(0, 2.5, 5), grid.Cartesian)
	require.NoError(t, err)
	slow := Slowness[float32](m, g, 2, P)
	require.Len(t, slow, 10)
	for i := 0; i < 2; i++ {
		assert.Equal(t, float32(1./6), slow[g.Index(i, 0, 0)])
		assert.Equal(t, float32(1./6), slow[g.Index(i, 0, 1)])
		assert.Equal(t, float32(1./8), slow[g.Index(i, 0, 2)])
		assert.Equal(t, float32(1./8), slow[g.Index(i, 0, 4)])
	}
}

func TestWave(t *testing.T) {
	w, err := NewWave("S")
	require.NoError(t, err)
	assert.Equal(t, S, w)
	assert.Equal(t, "S", w.Print())
	_, err = NewWave("love")
	assert.Error(t, err)
}

func TestRequests(t *testing.T) {
	req, ok := ParseRequestName("ak135_x", "ak135_x_10_0.5_100")
	require.True(t, ok)
	assert.Equal(t, Request{Name: "ak135_x_10_0.5_100", SourceDepth: 10, ReceiverDepth: 0.5, Distance: 100}, req)
	for _, bad := range []string{"ak135_10_0_100", "ak135_x_10_0", "ak135_x_10_a_100", "ak135_x_1_2_3_4"} {
		_, ok = ParseRequestName("ak135_x", bad)
		assert.False(t, ok, bad)
	}

	dir := t.TempDir()
	for _, d := range []string{"crust_2_0_50", "crust_5_0_80", "other_2_0_50"} {
		require.NoError(t, os.Mkdir(filepath.Join(dir, d), 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "crust_1_1_1"), nil, 0o644))
	reqs, err := ScanRequests(dir, "crust")
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, 2., reqs[0].SourceDepth)
	assert.Equal(t, 80., reqs[1].Distance)
	assert.Equal(t, filepath.Join(dir, "crust_2_0_50"), reqs[0].Name)
}
