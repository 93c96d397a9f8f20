package cmd

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ghodss/yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gofmm/model"
)

const solveInput = `
Title: "Uniform plane"
Method: fmm
X: {Min: 0, Step: 0.125, N: 161}
Y: {Min: 0, Step: 0.125, N: 101}
Z: {N: 1}
Slowness: {Value: 1}
Source: [5, 5, 0]
Receivers:
  - [15, 8, 0]
  - [30, 8, 0]
`

func writeTemp(t *testing.T, name, content string) (path string) {
	path = filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return
}

func TestRunSolve(t *testing.T) {
	ip, err := readInput(writeTemp(t, "plane.yaml", solveInput))
	require.NoError(t, err)
	for _, prec := range []string{"float64", "float32"} {
		var (
			buf  bytes.Buffer
			rep  SolveReport
			opts = &SolveOptions{
				FieldFile: filepath.Join(t.TempDir(), "tt.bin"),
				Paths:     true,
			}
		)
		ip.Precision = prec
		if ip.Single() {
			require.NoError(t, RunSolve[float32](ip, opts, &buf))
		} else {
			require.NoError(t, RunSolve[float64](ip, opts, &buf))
		}
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &rep))
		assert.Equal(t, prec, rep.Precision)
		assert.Equal(t, "Fast Marching", rep.Method)
		assert.Equal(t, int64(161*101), rep.Nodes)
		assert.Equal(t, 161*101, rep.Reached)
		assert.InDelta(t, math.Hypot(15, 7.5), rep.MaxTime, 0.08)

		require.Len(t, rep.Receivers, 2)
		assert.Empty(t, rep.Receivers[0].Error)
		assert.InDelta(t, math.Hypot(10, 3), rep.Receivers[0].Time, 0.05)
		assert.Equal(t, rep.Receivers[0].Points, len(rep.Receivers[0].Path))
		assert.Equal(t, []float64{5, 5, 0}, rep.Receivers[0].Path[rep.Receivers[0].Points-1])
		// Outside the grid
		assert.NotEmpty(t, rep.Receivers[1].Error)

		fi, err := os.Stat(opts.FieldFile)
		require.NoError(t, err)
		size := int64(8)
		if prec == "float32" {
			size = 4
		}
		assert.Equal(t, rep.Nodes*size, fi.Size())
	}
}

func TestReadInput(t *testing.T) {
	_, err := readInput("")
	assert.Error(t, err)
	_, err = readInput(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	_, err = readInput(writeTemp(t, "bad.yaml", strings.Replace(solveInput, "[5, 5, 0]", "[5, 5]", 1)))
	assert.Error(t, err)
}

func TestRunLayered(t *testing.T) {
	m, err := model.NewLayered([]model.Layer{{Vp: 6, Vs: 3.5, Rho: 2.7, Qa: 600, Qb: 300}})
	require.NoError(t, err)
	var (
		reqs = []model.Request{
			{Name: "a", SourceDepth: 2, ReceiverDepth: 0, Distance: 30},
			{Name: "b", SourceDepth: 2, ReceiverDepth: 1, Distance: 10},
			{Name: "c", SourceDepth: 5, ReceiverDepth: 0, Distance: 20},
		}
		buf     bytes.Buffer
		results []LayeredResult
	)
	require.NoError(t, RunLayered(m, reqs, &LayeredOptions{Spacing: 0.1}, &buf))
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &results))
	require.Len(t, results, 3)
	for n, res := range results {
		assert.Equal(t, reqs[n], res.Request)
		d := math.Hypot(reqs[n].Distance, reqs[n].SourceDepth-reqs[n].ReceiverDepth)
		assert.InEpsilon(t, d/6, res.P, 0.01, res.Name)
		assert.InEpsilon(t, d/3.5, res.S, 0.01, res.Name)
	}
	{ // Sweeping gives the same arrivals
		var (
			fsmBuf     bytes.Buffer
			fsmResults []LayeredResult
		)
		require.NoError(t, RunLayered(m, reqs, &LayeredOptions{Spacing: 0.1, Method: "fsm"}, &fsmBuf))
		require.NoError(t, yaml.Unmarshal(fsmBuf.Bytes(), &fsmResults))
		for n := range results {
			assert.InDelta(t, results[n].P, fsmResults[n].P, 0.02)
		}
	}
	assert.Error(t, RunLayered(m, nil, &LayeredOptions{}, &buf))
	assert.Error(t, RunLayered(m, reqs, &LayeredOptions{Method: "dijkstra"}, &buf))
	assert.ErrorIs(t, RunLayered(m, []model.Request{{Distance: -1}}, &LayeredOptions{}, &buf), model.ErrModel)
}

func TestLoadRequests(t *testing.T) {
	reqs, err := loadRequests(&LayeredOptions{
		RequestsFile: writeTemp(t, "reqs.yaml", "- {sourceDepth: 2, receiverDepth: 0, distance: 30}\n- {sourceDepth: 5, receiverDepth: 0, distance: 20}\n"),
	})
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, 20., reqs[1].Distance)

	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "crust_2_0_50"), 0o755))
	reqs, err = loadRequests(&LayeredOptions{ModelFile: "/models/crust.mod", GrtDir: dir})
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, 50., reqs[0].Distance)

	_, err = loadRequests(&LayeredOptions{})
	assert.Error(t, err)
}
