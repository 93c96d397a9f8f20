/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofmm/eikonal"
	"github.com/notargets/gofmm/grid"
	"github.com/notargets/gofmm/interp"
	"github.com/notargets/gofmm/model"
)

type LayeredOptions struct {
	ModelFile    string
	RequestsFile string
	GrtDir       string
	ModelName    string
	Spacing      float64
	Method       string
	Order        int
}

// LayeredResult holds the P and S first arrivals of one request.
type LayeredResult struct {
	model.Request
	P float64 `json:"p"`
	S float64 `json:"s"`
}

// LayeredCmd represents the layered command
var LayeredCmd = &cobra.Command{
	Use:   "layered",
	Short: "First P and S arrivals in a flat layered model for a batch of source/receiver geometries",
	Long: `First P and S arrivals in a flat layered model for a batch of source/receiver
geometries. Requests come from a YAML list or from the directory names of a
Green's function run ({model}_{sourceDepth}_{receiverDepth}_{distance})`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			opts = &LayeredOptions{}
			m    *model.Layered
			reqs []model.Request
		)
		opts.ModelFile, _ = cmd.Flags().GetString("modelFile")
		opts.RequestsFile, _ = cmd.Flags().GetString("requestsFile")
		opts.GrtDir, _ = cmd.Flags().GetString("grtDir")
		opts.ModelName, _ = cmd.Flags().GetString("modelName")
		opts.Spacing, _ = cmd.Flags().GetFloat64("spacing")
		opts.Method, _ = cmd.Flags().GetString("method")
		opts.Order, _ = cmd.Flags().GetInt("order")
		if len(opts.ModelFile) == 0 {
			return fmt.Errorf("must supply a model file (-m, --modelFile) with lines of: thickness vp vs rho qa qb")
		}
		if m, err = model.ReadLayeredFile(opts.ModelFile); err != nil {
			return
		}
		if reqs, err = loadRequests(opts); err != nil {
			return
		}
		return RunLayered(m, reqs, opts, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(LayeredCmd)
	LayeredCmd.Flags().StringP("modelFile", "m", "", "layered model file, one 'thickness vp vs rho qa qb' line per layer")
	LayeredCmd.Flags().StringP("requestsFile", "r", "", "YAML list of {sourceDepth, receiverDepth, distance}")
	LayeredCmd.Flags().String("grtDir", "", "directory whose subdirectory names encode the requests")
	LayeredCmd.Flags().String("modelName", "", "model name prefix of the subdirectories in grtDir, defaults to the model file name")
	LayeredCmd.Flags().Float64P("spacing", "d", 0, "grid spacing, 0 derives it from the thinnest layer")
	LayeredCmd.Flags().String("method", "fmm", "solver: fmm or fsm")
	LayeredCmd.Flags().IntP("order", "o", eikonal.DefaultOrder, "finite difference order, 1 or 2")
}

func loadRequests(opts *LayeredOptions) (reqs []model.Request, err error) {
	var (
		data []byte
	)
	switch {
	case opts.RequestsFile != "":
		if data, err = os.ReadFile(opts.RequestsFile); err != nil {
			return
		}
		err = yaml.Unmarshal(data, &reqs)
	case opts.GrtDir != "":
		name := opts.ModelName
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(opts.ModelFile), filepath.Ext(opts.ModelFile))
		}
		reqs, err = model.ScanRequests(opts.GrtDir, name)
	default:
		err = fmt.Errorf("must supply requests with --requestsFile or --grtDir")
	}
	return
}

// layeredGrid covers every request on an (x, depth) plane.
func layeredGrid(m *model.Layered, reqs []model.Request, h float64) (g *grid.Grid, err error) {
	var (
		maxDist, maxDepth float64
	)
	for _, req := range reqs {
		for _, v := range []float64{req.SourceDepth, req.ReceiverDepth, req.Distance} {
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: request %q has a negative or non-finite value", model.ErrModel, req.Name)
			}
		}
		maxDist = math.Max(maxDist, req.Distance)
		maxDepth = math.Max(maxDepth, math.Max(req.SourceDepth, req.ReceiverDepth))
	}
	if h == 0 {
		h = m.MinThickness() / 4
	}
	if h == 0 {
		h = math.Max(maxDist, maxDepth) / 100
	}
	if h == 0 {
		h = 1
	}
	var (
		nx = int(math.Ceil(maxDist/h)) + 2
		nz = int(math.Ceil(maxDepth/h)) + 2
	)
	return grid.NewGrid(grid.NewUniformAxis(0, h, nx), []float64{0}, grid.NewUniformAxis(0, h, nz), grid.Cartesian)
}

// RunLayered solves once per unique source depth and wave type, running the
// independent solves concurrently, and samples every request from them.
func RunLayered(m *model.Layered, reqs []model.Request, opts *LayeredOptions, w io.Writer) (err error) {
	var (
		g       *grid.Grid
		cfg     = eikonal.DefaultConfig()
		depths  []float64
		slows   = map[model.Wave][]float64{}
		results = make([]LayeredResult, len(reqs))
		data    []byte
	)
	if len(reqs) == 0 {
		return fmt.Errorf("no requests to solve")
	}
	if opts.Method != "" {
		if cfg.Method, err = eikonal.NewMethod(opts.Method); err != nil {
			return
		}
	}
	if opts.Order != 0 {
		cfg.Order = opts.Order
	}
	if g, err = layeredGrid(m, reqs, opts.Spacing); err != nil {
		return
	}
	seen := map[float64]bool{}
	for n, req := range reqs {
		results[n].Request = req
		if !seen[req.SourceDepth] {
			seen[req.SourceDepth] = true
			depths = append(depths, req.SourceDepth)
		}
	}
	sort.Float64s(depths)
	for _, wave := range []model.Wave{model.P, model.S} {
		slows[wave] = model.Slowness[float64](m, g, 2, wave)
	}
	logrus.WithFields(logrus.Fields{
		"requests": len(reqs),
		"depths":   len(depths),
		"nodes":    g.Size(),
		"spacing":  g.Axes[0][1] - g.Axes[0][0],
	}).Info("layered batch")

	eg, ctx := errgroup.WithContext(context.Background())
	eg.SetLimit(eikonal.DefaultThreads())
	for _, depth := range depths {
		for _, wave := range []model.Wave{model.P, model.S} {
			depth, wave := depth, wave
			eg.Go(func() (err error) {
				var (
					res    eikonal.Result[float64]
					solver eikonal.Solver[float64]
					t      float64
				)
				if err = ctx.Err(); err != nil {
					return
				}
				if solver, err = eikonal.NewSolver[float64](cfg); err != nil {
					return
				}
				if res, err = solver.Solve(g, slows[wave], r3.Vec{Z: depth}); err != nil {
					return
				}
				for n, req := range reqs {
					if req.SourceDepth != depth {
						continue
					}
					if t, err = interp.Sample(res.TravelTime, g, r3.Vec{X: req.Distance, Z: req.ReceiverDepth}); err != nil {
						return fmt.Errorf("request %q: %w", req.Name, err)
					}
					if wave == model.P {
						results[n].P = t
					} else {
						results[n].S = t
					}
				}
				logrus.WithFields(logrus.Fields{
					"sourceDepth": depth,
					"wave":        wave.Print(),
				}).Debug("layered solve complete")
				return
			})
		}
	}
	if err = eg.Wait(); err != nil {
		return
	}
	if data, err = yaml.Marshal(results); err != nil {
		return
	}
	_, err = w.Write(data)
	return
}
