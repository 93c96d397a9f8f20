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
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ghodss/yaml"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/notargets/gofmm/InputParameters"
	"github.com/notargets/gofmm/eikonal"
	"github.com/notargets/gofmm/grid"
	"github.com/notargets/gofmm/raytrace"
)

type SolveOptions struct {
	InputFile    string
	FieldFile    string
	Paths        bool
	PerfCounters bool
	Verbose      bool
}

type ReceiverReport struct {
	Position []float64   `json:"position"`
	Time     float64     `json:"time"`
	Points   int         `json:"points,omitempty"`
	Path     [][]float64 `json:"path,omitempty"`
	Error    string      `json:"error,omitempty"`
}

type SolveReport struct {
	Title     string           `json:"title,omitempty"`
	Method    string           `json:"method"`
	Order     int              `json:"order"`
	Precision string           `json:"precision"`
	Nodes     int64            `json:"nodes"`
	Reached   int              `json:"reached"`
	Sweeps    int              `json:"sweeps,omitempty"`
	Elapsed   string           `json:"elapsed"`
	CPUCycles uint64           `json:"cpuCycles,omitempty"`
	MeanTime  float64          `json:"meanTime"`
	MaxTime   float64          `json:"maxTime"`
	Receivers []ReceiverReport `json:"receivers,omitempty"`
}

// SolveCmd represents the solve command
var SolveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Compute a travel-time field for a problem described in a YAML file",
	Long: `Compute a travel-time field for a problem described in a YAML file, trace
rays to the listed receivers and print a YAML report`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			ip   *InputParameters.Parameters
			opts = &SolveOptions{}
		)
		opts.InputFile, _ = cmd.Flags().GetString("inputConditionsFile")
		opts.FieldFile, _ = cmd.Flags().GetString("fieldFile")
		opts.Paths, _ = cmd.Flags().GetBool("paths")
		opts.PerfCounters, _ = cmd.Flags().GetBool("perfCounters")
		opts.Verbose, _ = cmd.Flags().GetBool("verbose")
		if ip, err = readInput(opts.InputFile); err != nil {
			return
		}
		if opts.Verbose {
			ip.Print(cmd.ErrOrStderr())
		}
		if ip.Single() {
			return RunSolve[float32](ip, opts, cmd.OutOrStdout())
		}
		return RunSolve[float64](ip, opts, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(SolveCmd)
	SolveCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file describing grid, slowness, source, solver and receivers")
	SolveCmd.Flags().StringP("fieldFile", "F", "", "write the travel-time field as raw little-endian values in node order")
	SolveCmd.Flags().BoolP("paths", "p", false, "include ray paths in the report")
	SolveCmd.Flags().Bool("perfCounters", false, "report CPU cycles spent in the solve")
	SolveCmd.Flags().BoolP("verbose", "v", false, "print the input parameters to stderr")
}

const exampleInput = `
########################################
Title: "Uniform half space"
Method: fmm          # fmm or fsm
Precision: float64   # float32 or float64
Coordinates: cartesian
X: {Min: 0, Step: 0.08, N: 250}
Y: {Min: 0, Step: 0.08, N: 200}
Z: {N: 1}
Slowness: {Value: 1} # or {Velocity: 6} or {Model: crust.mod, Wave: P, DepthAxis: 1}
Source: [10, 12.5, 0]
Order: 2
Receivers:
  - [15, 5, 0]
########################################
`

func readInput(path string) (ip *InputParameters.Parameters, err error) {
	var (
		data []byte
	)
	if len(path) == 0 {
		return nil, fmt.Errorf("must supply an input parameters file (-I, --inputConditionsFile), for example:%s", exampleInput)
	}
	if data, err = os.ReadFile(path); err != nil {
		return
	}
	ip = &InputParameters.Parameters{}
	if err = ip.Parse(data); err != nil {
		return
	}
	err = ip.Validate()
	return
}

func RunSolve[T grid.Real](ip *InputParameters.Parameters, opts *SolveOptions, w io.Writer) (err error) {
	var (
		g      *grid.Grid
		slow   []T
		cfg    eikonal.Config
		solver eikonal.Solver[T]
		res    eikonal.Result[T]
		logger = logrus.StandardLogger()
		src    = ip.SourcePoint()
		rep    = SolveReport{Title: ip.Title}
		data   []byte
	)
	if g, err = ip.Grid(); err != nil {
		return
	}
	if slow, err = InputParameters.BuildSlowness[T](ip, g); err != nil {
		return
	}
	if cfg, err = ip.SolverConfig(logger); err != nil {
		return
	}
	if solver, err = eikonal.NewSolver[T](cfg); err != nil {
		return
	}
	solve := func() (err error) {
		res, err = solver.Solve(g, slow, src)
		return
	}
	start := time.Now()
	if opts.PerfCounters {
		rep.CPUCycles, err = countCycles(solve, logger)
	} else {
		err = solve()
	}
	if err != nil {
		return
	}
	rep.Elapsed = time.Since(start).String()
	rep.Method = cfg.Method.Print()
	rep.Order = cfg.Order
	rep.Precision = fmt.Sprintf("%T", T(0))
	rep.Nodes = g.Size()
	rep.Sweeps = res.Sweeps
	finite := finiteValues(res.TravelTime)
	rep.Reached = len(finite)
	if len(finite) != 0 {
		rep.MeanTime = stat.Mean(finite, nil)
		rep.MaxTime = floats.Max(finite)
	}
	logger.WithFields(logrus.Fields{
		"nodes":   rep.Nodes,
		"reached": rep.Reached,
		"elapsed": rep.Elapsed,
	}).Info("solve complete")

	opt := ip.RayOptions(logger, g)
	for _, rcv := range ip.ReceiverPoints() {
		rr := ReceiverReport{Position: []float64{rcv.X, rcv.Y, rcv.Z}}
		t, path, terr := raytrace.Trace(res.TravelTime, g, src, rcv, opt)
		if terr != nil {
			rr.Error = terr.Error()
			logger.WithError(terr).WithField("receiver", rcv).Warn("ray trace failed")
		} else {
			rr.Time = float64(t)
			rr.Points = len(path)
			if opts.Paths {
				for _, p := range path {
					rr.Path = append(rr.Path, []float64{p.X, p.Y, p.Z})
				}
			}
		}
		rep.Receivers = append(rep.Receivers, rr)
	}

	if opts.FieldFile != "" {
		if err = writeField(opts.FieldFile, res.TravelTime); err != nil {
			return
		}
	}
	if data, err = yaml.Marshal(rep); err != nil {
		return
	}
	_, err = w.Write(data)
	return
}

func finiteValues[T grid.Real](field []T) (vals []float64) {
	for _, v := range field {
		if grid.IsFinite(v) {
			vals = append(vals, float64(v))
		}
	}
	return
}

func writeField[T grid.Real](path string, field []T) (err error) {
	var (
		f *os.File
	)
	if f, err = os.Create(path); err != nil {
		return
	}
	bw := bufio.NewWriter(f)
	if err = binary.Write(bw, binary.LittleEndian, field); err != nil {
		f.Close()
		return
	}
	if err = bw.Flush(); err != nil {
		f.Close()
		return
	}
	return f.Close()
}
