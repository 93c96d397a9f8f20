//go:build linux

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
	perf "github.com/hodgesds/perf-utils"
	"github.com/sirupsen/logrus"
)

// countCycles runs f under a CPU cycle counter. When the counter cannot be
// opened f still runs and zero cycles are reported.
func countCycles(f func() error, logger logrus.FieldLogger) (cycles uint64, err error) {
	var (
		ran  bool
		ferr error
	)
	pv, perr := perf.CPUCycles(func() error {
		ran = true
		ferr = f()
		return nil
	})
	switch {
	case !ran:
		logger.WithError(perr).Warn("perf counters unavailable")
		err = f()
	case ferr != nil:
		err = ferr
	case perr != nil:
		logger.WithError(perr).Warn("perf counters unavailable")
	default:
		cycles = pv.Value
	}
	return
}
