package model

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ReadLayered parses a model file with one layer per line:
//
//	thickness vp vs rho qa qb
//
// Blank lines and lines starting with # are skipped.
func ReadLayered(r io.Reader) (m *Layered, err error) {
	var (
		scanner = bufio.NewScanner(r)
		layers  []Layer
		lineNum int
	)
	for scanner.Scan() {
		var (
			l Layer
			n int
		)
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if n, err = fmt.Sscanf(line, "%g %g %g %g %g %g",
			&l.Thickness, &l.Vp, &l.Vs, &l.Rho, &l.Qa, &l.Qb); err != nil || n != 6 {
			return nil, fmt.Errorf("%w: line %d: %q", ErrModel, lineNum, line)
		}
		layers = append(layers, l)
	}
	if err = scanner.Err(); err != nil {
		return
	}
	return NewLayered(layers)
}

func ReadLayeredFile(path string) (m *Layered, err error) {
	var (
		f *os.File
	)
	if f, err = os.Open(path); err != nil {
		return
	}
	defer f.Close()
	return ReadLayered(f)
}

// Request is one first-arrival query against a layered model.
type Request struct {
	Name          string  `json:"name,omitempty"`
	SourceDepth   float64 `json:"sourceDepth"`
	ReceiverDepth float64 `json:"receiverDepth"`
	Distance      float64 `json:"distance"`
}

// ParseRequestName decodes a directory name of the form
// {modelName}_{sourceDepth}_{receiverDepth}_{distance}.
func ParseRequestName(modelName, name string) (req Request, ok bool) {
	var (
		vals [3]float64
		err  error
	)
	if !strings.HasPrefix(name, modelName+"_") {
		return
	}
	fields := strings.Split(strings.TrimPrefix(name, modelName+"_"), "_")
	if len(fields) != 3 {
		return
	}
	for n, f := range fields {
		if vals[n], err = strconv.ParseFloat(f, 64); err != nil {
			return
		}
	}
	req = Request{Name: name, SourceDepth: vals[0], ReceiverDepth: vals[1], Distance: vals[2]}
	ok = true
	return
}

// ScanRequests collects the requests encoded in the names of the
// subdirectories of dir, as laid out by a Green's function batch run.
func ScanRequests(dir, modelName string) (reqs []Request, err error) {
	var (
		entries []os.DirEntry
	)
	if entries, err = os.ReadDir(dir); err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if req, ok := ParseRequestName(modelName, e.Name()); ok {
			req.Name = filepath.Join(dir, e.Name())
			reqs = append(reqs, req)
		}
	}
	return
}
