// Package scenario assembles complete simulations out of the sim packages:
// an ad-hoc grid of wifi nodes and a mixed backbone with per-node
// infrastructure LANs.
package scenario

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/netsim/sim"
	"github.com/inference-sim/netsim/sim/flowmon"
	"github.com/inference-sim/netsim/sim/random"
	"github.com/inference-sim/netsim/sim/trace"
)

// Result summarizes one scenario run.
type Result struct {
	RunID       string
	Stats       sim.RunStats
	SinkPackets int
	SinkBytes   int64
	SourceSent  int
	Flows       []flowmon.Summary
	// Trace is nil unless an in-memory trace level was requested.
	Trace *trace.TraceSummary
	// Files lists every output file written, in creation order.
	Files []string
}

// outputs opens the files of one run below a directory and closes them
// together.
type outputs struct {
	dir   string
	files []*os.File
	paths []string
}

func newOutputs(dir string) (*outputs, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory %s: %w", dir, err)
	}
	return &outputs{dir: dir}, nil
}

func (o *outputs) path(name string) string {
	return filepath.Join(o.dir, name)
}

// create opens name for writing and remembers it for close.
func (o *outputs) create(name string) (*os.File, error) {
	p := o.path(name)
	f, err := os.Create(p)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", p, err)
	}
	o.files = append(o.files, f)
	o.paths = append(o.paths, p)
	return f, nil
}

// add records a file written by another component.
func (o *outputs) add(paths ...string) {
	o.paths = append(o.paths, paths...)
}

func (o *outputs) close() error {
	var errs []error
	for _, f := range o.files {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	o.files = nil
	return errors.Join(errs...)
}

// flusher is implemented by the buffered text trace writers.
type flusher interface {
	Flush() error
}

// finish flushes writers, closes every output file and reports the first
// failure.
func (o *outputs) finish(ws ...flusher) error {
	var errs []error
	for _, w := range ws {
		if err := w.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := o.close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func runID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

// recorder returns the in-memory trace for level, or nil for none.
func recorder(level string, maxRecords int) (*trace.SimulationTrace, error) {
	if !trace.IsValidTraceLevel(level) {
		return nil, fmt.Errorf("unknown trace level %q", level)
	}
	if level == "" || trace.TraceLevel(level) == trace.TraceLevelNone {
		return nil, nil
	}
	return trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevel(level), MaxRecords: maxRecords}), nil
}

func logRun(kind, id string, res *Result) {
	logrus.WithFields(logrus.Fields{
		"scenario": kind,
		"run":      id,
		"events":   res.Stats.Executed,
		"end":      res.Stats.EndTime,
		"rx":       res.SinkPackets,
		"tx":       res.SourceSent,
	}).Info("simulation finished")
}

type namedVariable struct {
	name string
	desc string
}

// checkVariables reports the first description random.Parse rejects.
func checkVariables(vs ...namedVariable) error {
	for _, v := range vs {
		if _, err := random.Parse(v.desc); err != nil {
			return fmt.Errorf("%s: %w", v.name, err)
		}
	}
	return nil
}

// variable parses desc and builds it on rng.
func variable(name, desc string, rng *rand.Rand) (random.Variable, error) {
	spec, err := random.Parse(desc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return spec.Build(rng)
}

// offTime returns desc, or an exponential off period averaging meanRate
// packets per second when desc is empty.
func offTime(desc string, meanRate float64) string {
	if desc != "" {
		return desc
	}
	return random.ExponentialSpec(1 / meanRate).String()
}
