package sandbox

import (
	"context"
	"time"

	"github.com/jonathan/data-autopilot/internal/dataset"
	"github.com/jonathan/data-autopilot/internal/detect"
	"github.com/jonathan/data-autopilot/internal/types"
)

// Limits bounds what one execution unit may consume.
type Limits struct {
	// Timeout is the wall-clock budget for one unit.
	Timeout time.Duration
	// MaxCells caps the dataset size (rows x columns) a unit may grow to.
	MaxCells int
}

// DefaultLimits returns the standard sandbox budget.
func DefaultLimits() Limits {
	return Limits{Timeout: 10 * time.Second, MaxCells: 2_000_000}
}

// Executor runs execution units against a dataset. Each unit operates on a
// deep copy; the shared dataset is replaced only when the whole unit
// succeeds, so a failing unit leaves no partial mutation behind.
type Executor struct {
	limits Limits
	det    *detect.Detector
}

// New builds an executor, filling unset limits with defaults.
func New(limits Limits) *Executor {
	def := DefaultLimits()
	if limits.Timeout <= 0 {
		limits.Timeout = def.Timeout
	}
	if limits.MaxCells <= 0 {
		limits.MaxCells = def.MaxCells
	}
	return &Executor{limits: limits, det: detect.New(detect.DefaultConfig())}
}

// Limits reports the effective budget.
func (e *Executor) Limits() Limits { return e.limits }

// Execute runs one unit to completion or failure. The returned result is
// always well-formed: on failure Fault is set and the dataset is untouched.
func (e *Executor) Execute(ctx context.Context, ds *dataset.Dataset, unit types.ExecutionUnit) types.ExecutionResult {
	prog, err := ParseProgram(unit.Code)
	if err != nil {
		return failed(types.AsFault(err, types.FaultSyntax))
	}

	ctx, cancel := context.WithTimeout(ctx, e.limits.Timeout)
	defer cancel()

	work := ds.Clone()
	in := &interp{ds: work, det: e.det, maxCells: e.limits.MaxCells}

	type outcome struct {
		out    []string
		charts []types.ChartSpec
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		err := in.run(ctx, prog)
		done <- outcome{out: in.out, charts: in.charts, err: err}
	}()

	select {
	case <-ctx.Done():
		return failed(types.WrapFault(types.FaultResourceExceeded, ctx.Err(),
			"execution exceeded the %s budget", e.limits.Timeout))
	case res := <-done:
		if res.err != nil {
			return failed(types.AsFault(res.err, types.FaultRuntime))
		}
		if err := work.CheckInvariants(); err != nil {
			return failed(types.WrapFault(types.FaultRuntime, err, "program left the dataset inconsistent"))
		}
		ds.ReplaceWith(work)
		if prog.Summary != "" {
			res.out = append(res.out, prog.Summary)
		}
		return types.ExecutionResult{Success: true, Output: res.out, Artifacts: res.charts}
	}
}

func failed(fault *types.Fault) types.ExecutionResult {
	return types.ExecutionResult{Success: false, Fault: fault}
}
