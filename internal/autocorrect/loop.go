// Package autocorrect runs the bounded generate-execute-correct loop. A task
// prompt is sent to the model, the returned program is executed in the
// sandbox, and on failure the structured fault is fed back verbatim for a
// corrected program. The loop is strictly bounded and keeps the full ordered
// attempt history for the run report.
package autocorrect

import (
	"context"
	"time"

	"github.com/jonathan/data-autopilot/internal/dataset"
	"github.com/jonathan/data-autopilot/internal/llm"
	"github.com/jonathan/data-autopilot/internal/prompts"
	"github.com/jonathan/data-autopilot/internal/sandbox"
	"github.com/jonathan/data-autopilot/internal/types"
)

// DefaultMaxAttempts bounds the loop: one initial attempt plus two corrections.
const DefaultMaxAttempts = 3

// DefaultCallTimeout bounds a single model call.
const DefaultCallTimeout = 90 * time.Second

// Loop drives generation and correction for one task.
type Loop struct {
	client      llm.Client
	executor    *sandbox.Executor
	maxAttempts int
	callTimeout time.Duration
	tier        llm.ModelTier
}

// Option configures a Loop.
type Option func(*Loop)

// WithMaxAttempts overrides the attempt bound.
func WithMaxAttempts(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.maxAttempts = n
		}
	}
}

// WithCallTimeout overrides the per-call model timeout.
func WithCallTimeout(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.callTimeout = d
		}
	}
}

// WithTier overrides the model tier used for generation.
func WithTier(tier llm.ModelTier) Option {
	return func(l *Loop) { l.tier = tier }
}

// New builds a loop over a client and a sandbox executor.
func New(client llm.Client, executor *sandbox.Executor, opts ...Option) *Loop {
	l := &Loop{
		client:      client,
		executor:    executor,
		maxAttempts: DefaultMaxAttempts,
		callTimeout: DefaultCallTimeout,
		tier:        llm.TierAdvanced,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Result is the outcome of one loop run. Attempts are in execution order and
// include the failures that preceded a success.
type Result struct {
	Success  bool
	Attempts []types.Attempt
	// Output and Artifacts come from the successful attempt only.
	Output    []string
	Artifacts []types.ChartSpec
	// Fault is the terminal fault when the loop gave up.
	Fault *types.Fault
}

// Run executes the loop for one task prompt against the dataset. The dataset
// is mutated only by a successful attempt; failed attempts leave it alone.
func (l *Loop) Run(ctx context.Context, ds *dataset.Dataset, taskPrompt string) *Result {
	result := &Result{}
	prompt := taskPrompt
	var prevFault *types.Fault
	resourceFaults := 0

	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			result.Fault = types.WrapFault(types.FaultProvider, err, "canceled before attempt %d", attempt)
			return result
		}

		code, err := l.generate(ctx, prompt)
		if err != nil {
			result.Fault = types.AsFault(err, types.FaultProvider)
			return result
		}

		unit := types.ExecutionUnit{Code: code, Attempt: attempt, PrevFault: prevFault}
		exec := l.executor.Execute(ctx, ds, unit)
		result.Attempts = append(result.Attempts, types.Attempt{Unit: unit, Result: exec})

		if exec.Success {
			result.Success = true
			result.Output = exec.Output
			result.Artifacts = exec.Artifacts
			return result
		}

		fault := exec.Fault
		if fault.Category.Fatal() {
			result.Fault = fault
			return result
		}
		if fault.Category == types.FaultResourceExceeded {
			resourceFaults++
			if resourceFaults >= 2 {
				result.Fault = fault
				return result
			}
		}

		prevFault = fault
		prompt = prompts.Correction(taskPrompt, code, fault)
	}

	result.Fault = result.Attempts[len(result.Attempts)-1].Result.Fault
	return result
}

// generate asks the model for one program under the per-call timeout.
func (l *Loop) generate(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, l.callTimeout)
	defer cancel()

	text, err := l.client.GenerateJSON(callCtx, prompt, l.tier)
	if err != nil {
		return "", err
	}
	if obj := llm.ExtractJSONObject(text); obj != "" {
		return obj, nil
	}
	return text, nil
}
