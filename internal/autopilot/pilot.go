// Package autopilot drives the multi-phase pipeline over a loaded dataset:
// audit, cleanup, feature engineering, dashboard. Audit and dashboard are
// best effort and downgrade to skipped on failure; cleanup and feature
// engineering abort the run on a fatal fault, keeping the partial report.
// A pilot is resumable at phase boundaries.
package autopilot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jonathan/data-autopilot/internal/autocorrect"
	"github.com/jonathan/data-autopilot/internal/dataset"
	"github.com/jonathan/data-autopilot/internal/detect"
	"github.com/jonathan/data-autopilot/internal/llm"
	"github.com/jonathan/data-autopilot/internal/prompts"
	"github.com/jonathan/data-autopilot/internal/sandbox"
	"github.com/jonathan/data-autopilot/internal/transform"
	"github.com/jonathan/data-autopilot/internal/types"
)

// DefaultAcceptConfidence is the detection confidence a column needs before
// cleanup rewrites it.
const DefaultAcceptConfidence = 0.6

// summaryRows bounds how many sample rows prompts embed.
const summaryRows = 5

// Options configures a pilot run. The zero value is the default policy.
type Options struct {
	// AcceptConfidence is the minimum profile confidence for automatic
	// transformation. Columns below it are reported and left alone.
	AcceptConfidence float64
	// DropTagColumns removes original multi-value columns after exploding.
	DropTagColumns bool
	// MaxAttempts bounds the correction loop for model-backed phases.
	// Zero uses the loop default.
	MaxAttempts int
}

// DefaultOptions returns the standard run policy.
func DefaultOptions() Options {
	return Options{AcceptConfidence: DefaultAcceptConfidence}
}

// Pilot runs the pipeline over one dataset.
type Pilot struct {
	mu     sync.Mutex
	ds     *dataset.Dataset
	client llm.Client
	det    *detect.Detector
	loop   *autocorrect.Loop
	opts   Options

	report *types.RunReport
	next   int
	plans  []*transform.Plan
}

// New builds a pilot. The client may be nil: detection, cleanup, and feature
// engineering are fully deterministic, and the model-backed phases are
// skipped without one.
func New(ds *dataset.Dataset, client llm.Client, executor *sandbox.Executor, opts Options) *Pilot {
	if opts.AcceptConfidence <= 0 {
		opts.AcceptConfidence = DefaultAcceptConfidence
	}
	if executor == nil {
		executor = sandbox.New(sandbox.Limits{})
	}
	p := &Pilot{
		ds:     ds,
		client: client,
		det:    detect.New(detect.DefaultConfig()),
		opts:   opts,
		report: &types.RunReport{Status: types.PipelineRunning},
	}
	if client != nil {
		p.loop = autocorrect.New(client, executor, autocorrect.WithMaxAttempts(opts.MaxAttempts))
	}
	return p
}

// Report returns the run report accumulated so far.
func (p *Pilot) Report() *types.RunReport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.report
}

// Dataset returns the dataset the pilot operates on.
func (p *Pilot) Dataset() *dataset.Dataset { return p.ds }

// Plans returns the transformation plans applied so far, in order.
func (p *Pilot) Plans() []*transform.Plan {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*transform.Plan(nil), p.plans...)
}

// Run executes the remaining phases. After an abort it can be called again
// to retry from the failed phase.
func (p *Pilot) Run(ctx context.Context) (*types.RunReport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for p.next < len(types.AllPhases) {
		phase := types.AllPhases[p.next]
		rep := p.report.Report(phase)
		rep.State = types.PhaseRunning
		rep.Fault = nil

		fault := p.runPhase(ctx, phase, rep)
		switch {
		case fault == nil:
			rep.State = types.PhaseSucceeded
		case phase.BestEffort():
			rep.State = types.PhaseSkipped
			rep.Fault = fault
			rep.Findings = append(rep.Findings, fmt.Sprintf("phase skipped: %s", fault.Message))
		default:
			rep.State = types.PhaseFailed
			rep.Fault = fault
			p.report.Status = types.PipelineAborted
			return p.report, fault
		}
		p.next++
	}

	p.report.Status = types.PipelineCompleted
	p.reflect(ctx)
	return p.report, nil
}

func (p *Pilot) runPhase(ctx context.Context, phase types.Phase, rep *types.PhaseReport) *types.Fault {
	if err := ctx.Err(); err != nil {
		return types.WrapFault(types.FaultResourceExceeded, err, "canceled before %s", phase)
	}
	switch phase {
	case types.PhaseAudit:
		return p.runAudit(ctx, rep)
	case types.PhaseCleanup:
		return p.runCleanup(rep)
	case types.PhaseFeatureEngineering:
		return p.runFeatureEngineering(rep)
	case types.PhaseDashboard:
		return p.runDashboard(ctx, rep)
	default:
		return types.NewFault(types.FaultRuntime, "unknown phase %s", phase)
	}
}

// runAudit profiles every column and optionally asks the model for a quality
// reflection. Unknown columns are findings, never failures.
func (p *Pilot) runAudit(ctx context.Context, rep *types.PhaseReport) *types.Fault {
	profiles, err := p.det.ProfileDataset(ctx, p.ds)
	if err != nil {
		return types.AsFault(err, types.FaultDetectionAmbiguity)
	}
	p.report.Profiles = profiles

	for _, col := range p.ds.Columns() {
		profile, ok := profiles[col.Name]
		if !ok {
			continue
		}
		rep.Findings = append(rep.Findings, profile.SummaryLine())
		if profile.Type == types.TypeUnknown {
			rep.Findings = append(rep.Findings,
				fmt.Sprintf("column %q could not be classified and will not be transformed", col.Name))
		}
	}

	if p.client != nil {
		text, err := p.client.GenerateContent(ctx, prompts.Audit(p.ds.Summary(summaryRows)), llm.TierStandard)
		if err == nil && strings.TrimSpace(text) != "" {
			rep.Findings = append(rep.Findings, strings.TrimSpace(text))
		}
		// A missing reflection is not worth failing the audit over.
	}
	return nil
}

// runCleanup deterministically rewrites every confidently profiled column to
// its semantic type. Per-column transformation faults are findings; anything
// else aborts.
func (p *Pilot) runCleanup(rep *types.PhaseReport) *types.Fault {
	if fault := p.pruneEmpty(rep); fault != nil {
		return fault
	}

	opts := transform.Options{KeepTagColumn: !p.opts.DropTagColumns}
	for _, col := range append([]*dataset.Column(nil), p.ds.Columns()...) {
		profile := col.Profile
		if profile == nil || profile.Type == types.TypeUnknown {
			continue
		}
		if profile.Confidence < p.opts.AcceptConfidence {
			rep.Findings = append(rep.Findings, fmt.Sprintf(
				"column %q detected as %s at %.2f confidence, below %.2f, left as-is",
				col.Name, profile.Type, profile.Confidence, p.opts.AcceptConfidence))
			continue
		}

		plan, err := transform.BuildPlan(col, profile, opts)
		if err != nil {
			if f := types.AsFault(err, types.FaultTransformation); f.Category == types.FaultTransformation {
				rep.Findings = append(rep.Findings, f.Message)
				continue
			}
			return types.AsFault(err, types.FaultTransformation)
		}
		if plan == nil {
			continue
		}

		report, err := transform.Apply(p.ds, plan)
		if err != nil {
			f := types.AsFault(err, types.FaultTransformation)
			if f.Category == types.FaultTransformation {
				rep.Findings = append(rep.Findings,
					fmt.Sprintf("column %q left untransformed: %s", col.Name, f.Message))
				continue
			}
			return f
		}
		p.plans = append(p.plans, plan)
		rep.Actions = append(rep.Actions, report.Summary())
	}
	return nil
}

// pruneEmpty removes fully empty rows and columns through a reversible plan,
// so Revert restores them like any other transformation.
func (p *Pilot) pruneEmpty(rep *types.PhaseReport) *types.Fault {
	plan := transform.BuildPruneEmpty(p.ds)
	if plan == nil {
		return nil
	}
	if _, err := transform.Apply(p.ds, plan); err != nil {
		return types.AsFault(err, types.FaultTransformation)
	}
	p.plans = append(p.plans, plan)
	for _, op := range plan.Ops {
		switch op.Kind {
		case transform.OpDropRows:
			rep.Actions = append(rep.Actions, fmt.Sprintf("dropped %d fully empty rows", len(op.RowIndexes)))
		case transform.OpDropColumn:
			rep.Actions = append(rep.Actions, fmt.Sprintf("dropped empty column %q", op.ColumnName))
		}
	}
	return nil
}

// runFeatureEngineering derives date-part columns from every parsed date
// column.
func (p *Pilot) runFeatureEngineering(rep *types.PhaseReport) *types.Fault {
	for _, col := range append([]*dataset.Column(nil), p.ds.Columns()...) {
		hasTime := false
		for _, v := range col.Values {
			if v.Kind == dataset.KindTime {
				hasTime = true
				break
			}
		}
		if !hasTime {
			continue
		}

		plan := transform.BuildDateParts(col)
		report, err := transform.Apply(p.ds, plan)
		if err != nil {
			f := types.AsFault(err, types.FaultTransformation)
			if f.Category == types.FaultTransformation {
				rep.Findings = append(rep.Findings,
					fmt.Sprintf("no date features for %q: %s", col.Name, f.Message))
				continue
			}
			return f
		}
		p.plans = append(p.plans, plan)
		rep.Actions = append(rep.Actions, report.Summary())
	}
	return nil
}

// maxChartTasks bounds the dashboard task list.
const maxChartTasks = 6

type chartTask struct {
	column string
	kind   string
	title  string
}

// chartTasks derives the dashboard task list from the detected column types:
// a distribution chart per boolean, categorical, and ordinal column, a trend
// chart per date column, a histogram per numeric column.
func (p *Pilot) chartTasks() []chartTask {
	var tasks []chartTask
	for _, col := range p.ds.Columns() {
		if len(tasks) == maxChartTasks {
			break
		}
		if col.Profile == nil {
			continue
		}
		switch col.Profile.Type {
		case types.TypeBoolean, types.TypeCategorical, types.TypeOrdinal:
			tasks = append(tasks, chartTask{column: col.Name, kind: "bar", title: "Distribution of " + col.Name})
		case types.TypeDateString:
			tasks = append(tasks, chartTask{column: col.Name, kind: "line", title: "Records over " + col.Name})
		case types.TypeNumeric, types.TypeNumericString:
			tasks = append(tasks, chartTask{column: col.Name, kind: "histogram", title: "Distribution of " + col.Name})
		}
	}
	return tasks
}

// runDashboard runs one correction loop per chart task. A task that exhausts
// its retries is recorded as a skipped chart; only a fatal fault, or every
// task failing, skips the phase.
func (p *Pilot) runDashboard(ctx context.Context, rep *types.PhaseReport) *types.Fault {
	if p.loop == nil {
		return types.NewFault(types.FaultProvider, "no model configured")
	}

	tasks := p.chartTasks()
	if len(tasks) == 0 {
		rep.Findings = append(rep.Findings, "no columns suitable for charting")
		return nil
	}

	var lastFault *types.Fault
	for _, task := range tasks {
		result := p.loop.Run(ctx, p.ds,
			prompts.ChartTask(p.ds.Summary(summaryRows), task.column, task.kind, task.title))
		rep.Attempts = append(rep.Attempts, result.Attempts...)
		if !result.Success {
			if result.Fault.Category.Fatal() {
				return result.Fault
			}
			lastFault = result.Fault
			rep.Findings = append(rep.Findings,
				fmt.Sprintf("chart %q skipped: %s", task.title, result.Fault.Message))
			continue
		}
		rep.Charts = append(rep.Charts, result.Artifacts...)
		rep.Actions = append(rep.Actions, result.Output...)
	}

	if len(rep.Charts) == 0 && lastFault != nil {
		return lastFault
	}
	return nil
}

// reflect asks for a closing narrative. Best effort.
func (p *Pilot) reflect(ctx context.Context) {
	if p.client == nil {
		return
	}
	text, err := p.client.GenerateContent(ctx, prompts.Reflection(p.renderReport()), llm.TierLite)
	if err == nil {
		p.report.Reflection = strings.TrimSpace(text)
	}
}

// renderReport flattens the run report into prompt-sized text.
func (p *Pilot) renderReport() string {
	var sb strings.Builder
	for _, phase := range types.AllPhases {
		rep, ok := p.report.Phases[phase]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "%s: %s\n", phase, rep.State)
		for _, a := range rep.Actions {
			fmt.Fprintf(&sb, "  did: %s\n", a)
		}
		for _, f := range rep.Findings {
			fmt.Fprintf(&sb, "  found: %s\n", f)
		}
	}
	return sb.String()
}

// Revert undoes every applied plan in reverse order, restoring the dataset
// to its loaded shape.
func (p *Pilot) Revert() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.plans) - 1; i >= 0; i-- {
		if err := transform.Reverse(p.ds, p.plans[i]); err != nil {
			return err
		}
		p.plans = p.plans[:i]
	}
	return nil
}
