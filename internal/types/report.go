//nolint:revive // types is a standard Go package name pattern
package types

// Phase identifies one stage of the autopilot pipeline.
type Phase string

// Pipeline phases, in execution order.
const (
	PhaseAudit              Phase = "audit"
	PhaseCleanup            Phase = "cleanup"
	PhaseFeatureEngineering Phase = "feature_engineering"
	PhaseDashboard          Phase = "dashboard"
)

// AllPhases lists the phases in their strict execution order.
var AllPhases = []Phase{PhaseAudit, PhaseCleanup, PhaseFeatureEngineering, PhaseDashboard}

// PhaseState is the lifecycle state of a single phase.
type PhaseState string

// Phase states.
const (
	PhasePending   PhaseState = "pending"
	PhaseRunning   PhaseState = "running"
	PhaseSucceeded PhaseState = "succeeded"
	PhaseFailed    PhaseState = "failed"
	PhaseSkipped   PhaseState = "skipped"
)

// Terminal reports whether the state ends the phase.
func (s PhaseState) Terminal() bool {
	return s == PhaseSucceeded || s == PhaseFailed || s == PhaseSkipped
}

// BestEffort reports whether a failure of the phase downgrades to Skipped
// instead of aborting the pipeline.
func (p Phase) BestEffort() bool {
	return p == PhaseAudit || p == PhaseDashboard
}

// PhaseReport captures what one phase found and did, plus its terminal status.
type PhaseReport struct {
	Phase    Phase      `json:"phase"`
	State    PhaseState `json:"state"`
	Findings []string   `json:"findings,omitempty"`
	Actions  []string   `json:"actions,omitempty"`
	Fault    *Fault     `json:"fault,omitempty"`
	// Charts collects artifacts produced by the dashboard phase.
	Charts []ChartSpec `json:"charts,omitempty"`
	// Attempts records correction-loop histories for code-generating phases.
	Attempts []Attempt `json:"attempts,omitempty"`
}

// PipelineStatus is the terminal status of a full autopilot run.
type PipelineStatus string

// Pipeline statuses.
const (
	PipelineRunning   PipelineStatus = "running"
	PipelineCompleted PipelineStatus = "completed"
	PipelineAborted   PipelineStatus = "aborted"
)

// RunReport is the full record of an autopilot run.
type RunReport struct {
	Status     PipelineStatus           `json:"status"`
	Reflection string                   `json:"reflection,omitempty"`
	Phases     map[Phase]*PhaseReport   `json:"phases"`
	Profiles   map[string]ColumnProfile `json:"profiles,omitempty"`
}

// Report returns the phase report, creating it lazily.
func (r *RunReport) Report(p Phase) *PhaseReport {
	if r.Phases == nil {
		r.Phases = make(map[Phase]*PhaseReport)
	}
	rep, ok := r.Phases[p]
	if !ok {
		rep = &PhaseReport{Phase: p, State: PhasePending}
		r.Phases[p] = rep
	}
	return rep
}
