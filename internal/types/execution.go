//nolint:revive // types is a standard Go package name pattern
package types

// ExecutionUnit is one attempt's generated program text plus its attempt
// number and the structured error from the previous attempt, if any.
// Units are consumed and discarded once the correction loop terminates.
type ExecutionUnit struct {
	Code      string `json:"code"`
	Attempt   int    `json:"attempt"`
	PrevFault *Fault `json:"prev_fault,omitempty"`
}

// ChartSpec describes one produced chart artifact. It carries the aggregated
// series so the rendering surface needs no access to the dataset.
type ChartSpec struct {
	ID     string       `json:"id"`
	Kind   string       `json:"kind"` // bar, pie, line, histogram, scatter
	Title  string       `json:"title"`
	XLabel string       `json:"x_label,omitempty"`
	YLabel string       `json:"y_label,omitempty"`
	Series []ChartPoint `json:"series"`
}

// ChartPoint is a single aggregated data point in a chart series.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ExecutionResult is the tagged outcome of running one ExecutionUnit.
type ExecutionResult struct {
	Success   bool        `json:"success"`
	Output    []string    `json:"output,omitempty"`
	Artifacts []ChartSpec `json:"artifacts,omitempty"`
	Fault     *Fault      `json:"fault,omitempty"`
}

// Attempt records one correction-loop attempt and its outcome in order,
// so the final report is fully reconstructable.
type Attempt struct {
	Unit   ExecutionUnit   `json:"unit"`
	Result ExecutionResult `json:"result"`
}
