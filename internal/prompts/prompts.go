// Package prompts builds the language-model prompts for every pipeline
// phase. All program-generating prompts share one contract block so the
// model always sees the same operation surface.
package prompts

import (
	"fmt"
	"strings"

	"github.com/jonathan/data-autopilot/internal/types"
)

// programContract describes the JSON program format the sandbox accepts.
// Kept in sync with the sandbox schema by the contract test.
const programContract = `Respond with ONLY a JSON object in this exact structure, no markdown, no explanation:
{
  "ops": [ ... ],
  "charts": [ ... ],
  "summary": "one sentence describing what the program does"
}

Available ops (each is an object with an "op" field plus its parameters):
- {"op": "rename_column", "column": "...", "to": "..."}
- {"op": "drop_column", "column": "..."}
- {"op": "drop_empty_rows"}
- {"op": "drop_empty_columns"}
- {"op": "filter_rows", "column": "...", "equals": "..."}  // keeps matching rows
- {"op": "to_boolean", "column": "..."}
- {"op": "parse_dates", "column": "...", "layout": "2006-01-02"}  // layout optional, Go reference time
- {"op": "parse_numeric", "column": "..."}  // strips currency symbols and separators
- {"op": "explode_tags", "column": "...", "separator": ","}  // one boolean column per tag
- {"op": "make_ordinal", "column": "...", "order": ["low", "medium", "high"]}  // order optional
- {"op": "extract_date_features", "column": "..."}  // adds year, month, day, weekday
- {"op": "bin_numeric", "column": "...", "bins": 5, "as": "..."}
- {"op": "normalize", "column": "...", "method": "minmax", "as": "..."}  // or "zscore"

Available charts:
- {"kind": "bar"|"pie"|"line"|"histogram"|"scatter", "title": "...", "x": "...", "y": "...", "agg": "count"|"sum"|"mean"}
"y" and "agg" are optional; counting needs no "y". Histograms take "bins".

Rules:
- Reference columns by their exact current names.
- Never invent columns that do not appear in the dataset summary.
- Ops run in order; a later op sees the columns earlier ops produced.
- An empty "ops" array with only "charts" is valid.`

// ProgramContract exposes the shared contract block for tests and the chat
// surface.
func ProgramContract() string { return programContract }

// Audit asks for a plain-text quality reflection on the profiled dataset.
// The response is prose, not a program.
func Audit(summary string) string {
	var sb strings.Builder
	sb.WriteString("You are a data quality analyst. Review the dataset profile below and describe, in plain English, the most important quality observations: suspicious columns, missing data, columns whose detected type looks wrong, and anything a human should check before analysis.\n\n")
	sb.WriteString("Keep it under 10 short bullet points. Do not propose code.\n\n")
	writeSummary(&sb, summary)
	return sb.String()
}

// ChartTask asks for a program producing one specific dashboard chart. The
// task is derived from a detected column type, so the prompt pins the chart
// kind, title, and column.
func ChartTask(summary, column, kind, title string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a dashboard designer. Produce a program with exactly one %q chart titled %q over the column %q of the dataset below.\n\n", kind, title, column)
	sb.WriteString("Use ops only when the chart needs the column reshaped first.\n\n")
	writeSummary(&sb, summary)
	sb.WriteString("\n")
	sb.WriteString(programContract)
	return sb.String()
}

// Chat turns a free-form user request into a program against the current
// dataset.
func Chat(summary, request string) string {
	var sb strings.Builder
	sb.WriteString("You are a data assistant. The user asked:\n\n")
	sb.WriteString(strings.TrimSpace(request))
	sb.WriteString("\n\nProduce a program that fulfils the request against the dataset below. If the request needs no data changes, answer with charts only.\n\n")
	writeSummary(&sb, summary)
	sb.WriteString("\n")
	sb.WriteString(programContract)
	return sb.String()
}

// Correction asks the model to repair a failed program. The previous code and
// the structured fault are included verbatim so the model sees exactly what
// broke.
func Correction(original, failedCode string, fault *types.Fault) string {
	var sb strings.Builder
	sb.WriteString("Your previous program failed. Fix it.\n\n")
	sb.WriteString("## Original task\n\n")
	sb.WriteString(strings.TrimSpace(original))
	sb.WriteString("\n\n## Failed program\n\n")
	sb.WriteString(strings.TrimSpace(failedCode))
	sb.WriteString("\n\n## Failure\n\n")
	sb.WriteString(fmt.Sprintf("Category: %s\nDetail: %s\n", fault.Category, fault.Message))
	if fault.Category == types.FaultResourceExceeded {
		sb.WriteString("\nThe program exceeded its resource budget. Produce a cheaper program: fewer ops, fewer derived columns.\n")
	}
	sb.WriteString("\nReturn the corrected program in the same JSON structure, nothing else.\n")
	return sb.String()
}

// Reflection asks for a short closing narrative over the finished run.
func Reflection(report string) string {
	var sb strings.Builder
	sb.WriteString("Summarize the pipeline run below for a non-technical reader in at most five sentences: what was cleaned, what was derived, and what remains unresolved.\n\n")
	sb.WriteString("## Run report\n\n")
	sb.WriteString(report)
	return sb.String()
}

func writeSummary(sb *strings.Builder, summary string) {
	sb.WriteString("## Dataset profile\n\n")
	sb.WriteString(strings.TrimSpace(summary))
	sb.WriteString("\n")
}
