// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonathan/data-autopilot/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 72
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 8
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintProfiles outputs the detected column profiles, one line per column.
func (p *Printer) PrintProfiles(profiles map[string]types.ColumnProfile) {
	if len(profiles) == 0 {
		return
	}

	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		profile := profiles[name]
		sb.WriteString(profile.SummaryLine())
		sb.WriteString("\n")
	}

	p.printBox("DETECTED COLUMN PROFILES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintPhaseReport outputs one phase's findings and actions.
func (p *Printer) PrintPhaseReport(rep *types.PhaseReport) {
	if rep == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("State: %s\n", rep.State))
	if rep.Fault != nil {
		sb.WriteString(fmt.Sprintf("Fault: [%s] %s\n", rep.Fault.Category, rep.Fault.Message))
	}

	writeList(&sb, "Actions", rep.Actions)
	writeList(&sb, "Findings", rep.Findings)

	if len(rep.Attempts) > 0 {
		sb.WriteString(fmt.Sprintf("\nAttempts: %d\n", len(rep.Attempts)))
		for i, attempt := range rep.Attempts {
			outcome := "ok"
			if !attempt.Result.Success {
				outcome = string(attempt.Result.Fault.Category)
			}
			sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, outcome))
		}
	}
	if len(rep.Charts) > 0 {
		sb.WriteString(fmt.Sprintf("\nCharts: %d\n", len(rep.Charts)))
		for _, chart := range rep.Charts {
			sb.WriteString(fmt.Sprintf("  • %s (%s, %d points)\n", chart.Title, chart.Kind, len(chart.Series)))
		}
	}

	p.printBox(strings.ToUpper(string(rep.Phase))+" PHASE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRunReport outputs the full pipeline outcome.
func (p *Printer) PrintRunReport(report *types.RunReport) {
	if report == nil {
		return
	}
	for _, phase := range types.AllPhases {
		if rep, ok := report.Phases[phase]; ok {
			p.PrintPhaseReport(rep)
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Status: %s\n", report.Status))
	if report.Reflection != "" {
		sb.WriteString("\n")
		sb.WriteString(report.Reflection)
		sb.WriteString("\n")
	}
	p.printBox("RUN SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintChart renders one chart as an aligned text table.
func (p *Printer) PrintChart(chart types.ChartSpec) {
	var sb strings.Builder
	maxValue := 0.0
	for _, pt := range chart.Series {
		if pt.Value > maxValue {
			maxValue = pt.Value
		}
	}
	count := len(chart.Series)
	if count > maxItemsToShow*2 {
		count = maxItemsToShow * 2
	}
	for i := 0; i < count; i++ {
		pt := chart.Series[i]
		bar := ""
		if maxValue > 0 {
			bar = strings.Repeat("█", int(pt.Value/maxValue*24))
		}
		sb.WriteString(fmt.Sprintf("%-20.20s %10.4g %s\n", pt.Label, pt.Value, bar))
	}
	if count < len(chart.Series) {
		sb.WriteString(fmt.Sprintf("... and %d more\n", len(chart.Series)-count))
	}

	p.printBox(fmt.Sprintf("%s (%s)", chart.Title, chart.Kind), strings.TrimSuffix(sb.String(), "\n"))
}

func writeList(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString(":\n")
	count := len(items)
	if count > maxItemsToShow {
		count = maxItemsToShow
	}
	for i := 0; i < count; i++ {
		for _, line := range strings.Split(items[i], "\n") {
			sb.WriteString(fmt.Sprintf("  • %s\n", line))
			break
		}
	}
	if len(items) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(items)-maxItemsToShow))
	}
}
