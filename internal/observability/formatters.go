// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chulminlee01/mrt-tech-test/internal/bulk"
	"github.com/chulminlee01/mrt-tech-test/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// truncate shortens s to max runes, ending in "..."
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintResearch outputs the head of a research report and its sources.
func (p *Printer) PrintResearch(report *types.ResearchReport) {
	if report == nil {
		return
	}

	var sb strings.Builder
	if report.Degraded {
		sb.WriteString("(built from the job spec only)\n\n")
	}

	lines := strings.Split(strings.TrimSpace(report.Text), "\n")
	count := min(len(lines), maxItemsToShow)
	for _, line := range lines[:count] {
		sb.WriteString(line + "\n")
	}
	if len(lines) > count {
		sb.WriteString(fmt.Sprintf("... and %d more lines\n", len(lines)-count))
	}

	if len(report.Sources) > 0 {
		sb.WriteString(fmt.Sprintf("\nSources: %d\n", len(report.Sources)))
		for i := 0; i < min(len(report.Sources), 3); i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", report.Sources[i].Title))
		}
	}

	p.printBox("RESEARCH REPORT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintAssignments outputs the generated assignments with their assets.
func (p *Printer) PrintAssignments(set *types.AssignmentSet) {
	if set == nil || len(set.Assignments) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Company:  %s\n", set.Company))
	sb.WriteString(fmt.Sprintf("Role:     %s %s\n\n", set.JobLevel, set.JobRole))

	for i, a := range set.Assignments {
		sb.WriteString(fmt.Sprintf("%s. %s\n", a.ID, a.Title))
		if a.Timeline != "" {
			sb.WriteString(fmt.Sprintf("    Timeline: %s\n", a.Timeline))
		}
		if len(a.Datasets) > 0 {
			names := make([]string, 0, len(a.Datasets))
			for _, ds := range a.Datasets {
				names = append(names, ds.Name)
			}
			sb.WriteString(fmt.Sprintf("    Datasets: %s\n", strings.Join(names, ", ")))
		}
		if a.StarterCode.Language != "" {
			sb.WriteString(fmt.Sprintf("    Starter:  %s\n", a.StarterCode.Language))
		}
		if i < len(set.Assignments)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("ASSIGNMENTS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRunResult outputs the status, artifacts and errors of a run.
func (p *Printer) PrintRunResult(result *types.RunResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:      %s\n", result.RunID))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", result.Status))
	sb.WriteString(fmt.Sprintf("Output:   %s\n", result.OutputDir))
	if result.FinishedAt != nil {
		sb.WriteString(fmt.Sprintf("Duration: %s\n", result.FinishedAt.Sub(result.StartedAt).Round(100 * time.Millisecond)))
	}

	if len(result.Artifacts) > 0 {
		sb.WriteString(fmt.Sprintf("\nArtifacts (%d):\n", len(result.Artifacts)))
		for _, a := range result.Artifacts {
			sb.WriteString(fmt.Sprintf("  • %-12s %s\n", a.Kind, a.Path))
		}
	}

	p.printBox("RUN SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
	p.PrintErrors(result.Errors)
}

// PrintErrors outputs the step errors of a run.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintErrors(errs []types.StepError) {
	if len(errs) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "✅ NO ERRORS")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d errors:\n\n", len(errs)))

	for i, e := range errs {
		marker := "⚠"
		if e.Terminal {
			marker = "✖"
		}
		label := e.Step
		if e.Item != "" {
			label += " / " + e.Item
		}
		sb.WriteString(fmt.Sprintf("%s %s (%s)\n", marker, label, e.Kind))
		sb.WriteString(fmt.Sprintf("  %s\n", e.Message))
		if i < len(errs)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("STEP ERRORS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintBulkSummary outputs one line per bulk row and the status totals.
func (p *Printer) PrintBulkSummary(results []bulk.Result) {
	if len(results) == 0 {
		return
	}

	var sb strings.Builder
	for _, r := range results {
		line := fmt.Sprintf("[%s] #%d %s / %s", r.Status, r.Row, r.Team, r.JobRole)
		if r.Error != "" {
			line += ": " + r.Error
		}
		sb.WriteString(line + "\n")
	}

	completed, failed, skipped := bulk.Counts(results)
	sb.WriteString(fmt.Sprintf("\nCompleted: %d  Failed: %d  Skipped: %d", completed, failed, skipped))

	p.printBox("BULK SUMMARY", sb.String())
}
