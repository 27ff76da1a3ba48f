// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/acmlab/bmcfleet/lib/fleet"
)

// outcomeColors are ANSI 256-color codes per outcome.
var outcomeColors = map[string]lipgloss.Color{
	string(fleet.Succeeded): lipgloss.Color("34"),
	string(fleet.Skipped):   lipgloss.Color("245"),
	string(fleet.Failed):    lipgloss.Color("196"),
	string(fleet.Abandoned): lipgloss.Color("208"),
	string(fleet.Excluded):  lipgloss.Color("178"),
}

// outcomeOrder is the order outcomes appear in the totals line.
var outcomeOrder = []fleet.Outcome{fleet.Succeeded, fleet.Skipped, fleet.Failed, fleet.Abandoned, fleet.Excluded}

var columnHeaders = []string{"MACHINE", "OUTCOME", "PHASE", "JOB", "REASON"}

// WriteText writes an aligned table. Colors are used only when w is a
// terminal that supports them.
func (r *Report) WriteText(w io.Writer) error {
	renderer := lipgloss.NewRenderer(w)
	header := renderer.NewStyle().Bold(true)
	dim := renderer.NewStyle().Faint(true)

	rows := make([][]string, 0, len(r.Machines))
	widths := make([]int, len(columnHeaders))
	for column, title := range columnHeaders {
		widths[column] = len(title)
	}
	for _, machine := range r.Machines {
		reason := machine.Reason
		if machine.CleanupError != "" {
			reason = strings.TrimSpace(reason + " (cleanup: " + machine.CleanupError + ")")
		}
		row := []string{machine.Name, machine.Outcome, machine.Phase, orDash(machine.JobID), reason}
		for column, cell := range row {
			widths[column] = max(widths[column], lipgloss.Width(cell))
		}
		rows = append(rows, row)
	}

	var builder strings.Builder
	title := fmt.Sprintf("run %s  mode %s", r.RunID, r.Mode)
	if r.Operation != "" {
		title = fmt.Sprintf("%s  %s", r.Operation, title)
	}
	builder.WriteString(header.Render(title))
	builder.WriteString(dim.Render(fmt.Sprintf("  elapsed %s", r.Elapsed().Round(time.Second))))
	builder.WriteString("\n")

	builder.WriteString(header.Render(joinRow(columnHeaders, widths)))
	builder.WriteString("\n")
	for _, row := range rows {
		cells := make([]string, len(row))
		for column, cell := range row {
			if column == len(row)-1 {
				cells[column] = cell
				continue
			}
			style := renderer.NewStyle().Width(widths[column])
			if column == 1 {
				if color, ok := outcomeColors[cell]; ok {
					style = style.Foreground(color)
				}
			}
			cells[column] = style.Render(cell)
		}
		builder.WriteString(strings.TrimRight(strings.Join(cells, "  "), " "))
		builder.WriteString("\n")
	}

	builder.WriteString(r.totals())
	builder.WriteString("\n")

	_, err := io.WriteString(w, builder.String())
	return err
}

// totals is the closing line, e.g. "3 machines: 2 succeeded, 1 failed".
func (r *Report) totals() string {
	noun := "machines"
	if len(r.Machines) == 1 {
		noun = "machine"
	}
	var parts []string
	for _, outcome := range outcomeOrder {
		if count := r.Counts[string(outcome)]; count > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", count, outcome))
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%d %s", len(r.Machines), noun)
	}
	return fmt.Sprintf("%d %s: %s", len(r.Machines), noun, strings.Join(parts, ", "))
}

func joinRow(cells []string, widths []int) string {
	padded := make([]string, len(cells))
	for column, cell := range cells {
		if column == len(cells)-1 {
			padded[column] = cell
			continue
		}
		padded[column] = cell + strings.Repeat(" ", widths[column]-len(cell))
	}
	return strings.Join(padded, "  ")
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
