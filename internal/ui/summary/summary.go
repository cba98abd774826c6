// Package summary renders a benchmark session as a human-readable table.
package summary

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"go.trai.ch/oxidizer/internal/core/domain"
	"go.trai.ch/oxidizer/internal/ui/style"
)

const missing = "-"

// Render returns the results table followed by one line per failed target.
func Render(session *domain.Session) string {
	unit := session.Config.TimeUnit

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(style.Slate)).
		Headers("#", "Target", "Status", "Mean ± σ ["+string(unit)+"]", "Median", "Min … Max", "Memory", "Relative").
		StyleFunc(func(row, _ int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return s.Bold(true).Foreground(style.Rust)
			}
			return s
		})

	for _, o := range session.Outcomes {
		t.Row(row(o, unit)...)
	}

	var b strings.Builder
	b.WriteString(t.String())
	b.WriteByte('\n')

	for _, o := range session.Outcomes {
		if o.Failure == nil {
			continue
		}
		writeFailure(&b, o.Target, o.Failure)
	}

	return b.String()
}

func writeFailure(b *strings.Builder, target string, f *domain.Failure) {
	mark := lipgloss.NewStyle().Foreground(style.Red).Render(style.Cross)
	stage := string(f.Stage)
	if f.Step != "" {
		stage += " (" + f.Step + ")"
	}
	fmt.Fprintf(b, "%s %s: %s during %s: %s\n", mark, target, f.Class, stage, f.Message)
	if f.ExitCode != nil {
		fmt.Fprintf(b, "    exit code %d\n", *f.ExitCode)
	}
	if f.Diagnostic == "" {
		return
	}
	dim := lipgloss.NewStyle().Foreground(style.Slate)
	for _, line := range strings.Split(f.Diagnostic, "\n") {
		b.WriteString("    " + dim.Render(line) + "\n")
	}
}

func row(o domain.Outcome, unit domain.TimeUnit) []string {
	status := lipgloss.NewStyle().Foreground(style.Green).Render(style.Check)
	if !o.Succeeded() {
		status = lipgloss.NewStyle().Foreground(style.Red).Render(style.Cross)
	}

	cells := []string{strconv.Itoa(o.Index + 1), o.Target, status, missing, missing, missing, missing, missing}
	r := o.Report
	if r == nil {
		return cells
	}

	if t := r.Time; t != nil {
		cells[3] = fmt.Sprintf("%.3f ± %.3f", unit.FromSeconds(t.Mean), unit.FromSeconds(t.StdDev))
		cells[4] = fmt.Sprintf("%.3f", unit.FromSeconds(t.Median))
		cells[5] = fmt.Sprintf("%.3f … %.3f", unit.FromSeconds(t.Min), unit.FromSeconds(t.Max))
	}
	if m := r.Memory; m != nil {
		cells[6] = Bytes(m.Mean)
	}
	if c := r.Comparison; c != nil && c.Ratio != nil {
		switch {
		case c.IsBaseline:
			cells[7] = "1.00 (baseline)"
		case c.RatioStdDev != nil:
			cells[7] = fmt.Sprintf("%.2f ± %.2f", *c.Ratio, *c.RatioStdDev)
		default:
			cells[7] = fmt.Sprintf("%.2f", *c.Ratio)
		}
	}
	return cells
}

// Bytes formats a byte count with a binary unit suffix.
func Bytes(v float64) string {
	units := []string{"B", "KiB", "MiB", "GiB"}
	i := 0
	for v >= 1024 && i < len(units)-1 {
		v /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%.0f %s", v, units[i])
	}
	return fmt.Sprintf("%.1f %s", v, units[i])
}
