package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"go.trai.ch/oxidizer/internal/core/domain"
	"go.trai.ch/zerr"
)

const missing = "-"

func renderMarkdown(buf *bytes.Buffer, session *domain.Session) {
	unit := session.Config.TimeUnit
	fmt.Fprintf(buf, "| Target | Status | Mean [%[1]s] | Min [%[1]s] | Max [%[1]s] | Relative |\n", unit)
	buf.WriteString("|:---|:---|---:|---:|---:|---:|\n")

	for _, o := range session.Outcomes {
		status := string(o.Status)
		if o.Failure != nil {
			status += " (" + string(o.Failure.Class) + ")"
		}
		mean, low, high, rel := missing, missing, missing, missing
		if o.Report != nil && o.Report.Time != nil {
			t := o.Report.Time
			mean = fmt.Sprintf("%.3f ± %.3f", unit.FromSeconds(t.Mean), unit.FromSeconds(t.StdDev))
			low = fmt.Sprintf("%.3f", unit.FromSeconds(t.Min))
			high = fmt.Sprintf("%.3f", unit.FromSeconds(t.Max))
		}
		if o.Report != nil && o.Report.Comparison != nil && o.Report.Comparison.Ratio != nil {
			c := o.Report.Comparison
			rel = fmt.Sprintf("%.2f", *c.Ratio)
			if c.RatioStdDev != nil {
				rel += fmt.Sprintf(" ± %.2f", *c.RatioStdDev)
			}
		}
		fmt.Fprintf(buf, "| `%s` | %s | %s | %s | %s | %s |\n",
			o.Target, status, mean, low, high, rel)
	}

	for _, o := range session.Outcomes {
		if o.Failure == nil {
			continue
		}
		fmt.Fprintf(buf, "\n`%s` failed during %s: %s\n", o.Target, o.Failure.Stage, o.Failure.Message)
		if o.Failure.Diagnostic != "" {
			fmt.Fprintf(buf, "\n```\n%s\n```\n", o.Failure.Diagnostic)
		}
	}
}

var csvHeader = []string{
	"target", "status", "runs", "mean", "stddev", "median", "min", "max",
	"memory_peak_mean", "relative", "failure", "diagnostic",
}

// renderCSV writes one row per target. Times are in seconds, memory in bytes.
func renderCSV(buf *bytes.Buffer, session *domain.Session) error {
	w := csv.NewWriter(buf)
	if err := w.Write(csvHeader); err != nil {
		return zerr.Wrap(domain.ErrExportFailed, err.Error())
	}

	for _, o := range session.Outcomes {
		row := make([]string, len(csvHeader))
		row[0] = o.Target
		row[1] = string(o.Status)
		if r := o.Report; r != nil {
			row[2] = strconv.Itoa(len(r.Run.Measured()))
			if t := r.Time; t != nil {
				row[3] = formatFloat(t.Mean)
				row[4] = formatFloat(t.StdDev)
				row[5] = formatFloat(t.Median)
				row[6] = formatFloat(t.Min)
				row[7] = formatFloat(t.Max)
			}
			if m := r.Memory; m != nil {
				row[8] = formatFloat(m.Mean)
			}
			if c := r.Comparison; c != nil && c.Ratio != nil {
				row[9] = formatFloat(*c.Ratio)
			}
		}
		if o.Failure != nil {
			row[10] = strings.Join([]string{string(o.Failure.Class), o.Failure.Message}, ": ")
			row[11] = o.Failure.Diagnostic
		}
		if err := w.Write(row); err != nil {
			return zerr.Wrap(domain.ErrExportFailed, err.Error())
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return zerr.Wrap(domain.ErrExportFailed, err.Error())
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
