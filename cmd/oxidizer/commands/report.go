package commands

import (
	"slices"

	"github.com/spf13/pflag"
	"go.trai.ch/oxidizer/internal/core/domain"
	"go.trai.ch/zerr"
)

var exportFlags = []struct {
	name   string
	format domain.ExportFormat
	usage  string
}{
	{"export-json", domain.ExportJSON, "Write every sample and summary to a JSON file"},
	{"export-markdown", domain.ExportMarkdown, "Write a comparison table to a Markdown file"},
	{"export-csv", domain.ExportCSV, "Write one summary row per target to a CSV file"},
	{"export-prometheus", domain.ExportPrometheus, "Write summary gauges to a Prometheus textfile"},
}

// addExportFlags registers one flag per export format.
func addExportFlags(f *pflag.FlagSet) {
	for _, e := range exportFlags {
		f.String(e.name, "", e.usage)
	}
}

// reportOverrides applies the presentation flags shared by benchmark and analyze.
func reportOverrides(f *pflag.FlagSet) (func(*domain.RunConfig), error) {
	var ops []func(*domain.RunConfig)

	if f.Changed("relative-comparison") {
		v, _ := f.GetBool("relative-comparison")
		ops = append(ops, func(c *domain.RunConfig) { c.Relative = v })
	}
	if f.Changed("baseline") {
		v, _ := f.GetString("baseline")
		ops = append(ops, func(c *domain.RunConfig) { c.Baseline = v })
	}
	if f.Changed("time-unit") {
		v, _ := f.GetString("time-unit")
		unit := domain.TimeUnit(v)
		switch unit {
		case domain.UnitSecond, domain.UnitMillisecond, domain.UnitMicrosecond, domain.UnitNanosecond:
		default:
			return nil, zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "unknown time unit"), "time_unit", v)
		}
		ops = append(ops, func(c *domain.RunConfig) { c.TimeUnit = unit })
	}
	for _, e := range exportFlags {
		if !f.Changed(e.name) {
			continue
		}
		path, _ := f.GetString(e.name)
		ops = append(ops, func(c *domain.RunConfig) { c.Exports = setExport(c.Exports, e.format, path) })
	}

	return func(c *domain.RunConfig) {
		for _, op := range ops {
			op(c)
		}
	}, nil
}

// setExport replaces any export of the same format with path.
func setExport(exports []domain.Export, format domain.ExportFormat, path string) []domain.Export {
	out := slices.DeleteFunc(slices.Clone(exports), func(e domain.Export) bool {
		return e.Format == format
	})
	return append(out, domain.Export{Format: format, Path: path})
}
