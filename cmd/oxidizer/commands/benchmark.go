package commands

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.trai.ch/oxidizer/internal/app"
	"go.trai.ch/oxidizer/internal/core/domain"
)

func (c *CLI) newBenchmarkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "benchmark [targets...]",
		Short: "Build and benchmark targets",
		Long: `Build and benchmark targets.

A target is described as path:kind:tool[:flag1,flag2,...] where kind is
s|standalone or w|workspace and tool is cargo, cmake, clang or gcc.
Without arguments the targets listed in oxidizer.yaml are used.`,
		Example: `  oxidizer benchmark fib.c:s:clang:-O3 fib.rs:s:cargo --runs 20 --relative-comparison`,
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputMode, _ := cmd.Flags().GetString("output")
			watch, _ := cmd.Flags().GetBool("watch")
			override, err := runOverrides(cmd.Flags())
			if err != nil {
				return err
			}

			return c.app.Benchmark(cmd.Context(), app.BenchmarkOptions{
				Targets:    args,
				Override:   override,
				OutputMode: outputMode,
				Watch:      watch,
			})
		},
	}

	f := cmd.Flags()
	f.IntP("runs", "r", domain.DefaultRuns, "Number of measured runs per target")
	f.IntP("warmup", "w", 0, "Number of unmeasured warmup runs per target")
	f.String("prepare", "", "Shell command to run before every invocation")
	f.String("cleanup", "", "Shell command to run after every invocation")
	f.Float64("timeout", 0, "Kill an invocation after this many seconds (0 disables)")
	f.Bool("ignore-failure", false, "Keep running after a failed invocation")
	f.Bool("measure-memory", false, "Record the peak resident memory of every run")
	f.Bool("relative-comparison", false, "Compare every target against the baseline")
	f.String("baseline", "", "Baseline target by 1-based position, descriptor or path")
	f.IntP("jobs", "j", 1, "Number of targets to process in parallel")
	f.String("time-unit", string(domain.UnitMillisecond), "Time unit for results: s, ms, us, or ns")
	f.BoolP("verbose", "v", false, "Stream build tool output")
	f.Bool("perf-metrics", false, "Sample the default hardware counters with perf")
	f.StringSlice("perf-events", nil, "Perf events to sample (comma-separated)")
	f.Int("sampling-frequency", domain.DefaultSamplingFrequency, "Perf sampling frequency in Hz")
	f.Bool("flamegraph", false, "Record folded stacks for a flame graph")
	f.Bool("call-graph", false, "Record and report call graphs")
	f.Bool("annotate-source", false, "Annotate source code with perf samples")
	f.Bool("system-wide", false, "Profile system-wide (forces sequential targets)")
	f.Bool("analyze-latency", false, "Analyze scheduler latency")
	f.String("perf-record-options", "", "Extra options passed to perf record")
	f.String("perf-report-options", "", "Extra options passed to perf report")
	addExportFlags(f)
	f.StringP("output", "o", "auto", "Output mode: auto, linear, or quiet")
	f.Bool("watch", false, "Re-run the benchmark when target sources change")

	return cmd
}

// runOverrides returns the changes the flags make to the file configuration.
// Flags left at their defaults never override the file.
//
//nolint:cyclop,gocognit // one branch per flag
func runOverrides(f *pflag.FlagSet) (func(*domain.RunConfig), error) {
	var ops []func(*domain.RunConfig)
	changed := func(name string, op func(*domain.RunConfig)) {
		if f.Changed(name) {
			ops = append(ops, op)
		}
	}

	runs, _ := f.GetInt("runs")
	warmup, _ := f.GetInt("warmup")
	prepare, _ := f.GetString("prepare")
	cleanup, _ := f.GetString("cleanup")
	timeout, _ := f.GetFloat64("timeout")
	ignoreFailure, _ := f.GetBool("ignore-failure")
	measureMemory, _ := f.GetBool("measure-memory")
	jobs, _ := f.GetInt("jobs")
	verbose, _ := f.GetBool("verbose")
	perfMetrics, _ := f.GetBool("perf-metrics")
	perfEvents, _ := f.GetStringSlice("perf-events")
	frequency, _ := f.GetInt("sampling-frequency")
	flamegraph, _ := f.GetBool("flamegraph")
	callGraph, _ := f.GetBool("call-graph")
	annotate, _ := f.GetBool("annotate-source")
	systemWide, _ := f.GetBool("system-wide")
	latency, _ := f.GetBool("analyze-latency")
	recordOpts, _ := f.GetString("perf-record-options")
	reportOpts, _ := f.GetString("perf-report-options")

	changed("runs", func(c *domain.RunConfig) { c.Runs = runs })
	changed("warmup", func(c *domain.RunConfig) { c.Warmup = warmup })
	changed("prepare", func(c *domain.RunConfig) { c.Prepare = prepare })
	changed("cleanup", func(c *domain.RunConfig) { c.Cleanup = cleanup })
	changed("timeout", func(c *domain.RunConfig) { c.Timeout = time.Duration(timeout * float64(time.Second)) })
	changed("ignore-failure", func(c *domain.RunConfig) { c.IgnoreFailure = ignoreFailure })
	changed("measure-memory", func(c *domain.RunConfig) { c.MeasureMemory = measureMemory })
	changed("jobs", func(c *domain.RunConfig) { c.Jobs = jobs })
	changed("verbose", func(c *domain.RunConfig) { c.Verbose = verbose })
	changed("perf-metrics", func(c *domain.RunConfig) { c.Profile.Metrics = perfMetrics })
	changed("perf-events", func(c *domain.RunConfig) { c.Profile.Events = perfEvents })
	changed("sampling-frequency", func(c *domain.RunConfig) { c.Profile.SamplingFrequency = frequency })
	changed("flamegraph", func(c *domain.RunConfig) { c.Profile.Flamegraph = flamegraph })
	changed("call-graph", func(c *domain.RunConfig) { c.Profile.CallGraph = callGraph })
	changed("annotate-source", func(c *domain.RunConfig) { c.Profile.AnnotateSource = annotate })
	changed("system-wide", func(c *domain.RunConfig) { c.Profile.SystemWide = systemWide })
	changed("analyze-latency", func(c *domain.RunConfig) { c.Profile.AnalyzeLatency = latency })
	changed("perf-record-options", func(c *domain.RunConfig) { c.Profile.RecordOptions = strings.Fields(recordOpts) })
	changed("perf-report-options", func(c *domain.RunConfig) { c.Profile.ReportOptions = strings.Fields(reportOpts) })

	shared, err := reportOverrides(f)
	if err != nil {
		return nil, err
	}
	ops = append(ops, shared)

	return func(c *domain.RunConfig) {
		for _, op := range ops {
			op(c)
		}
	}, nil
}
