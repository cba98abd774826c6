// Package harness runs built artifacts repeatedly under the configured measurement policy.
package harness

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"go.trai.ch/oxidizer/internal/core/domain"
	"go.trai.ch/oxidizer/internal/core/ports"
	"go.trai.ch/zerr"
)

// Harness executes the invocations of one target, strictly sequentially.
type Harness struct {
	launcher ports.Launcher
	executor ports.Executor
	profiler ports.Profiler
}

// New creates a Harness. The executor runs prepare and cleanup hooks.
func New(launcher ports.Launcher, executor ports.Executor, profiler ports.Profiler) *Harness {
	return &Harness{
		launcher: launcher,
		executor: executor,
		profiler: profiler,
	}
}

// Run executes cfg.Warmup + cfg.Runs invocations of the artifact.
//
// Warmup samples precede measured samples and are flagged as such. A failed
// invocation never yields a sample; unless cfg.IgnoreFailure is set, the first
// failure (warmup included) halts the target and the partial result is returned.
// Hook output is written to output.
func (h *Harness) Run(ctx context.Context, artifact *domain.BuildArtifact, cfg domain.RunConfig, output io.Writer) domain.RunResult {
	if output == nil {
		output = io.Discard
	}

	var result domain.RunResult
	counters := cfg.Profile.CountersRequested()
	if counters {
		if err := h.profiler.Probe(ctx); err != nil {
			result.Warnings = append(result.Warnings, "counters disabled: "+err.Error())
			counters = false
		}
	}

	cmd := domain.Command{Name: artifact.Executable}
	total := cfg.Warmup + cfg.Runs

	for i := range total {
		if ctx.Err() != nil {
			result.Halted = true
			break
		}

		inv := invocation{index: i, warmup: i < cfg.Warmup}
		if counters {
			probe, err := h.profiler.Instrument(cmd, cfg.Profile)
			if err != nil {
				result.Warnings = append(result.Warnings, "counters disabled: "+err.Error())
				counters = false
			} else {
				inv.probe = probe
			}
		}

		sample, failures, warning := h.invoke(ctx, cmd, inv, cfg, output)
		if sample != nil {
			result.Samples = append(result.Samples, *sample)
		}
		if warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}
		result.Failures = append(result.Failures, failures...)

		if len(failures) > 0 && !cfg.IgnoreFailure {
			result.Halted = true
			break
		}
	}

	return result
}

type invocation struct {
	index  int
	warmup bool
	probe  ports.CounterProbe
}

func (inv invocation) failure(kind domain.FailureKind) domain.RunFailure {
	return domain.RunFailure{Index: inv.index, Warmup: inv.warmup, Kind: kind}
}

// invoke runs one prepare → measured launch → cleanup cycle. Hooks stay outside the timed region.
func (h *Harness) invoke(
	ctx context.Context, cmd domain.Command, inv invocation, cfg domain.RunConfig, output io.Writer,
) (*domain.RunSample, []domain.RunFailure, string) {
	var failures []domain.RunFailure

	if cfg.Prepare != "" {
		if err := h.executor.Execute(ctx, domain.ShellCommand(cfg.Prepare), output, output); err != nil {
			f := inv.failure(domain.FailurePrepare)
			f.ExitCode = exitCodeOf(err)
			f.Diagnostic = err.Error()
			if inv.probe != nil {
				_, _ = inv.probe.Collect()
			}
			return nil, append(failures, f), ""
		}
	}

	launchCmd := cmd
	if inv.probe != nil {
		launchCmd = inv.probe.Command()
	}

	res, err := h.launcher.Launch(ctx, ports.LaunchRequest{
		Command:       launchCmd,
		Timeout:       cfg.Timeout,
		MeasureMemory: cfg.MeasureMemory,
	})

	var sample *domain.RunSample
	var warning string
	switch {
	case err != nil:
		f := inv.failure(domain.FailureRun)
		f.ExitCode = -1
		f.Diagnostic = err.Error()
		failures = append(failures, f)
	case res.TimedOut:
		f := inv.failure(domain.FailureTimeout)
		f.ExitCode = res.ExitCode
		f.Elapsed = res.Duration
		failures = append(failures, f)
	case res.ExitCode != 0:
		f := inv.failure(domain.FailureRun)
		f.ExitCode = res.ExitCode
		f.Elapsed = res.Duration
		f.Diagnostic = lastLine(res.Stderr)
		failures = append(failures, f)
	default:
		sample = &domain.RunSample{
			Index:      inv.index,
			Warmup:     inv.warmup,
			Duration:   res.Duration,
			ExitCode:   res.ExitCode,
			MemoryPeak: res.MemoryPeak,
		}
	}

	if inv.probe != nil {
		values, err := inv.probe.Collect()
		switch {
		case sample == nil:
		case err != nil:
			warning = "counters unavailable for invocation: " + err.Error()
		case len(values) > 0:
			sample.Counters = values
		}
	}

	if cfg.Cleanup != "" {
		if err := h.executor.Execute(ctx, domain.ShellCommand(cfg.Cleanup), output, output); err != nil {
			f := inv.failure(domain.FailureCleanup)
			f.ExitCode = exitCodeOf(err)
			f.Diagnostic = err.Error()
			failures = append(failures, f)
		}
	}

	return sample, failures, warning
}

// Profile runs one unmeasured invocation under the sampling profiler and
// writes its artifacts into the target's build directory.
func (h *Harness) Profile(ctx context.Context, artifact *domain.BuildArtifact, opts domain.ProfileOptions) ([]string, error) {
	if err := h.profiler.Probe(ctx); err != nil {
		return nil, err
	}
	outDir := filepath.Join(artifact.BuildDir, domain.ProfileDirName)
	return h.profiler.Profile(ctx, domain.Command{Name: artifact.Executable}, opts, outDir)
}

func lastLine(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// exitCodeOf extracts the exit code the executor attached to a hook failure.
func exitCodeOf(err error) int {
	var zErr *zerr.Error
	for e := err; errors.As(e, &zErr); e = zErr.Unwrap() {
		if code, ok := zErr.Metadata()["exit_code"].(int); ok {
			return code
		}
	}
	return -1
}
