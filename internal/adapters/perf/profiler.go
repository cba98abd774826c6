// Package perf implements ports.Profiler on top of Linux perf.
package perf

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go.trai.ch/oxidizer/internal/core/domain"
	"go.trai.ch/oxidizer/internal/core/ports"
	"go.trai.ch/zerr"
)

const perfBinary = "perf"

// Output files written by Profile.
const (
	RecordFile   = "perf.data"
	ReportFile   = "report.txt"
	AnnotateFile = "annotate.txt"
	FoldedFile   = "stacks.folded"
	SchedFile    = "sched.data"
	LatencyFile  = "latency.txt"
)

// runFunc runs a command to completion, writing its output to stdout and stderr.
type runFunc func(ctx context.Context, cmd domain.Command, stdout, stderr io.Writer) error

// Profiler implements ports.Profiler.
type Profiler struct {
	lookPath func(string) (string, error)
	run      runFunc
	tempDir  string
}

var _ ports.Profiler = (*Profiler)(nil)

// New creates a Profiler that invokes perf from PATH.
func New() *Profiler {
	return &Profiler{
		lookPath: exec.LookPath,
		run:      runCommand,
	}
}

// Probe verifies that perf exists and is allowed to open counters.
func (p *Profiler) Probe(ctx context.Context) error {
	if _, err := p.lookPath(perfBinary); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrUnsupportedHost, "perf not found on PATH"), "tool", perfBinary)
	}

	var stderr bytes.Buffer
	probe := domain.Command{Name: perfBinary, Args: []string{"stat", "-x", ",", "-e", "task-clock", "--", "true"}}
	if err := p.run(ctx, probe, io.Discard, &stderr); err != nil {
		err := zerr.With(zerr.Wrap(domain.ErrUnsupportedHost, "perf cannot open counters"), "tool", perfBinary)
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = zerr.With(err, "diagnostic", firstLine(msg))
		}
		return err
	}
	return nil
}

// Instrument wraps cmd in `perf stat`, writing counters to a scratch CSV file.
func (p *Profiler) Instrument(cmd domain.Command, opts domain.ProfileOptions) (ports.CounterProbe, error) {
	f, err := os.CreateTemp(p.tempDir, "oxidizer-perf-*.csv")
	if err != nil {
		return nil, zerr.Wrap(err, "failed to create counter file")
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		return nil, zerr.Wrap(err, "failed to create counter file")
	}

	events := opts.CounterEvents()
	args := []string{"stat", "-x", ",", "-e", strings.Join(events, ","), "-o", path, "--", cmd.Name}
	args = append(args, cmd.Args...)

	return &counterProbe{
		cmd:    domain.Command{Name: perfBinary, Args: args, Dir: cmd.Dir, Env: cmd.Env},
		path:   path,
		events: events,
	}, nil
}

// Profile runs cmd once under perf record (and perf sched when latency
// analysis is requested) and post-processes the recordings into outDir.
func (p *Profiler) Profile(
	ctx context.Context, cmd domain.Command, opts domain.ProfileOptions, outDir string,
) ([]string, error) {
	if err := os.MkdirAll(outDir, domain.DirPerm); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to create profile directory"), "path", outDir)
	}

	var written []string

	if opts.Flamegraph || opts.CallGraph || opts.AnnotateSource {
		files, err := p.record(ctx, cmd, opts, outDir)
		written = append(written, files...)
		if err != nil {
			return written, err
		}
	}

	if opts.AnalyzeLatency {
		files, err := p.schedLatency(ctx, cmd, outDir)
		written = append(written, files...)
		if err != nil {
			return written, err
		}
	}

	return written, nil
}

func (p *Profiler) record(
	ctx context.Context, cmd domain.Command, opts domain.ProfileOptions, outDir string,
) ([]string, error) {
	data := filepath.Join(outDir, RecordFile)

	freq := opts.SamplingFrequency
	if freq <= 0 {
		freq = domain.DefaultSamplingFrequency
	}
	args := []string{"record", "-F", strconv.Itoa(freq), "-o", data}
	if opts.CallGraph || opts.Flamegraph {
		args = append(args, "-g")
	}
	if opts.SystemWide {
		args = append(args, "-a")
	}
	args = append(args, opts.RecordOptions...)
	args = append(args, "--", cmd.Name)
	args = append(args, cmd.Args...)

	if err := p.runChecked(ctx, domain.Command{Name: perfBinary, Args: args, Dir: cmd.Dir, Env: cmd.Env}, io.Discard); err != nil {
		return nil, zerr.Wrap(err, "perf record failed")
	}
	written := []string{data}

	if opts.CallGraph {
		reportArgs := []string{"report", "-i", data, "--stdio"}
		reportArgs = append(reportArgs, opts.ReportOptions...)
		path := filepath.Join(outDir, ReportFile)
		if err := p.runToFile(ctx, domain.Command{Name: perfBinary, Args: reportArgs}, path); err != nil {
			return written, zerr.Wrap(err, "perf report failed")
		}
		written = append(written, path)
	}

	if opts.AnnotateSource {
		path := filepath.Join(outDir, AnnotateFile)
		if err := p.runToFile(ctx, domain.Command{Name: perfBinary, Args: []string{"annotate", "-i", data, "--stdio"}}, path); err != nil {
			return written, zerr.Wrap(err, "perf annotate failed")
		}
		written = append(written, path)
	}

	if opts.Flamegraph {
		var script bytes.Buffer
		if err := p.runChecked(ctx, domain.Command{Name: perfBinary, Args: []string{"script", "-i", data}}, &script); err != nil {
			return written, zerr.Wrap(err, "perf script failed")
		}
		path := filepath.Join(outDir, FoldedFile)
		if err := writeFolded(path, FoldStacks(&script)); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	return written, nil
}

func (p *Profiler) schedLatency(ctx context.Context, cmd domain.Command, outDir string) ([]string, error) {
	data := filepath.Join(outDir, SchedFile)

	args := []string{"sched", "record", "-o", data, "--", cmd.Name}
	args = append(args, cmd.Args...)
	if err := p.runChecked(ctx, domain.Command{Name: perfBinary, Args: args, Dir: cmd.Dir, Env: cmd.Env}, io.Discard); err != nil {
		return nil, zerr.Wrap(err, "perf sched record failed")
	}

	path := filepath.Join(outDir, LatencyFile)
	if err := p.runToFile(ctx, domain.Command{Name: perfBinary, Args: []string{"sched", "latency", "-i", data}}, path); err != nil {
		return []string{data}, zerr.Wrap(err, "perf sched latency failed")
	}
	return []string{data, path}, nil
}

// runChecked runs cmd and attaches the first line of its error output on failure.
func (p *Profiler) runChecked(ctx context.Context, cmd domain.Command, stdout io.Writer) error {
	var stderr bytes.Buffer
	if err := p.run(ctx, cmd, stdout, &stderr); err != nil {
		err = zerr.With(err, "command", cmd.String())
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = zerr.With(err, "diagnostic", firstLine(msg))
		}
		return err
	}
	return nil
}

func (p *Profiler) runToFile(ctx context.Context, cmd domain.Command, path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, domain.FilePerm) //nolint:gosec // path is inside the build directory
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create profile output"), "path", path)
	}
	runErr := p.runChecked(ctx, cmd, f)
	closeErr := f.Close()
	if runErr != nil {
		return runErr
	}
	if closeErr != nil {
		return zerr.With(zerr.Wrap(closeErr, "failed to write profile output"), "path", path)
	}
	return nil
}

func runCommand(ctx context.Context, c domain.Command, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...) //nolint:gosec // perf arguments are assembled from validated options
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range c.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
