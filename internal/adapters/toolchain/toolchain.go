// Package toolchain implements the build tool adapters behind ports.Toolchain.
package toolchain

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"go.trai.ch/oxidizer/internal/core/domain"
	"go.trai.ch/oxidizer/internal/core/ports"
	"go.trai.ch/zerr"
)

// diagnosticLines is the number of trailing output lines attached to a build failure.
const diagnosticLines = 20

// Factory implements ports.ToolchainFactory.
type Factory struct {
	executor ports.Executor
}

var _ ports.ToolchainFactory = (*Factory)(nil)

// NewFactory creates a Factory whose adapters run tools through executor.
func NewFactory(executor ports.Executor) *Factory {
	return &Factory{executor: executor}
}

// New returns the adapter for the target's build tool.
func (f *Factory) New(target domain.TargetSpec, buildDir string, output io.Writer) (ports.Toolchain, error) {
	if output == nil {
		output = io.Discard
	}
	b := base{
		tool:     target.Tool,
		target:   target,
		buildDir: buildDir,
		executor: f.executor,
		output:   output,
	}

	switch target.Tool {
	case domain.ToolClang, domain.ToolGcc:
		return newCompiler(b), nil
	case domain.ToolCargo:
		return newCargo(b), nil
	case domain.ToolCMake:
		return newCMake(b), nil
	default:
		return nil, zerr.With(zerr.Wrap(domain.ErrUnsupportedOperation, "no adapter for build tool"), "tool", target.Tool.String())
	}
}

// base holds what every adapter shares.
type base struct {
	tool     domain.BuildTool
	target   domain.TargetSpec
	buildDir string
	executor ports.Executor
	output   io.Writer
	steps    map[domain.StepKind]struct{}
	applied  []string
}

func (b *base) honor(kinds ...domain.StepKind) {
	b.steps = make(map[domain.StepKind]struct{}, len(kinds))
	for _, k := range kinds {
		b.steps[k] = struct{}{}
	}
}

// Tool returns the build tool the adapter drives.
func (b *base) Tool() domain.BuildTool {
	return b.tool
}

// Supports reports whether the adapter honors the step kind.
func (b *base) Supports(kind domain.StepKind) bool {
	_, ok := b.steps[kind]
	return ok
}

func (b *base) unsupported(step domain.CompilationStep) error {
	return zerr.With(
		zerr.With(zerr.Wrap(domain.ErrUnsupportedOperation, "step not supported by adapter"), "tool", b.tool.String()),
		"step", step.String(),
	)
}

func (b *base) artifact(executable string) *domain.BuildArtifact {
	return &domain.BuildArtifact{
		Executable:   executable,
		BuildDir:     b.buildDir,
		Tool:         b.tool,
		AppliedFlags: b.applied,
	}
}

// run executes one tool invocation, streaming its output and keeping a tail
// of it as the diagnostic of a failure.
func (b *base) run(ctx context.Context, cmd domain.Command, phase string) error {
	var captured bytes.Buffer
	w := io.MultiWriter(b.output, &captured)
	if err := b.executor.Execute(ctx, cmd, w, w); err != nil {
		return b.failure(phase, cmd, err, captured.String())
	}
	return nil
}

// capture executes one tool invocation and returns its output instead of streaming it.
func (b *base) capture(ctx context.Context, cmd domain.Command, phase string) ([]byte, error) {
	var captured bytes.Buffer
	if err := b.executor.Execute(ctx, cmd, &captured, &captured); err != nil {
		return nil, b.failure(phase, cmd, err, captured.String())
	}
	return captured.Bytes(), nil
}

func (b *base) failure(phase string, cmd domain.Command, cause error, output string) error {
	err := zerr.With(zerr.Wrap(domain.ErrBuildFailure, b.tool.String()+" "+phase+" failed"), "command", cmd.String())
	if code, ok := exitCode(cause); ok {
		err = zerr.With(err, "exit_code", code)
	}
	if diag := tail(output, diagnosticLines); diag != "" {
		err = zerr.With(err, "diagnostic", diag)
	}
	return err
}

// exitCode extracts the exit code the executor attached to its error.
func exitCode(err error) (int, bool) {
	var zErr *zerr.Error
	for e := err; errors.As(e, &zErr); e = zErr.Unwrap() {
		if code, ok := zErr.Metadata()["exit_code"].(int); ok {
			return code, true
		}
	}
	return 0, false
}

// tail returns the last n non-empty lines of output, with PTY line endings normalized.
func tail(output string, n int) string {
	output = strings.ReplaceAll(output, "\r\n", "\n")
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
