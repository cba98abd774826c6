package toolchain

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"go.trai.ch/oxidizer/internal/core/domain"
	"go.trai.ch/zerr"
)

// Compiler drives a direct compiler (clang or gcc). Every step contributes
// arguments, in order, to a single invocation run by Build.
type Compiler struct {
	base
	args   []string
	source string
	out    string
}

func newCompiler(b base) *Compiler {
	c := &Compiler{base: b}
	c.honor(
		domain.StepCompile,
		domain.StepOutput,
		domain.StepOptimize,
		domain.StepEmitIR,
		domain.StepShared,
		domain.StepFlag,
	)
	return c
}

// ExecuteStep records the step's arguments.
func (c *Compiler) ExecuteStep(_ context.Context, step domain.CompilationStep) error {
	if !c.Supports(step.Kind) {
		return c.unsupported(step)
	}

	switch step.Kind {
	case domain.StepCompile:
		src, err := filepath.Abs(step.Path)
		if err != nil {
			return zerr.With(zerr.Wrap(err, "failed to resolve source path"), "path", step.Path)
		}
		if _, err := os.Stat(src); err != nil {
			return zerr.With(zerr.Wrap(domain.ErrBuildFailure, "source file not found"), "path", step.Path)
		}
		c.source = src
		c.args = append(c.args, src)
	case domain.StepOutput:
		c.out = step.Path
		c.args = append(c.args, "-o", step.Path)
	case domain.StepOptimize:
		c.flag("-O" + strconv.Itoa(step.Level))
	case domain.StepEmitIR:
		c.flag("-save-temps=obj")
	case domain.StepShared:
		c.flag("-shared", "-fPIC")
	case domain.StepFlag:
		c.flag(step.Arg)
	}
	return nil
}

func (c *Compiler) flag(args ...string) {
	c.args = append(c.args, args...)
	c.applied = append(c.applied, args...)
}

// Build runs the composed compiler invocation.
func (c *Compiler) Build(ctx context.Context) (*domain.BuildArtifact, error) {
	if c.source == "" {
		return nil, zerr.With(zerr.Wrap(domain.ErrBuildFailure, "no source file to compile"), "tool", c.tool.String())
	}
	if c.out == "" {
		c.out = filepath.Join(c.buildDir, c.target.Slug())
		c.args = append(c.args, "-o", c.out)
	}
	if err := os.MkdirAll(c.buildDir, domain.DirPerm); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to create build directory"), "path", c.buildDir)
	}

	cmd := domain.Command{Name: c.tool.String(), Args: c.args, Dir: c.buildDir}
	if err := c.run(ctx, cmd, "compile"); err != nil {
		return nil, err
	}

	if _, err := os.Stat(c.out); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrExecutableNotFound, "compiler produced no output"), "path", c.out)
	}
	return c.artifact(c.out), nil
}
