// Package pipeline turns a target into a runnable artifact through its toolchain adapter.
package pipeline

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.trai.ch/oxidizer/internal/core/domain"
	"go.trai.ch/oxidizer/internal/core/ports"
	"go.trai.ch/zerr"
)

// manifests maps project-based tools to the file that defines a workspace.
var manifests = map[domain.BuildTool]string{
	domain.ToolCargo: "Cargo.toml",
	domain.ToolCMake: "CMakeLists.txt",
}

// Pipeline sequences the build of one target at a time. It holds no per-target state.
type Pipeline struct {
	factory ports.ToolchainFactory
}

// New creates a Pipeline selecting adapters through factory.
func New(factory ports.ToolchainFactory) *Pipeline {
	return &Pipeline{factory: factory}
}

// Build resolves the adapter, translates the target into a recipe and runs it
// step by step, stopping at the first failure. Tool output is streamed to output.
// The returned result always ends in StateLinked or StateFailed.
func (p *Pipeline) Build(ctx context.Context, spec domain.TargetSpec, buildDir string, output io.Writer) *domain.BuildResult {
	start := time.Now()
	result := &domain.BuildResult{}
	result.Enter(domain.StateResolved)

	fail := func(step *domain.CompilationStep, err error) *domain.BuildResult {
		result.FailedStep = step
		result.Err = err
		result.Enter(domain.StateFailed)
		return result
	}

	if !spec.Tool.Supports(spec.Kind) {
		return fail(nil, zerr.With(
			zerr.With(zerr.Wrap(domain.ErrUnsupportedOperation, "build tool cannot target project kind"), "tool", spec.Tool.String()),
			"kind", spec.Kind.String(),
		))
	}

	tc, err := p.factory.New(spec, buildDir, output)
	if err != nil {
		return fail(nil, err)
	}

	recipe, err := Translate(spec, buildDir)
	if err != nil {
		return fail(nil, err)
	}
	result.Recipe = recipe

	result.Enter(domain.StateConfiguring)

	if _, err := os.Stat(spec.Path); err != nil {
		return fail(nil, zerr.With(zerr.Wrap(domain.ErrBuildFailure, "target path does not exist"), "path", spec.Path))
	}
	if spec.Kind == domain.KindWorkspace {
		if err := discoverManifest(spec); err != nil {
			return fail(nil, err)
		}
	}

	for i := range recipe.Steps {
		step := recipe.Steps[i]
		if compiles(step.Kind) {
			result.Enter(domain.StateCompiling)
		}
		if err := tc.ExecuteStep(ctx, step); err != nil {
			return fail(&step, err)
		}
	}

	result.Enter(domain.StateCompiling)
	artifact, err := tc.Build(ctx)
	if err != nil {
		return fail(nil, err)
	}

	artifact.Duration = time.Since(start)
	result.Artifact = artifact
	result.Enter(domain.StateLinked)
	return result
}

// compiles reports whether a step runs the tool rather than configuring its invocation.
func compiles(kind domain.StepKind) bool {
	return kind == domain.StepBuild || kind == domain.StepInstall
}

// discoverManifest fails unless the workspace directory holds the tool's manifest.
func discoverManifest(spec domain.TargetSpec) error {
	name, ok := manifests[spec.Tool]
	if !ok {
		return nil
	}

	dir := spec.Path
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
		return zerr.With(
			zerr.With(zerr.Wrap(domain.ErrManifestNotFound, name+" not found in workspace"), "path", dir),
			"manifest", name,
		)
	}
	return nil
}
