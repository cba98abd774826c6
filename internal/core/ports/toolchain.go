package ports

import (
	"context"
	"io"

	"go.trai.ch/oxidizer/internal/core/domain"
)

// Toolchain is the uniform action interface over one build tool.
// A Toolchain instance is bound to a single target and build directory.
//
//go:generate mockgen -source=toolchain.go -destination=mocks/mock_toolchain.go -package=mocks
type Toolchain interface {
	// Tool returns the build tool this adapter drives.
	Tool() domain.BuildTool

	// Supports reports whether the adapter honors the step kind.
	Supports(kind domain.StepKind) bool

	// ExecuteStep applies one recipe step. Steps that only configure the
	// invocation are recorded; steps with side effects run the tool.
	// Unsupported steps fail with domain.ErrUnsupportedOperation.
	ExecuteStep(ctx context.Context, step domain.CompilationStep) error

	// Build runs whatever remains of the tool's command sequence and locates the artifact.
	Build(ctx context.Context) (*domain.BuildArtifact, error)
}

// ToolchainFactory selects and constructs the adapter for a target.
type ToolchainFactory interface {
	// New returns a fresh adapter for the target, building into buildDir.
	// Tool output is streamed to output.
	New(target domain.TargetSpec, buildDir string, output io.Writer) (Toolchain, error)
}
