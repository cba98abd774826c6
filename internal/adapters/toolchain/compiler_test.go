package toolchain_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/oxidizer/internal/adapters/toolchain"
	"go.trai.ch/oxidizer/internal/core/domain"
	"go.trai.ch/oxidizer/internal/core/ports/mocks"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

func TestCompiler_Build_ComposesOneInvocation(t *testing.T) {
	ctrl := gomock.NewController(t)
	exec := mocks.NewMockExecutor(ctrl)

	src := filepath.Join(t.TempDir(), "fib.c")
	writeFile(t, src, "int main(void){return 0;}", 0o644)
	buildDir := t.TempDir()
	out := filepath.Join(buildDir, "fib")

	exec.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cmd domain.Command, _, _ io.Writer) error {
			assert.Equal(t, "clang", cmd.Name)
			assert.Equal(t, buildDir, cmd.Dir)
			assert.Equal(t, []string{src, "-O2", "-march=native", "-o", out}, cmd.Args)
			return os.WriteFile(out, []byte{}, 0o755) //nolint:gosec // fake executable
		})

	f := toolchain.NewFactory(exec)
	tc, err := f.New(domain.TargetSpec{Path: src, Tool: domain.ToolClang}, buildDir, io.Discard)
	require.NoError(t, err)

	ctx := context.Background()
	for _, step := range []domain.CompilationStep{
		domain.CompileStep(src),
		domain.OptimizeStep(2),
		domain.FlagStep("-march=native"),
		domain.OutputStep(out),
	} {
		require.NoError(t, tc.ExecuteStep(ctx, step))
	}

	artifact, err := tc.Build(ctx)
	require.NoError(t, err)
	assert.Equal(t, out, artifact.Executable)
	assert.Equal(t, domain.ToolClang, artifact.Tool)
	assert.Equal(t, buildDir, artifact.BuildDir)
	assert.Equal(t, []string{"-O2", "-march=native"}, artifact.AppliedFlags)
}

func TestCompiler_Build_DefaultOutputAndExtras(t *testing.T) {
	ctrl := gomock.NewController(t)
	exec := mocks.NewMockExecutor(ctrl)

	src := filepath.Join(t.TempDir(), "sum.c")
	writeFile(t, src, "", 0o644)
	buildDir := filepath.Join(t.TempDir(), "nested")
	out := filepath.Join(buildDir, "sum")

	exec.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cmd domain.Command, _, _ io.Writer) error {
			assert.Equal(t, "gcc", cmd.Name)
			assert.Equal(t, []string{src, "-save-temps=obj", "-shared", "-fPIC", "-o", out}, cmd.Args)
			return os.WriteFile(out, []byte{}, 0o755) //nolint:gosec // fake executable
		})

	tc, err := toolchain.NewFactory(exec).New(domain.TargetSpec{Path: src, Tool: domain.ToolGcc}, buildDir, nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, tc.ExecuteStep(ctx, domain.CompileStep(src)))
	require.NoError(t, tc.ExecuteStep(ctx, domain.EmitIRStep()))
	require.NoError(t, tc.ExecuteStep(ctx, domain.SharedStep()))

	artifact, err := tc.Build(ctx)
	require.NoError(t, err)
	assert.Equal(t, out, artifact.Executable)
}

func TestCompiler_Build_DiagnosticPayload(t *testing.T) {
	ctrl := gomock.NewController(t)
	exec := mocks.NewMockExecutor(ctrl)

	src := filepath.Join(t.TempDir(), "bad.c")
	writeFile(t, src, "int main(", 0o644)

	exec.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ domain.Command, stdout, _ io.Writer) error {
			_, _ = io.WriteString(stdout, "bad.c:1:10: error: expected parameter declarator\r\n1 error generated.\r\n")
			return exitErr(1)
		})

	tc, err := toolchain.NewFactory(exec).New(domain.TargetSpec{Path: src, Tool: domain.ToolClang}, t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, tc.ExecuteStep(context.Background(), domain.CompileStep(src)))

	_, err = tc.Build(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBuildFailure)

	var zErr *zerr.Error
	require.ErrorAs(t, err, &zErr)
	assert.Equal(t, 1, zErr.Metadata()["exit_code"])
	assert.Equal(t, "bad.c:1:10: error: expected parameter declarator\n1 error generated.", zErr.Metadata()["diagnostic"])
}

func TestCompiler_MissingSource(t *testing.T) {
	ctrl := gomock.NewController(t)
	tc, err := toolchain.NewFactory(mocks.NewMockExecutor(ctrl)).
		New(domain.TargetSpec{Path: "missing.c", Tool: domain.ToolClang}, t.TempDir(), nil)
	require.NoError(t, err)

	err = tc.ExecuteStep(context.Background(), domain.CompileStep(filepath.Join(t.TempDir(), "missing.c")))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBuildFailure)
}

func TestCompiler_Build_WithoutSource(t *testing.T) {
	ctrl := gomock.NewController(t)
	tc, err := toolchain.NewFactory(mocks.NewMockExecutor(ctrl)).
		New(domain.TargetSpec{Path: "x.c", Tool: domain.ToolClang}, t.TempDir(), nil)
	require.NoError(t, err)

	_, err = tc.Build(context.Background())
	assert.ErrorIs(t, err, domain.ErrBuildFailure)
}

func TestCompiler_RejectsConfigure(t *testing.T) {
	ctrl := gomock.NewController(t)
	tc, err := toolchain.NewFactory(mocks.NewMockExecutor(ctrl)).
		New(domain.TargetSpec{Path: "x.c", Tool: domain.ToolGcc}, t.TempDir(), nil)
	require.NoError(t, err)

	err = tc.ExecuteStep(context.Background(), domain.ConfigureStep("CMAKE_BUILD_TYPE", "Release"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedOperation)
}
