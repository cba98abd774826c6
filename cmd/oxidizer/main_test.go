package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/oxidizer/internal/adapters/telemetry"
	"go.trai.ch/oxidizer/internal/app"
	"go.trai.ch/oxidizer/internal/core/domain"
	"go.trai.ch/oxidizer/internal/core/ports"
	"go.trai.ch/oxidizer/internal/core/ports/mocks"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

type runMocks struct {
	loader   *mocks.MockConfigLoader
	store    *mocks.MockSessionStore
	logger   *mocks.MockLogger
	factory  *mocks.MockToolchainFactory
	launcher *mocks.MockLauncher
}

func setupRun(t *testing.T) (ComponentProvider, runMocks, func(*app.App)) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := runMocks{
		loader:   mocks.NewMockConfigLoader(ctrl),
		store:    mocks.NewMockSessionStore(ctrl),
		logger:   mocks.NewMockLogger(ctrl),
		factory:  mocks.NewMockToolchainFactory(ctrl),
		launcher: mocks.NewMockLauncher(ctrl),
	}
	m.logger.EXPECT().Info(gomock.Any()).AnyTimes()

	application := app.New(
		m.loader,
		m.store,
		mocks.NewMockReportWriter(ctrl),
		m.logger,
		mocks.NewMockExecutor(ctrl),
		m.launcher,
		mocks.NewMockProfiler(ctrl),
		m.factory,
		telemetry.NewNoOpTracer(),
	)

	provider := func(_ context.Context) (*app.Components, func(), error) {
		return &app.Components{
			App:    application,
			Logger: m.logger,
		}, func() {}, nil
	}

	dir := t.TempDir()
	quiet := func(a *app.App) {
		a.WithOutput(new(bytes.Buffer), new(bytes.Buffer)).WithWorkDir(dir)
	}
	return provider, m, quiet
}

func TestRun_Version(t *testing.T) {
	provider, _, quiet := setupRun(t)

	exitCode := run(context.Background(), []string{"version", "--log-format", "pretty"}, new(bytes.Buffer), provider, quiet)
	assert.Equal(t, 0, exitCode)
}

func TestRun_ProviderError(t *testing.T) {
	stderr := new(bytes.Buffer)
	provider := func(_ context.Context) (*app.Components, func(), error) {
		return nil, nil, errors.New("graph failed")
	}

	exitCode := run(context.Background(), []string{"version"}, stderr, provider)
	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "Error: graph failed")
}

func TestRun_FatalError(t *testing.T) {
	provider, m, quiet := setupRun(t)

	m.loader.EXPECT().Load(gomock.Any()).Return(nil, zerr.Wrap(domain.ErrConfigParseFailed, "bad yaml"))
	m.logger.EXPECT().Error(gomock.Any()).Do(func(err error) {
		assert.ErrorIs(t, err, domain.ErrConfigParseFailed)
	})

	exitCode := run(context.Background(), []string{"benchmark", "fib.c:s:gcc", "-o", "quiet"}, new(bytes.Buffer), provider, quiet)
	assert.Equal(t, 1, exitCode)
}

func TestRun_PartialFailure(t *testing.T) {
	provider, m, quiet := setupRun(t)

	dir := t.TempDir()
	fib := filepath.Join(dir, "fib.c")
	if err := os.WriteFile(fib, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	m.loader.EXPECT().Load(gomock.Any()).Return(nil, zerr.Wrap(domain.ErrConfigNotFound, "none"))
	m.factory.EXPECT().New(gomock.Any(), gomock.Any(), gomock.Any()).Return(stubToolchain{}, nil)
	m.launcher.EXPECT().Launch(gomock.Any(), gomock.Any()).Return(ports.LaunchResult{Duration: time.Millisecond}, nil)
	m.store.EXPECT().Put(gomock.Any(), gomock.Any()).Return(nil)
	m.logger.EXPECT().Error(gomock.Any()).Do(func(err error) {
		assert.ErrorIs(t, err, domain.ErrPartialFailure)
	})

	args := []string{"benchmark", fib + ":s:clang", "fib.c:s:msvc", "--runs", "1", "--output", "quiet"}
	exitCode := run(context.Background(), args, new(bytes.Buffer), provider, quiet)
	assert.Equal(t, 2, exitCode)
}

func TestRun_AllTargetsFailed(t *testing.T) {
	provider, m, quiet := setupRun(t)

	m.loader.EXPECT().Load(gomock.Any()).Return(nil, zerr.Wrap(domain.ErrConfigNotFound, "none"))
	m.store.EXPECT().Put(gomock.Any(), gomock.Any()).Return(nil)
	m.logger.EXPECT().Error(gomock.Any())

	exitCode := run(context.Background(), []string{"benchmark", "fib.c:s:msvc", "-o", "quiet"}, new(bytes.Buffer), provider, quiet)
	assert.Equal(t, 1, exitCode)
}

type stubToolchain struct{}

func (stubToolchain) Tool() domain.BuildTool { return domain.ToolClang }

func (stubToolchain) Supports(domain.StepKind) bool { return true }

func (stubToolchain) ExecuteStep(context.Context, domain.CompilationStep) error { return nil }

func (stubToolchain) Build(context.Context) (*domain.BuildArtifact, error) {
	return &domain.BuildArtifact{Executable: "/bin/fib"}, nil
}
