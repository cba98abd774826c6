package app_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"iter"
	"os"
	"path/filepath"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/oxidizer/internal/adapters/detector"
	"go.trai.ch/oxidizer/internal/adapters/telemetry"
	"go.trai.ch/oxidizer/internal/app"
	"go.trai.ch/oxidizer/internal/core/domain"
	"go.trai.ch/oxidizer/internal/core/ports"
	"go.trai.ch/oxidizer/internal/core/ports/mocks"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

type appMocks struct {
	ctrl     *gomock.Controller
	loader   *mocks.MockConfigLoader
	store    *mocks.MockSessionStore
	reports  *mocks.MockReportWriter
	logger   *mocks.MockLogger
	executor *mocks.MockExecutor
	launcher *mocks.MockLauncher
	profiler *mocks.MockProfiler
	factory  *mocks.MockToolchainFactory
	stdout   *bytes.Buffer
	stderr   *bytes.Buffer
}

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func quietEnv() detector.Environment {
	return detector.Environment{
		Getenv:     func(string) string { return "" },
		IsTerminal: func(int) bool { return false },
	}
}

func setupApp(t *testing.T, dir string) (*app.App, appMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := appMocks{
		ctrl:     ctrl,
		loader:   mocks.NewMockConfigLoader(ctrl),
		store:    mocks.NewMockSessionStore(ctrl),
		reports:  mocks.NewMockReportWriter(ctrl),
		logger:   mocks.NewMockLogger(ctrl),
		executor: mocks.NewMockExecutor(ctrl),
		launcher: mocks.NewMockLauncher(ctrl),
		profiler: mocks.NewMockProfiler(ctrl),
		factory:  mocks.NewMockToolchainFactory(ctrl),
		stdout:   new(bytes.Buffer),
		stderr:   new(bytes.Buffer),
	}
	m.logger.EXPECT().Info(gomock.Any()).AnyTimes()

	a := app.New(m.loader, m.store, m.reports, m.logger, m.executor, m.launcher, m.profiler, m.factory, telemetry.NewNoOpTracer()).
		WithOutput(m.stdout, m.stderr).
		WithEnvironment(quietEnv()).
		WithWorkDir(dir).
		WithClock(func() time.Time { return fixedTime }, func() string { return "session-1" })
	return a, m
}

func (m appMocks) noConfig(dir string) {
	m.loader.EXPECT().Load(dir).Return(nil, zerr.Wrap(domain.ErrConfigNotFound, "no configuration above working directory"))
}

func (m appMocks) linking(exe string) {
	m.factory.EXPECT().New(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(domain.TargetSpec, string, io.Writer) (ports.Toolchain, error) {
			tc := mocks.NewMockToolchain(m.ctrl)
			tc.EXPECT().ExecuteStep(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
			tc.EXPECT().Build(gomock.Any()).Return(&domain.BuildArtifact{Executable: exe}, nil).AnyTimes()
			return tc, nil
		}).AnyTimes()
}

func source(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("int main(void) { return 0; }\n"), 0o600))
	return path
}

func runs(n int) func(*domain.RunConfig) {
	return func(c *domain.RunConfig) { c.Runs = n }
}

func TestApp_Benchmark_AllSucceed(t *testing.T) {
	dir := t.TempDir()
	a, m := setupApp(t, dir)
	fib := source(t, dir, "fib.c")

	m.noConfig(dir)
	m.linking("/bin/fib")
	m.launcher.EXPECT().Launch(gomock.Any(), gomock.Any()).Return(ports.LaunchResult{Duration: 10 * time.Millisecond}, nil).Times(2)

	var stored *domain.Session
	m.store.EXPECT().Put(dir, gomock.Any()).DoAndReturn(func(_ string, s *domain.Session) error {
		stored = s
		return nil
	})

	err := a.Benchmark(context.Background(), app.BenchmarkOptions{
		Targets:  []string{fib + ":s:clang"},
		Override: runs(2),
	})
	require.NoError(t, err)

	require.NotNil(t, stored)
	assert.Equal(t, "session-1", stored.ID)
	assert.Equal(t, fixedTime, stored.CreatedAt)
	assert.Equal(t, 2, stored.Config.Runs)
	require.Len(t, stored.Outcomes, 1)
	assert.True(t, stored.Outcomes[0].Succeeded())
	assert.Equal(t, 2, stored.Outcomes[0].Report.Time.Count)

	assert.Contains(t, m.stdout.String(), "fib.c:s:clang")
	assert.Contains(t, m.stdout.String(), "10.000 ± 0.000")
	assert.Empty(t, m.stderr.String(), "quiet mode renders no progress")
}

func TestApp_Benchmark_PartialFailureExports(t *testing.T) {
	dir := t.TempDir()
	a, m := setupApp(t, dir)
	fib := source(t, dir, "fib.c")

	cfg := domain.DefaultRunConfig()
	cfg.Runs = 1
	cfg.Exports = []domain.Export{{Format: domain.ExportJSON, Path: filepath.Join(dir, "out.json")}}
	m.loader.EXPECT().Load(dir).Return(&domain.Project{
		Root:    dir,
		Config:  cfg,
		Targets: []string{fib + ":s:gcc", filepath.Join(dir, "missing.c") + ":s:gcc"},
	}, nil)
	m.linking("/bin/fib")
	m.launcher.EXPECT().Launch(gomock.Any(), gomock.Any()).Return(ports.LaunchResult{Duration: time.Millisecond}, nil)
	m.store.EXPECT().Put(dir, gomock.Any()).Return(nil)
	m.reports.EXPECT().Write(gomock.Any(), cfg.Exports).DoAndReturn(func(s *domain.Session, _ []domain.Export) error {
		assert.Equal(t, 1, s.Failed())
		return nil
	})

	err := a.Benchmark(context.Background(), app.BenchmarkOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPartialFailure)
	assert.NotErrorIs(t, err, domain.ErrAllTargetsFailed)
	assert.Contains(t, m.stdout.String(), "build_failure during build")
}

func TestApp_Benchmark_AllTargetsFailed(t *testing.T) {
	dir := t.TempDir()
	a, m := setupApp(t, dir)

	m.noConfig(dir)
	m.store.EXPECT().Put(dir, gomock.Any()).Return(nil)

	err := a.Benchmark(context.Background(), app.BenchmarkOptions{Targets: []string{"fib.c:x:gcc"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAllTargetsFailed)
}

func TestApp_Benchmark_NoTargets(t *testing.T) {
	dir := t.TempDir()
	a, m := setupApp(t, dir)
	m.noConfig(dir)

	err := a.Benchmark(context.Background(), app.BenchmarkOptions{})
	assert.ErrorIs(t, err, domain.ErrNoTargets)
}

func TestApp_Benchmark_ConfigErrorIsFatal(t *testing.T) {
	dir := t.TempDir()
	a, m := setupApp(t, dir)
	m.loader.EXPECT().Load(dir).Return(nil, zerr.Wrap(domain.ErrConfigParseFailed, "bad yaml"))

	err := a.Benchmark(context.Background(), app.BenchmarkOptions{Targets: []string{"fib.c:s:gcc"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfigParseFailed)
}

func TestApp_Benchmark_InvalidOverrideIsFatal(t *testing.T) {
	dir := t.TempDir()
	a, m := setupApp(t, dir)
	m.noConfig(dir)

	err := a.Benchmark(context.Background(), app.BenchmarkOptions{
		Targets:  []string{"fib.c:s:gcc"},
		Override: runs(0),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestApp_Benchmark_StoreFailureIsWarning(t *testing.T) {
	dir := t.TempDir()
	a, m := setupApp(t, dir)
	fib := source(t, dir, "fib.c")

	m.noConfig(dir)
	m.linking("/bin/fib")
	m.launcher.EXPECT().Launch(gomock.Any(), gomock.Any()).Return(ports.LaunchResult{Duration: time.Millisecond}, nil)
	m.store.EXPECT().Put(dir, gomock.Any()).Return(zerr.Wrap(domain.ErrStoreWriteFailed, "disk full"))
	m.logger.EXPECT().Warn(gomock.Any()).Do(func(msg string) {
		assert.Contains(t, msg, "session not recorded")
	})

	err := a.Benchmark(context.Background(), app.BenchmarkOptions{Targets: []string{fib + ":s:clang"}, Override: runs(1)})
	require.NoError(t, err)
}

func TestApp_Benchmark_LinearProgress(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	dir := t.TempDir()
	a, m := setupApp(t, dir)
	fib := source(t, dir, "fib.c")

	m.noConfig(dir)
	m.linking("/bin/fib")
	m.launcher.EXPECT().Launch(gomock.Any(), gomock.Any()).Return(ports.LaunchResult{Duration: time.Millisecond}, nil)
	m.store.EXPECT().Put(dir, gomock.Any()).Return(nil)

	err := a.Benchmark(context.Background(), app.BenchmarkOptions{
		Targets:    []string{fib + ":s:clang"},
		Override:   runs(1),
		OutputMode: "linear",
	})
	require.NoError(t, err)

	progress := m.stderr.String()
	assert.Contains(t, progress, "Benchmarking")
	assert.Contains(t, progress, "build fib")
	assert.Contains(t, progress, "run fib")
}

func storedSession() *domain.Session {
	spec := func(d string) domain.TargetSpec {
		s, err := domain.ParseTarget(d)
		if err != nil {
			panic(err)
		}
		return s
	}
	run := func(ms ...int) domain.RunResult {
		var r domain.RunResult
		for i, v := range ms {
			r.Samples = append(r.Samples, domain.RunSample{Index: i, Duration: time.Duration(v) * time.Millisecond})
		}
		return r
	}
	outcome := func(i int, d string, r domain.RunResult) domain.Outcome {
		return domain.Outcome{
			Index:  i,
			Target: d,
			Status: domain.OutcomeSucceeded,
			// Stale aggregate; analysis rebuilds it from the samples.
			Report: &domain.BenchmarkReport{Index: i, Target: d, Spec: spec(d), Run: r, Time: &domain.Summary{Mean: 99}},
		}
	}

	cfg := domain.DefaultRunConfig()
	return &domain.Session{
		ID:        "previous",
		CreatedAt: fixedTime,
		Config:    cfg,
		Outcomes: []domain.Outcome{
			outcome(0, "a.c:s:clang", run(10, 10)),
			outcome(1, "b.c:s:gcc", run(20, 20)),
		},
	}
}

func TestApp_Analyze_LatestWithBaseline(t *testing.T) {
	dir := t.TempDir()
	a, m := setupApp(t, dir)

	m.loader.EXPECT().DiscoverRoot(dir).Return("", zerr.Wrap(domain.ErrConfigNotFound, "none"))
	m.store.EXPECT().Latest(dir).Return(storedSession(), nil)

	err := a.Analyze(context.Background(), app.AnalyzeOptions{
		Override: func(c *domain.RunConfig) { c.Baseline = "2" },
	})
	require.NoError(t, err)

	out := m.stdout.String()
	assert.Contains(t, out, "10.000 ± 0.000")
	assert.Contains(t, out, "0.50 ± 0.00")
	assert.Contains(t, out, "1.00 (baseline)")
}

func TestApp_Analyze_ByRefExports(t *testing.T) {
	dir := t.TempDir()
	a, m := setupApp(t, dir)

	exports := []domain.Export{{Format: domain.ExportMarkdown, Path: "out.md"}}
	m.loader.EXPECT().DiscoverRoot(dir).Return(dir, nil)
	m.store.EXPECT().Get(dir, "previous").Return(storedSession(), nil)
	m.reports.EXPECT().Write(gomock.Any(), exports).Return(zerr.Wrap(domain.ErrExportFailed, "read-only"))

	err := a.Analyze(context.Background(), app.AnalyzeOptions{
		Ref:      "previous",
		Override: func(c *domain.RunConfig) { c.Exports = exports },
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExportFailed)
}

func TestApp_Analyze_SessionNotFound(t *testing.T) {
	dir := t.TempDir()
	a, m := setupApp(t, dir)

	m.loader.EXPECT().DiscoverRoot(dir).Return(dir, nil)
	m.store.EXPECT().Latest(dir).Return(nil, zerr.Wrap(domain.ErrSessionNotFound, "history is empty"))

	err := a.Analyze(context.Background(), app.AnalyzeOptions{})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestReanalyze(t *testing.T) {
	t.Run("rebuilds reports from samples", func(t *testing.T) {
		session := storedSession()
		cfg := session.Config
		cfg.Relative = true

		rebuilt, err := app.Reanalyze(session, cfg)
		require.NoError(t, err)

		first := rebuilt.Outcomes[0].Report
		assert.InDelta(t, 0.010, first.Time.Mean, 1e-12)
		assert.True(t, first.Comparison.IsBaseline)
		assert.InDelta(t, 2.0, *rebuilt.Outcomes[1].Report.Comparison.Ratio, 1e-9)
		assert.InDelta(t, 99, session.Outcomes[0].Report.Time.Mean, 0, "input is not mutated")
	})

	t.Run("unknown baseline", func(t *testing.T) {
		session := storedSession()
		cfg := session.Config
		cfg.Baseline = "c.c"

		_, err := app.Reanalyze(session, cfg)
		assert.ErrorIs(t, err, domain.ErrBaselineNotFound)
	})
}

type jsonLogger struct {
	*mocks.MockLogger
	json *bool
}

func (l jsonLogger) SetJSON(v bool) { *l.json = v }

func TestApp_SetLogFormat(t *testing.T) {
	ctrl := gomock.NewController(t)
	var enabled bool
	log := jsonLogger{MockLogger: mocks.NewMockLogger(ctrl), json: &enabled}

	a := app.New(nil, nil, nil, log, nil, nil, nil, nil, nil).WithEnvironment(quietEnv())

	a.SetLogFormat("auto")
	assert.True(t, enabled, "non-interactive output defaults to JSON")

	a.SetLogFormat("pretty")
	assert.False(t, enabled)
}

func TestApp_Watch_Unavailable(t *testing.T) {
	dir := t.TempDir()
	a, m := setupApp(t, dir)
	m.noConfig(dir)

	err := a.Benchmark(context.Background(), app.BenchmarkOptions{Targets: []string{"fib.c:s:gcc"}, Watch: true})
	assert.ErrorIs(t, err, domain.ErrUnsupportedOperation)
}

func TestApp_Watch_RerunsOnChange(t *testing.T) {
	dir := t.TempDir()
	fib := source(t, dir, "fib.c")

	synctest.Test(t, func(t *testing.T) {
		a, m := setupApp(t, dir)
		w := mocks.NewMockWatcher(m.ctrl)
		a.WithWatcher(w)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		m.noConfig(dir)
		m.linking("/bin/fib")
		m.launcher.EXPECT().Launch(gomock.Any(), gomock.Any()).Return(ports.LaunchResult{Duration: time.Millisecond}, nil).Times(2)

		w.EXPECT().Start(gomock.Any(), []string{fib}).Return(nil)
		w.EXPECT().Events().Return(iter.Seq[ports.WatchEvent](func(yield func(ports.WatchEvent) bool) {
			yield(ports.WatchEvent{Path: fib, Operation: ports.OpWrite})
		}))
		w.EXPECT().Stop().Return(nil)

		sessions := 0
		m.store.EXPECT().Put(dir, gomock.Any()).DoAndReturn(func(string, *domain.Session) error {
			sessions++
			if sessions == 2 {
				cancel()
			}
			return nil
		}).Times(2)

		err := a.Benchmark(ctx, app.BenchmarkOptions{Targets: []string{fib + ":s:clang"}, Override: runs(1), Watch: true})
		require.NoError(t, err)
		assert.Equal(t, 2, sessions)
	})
}

func TestApp_Watch_FailedSessionKeepsWatching(t *testing.T) {
	dir := t.TempDir()
	fib := source(t, dir, "fib.c")

	synctest.Test(t, func(t *testing.T) {
		a, m := setupApp(t, dir)
		w := mocks.NewMockWatcher(m.ctrl)
		a.WithWatcher(w)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		m.noConfig(dir)
		m.factory.EXPECT().New(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("toolchain missing"))
		gomock.InOrder(
			w.EXPECT().Start(gomock.Any(), gomock.Any()).Return(nil),
			w.EXPECT().Events().Return(iter.Seq[ports.WatchEvent](func(func(ports.WatchEvent) bool) {})),
			w.EXPECT().Stop().Return(nil),
		)
		m.store.EXPECT().Put(dir, gomock.Any()).Return(nil)
		m.logger.EXPECT().Error(gomock.Any()).Do(func(err error) {
			assert.ErrorIs(t, err, domain.ErrAllTargetsFailed)
			cancel()
		})

		err := a.Benchmark(ctx, app.BenchmarkOptions{Targets: []string{fib + ":s:clang"}, Override: runs(1), Watch: true})
		require.NoError(t, err)
	})
}
