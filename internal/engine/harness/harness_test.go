package harness_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/oxidizer/internal/core/domain"
	"go.trai.ch/oxidizer/internal/core/ports"
	"go.trai.ch/oxidizer/internal/core/ports/mocks"
	"go.trai.ch/oxidizer/internal/engine/harness"
	"go.trai.ch/oxidizer/internal/engine/stats"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

var artifact = &domain.BuildArtifact{Executable: "/build/fib", BuildDir: "/build"}

type fixture struct {
	launcher *mocks.MockLauncher
	executor *mocks.MockExecutor
	profiler *mocks.MockProfiler
	harness  *harness.Harness
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &fixture{
		launcher: mocks.NewMockLauncher(ctrl),
		executor: mocks.NewMockExecutor(ctrl),
		profiler: mocks.NewMockProfiler(ctrl),
	}
	f.harness = harness.New(f.launcher, f.executor, f.profiler)
	return f
}

func config(runs, warmup int) domain.RunConfig {
	cfg := domain.DefaultRunConfig()
	cfg.Runs = runs
	cfg.Warmup = warmup
	return cfg
}

// scripted returns a Launch implementation that replays results by invocation.
func scripted(results map[int]ports.LaunchResult) func(context.Context, ports.LaunchRequest) (ports.LaunchResult, error) {
	i := 0
	return func(context.Context, ports.LaunchRequest) (ports.LaunchResult, error) {
		defer func() { i++ }()
		if r, ok := results[i]; ok {
			return r, nil
		}
		return ports.LaunchResult{Duration: time.Duration(i+1) * time.Millisecond}, nil
	}
}

func TestHarness_Run_ExactSampleCount(t *testing.T) {
	f := newFixture(t)
	f.launcher.EXPECT().Launch(gomock.Any(), gomock.Any()).DoAndReturn(scripted(nil)).Times(7)

	result := f.harness.Run(context.Background(), artifact, config(5, 2), io.Discard)

	require.Len(t, result.Samples, 7)
	assert.False(t, result.Halted)
	assert.Empty(t, result.Failures)
	for i, s := range result.Samples {
		assert.Equal(t, i, s.Index, "samples are recorded in invocation order")
		assert.Equal(t, i < 2, s.Warmup, "warmup samples come first")
	}

	measured := result.Measured()
	require.Len(t, measured, 5)

	report := stats.Report(0, domain.TargetSpec{Path: "fib.c"}, artifact, result)
	assert.InDelta(t, (0.003+0.004+0.005+0.006+0.007)/5, report.Time.Mean, 1e-12)
}

func TestHarness_Run_LaunchRequest(t *testing.T) {
	f := newFixture(t)
	cfg := config(1, 0)
	cfg.Timeout = 2 * time.Second
	cfg.MeasureMemory = true

	peak := uint64(4096)
	f.launcher.EXPECT().Launch(gomock.Any(), ports.LaunchRequest{
		Command:       domain.Command{Name: "/build/fib"},
		Timeout:       2 * time.Second,
		MeasureMemory: true,
	}).Return(ports.LaunchResult{Duration: time.Millisecond, MemoryPeak: &peak}, nil)

	result := f.harness.Run(context.Background(), artifact, cfg, io.Discard)
	require.Len(t, result.Samples, 1)
	assert.Equal(t, &peak, result.Samples[0].MemoryPeak)
}

func TestHarness_Run_TimeoutYieldsOneFailureAndNoSample(t *testing.T) {
	f := newFixture(t)
	cfg := config(4, 0)
	cfg.Timeout = 10 * time.Millisecond
	cfg.IgnoreFailure = true

	f.launcher.EXPECT().Launch(gomock.Any(), gomock.Any()).
		DoAndReturn(scripted(map[int]ports.LaunchResult{
			2: {Duration: 10 * time.Millisecond, TimedOut: true, ExitCode: -1},
		})).Times(4)

	result := f.harness.Run(context.Background(), artifact, cfg, io.Discard)

	require.Len(t, result.Failures, 1)
	assert.Equal(t, domain.FailureTimeout, result.Failures[0].Kind)
	assert.Equal(t, 2, result.Failures[0].Index)
	assert.ErrorIs(t, result.Failures[0].Err(), domain.ErrTimeout)

	require.Len(t, result.Samples, 3)
	for _, s := range result.Samples {
		assert.NotEqual(t, 2, s.Index)
		assert.Positive(t, s.Duration)
	}
	assert.False(t, result.Halted)
}

func TestHarness_Run_FirstFailureHalts(t *testing.T) {
	f := newFixture(t)
	cfg := config(5, 1)

	f.launcher.EXPECT().Launch(gomock.Any(), gomock.Any()).
		DoAndReturn(scripted(map[int]ports.LaunchResult{
			3: {Duration: time.Millisecond, ExitCode: 139, Stderr: "starting\nSegmentation fault\n"},
		})).Times(4)

	result := f.harness.Run(context.Background(), artifact, cfg, io.Discard)

	assert.True(t, result.Halted)
	assert.Len(t, result.Samples, 3)
	assert.Len(t, result.Measured(), 2)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, 139, result.Failures[0].ExitCode)
	assert.Equal(t, "Segmentation fault", result.Failures[0].Diagnostic)

	cause := result.Cause()
	require.Error(t, cause)
	assert.ErrorIs(t, cause, domain.ErrRunFailure)
}

func TestHarness_Run_WarmupFailureHalts(t *testing.T) {
	f := newFixture(t)

	f.launcher.EXPECT().Launch(gomock.Any(), gomock.Any()).
		Return(ports.LaunchResult{ExitCode: 1}, nil).Times(1)

	result := f.harness.Run(context.Background(), artifact, config(3, 2), io.Discard)

	assert.True(t, result.Halted)
	assert.Empty(t, result.Samples)
	require.Len(t, result.Failures, 1)
	assert.True(t, result.Failures[0].Warmup)
}

func TestHarness_Run_IgnoreFailureContinues(t *testing.T) {
	f := newFixture(t)
	cfg := config(3, 1)
	cfg.IgnoreFailure = true

	f.launcher.EXPECT().Launch(gomock.Any(), gomock.Any()).
		Return(ports.LaunchResult{ExitCode: 2}, nil).Times(4)

	result := f.harness.Run(context.Background(), artifact, cfg, io.Discard)

	assert.False(t, result.Halted)
	assert.Empty(t, result.Samples)
	assert.Len(t, result.Failures, 4)
	assert.NoError(t, result.Cause())
}

func TestHarness_Run_LaunchError(t *testing.T) {
	f := newFixture(t)
	f.launcher.EXPECT().Launch(gomock.Any(), gomock.Any()).Return(ports.LaunchResult{}, errors.New("permission denied"))

	result := f.harness.Run(context.Background(), artifact, config(2, 0), io.Discard)

	require.Len(t, result.Failures, 1)
	assert.Equal(t, -1, result.Failures[0].ExitCode)
	assert.Equal(t, "permission denied", result.Failures[0].Diagnostic)
	assert.True(t, result.Halted)
}

func TestHarness_Run_HooksWrapEveryInvocation(t *testing.T) {
	f := newFixture(t)
	cfg := config(2, 1)
	cfg.Prepare = "sync"
	cfg.Cleanup = "rm -f out.txt"

	var order []string
	f.executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cmd domain.Command, _, _ io.Writer) error {
			order = append(order, cmd.Args[1])
			return nil
		}).Times(6)
	f.launcher.EXPECT().Launch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, ports.LaunchRequest) (ports.LaunchResult, error) {
			order = append(order, "run")
			return ports.LaunchResult{Duration: time.Millisecond}, nil
		}).Times(3)

	result := f.harness.Run(context.Background(), artifact, cfg, io.Discard)

	require.Len(t, result.Samples, 3)
	assert.Equal(t, []string{
		"sync", "run", "rm -f out.txt",
		"sync", "run", "rm -f out.txt",
		"sync", "run", "rm -f out.txt",
	}, order)
}

func TestHarness_Run_PrepareFailure(t *testing.T) {
	f := newFixture(t)
	cfg := config(2, 0)
	cfg.Prepare = "false"

	f.executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(zerr.With(zerr.Wrap(errors.New("exit status 1"), "command failed"), "exit_code", 1))

	result := f.harness.Run(context.Background(), artifact, cfg, io.Discard)

	require.Len(t, result.Failures, 1)
	assert.Equal(t, domain.FailurePrepare, result.Failures[0].Kind)
	assert.Equal(t, 1, result.Failures[0].ExitCode)
	assert.True(t, result.Halted)
}

func TestHarness_Run_Counters(t *testing.T) {
	f := newFixture(t)
	ctrl := gomock.NewController(t)
	cfg := config(2, 0)
	cfg.Profile.Events = []string{"cycles"}

	wrapped := domain.Command{Name: "perf", Args: []string{"stat", "--", "/build/fib"}}
	f.profiler.EXPECT().Probe(gomock.Any()).Return(nil)
	f.profiler.EXPECT().Instrument(domain.Command{Name: "/build/fib"}, cfg.Profile).
		DoAndReturn(func(domain.Command, domain.ProfileOptions) (ports.CounterProbe, error) {
			probe := mocks.NewMockCounterProbe(ctrl)
			probe.EXPECT().Command().Return(wrapped)
			probe.EXPECT().Collect().Return(map[string]uint64{"cycles": 1000}, nil)
			return probe, nil
		}).Times(2)
	f.launcher.EXPECT().Launch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req ports.LaunchRequest) (ports.LaunchResult, error) {
			assert.Equal(t, wrapped, req.Command)
			return ports.LaunchResult{Duration: time.Millisecond}, nil
		}).Times(2)

	result := f.harness.Run(context.Background(), artifact, cfg, io.Discard)

	require.Len(t, result.Samples, 2)
	for _, s := range result.Samples {
		assert.Equal(t, map[string]uint64{"cycles": 1000}, s.Counters)
	}
	assert.Empty(t, result.Warnings)
}

func TestHarness_Run_UnsupportedHostDegrades(t *testing.T) {
	f := newFixture(t)
	cfg := config(2, 0)
	cfg.Profile.Metrics = true

	f.profiler.EXPECT().Probe(gomock.Any()).Return(zerr.Wrap(domain.ErrUnsupportedHost, "perf not found on PATH"))
	f.launcher.EXPECT().Launch(gomock.Any(), gomock.Any()).
		Return(ports.LaunchResult{Duration: time.Millisecond}, nil).Times(2)

	result := f.harness.Run(context.Background(), artifact, cfg, io.Discard)

	require.Len(t, result.Samples, 2)
	assert.Nil(t, result.Samples[0].Counters)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "perf not found on PATH")
}

func TestHarness_Run_CollectFailureIsWarning(t *testing.T) {
	f := newFixture(t)
	ctrl := gomock.NewController(t)
	cfg := config(1, 0)
	cfg.Profile.Metrics = true

	probe := mocks.NewMockCounterProbe(ctrl)
	probe.EXPECT().Command().Return(domain.Command{Name: "perf"})
	probe.EXPECT().Collect().Return(nil, errors.New("malformed perf stat output"))

	f.profiler.EXPECT().Probe(gomock.Any()).Return(nil)
	f.profiler.EXPECT().Instrument(gomock.Any(), gomock.Any()).Return(probe, nil)
	f.launcher.EXPECT().Launch(gomock.Any(), gomock.Any()).Return(ports.LaunchResult{Duration: time.Millisecond}, nil)

	result := f.harness.Run(context.Background(), artifact, cfg, io.Discard)

	require.Len(t, result.Samples, 1)
	assert.Len(t, result.Warnings, 1)
	assert.Empty(t, result.Failures)
}

func TestHarness_Run_Cancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := f.harness.Run(ctx, artifact, config(3, 0), io.Discard)
	assert.True(t, result.Halted)
	assert.Empty(t, result.Samples)
}

func TestHarness_Profile(t *testing.T) {
	f := newFixture(t)
	opts := domain.ProfileOptions{Flamegraph: true, SamplingFrequency: 99}

	f.profiler.EXPECT().Probe(gomock.Any()).Return(nil)
	f.profiler.EXPECT().Profile(gomock.Any(), domain.Command{Name: "/build/fib"}, opts, "/build/profile").
		Return([]string{"/build/profile/stacks.folded"}, nil)

	files, err := f.harness.Profile(context.Background(), artifact, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"/build/profile/stacks.folded"}, files)
}

func TestHarness_Profile_UnsupportedHost(t *testing.T) {
	f := newFixture(t)
	f.profiler.EXPECT().Probe(gomock.Any()).Return(zerr.Wrap(domain.ErrUnsupportedHost, "perf not found on PATH"))

	_, err := f.harness.Profile(context.Background(), artifact, domain.ProfileOptions{CallGraph: true})
	assert.ErrorIs(t, err, domain.ErrUnsupportedHost)
}
