package summary_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/oxidizer/internal/core/domain"
	"go.trai.ch/oxidizer/internal/ui/summary"
)

func ptr(v float64) *float64 { return &v }

func TestRender(t *testing.T) {
	exitCode := 1
	session := &domain.Session{
		Config: domain.DefaultRunConfig(),
		Outcomes: []domain.Outcome{
			{
				Index:  0,
				Target: "fib.c:s:clang",
				Status: domain.OutcomeSucceeded,
				Report: &domain.BenchmarkReport{
					Time:       &domain.Summary{Count: 2, Mean: 0.01, Median: 0.01, StdDev: 0.001, Min: 0.009, Max: 0.011},
					Memory:     &domain.Summary{Mean: 3 * 1024 * 1024},
					Comparison: &domain.Comparison{IsBaseline: true, Ratio: ptr(1)},
				},
			},
			{
				Index:  1,
				Target: "fib.rs:s:cargo",
				Status: domain.OutcomeSucceeded,
				Report: &domain.BenchmarkReport{
					Time:       &domain.Summary{Count: 2, Mean: 0.02, Median: 0.02, Min: 0.02, Max: 0.02},
					Comparison: &domain.Comparison{Ratio: ptr(2), RatioStdDev: ptr(0.2)},
				},
			},
			{
				Index:   2,
				Target:  "cpp:w:cmake",
				Status:  domain.OutcomeFailed,
				Failure: &domain.Failure{Class: domain.ClassBuild, Stage: domain.StageBuild, Message: "CMakeLists.txt not found"},
			},
			{
				Index:  3,
				Target: "bad.c:s:gcc",
				Status: domain.OutcomeFailed,
				Failure: &domain.Failure{
					Class:      domain.ClassBuild,
					Stage:      domain.StageBuild,
					Message:    "gcc compile failed: build failed",
					Step:       "optimize",
					ExitCode:   &exitCode,
					Diagnostic: "bad.c:1:25: error: 'undeclared_symbol' undeclared\ncompilation terminated.",
				},
			},
		},
	}

	out := summary.Render(session)

	assert.Contains(t, out, "Mean ± σ [ms]")
	assert.Contains(t, out, "fib.c:s:clang")
	assert.Contains(t, out, "10.000 ± 1.000")
	assert.Contains(t, out, "9.000 … 11.000")
	assert.Contains(t, out, "3.0 MiB")
	assert.Contains(t, out, "1.00 (baseline)")
	assert.Contains(t, out, "2.00 ± 0.20")
	assert.Contains(t, out, "cpp:w:cmake: build_failure during build: CMakeLists.txt not found")
	assert.Contains(t, out, "bad.c:s:gcc: build_failure during build (optimize): gcc compile failed: build failed")
	assert.Contains(t, out, "exit code 1")
	assert.Contains(t, out, "'undeclared_symbol' undeclared")
	assert.Contains(t, out, "compilation terminated.")
}

func TestBytes(t *testing.T) {
	assert.Equal(t, "512 B", summary.Bytes(512))
	assert.Equal(t, "1.5 KiB", summary.Bytes(1536))
	assert.Equal(t, "2.0 GiB", summary.Bytes(2*1024*1024*1024))
}
