package ports

import (
	"context"
	"time"

	"go.trai.ch/oxidizer/internal/core/domain"
)

// LaunchRequest describes one measured invocation of a built artifact.
type LaunchRequest struct {
	Command domain.Command
	// Timeout bounds the invocation. Zero means no timeout.
	Timeout time.Duration
	// MeasureMemory requests the peak resident set size of the process tree.
	MeasureMemory bool
}

// LaunchResult is what the launcher observed about one invocation.
type LaunchResult struct {
	Duration   time.Duration
	ExitCode   int
	TimedOut   bool
	MemoryPeak *uint64
	// Stderr holds the tail of the process's error output.
	Stderr string
}

// Launcher runs a single process under measurement.
//
//go:generate mockgen -source=launcher.go -destination=mocks/mock_launcher.go -package=mocks
type Launcher interface {
	// Launch runs the process to completion. It returns an error only when the process
	// could not be started; abnormal exits and timeouts are reported in LaunchResult.
	Launch(ctx context.Context, req LaunchRequest) (LaunchResult, error)
}
