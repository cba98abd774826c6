package perf

import (
	"context"
	"io"

	"go.trai.ch/oxidizer/internal/core/domain"
)

// RunFunc mirrors runFunc for tests.
type RunFunc = func(ctx context.Context, cmd domain.Command, stdout, stderr io.Writer) error

// NewWithRunner creates a Profiler whose perf invocations are served by run.
func NewWithRunner(lookPath func(string) (string, error), run RunFunc, tempDir string) *Profiler {
	return &Profiler{lookPath: lookPath, run: run, tempDir: tempDir}
}
