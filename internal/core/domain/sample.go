package domain

import (
	"time"

	"go.trai.ch/zerr"
)

// RunSample holds the measurements of one successful invocation.
type RunSample struct {
	Index      int               `json:"index"`
	Warmup     bool              `json:"warmup"`
	Duration   time.Duration     `json:"duration_ns"`
	ExitCode   int               `json:"exit_code"`
	MemoryPeak *uint64           `json:"memory_peak_bytes,omitempty"`
	Counters   map[string]uint64 `json:"counters,omitempty"`
}

// FailureKind names why an invocation produced no sample.
type FailureKind string

const (
	// FailureRun marks a non-zero exit or a crash.
	FailureRun FailureKind = "run"
	// FailureTimeout marks an invocation killed after exceeding the timeout.
	FailureTimeout FailureKind = "timeout"
	// FailurePrepare marks a failed prepare command.
	FailurePrepare FailureKind = "prepare"
	// FailureCleanup marks a failed cleanup command.
	FailureCleanup FailureKind = "cleanup"
)

// RunFailure records an invocation that did not yield a sample.
type RunFailure struct {
	Index      int           `json:"index"`
	Warmup     bool          `json:"warmup"`
	Kind       FailureKind   `json:"kind"`
	ExitCode   int           `json:"exit_code"`
	Diagnostic string        `json:"diagnostic,omitempty"`
	Elapsed    time.Duration `json:"elapsed_ns"`
}

// Err converts the failure into a classified error.
func (f RunFailure) Err() error {
	sentinel := ErrRunFailure
	msg := string(f.Kind) + " failure"
	if f.Kind == FailureTimeout {
		sentinel = ErrTimeout
		msg = "invocation exceeded timeout"
	}

	err := zerr.With(zerr.Wrap(sentinel, msg), "invocation", f.Index)
	if f.Warmup {
		err = zerr.With(err, "warmup", true)
	}
	if f.Kind != FailureTimeout {
		err = zerr.With(err, "exit_code", f.ExitCode)
	}
	if f.Diagnostic != "" {
		err = zerr.With(err, "diagnostic", f.Diagnostic)
	}
	return err
}

// RunResult is the ordered record of a target's invocations.
type RunResult struct {
	Samples  []RunSample  `json:"samples"`
	Failures []RunFailure `json:"failures,omitempty"`
	Warnings []string     `json:"warnings,omitempty"`
	// Halted is set when a failure stopped further invocations.
	Halted bool `json:"halted,omitempty"`
}

// Measured returns the non-warmup samples in invocation order.
func (r RunResult) Measured() []RunSample {
	measured := make([]RunSample, 0, len(r.Samples))
	for _, s := range r.Samples {
		if !s.Warmup {
			measured = append(measured, s)
		}
	}
	return measured
}

// Cause returns the error of the failure that halted execution, or nil.
func (r RunResult) Cause() error {
	if !r.Halted || len(r.Failures) == 0 {
		return nil
	}
	return r.Failures[len(r.Failures)-1].Err()
}
