package ports

import (
	"context"

	"go.trai.ch/oxidizer/internal/core/domain"
)

// CounterProbe is a command instrumented to record performance counters.
type CounterProbe interface {
	// Command returns the wrapped command to launch in place of the original.
	Command() domain.Command
	// Collect reads the counters recorded by the last run of Command and releases scratch state.
	Collect() (map[string]uint64, error)
}

// Profiler collects hardware and software performance data for an artifact.
//
//go:generate mockgen -source=profiler.go -destination=mocks/mock_profiler.go -package=mocks
type Profiler interface {
	// Probe reports whether counters can be collected on this host.
	// It returns an error wrapping domain.ErrUnsupportedHost when they cannot.
	Probe(ctx context.Context) error

	// Instrument wraps cmd so that running it records the requested counters.
	Instrument(cmd domain.Command, opts domain.ProfileOptions) (CounterProbe, error)

	// Profile runs cmd once under a sampling profiler and writes the requested
	// artifacts (reports, folded stacks, latency tables) into outDir.
	// It returns the paths of the files written.
	Profile(ctx context.Context, cmd domain.Command, opts domain.ProfileOptions, outDir string) ([]string, error)
}
