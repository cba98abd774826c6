// Package process launches built artifacts under measurement.
package process

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"go.trai.ch/oxidizer/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	// waitDelay bounds how long stderr copying may outlive the process.
	waitDelay = time.Second
	// stderrTail is the number of trailing stderr bytes kept as a diagnostic.
	stderrTail = 4096
)

// Launcher implements ports.Launcher.
//
// Every invocation runs in its own process group so that a timeout kills the
// whole tree the artifact spawned, and the child is always waited.
type Launcher struct {
	stdout io.Writer
}

var _ ports.Launcher = (*Launcher)(nil)

// New creates a Launcher that discards the artifact's standard output.
func New() *Launcher {
	return &Launcher{stdout: io.Discard}
}

// Launch runs the request's command once and reports what it observed.
func (l *Launcher) Launch(ctx context.Context, req ports.LaunchRequest) (ports.LaunchResult, error) {
	cmd := exec.Command(req.Command.Name, req.Command.Args...) //nolint:gosec // artifact paths come from the build pipeline
	cmd.Dir = req.Command.Dir
	cmd.Env = environ(req.Command.Env)
	cmd.Stdout = l.stdout
	tail := &tailBuffer{limit: stderrTail}
	cmd.Stderr = tail
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return ports.LaunchResult{}, zerr.With(zerr.Wrap(err, "failed to start process"), "command", req.Command.String())
	}

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	var timeout <-chan time.Time
	if req.Timeout > 0 {
		timer := time.NewTimer(req.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	result := ports.LaunchResult{}
	var ctxErr error

	var waitErr error
	select {
	case waitErr = <-waitCh:
		result.Duration = time.Since(start)
	case <-timeout:
		result.TimedOut = true
		killProcessGroup(cmd)
		waitErr = <-waitCh
		result.Duration = time.Since(start)
	case <-ctx.Done():
		ctxErr = ctx.Err()
		killProcessGroup(cmd)
		waitErr = <-waitCh
		result.Duration = time.Since(start)
	}

	result.ExitCode = -1
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
		if req.MeasureMemory {
			result.MemoryPeak = peakRSS(cmd.ProcessState)
		}
	}
	result.Stderr = tail.String()

	if ctxErr != nil {
		return result, zerr.Wrap(ctxErr, "invocation cancelled")
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) && !errors.Is(waitErr, exec.ErrWaitDelay) {
		return result, zerr.Wrap(waitErr, "failed to wait for process")
	}
	return result, nil
}

// environ returns the inherited environment with the command's overrides applied.
func environ(overrides map[string]string) []string {
	env := os.Environ()
	for k, v := range overrides {
		env = append(env, k+"="+v)
	}
	return env
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
