// Package shell provides the executor used to drive build tools and shell hooks.
package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/creack/pty"
	"go.trai.ch/oxidizer/internal/core/domain"
	"go.trai.ch/oxidizer/internal/core/ports"
	"go.trai.ch/zerr"
)

// waitDelay bounds how long output copying may outlive a cancelled process.
const waitDelay = 2 * time.Second

// Executor implements ports.Executor using os/exec, preferring a PTY so that
// tools keep their colored, line-buffered output.
type Executor struct {
	logger  ports.Logger
	verbose atomic.Bool
}

var _ ports.Executor = (*Executor)(nil)

// NewExecutor creates a new Executor.
func NewExecutor(logger ports.Logger) *Executor {
	return &Executor{logger: logger}
}

// SetVerbose toggles mirroring of tool output into the logger.
func (e *Executor) SetVerbose(v bool) {
	e.verbose.Store(v)
}

// Execute runs the command and waits for it to complete.
func (e *Executor) Execute(ctx context.Context, cmd domain.Command, stdout, stderr io.Writer) error {
	if cmd.Name == "" {
		return nil
	}
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	var stdoutLog, stderrLog *logWriter
	if e.verbose.Load() && e.logger != nil {
		stdoutLog = &logWriter{logger: e.logger, level: "info"}
		stderrLog = &logWriter{logger: e.logger, level: "warn"}
		stdout = io.MultiWriter(stdoutLog, stdout)
		stderr = io.MultiWriter(stderrLog, stderr)
		defer func() {
			_ = stdoutLog.Close()
			_ = stderrLog.Close()
		}()
	}

	if err := run(ctx, cmd, stdout, stderr); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return zerr.With(zerr.With(zerr.Wrap(err, "command failed"), "exit_code", exitCode), "command", cmd.String())
	}
	return nil
}

func run(ctx context.Context, c domain.Command, stdout, stderr io.Writer) error {
	env := resolveEnvironment(os.Environ(), c.Env)

	executable := c.Name
	if !filepath.IsAbs(executable) && !strings.ContainsRune(executable, filepath.Separator) {
		if lp, err := lookPath(executable, env); err == nil {
			executable = lp
		}
	}

	cmd := exec.CommandContext(ctx, executable, c.Args...) //nolint:gosec // commands come from target descriptors
	cmd.Args[0] = c.Name
	cmd.Dir = c.Dir
	cmd.Env = env
	cmd.WaitDelay = waitDelay

	ptmx, err := pty.Start(cmd)
	if err != nil {
		// No PTY available (containers, sandboxes). Fall back to plain pipes
		// with a fresh command, since a failed Start poisons the old one.
		fallback := exec.CommandContext(ctx, executable, c.Args...) //nolint:gosec // see above
		fallback.Args[0] = c.Name
		fallback.Dir = c.Dir
		fallback.Env = env
		fallback.WaitDelay = waitDelay
		fallback.Stdout = stdout
		fallback.Stderr = stderr
		return fallback.Run()
	}

	ioDone := make(chan struct{})
	go func() {
		defer close(ioDone)
		// The PTY merges stdout and stderr.
		_, _ = io.Copy(stdout, ptmx)
	}()

	waitErr := cmd.Wait()
	// Closing the master unblocks the copy loop once the child's output is drained.
	// Reads return EIO after the child exits, so the copy ends on its own in the common case.
	select {
	case <-ioDone:
	case <-time.After(waitDelay):
	}
	_ = ptmx.Close()
	<-ioDone

	return waitErr
}

type logWriter struct {
	logger ports.Logger
	level  string
	buf    []byte
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.logLine(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

func (w *logWriter) Close() error {
	if len(w.buf) > 0 {
		w.logLine(w.buf)
		w.buf = nil
	}
	return nil
}

func (w *logWriter) logLine(line []byte) {
	// PTYs terminate lines with \r\n.
	msg := strings.TrimSuffix(string(line), "\r")
	if w.level == "info" {
		w.logger.Info(msg)
	} else {
		w.logger.Warn(msg)
	}
}

// allowListedEnvVars are inherited verbatim by every command.
var allowListedEnvVars = map[string]struct{}{
	"HOME":            {},
	"TERM":            {},
	"USER":            {},
	"PATH":            {},
	"TMPDIR":          {},
	"LANG":            {},
	"LC_ALL":          {},
	"CC":              {},
	"CXX":             {},
	"CFLAGS":          {},
	"CXXFLAGS":        {},
	"LDFLAGS":         {},
	"LD_LIBRARY_PATH": {},
	"PKG_CONFIG_PATH": {},
	"SDKROOT":         {},
}

// allowListedEnvPrefixes are toolchain configuration families that are inherited as a whole.
var allowListedEnvPrefixes = []string{"CARGO_", "RUSTUP_", "RUSTC", "CMAKE_"}

// resolveEnvironment filters the system environment and applies the command's overrides.
func resolveEnvironment(sysEnv []string, cmdEnv map[string]string) []string {
	envMap := filterSystemEnv(sysEnv)
	for k, v := range cmdEnv {
		envMap[k] = v
	}

	result := make([]string, 0, len(envMap))
	for k, v := range envMap {
		result = append(result, k+"="+v)
	}
	return result
}

func filterSystemEnv(sysEnv []string) map[string]string {
	envMap := make(map[string]string)
	for _, entry := range sysEnv {
		k, v, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if allowed(k) {
			envMap[k] = v
		}
	}
	return envMap
}

func allowed(key string) bool {
	if _, ok := allowListedEnvVars[key]; ok {
		return true
	}
	for _, prefix := range allowListedEnvPrefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// lookPath searches for an executable in the PATH of the resolved environment
// rather than the PATH of the current process.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if after, ok := strings.CutPrefix(e, "PATH="); ok {
			path = after
			break
		}
	}
	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		candidate := filepath.Join(dir, file)
		if err := findExecutable(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}
