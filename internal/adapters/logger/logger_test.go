package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/oxidizer/internal/adapters/logger"
	"go.trai.ch/oxidizer/internal/core/domain"
	"go.trai.ch/zerr"
)

// newTestLogger creates a logger writing to a buffer with colors disabled.
func newTestLogger(t *testing.T) (*logger.Logger, *bytes.Buffer) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")

	buf := &bytes.Buffer{}
	lg := logger.New().(*logger.Logger)
	lg.SetOutput(buf)
	return lg, buf
}

func TestLogger_Info(t *testing.T) {
	lg, buf := newTestLogger(t)
	lg.Info("building fib.c with clang")

	goldie.New(t).Assert(t, "info_basic", buf.Bytes())
}

func TestLogger_Warn(t *testing.T) {
	lg, buf := newTestLogger(t)
	lg.Warn("perf not found, counters disabled")

	goldie.New(t).Assert(t, "warn_basic", buf.Bytes())
}

func TestLogger_Error(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		goldenName string
	}{
		{
			name:       "standard error",
			err:        os.ErrPermission,
			goldenName: "error_simple",
		},
		{
			name: "stdlib chain is printed flat",
			err: fmt.Errorf("failed to start benchmark: %w",
				fmt.Errorf("failed to build: %w", errors.New("exit status 1"))),
			goldenName: "error_chain_stdlib",
		},
		{
			name: "descriptor error with metadata",
			err: func() error {
				_, err := domain.ParseTarget("main.c:s:msvc")
				return err
			}(),
			goldenName: "error_parse",
		},
		{
			name: "wrapped build failure",
			err: zerr.With(
				zerr.Wrap(
					zerr.With(zerr.Wrap(domain.ErrBuildFailure, "cmake configure failed"), "exit_code", 1),
					"target 2 failed",
				),
				"target", "proj:workspace:cmake",
			),
			goldenName: "error_chain_build",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lg, buf := newTestLogger(t)
			lg.Error(tt.err)

			goldie.New(t).Assert(t, tt.goldenName, buf.Bytes())
		})
	}
}

func TestLogger_Error_Nil(t *testing.T) {
	lg, buf := newTestLogger(t)
	lg.Error(nil)
	assert.Empty(t, buf.String())
}

func TestLogger_SetJSON(t *testing.T) {
	lg, buf := newTestLogger(t)
	lg.SetJSON(true)
	lg.Info("hello")
	lg.Error(zerr.New("boom"))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var first, second map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	require.NoError(t, json.Unmarshal(lines[1], &second))
	assert.Equal(t, "hello", first["msg"])
	assert.Equal(t, "INFO", first["level"])
	assert.Equal(t, "operation failed", second["msg"])
	assert.Equal(t, map[string]any{"msg": "boom"}, second["error"], "zerr errors log as a group")

	// Switching back keeps the destination.
	lg.SetJSON(false)
	buf.Reset()
	lg.Info("plain")
	assert.Equal(t, "plain\n", buf.String())
}
