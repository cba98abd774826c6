package detector_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/oxidizer/internal/adapters/detector"
)

func env(tty bool, ci string) detector.Environment {
	return detector.Environment{
		Getenv: func(key string) string {
			if key == "CI" {
				return ci
			}
			return ""
		},
		IsTerminal: func(int) bool { return tty},
	}
}

func TestEnvironment_Detect(t *testing.T) {
	tests := []struct {
		name   string
		tty    bool
		ci     string
		mode   detector.OutputMode
		format detector.LogFormat
	}{
		{"terminal", true, "", detector.ModeLinear, detector.FormatPretty},
		{"CI=true without terminal", false, "true", detector.ModeLinear, detector.FormatPretty},
		{"CI=1 with terminal", true, "1", detector.ModeLinear, detector.FormatPretty},
		{"CI=false piped", false, "false", detector.ModeQuiet, detector.FormatJSON},
		{"piped", false, "", detector.ModeQuiet, detector.FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := env(tt.tty, tt.ci)
			assert.Equal(t, tt.mode, e.DetectMode())
			assert.Equal(t, tt.format, e.DetectLogFormat())
		})
	}
}

func TestResolveMode(t *testing.T) {
	tests := []struct {
		flag     string
		detected detector.OutputMode
		want     detector.OutputMode
	}{
		{"", detector.ModeQuiet, detector.ModeQuiet},
		{"auto", detector.ModeLinear, detector.ModeLinear},
		{"linear", detector.ModeQuiet, detector.ModeLinear},
		{"ci", detector.ModeQuiet, detector.ModeLinear},
		{"quiet", detector.ModeLinear, detector.ModeQuiet},
		{"none", detector.ModeLinear, detector.ModeQuiet},
		{"bogus", detector.ModeLinear, detector.ModeLinear},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			assert.Equal(t, tt.want, detector.ResolveMode(tt.detected, tt.flag))
		})
	}
}

func TestResolveLogFormat(t *testing.T) {
	assert.Equal(t, detector.FormatJSON, detector.ResolveLogFormat(detector.FormatPretty, "json"))
	assert.Equal(t, detector.FormatPretty, detector.ResolveLogFormat(detector.FormatJSON, "pretty"))
	assert.Equal(t, detector.FormatJSON, detector.ResolveLogFormat(detector.FormatJSON, "auto"))
}

func TestSystem(t *testing.T) {
	e := detector.System()
	assert.NotNil(t, e.Getenv)
	assert.NotNil(t, e.IsTerminal)
}
