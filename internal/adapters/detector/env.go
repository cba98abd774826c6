// Package detector inspects the process environment to choose output modes.
package detector

import (
	"os"

	"golang.org/x/term"
)

// OutputMode selects how session progress is rendered.
type OutputMode int

const (
	// ModeAuto defers to environment detection.
	ModeAuto OutputMode = iota
	// ModeLinear prints phase progress lines to stderr.
	ModeLinear
	// ModeQuiet renders no progress, only the final results.
	ModeQuiet
)

// LogFormat selects the logger's encoding.
type LogFormat int

const (
	// FormatPretty is the colored human-readable format.
	FormatPretty LogFormat = iota
	// FormatJSON is one JSON object per line.
	FormatJSON
)

// Environment describes what the detector looks at.
type Environment struct {
	Getenv     func(string) string
	IsTerminal func(fd int) bool
	Fd         uintptr
}

// System returns the environment of the current process, looking at stderr.
func System() Environment {
	return Environment{
		Getenv:     os.Getenv,
		IsTerminal: term.IsTerminal,
		Fd:         os.Stderr.Fd(),
	}
}

// CI reports whether a CI system is driving the process.
func (e Environment) CI() bool {
	ci := e.Getenv("CI")
	return ci == "true" || ci == "1"
}

// DetectMode recommends linear progress for terminals and CI logs and quiet output otherwise.
func (e Environment) DetectMode() OutputMode {
	if e.IsTerminal(int(e.Fd)) || e.CI() {
		return ModeLinear
	}
	return ModeQuiet
}

// DetectLogFormat recommends pretty logs for terminals and CI, JSON for everything else.
func (e Environment) DetectLogFormat() LogFormat {
	if e.IsTerminal(int(e.Fd)) || e.CI() {
		return FormatPretty
	}
	return FormatJSON
}

// ResolveMode applies the user's --output flag to the detected mode.
// Accepted values are "auto", "linear", "ci", "quiet" and "none"; anything else means auto.
func ResolveMode(detected OutputMode, flag string) OutputMode {
	switch flag {
	case "linear", "ci":
		return ModeLinear
	case "quiet", "none":
		return ModeQuiet
	default:
		return detected
	}
}

// ResolveLogFormat applies the user's --log-format flag to the detected format.
// Accepted values are "auto", "pretty" and "json"; anything else means auto.
func ResolveLogFormat(detected LogFormat, flag string) LogFormat {
	switch flag {
	case "pretty":
		return FormatPretty
	case "json":
		return FormatJSON
	default:
		return detected
	}
}
