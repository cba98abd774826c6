package domain

import (
	"errors"

	"go.trai.ch/zerr"
)

var (
	// ErrParse is returned when a target descriptor is malformed.
	ErrParse = zerr.New("invalid target descriptor")

	// ErrUnsupportedOperation is returned when a toolchain is asked to perform a step it does not honor.
	ErrUnsupportedOperation = zerr.New("unsupported operation")

	// ErrBuildFailure is returned when a toolchain fails to produce an artifact.
	ErrBuildFailure = zerr.New("build failed")

	// ErrRunFailure is returned when an invocation of a built artifact exits abnormally.
	ErrRunFailure = zerr.New("run failed")

	// ErrTimeout is returned when an invocation exceeds the configured timeout.
	ErrTimeout = zerr.New("run timed out")

	// ErrUnsupportedHost is returned when performance counters cannot be collected on this host.
	ErrUnsupportedHost = zerr.New("performance counters are not available on this host")

	// ErrPartialFailure is returned when some, but not all, targets failed.
	ErrPartialFailure = zerr.New("some targets failed")

	// ErrAllTargetsFailed is returned when every target failed.
	ErrAllTargetsFailed = zerr.New("all targets failed")

	// ErrNoTargets is returned when a benchmark session is started without targets.
	ErrNoTargets = zerr.New("no targets specified")

	// ErrInvalidConfig is returned when run options fail validation.
	ErrInvalidConfig = zerr.New("invalid run configuration")

	// ErrBaselineNotFound is returned when the requested baseline does not name a target.
	ErrBaselineNotFound = zerr.New("baseline target not found")

	// ErrManifestNotFound is returned when a workspace target has no project manifest.
	ErrManifestNotFound = zerr.New("project manifest not found")

	// ErrExecutableNotFound is returned when a build succeeded but no runnable artifact could be located.
	ErrExecutableNotFound = zerr.New("executable not found in build output")

	// ErrConfigNotFound is returned when no configuration file is found.
	ErrConfigNotFound = zerr.New("could not find oxidizer.yaml")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrStoreCreateFailed is returned when the history directory cannot be created.
	ErrStoreCreateFailed = zerr.New("failed to create history directory")

	// ErrStoreReadFailed is returned when a stored session cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read session")

	// ErrStoreUnmarshalFailed is returned when a stored session cannot be decoded.
	ErrStoreUnmarshalFailed = zerr.New("failed to unmarshal session")

	// ErrStoreMarshalFailed is returned when a session cannot be encoded.
	ErrStoreMarshalFailed = zerr.New("failed to marshal session")

	// ErrStoreWriteFailed is returned when a session cannot be written.
	ErrStoreWriteFailed = zerr.New("failed to write session")

	// ErrSessionNotFound is returned when a requested session does not exist in the history.
	ErrSessionNotFound = zerr.New("session not found")

	// ErrExportFailed is returned when a report file cannot be written.
	ErrExportFailed = zerr.New("failed to export report")

	// ErrUnknownExportFormat is returned when an exporter is requested for an unknown format.
	ErrUnknownExportFormat = zerr.New("unknown export format")
)

// FailureClass names the category of a target failure in reports.
type FailureClass string

const (
	// ClassParse marks a malformed descriptor.
	ClassParse FailureClass = "parse"
	// ClassUnsupported marks a step or kind a toolchain does not honor.
	ClassUnsupported FailureClass = "unsupported_operation"
	// ClassBuild marks a failed build.
	ClassBuild FailureClass = "build_failure"
	// ClassRun marks an invocation that exited abnormally.
	ClassRun FailureClass = "run_failure"
	// ClassTimeout marks an invocation that exceeded its timeout.
	ClassTimeout FailureClass = "timeout"
	// ClassUnsupportedHost marks a host lacking a requested capability.
	ClassUnsupportedHost FailureClass = "unsupported_host"
	// ClassInternal marks anything else.
	ClassInternal FailureClass = "internal"
)

// Classify maps an error onto the failure taxonomy.
func Classify(err error) FailureClass {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrParse):
		return ClassParse
	case errors.Is(err, ErrUnsupportedOperation):
		return ClassUnsupported
	case errors.Is(err, ErrTimeout):
		return ClassTimeout
	case errors.Is(err, ErrRunFailure):
		return ClassRun
	case errors.Is(err, ErrBuildFailure), errors.Is(err, ErrManifestNotFound), errors.Is(err, ErrExecutableNotFound):
		return ClassBuild
	case errors.Is(err, ErrUnsupportedHost):
		return ClassUnsupportedHost
	default:
		return ClassInternal
	}
}

// Metadata returns the value attached under key by the outermost error in
// the chain that carries it.
func Metadata(err error, key string) (any, bool) {
	var zErr *zerr.Error
	for e := err; errors.As(e, &zErr); e = zErr.Unwrap() {
		if v, ok := zErr.Metadata()[key]; ok {
			return v, true
		}
	}
	return nil, false
}
