package domain

import "path/filepath"

const (
	// OxidizerDirName is the name of the internal workspace directory.
	OxidizerDirName = ".oxidizer"

	// BuildDirName is the name of the directory holding per-target build trees.
	BuildDirName = "build"

	// HistoryDirName is the name of the session history directory.
	HistoryDirName = "history"

	// ProfileDirName is the name of the per-target profiling artifacts directory.
	ProfileDirName = "profile"

	// ConfigFileName is the name of the optional configuration file.
	ConfigFileName = "oxidizer.yaml"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// PrivateFilePerm is the default permission for private files (rw-------).
	PrivateFilePerm = 0o600
)

// DefaultOxidizerPath returns the default root directory for oxidizer metadata.
func DefaultOxidizerPath() string {
	return OxidizerDirName
}

// DefaultBuildPath returns the default path for per-target build directories.
// It joins .oxidizer and build.
func DefaultBuildPath() string {
	return filepath.Join(OxidizerDirName, BuildDirName)
}

// DefaultHistoryPath returns the default path for stored sessions.
// It joins .oxidizer and history.
func DefaultHistoryPath() string {
	return filepath.Join(OxidizerDirName, HistoryDirName)
}
