// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/oxidizer/internal/adapters/config"
	_ "go.trai.ch/oxidizer/internal/adapters/export"
	_ "go.trai.ch/oxidizer/internal/adapters/history"
	_ "go.trai.ch/oxidizer/internal/adapters/logger"
	_ "go.trai.ch/oxidizer/internal/adapters/perf"
	_ "go.trai.ch/oxidizer/internal/adapters/process"
	_ "go.trai.ch/oxidizer/internal/adapters/shell"
	_ "go.trai.ch/oxidizer/internal/adapters/telemetry"
	_ "go.trai.ch/oxidizer/internal/adapters/toolchain"
	_ "go.trai.ch/oxidizer/internal/adapters/watcher"
	// Register app nodes.
	_ "go.trai.ch/oxidizer/internal/app"
)
