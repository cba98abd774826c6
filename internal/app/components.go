package app

import "go.trai.ch/oxidizer/internal/core/ports"

// Components holds what the entry point needs beyond the App itself.
type Components struct {
	App    *App
	Logger ports.Logger
}
