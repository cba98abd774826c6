package ports

import (
	"context"
	"time"
)

// Renderer is the abstraction for progress rendering.
// It decouples telemetry collection from presentation logic.
//
//go:generate mockgen -source=renderer.go -destination=mocks/mock_renderer.go -package=mocks
type Renderer interface {
	// Start initializes the renderer and begins its lifecycle.
	Start(ctx context.Context) error

	// Stop signals the renderer to stop accepting new events and flush buffered output.
	Stop() error

	// Wait blocks until the renderer has fully terminated.
	Wait() error

	// OnPlanEmit is called once the session knows which targets it will process.
	OnPlanEmit(targets []string)

	// OnTaskStart is called when a phase (target, build, run, profile) begins.
	// spanID: unique identifier for this phase
	// parentID: spanID of the enclosing phase (empty if root)
	OnTaskStart(spanID, parentID, name string, startTime time.Time)

	// OnTaskLog is called when a phase emits output.
	OnTaskLog(spanID string, data []byte)

	// OnTaskComplete is called when a phase finishes. err is nil on success.
	OnTaskComplete(spanID string, endTime time.Time, err error)
}
