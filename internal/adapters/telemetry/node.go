package telemetry

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/oxidizer/internal/core/ports"
)

// TracerNodeID is the unique identifier for the fallback tracer Graft node.
// The app replaces it with a renderer-bound OTel tracer for each session.
const TracerNodeID graft.ID = "adapter.telemetry"

func init() {
	graft.Register(graft.Node[ports.Tracer]{
		ID:        TracerNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Tracer, error) {
			return NewNoOpTracer(), nil
		},
	})
}
