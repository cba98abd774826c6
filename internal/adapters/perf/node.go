package perf

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/oxidizer/internal/core/ports"
)

// NodeID is the unique identifier for the profiler Graft node.
const NodeID graft.ID = "adapter.profiler"

func init() {
	graft.Register(graft.Node[ports.Profiler]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Profiler, error) {
			return New(), nil
		},
	})
}
