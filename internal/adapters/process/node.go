package process

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/oxidizer/internal/core/ports"
)

// NodeID is the unique identifier for the launcher Graft node.
const NodeID graft.ID = "adapter.launcher"

func init() {
	graft.Register(graft.Node[ports.Launcher]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Launcher, error) {
			return New(), nil
		},
	})
}
