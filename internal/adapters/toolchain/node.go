package toolchain

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/oxidizer/internal/adapters/shell"
	"go.trai.ch/oxidizer/internal/core/ports"
)

// NodeID is the unique identifier for the toolchain factory Graft node.
const NodeID graft.ID = "adapter.toolchain"

func init() {
	graft.Register(graft.Node[ports.ToolchainFactory]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{shell.NodeID},
		Run: func(ctx context.Context) (ports.ToolchainFactory, error) {
			executor, err := graft.Dep[ports.Executor](ctx)
			if err != nil {
				return nil, err
			}
			return NewFactory(executor), nil
		},
	})
}
