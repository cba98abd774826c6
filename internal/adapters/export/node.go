package export

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/oxidizer/internal/core/ports"
)

// NodeID is the unique identifier for the report writer Graft node.
const NodeID graft.ID = "adapter.report_writer"

func init() {
	graft.Register(graft.Node[ports.ReportWriter]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.ReportWriter, error) {
			return New(), nil
		},
	})
}
