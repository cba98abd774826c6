package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/oxidizer/internal/adapters/config"
	"go.trai.ch/oxidizer/internal/adapters/export"
	"go.trai.ch/oxidizer/internal/adapters/history"
	"go.trai.ch/oxidizer/internal/adapters/logger"
	"go.trai.ch/oxidizer/internal/adapters/perf"
	"go.trai.ch/oxidizer/internal/adapters/process"
	"go.trai.ch/oxidizer/internal/adapters/shell"
	"go.trai.ch/oxidizer/internal/adapters/telemetry"
	"go.trai.ch/oxidizer/internal/adapters/toolchain"
	"go.trai.ch/oxidizer/internal/adapters/watcher"
	"go.trai.ch/oxidizer/internal/core/ports"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			history.NodeID,
			export.NodeID,
			logger.NodeID,
			shell.NodeID,
			process.NodeID,
			perf.NodeID,
			toolchain.NodeID,
			telemetry.TracerNodeID,
			watcher.NodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: runComponentsNode,
	})
}

//nolint:cyclop // one lookup per dependency
func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}

	store, err := graft.Dep[ports.SessionStore](ctx)
	if err != nil {
		return nil, err
	}

	reports, err := graft.Dep[ports.ReportWriter](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	executor, err := graft.Dep[ports.Executor](ctx)
	if err != nil {
		return nil, err
	}

	launcher, err := graft.Dep[ports.Launcher](ctx)
	if err != nil {
		return nil, err
	}

	profiler, err := graft.Dep[ports.Profiler](ctx)
	if err != nil {
		return nil, err
	}

	factory, err := graft.Dep[ports.ToolchainFactory](ctx)
	if err != nil {
		return nil, err
	}

	tracer, err := graft.Dep[ports.Tracer](ctx)
	if err != nil {
		return nil, err
	}

	w, err := graft.Dep[ports.Watcher](ctx)
	if err != nil {
		return nil, err
	}

	a := New(loader, store, reports, log, executor, launcher, profiler, factory, tracer)
	return a.WithWatcher(w), nil
}

func runComponentsNode(ctx context.Context) (*Components, error) {
	a, err := graft.Dep[*App](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	return &Components{
		App:    a,
		Logger: log,
	}, nil
}
