package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/oxidizer/internal/adapters/detector"
	"go.trai.ch/oxidizer/internal/adapters/watcher"
	"go.trai.ch/oxidizer/internal/core/domain"
	"go.trai.ch/zerr"
)

// watch benchmarks once, then again after every settled burst of source changes,
// until ctx is cancelled. Failed sessions are logged and do not end the loop.
func (a *App) watch(ctx context.Context, root string, targets []string, cfg domain.RunConfig, mode detector.OutputMode) error {
	if a.watcher == nil {
		return zerr.Wrap(domain.ErrUnsupportedOperation, "watch mode is not available")
	}

	paths := watchPaths(targets)
	if len(paths) == 0 {
		return zerr.Wrap(domain.ErrNoTargets, "no target path can be watched")
	}
	if err := a.watcher.Start(ctx, paths); err != nil {
		return zerr.Wrap(err, "failed to start watcher")
	}
	defer func() {
		_ = a.watcher.Stop()
	}()

	changes := make(chan []string, 1)
	debouncer := watcher.NewDebouncer(watcher.DefaultDebounceWindow, func(p []string) {
		select {
		case changes <- p:
		default:
		}
	})
	defer debouncer.Stop()

	events := a.watcher.Events()
	go func() {
		for event := range events {
			debouncer.Add(event.Path)
		}
	}()

	for {
		if err := a.benchmark(ctx, root, targets, cfg, mode); err != nil {
			a.logger.Error(err)
		}
		a.logger.Info("watching " + strings.Join(paths, ", ") + " for changes")

		select {
		case <-ctx.Done():
			return nil
		case changed := <-changes:
			a.logger.Info("change detected: " + strings.Join(changed, ", "))
		}
	}
}

// watchPaths returns the existing target paths, deduplicated, in target order.
// Descriptors that do not parse are skipped; the session reports them.
func watchPaths(targets []string) []string {
	seen := make(map[string]bool, len(targets))
	paths := make([]string, 0, len(targets))
	for _, t := range targets {
		spec, err := domain.ParseTarget(t)
		if err != nil {
			continue
		}
		p := filepath.Clean(spec.Path)
		if seen[p] {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}
		seen[p] = true
		paths = append(paths, p)
	}
	return paths
}
