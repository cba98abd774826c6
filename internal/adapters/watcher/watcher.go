// Package watcher reports changes to target sources so benchmark sessions can re-run.
package watcher

import (
	"context"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.trai.ch/oxidizer/internal/core/domain"
	"go.trai.ch/oxidizer/internal/core/ports"
)

var _ ports.Watcher = (*Watcher)(nil)

// skippedDirs hold build output or VCS metadata; changes there never trigger a re-run.
var skippedDirs = map[string]bool{
	domain.OxidizerDirName: true,
	".git":                 true,
	".jj":                  true,
	"target":               true,
	"CMakeFiles":           true,
	"node_modules":         true,
}

const eventChannelBuffer = 100

// Watcher implements ports.Watcher using fsnotify.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	events    chan ports.WatchEvent

	mu sync.RWMutex
	// files restricts events of a watched directory to single files when only they were requested.
	files map[string]map[string]bool
}

// NewWatcher creates a new file system watcher.
func NewWatcher() (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsWatcher: w,
		events:    make(chan ports.WatchEvent, eventChannelBuffer),
		files:     make(map[string]map[string]bool),
	}, nil
}

// Start watches every path. Directories are watched recursively; for files
// the parent directory is watched and events are filtered to the file.
func (w *Watcher) Start(ctx context.Context, paths []string) error {
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return err
		}

		if !info.IsDir() {
			dir := filepath.Dir(abs)
			w.mu.Lock()
			if w.files[dir] == nil {
				w.files[dir] = make(map[string]bool)
			}
			w.files[dir][abs] = true
			w.mu.Unlock()
			if err := w.fsWatcher.Add(dir); err != nil {
				return err
			}
			continue
		}

		for dir := range walkDirs(abs) {
			if err := w.fsWatcher.Add(dir); err != nil {
				return err
			}
		}
	}

	go w.processEvents(ctx)
	return nil
}

// Stop stops the watcher and releases all resources.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// Events returns an iterator of file system events. It ends when the watcher stops.
func (w *Watcher) Events() iter.Seq[ports.WatchEvent] {
	return func(yield func(ports.WatchEvent) bool) {
		for event := range w.events {
			if !yield(event) {
				return
			}
		}
	}
}

// walkDirs yields root and every directory below it that is not skipped.
func walkDirs(root string) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil //nolint:nilerr // unreadable directories are skipped
			}
			if !d.IsDir() {
				return nil
			}
			if path != root && skippedDirs[d.Name()] {
				return fs.SkipDir
			}
			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			watchEvent, ok := w.convert(event)
			if !ok {
				continue
			}

			select {
			case w.events <- watchEvent:
			case <-ctx.Done():
				return
			}

			if watchEvent.Operation == ports.OpCreate {
				w.watchNewDir(event.Name)
			}
		case _, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) watchNewDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || skippedDirs[info.Name()] {
		return
	}
	for dir := range walkDirs(path) {
		_ = w.fsWatcher.Add(dir)
	}
}

// convert maps an fsnotify event, dropping events of unrequested files and skipped directories.
func (w *Watcher) convert(event fsnotify.Event) (ports.WatchEvent, bool) {
	dir := filepath.Dir(event.Name)
	if skippedDirs[filepath.Base(event.Name)] {
		return ports.WatchEvent{}, false
	}

	w.mu.RLock()
	files, fileFiltered := w.files[dir]
	w.mu.RUnlock()
	if fileFiltered && !files[event.Name] {
		return ports.WatchEvent{}, false
	}

	switch {
	case event.Has(fsnotify.Write):
		return ports.WatchEvent{Path: event.Name, Operation: ports.OpWrite}, true
	case event.Has(fsnotify.Create):
		return ports.WatchEvent{Path: event.Name, Operation: ports.OpCreate}, true
	case event.Has(fsnotify.Remove):
		return ports.WatchEvent{Path: event.Name, Operation: ports.OpRemove}, true
	case event.Has(fsnotify.Rename):
		return ports.WatchEvent{Path: event.Name, Operation: ports.OpRename}, true
	default:
		return ports.WatchEvent{}, false
	}
}
