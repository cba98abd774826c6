package watcher

import (
	"maps"
	"slices"
	"sync"
	"time"
)

// DefaultDebounceWindow is how long the watcher waits for a burst of saves to settle.
const DefaultDebounceWindow = 300 * time.Millisecond

// Debouncer coalesces bursts of changed paths into one callback.
type Debouncer struct {
	window   time.Duration
	callback func(paths []string)

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
}

// NewDebouncer creates a debouncer that calls callback once no path was added for window.
func NewDebouncer(window time.Duration, callback func(paths []string)) *Debouncer {
	return &Debouncer{
		window:   window,
		callback: callback,
		pending:  make(map[string]struct{}),
	}
}

// Add records path and restarts the quiet window.
func (d *Debouncer) Add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending[path] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fire)
}

// Stop discards pending paths without calling back.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	clear(d.pending)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	paths := slices.Sorted(maps.Keys(d.pending))
	clear(d.pending)
	d.timer = nil
	d.mu.Unlock()

	if len(paths) > 0 && d.callback != nil {
		d.callback(paths)
	}
}
