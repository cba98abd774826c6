// Package telemetry connects spans of benchmark phases to OpenTelemetry and progress renderers.
package telemetry

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

const (
	// DefaultSizeLimit is the buffered byte count that forces a flush.
	DefaultSizeLimit = 4096
	// DefaultTimeLimit is the longest buffered output is held back.
	DefaultTimeLimit = 50 * time.Millisecond
)

// ErrBatcherClosed is returned by Write after Close.
var ErrBatcherClosed = errors.New("batcher is closed")

// Batcher coalesces small writes of phase output into fewer renderer calls.
// It flushes when sizeLimit bytes are buffered, when timeLimit elapses, and on Close.
type Batcher struct {
	sizeLimit int
	onFlush   func([]byte)

	mu     sync.Mutex
	buf    bytes.Buffer
	ticker *time.Ticker
	done   chan struct{}
	closed bool
}

// NewBatcher starts a batcher. Non-positive limits select the defaults.
func NewBatcher(sizeLimit int, timeLimit time.Duration, onFlush func([]byte)) *Batcher {
	if sizeLimit <= 0 {
		sizeLimit = DefaultSizeLimit
	}
	if timeLimit <= 0 {
		timeLimit = DefaultTimeLimit
	}

	b := &Batcher{
		sizeLimit: sizeLimit,
		onFlush:   onFlush,
		ticker:    time.NewTicker(timeLimit),
		done:      make(chan struct{}),
	}
	go b.loop()
	return b
}

// Write buffers p.
func (b *Batcher) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrBatcherClosed
	}

	n, _ := b.buf.Write(p)
	if b.buf.Len() >= b.sizeLimit {
		b.flushLocked()
	}
	return n, nil
}

// Flush hands buffered output to the callback immediately.
func (b *Batcher) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.flushLocked()
	}
}

// Close stops the timer and flushes what is left. It is safe to call twice.
func (b *Batcher) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	close(b.done)
	b.flushLocked()
	return nil
}

func (b *Batcher) loop() {
	defer b.ticker.Stop()
	for {
		select {
		case <-b.ticker.C:
			b.Flush()
		case <-b.done:
			return
		}
	}
}

// flushLocked must be called with mu held. The callback runs under the lock
// so chunks of one span are delivered in order.
func (b *Batcher) flushLocked() {
	if b.buf.Len() == 0 || b.onFlush == nil {
		b.buf.Reset()
		return
	}
	data := bytes.Clone(b.buf.Bytes())
	b.buf.Reset()
	b.onFlush(data)
}
