// Package linear provides a line-oriented progress renderer for terminals and CI logs.
package linear

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/muesli/termenv"
	"go.trai.ch/oxidizer/internal/ui/output"
	"go.trai.ch/oxidizer/internal/ui/style"
)

// Renderer implements ports.Renderer by printing chronological phase lines.
// Phase output goes to logs, lifecycle lines go to status.
type Renderer struct {
	logs   io.Writer
	status *termenv.Output

	mu     sync.Mutex
	phases map[string]*phase
}

type phase struct {
	name    string
	depth   int
	started time.Time
	partial bytes.Buffer
}

// NewRenderer creates a Renderer. Nil writers default to stderr.
func NewRenderer(logs, status io.Writer) *Renderer {
	if logs == nil {
		logs = os.Stderr
	}
	if status == nil {
		status = os.Stderr
	}
	return &Renderer{
		logs:   logs,
		status: output.NewWithProfile(status, output.ColorProfileANSI),
		phases: make(map[string]*phase),
	}
}

// Start is a no-op; the renderer prints synchronously.
func (r *Renderer) Start(_ context.Context) error {
	return nil
}

// Stop flushes partial lines of phases that never completed.
func (r *Renderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.phases {
		r.flushLocked(p)
	}
	return nil
}

// Wait is a no-op; the renderer prints synchronously.
func (r *Renderer) Wait() error {
	return nil
}

// OnPlanEmit announces the targets of the session.
func (r *Renderer) OnPlanEmit(targets []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintf(r.status, "%s %d target(s)\n", style.Header("Benchmarking"), len(targets))
	for i, t := range targets {
		_, _ = fmt.Fprintf(r.status, "  %d. %s\n", i+1, t)
	}
}

// OnTaskStart prints the start of a phase, indented under its parent.
func (r *Renderer) OnTaskStart(spanID, parentID, name string, startTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := &phase{name: name, started: startTime}
	if parent, ok := r.phases[parentID]; ok {
		p.depth = parent.depth + 1
	}
	r.phases[spanID] = p

	_, _ = fmt.Fprintf(r.status, "%s%s %s\n",
		indent(p.depth), r.status.String(style.Dot).Faint(), name)
}

// OnTaskLog prints complete lines of phase output with the phase name as prefix.
func (r *Renderer) OnTaskLog(spanID string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.phases[spanID]
	if !ok {
		return
	}

	p.partial.Write(data)
	for {
		i := bytes.IndexByte(p.partial.Bytes(), '\n')
		if i < 0 {
			return
		}
		line := p.partial.Next(i + 1)
		r.printLineLocked(p, line)
	}
}

// OnTaskComplete prints the result and duration of a phase.
func (r *Renderer) OnTaskComplete(spanID string, endTime time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.phases[spanID]
	if !ok {
		return
	}
	r.flushLocked(p)
	delete(r.phases, spanID)

	elapsed := endTime.Sub(p.started).Round(time.Millisecond)
	if err != nil {
		mark := r.status.String(style.Cross).Foreground(termenv.ANSIRed)
		_, _ = fmt.Fprintf(r.status, "%s%s %s failed after %v: %v\n", indent(p.depth), mark, p.name, elapsed, err)
		return
	}
	mark := r.status.String(style.Check).Foreground(termenv.ANSIGreen)
	_, _ = fmt.Fprintf(r.status, "%s%s %s (%v)\n", indent(p.depth), mark, p.name, elapsed)
}

func (r *Renderer) flushLocked(p *phase) {
	if p.partial.Len() > 0 {
		r.printLineLocked(p, p.partial.Bytes())
		p.partial.Reset()
	}
}

func (r *Renderer) printLineLocked(p *phase, line []byte) {
	text := strings.TrimRight(string(line), "\r\n")
	if text == "" {
		return
	}
	_, _ = fmt.Fprintf(r.logs, "%s[%s] %s\n", indent(p.depth+1), p.name, text)
}

func indent(depth int) string {
	return strings.Repeat("  ", depth)
}
