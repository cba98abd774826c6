package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/oxidizer/internal/core/ports"
)

// Bridge is a span processor that reports phase starts and ends to a Renderer.
type Bridge struct {
	renderer ports.Renderer
}

var _ sdktrace.SpanProcessor = (*Bridge)(nil)

// NewBridge returns a Bridge feeding renderer.
func NewBridge(renderer ports.Renderer) *Bridge {
	return &Bridge{renderer: renderer}
}

// OnStart reports the span as a started phase.
func (b *Bridge) OnStart(_ context.Context, s sdktrace.ReadWriteSpan) {
	if b.renderer == nil || !s.SpanContext().IsValid() {
		return
	}

	var parentID string
	if parent := s.Parent(); parent.IsValid() {
		parentID = parent.SpanID().String()
	}

	b.renderer.OnTaskStart(s.SpanContext().SpanID().String(), parentID, s.Name(), s.StartTime())
}

// OnEnd reports the span as a completed phase, failed if its status is an error.
func (b *Bridge) OnEnd(s sdktrace.ReadOnlySpan) {
	if b.renderer == nil || !s.SpanContext().IsValid() {
		return
	}
	b.renderer.OnTaskComplete(s.SpanContext().SpanID().String(), s.EndTime(), statusErr(s))
}

func statusErr(s sdktrace.ReadOnlySpan) error {
	status := s.Status()
	if status.Code != codes.Error {
		return nil
	}
	if status.Description == "" {
		return errors.New("phase failed")
	}
	return errors.New(status.Description)
}

// ForceFlush does nothing.
func (b *Bridge) ForceFlush(_ context.Context) error {
	return nil
}

// Shutdown does nothing.
func (b *Bridge) Shutdown(_ context.Context) error {
	return nil
}
