package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.trai.ch/oxidizer/internal/adapters/telemetry"
	"go.trai.ch/oxidizer/internal/core/ports"
	"go.trai.ch/oxidizer/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func TestInterfaceSatisfaction(_ *testing.T) {
	var _ ports.Tracer = (*telemetry.OTelTracer)(nil)
	var _ ports.Span = (*telemetry.OTelSpan)(nil)
	var _ ports.Tracer = (*telemetry.NoOpTracer)(nil)
	var _ ports.Span = telemetry.NoOpSpan{}
}

func TestOTelTracer_SpanAttributesAndErrors(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := telemetry.NewProvider(sr)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	tracer := telemetry.NewOTelTracerWithProvider(tp, "test")

	_, span := tracer.Start(context.Background(), "run fib", ports.WithAttribute("run.count", 10))
	span.SetAttribute("target.build_dir", "/tmp/b")
	span.RecordError(errors.New("run failed"))
	n, err := span.Write([]byte("output"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	span.End()

	ended := sr.Ended()
	require.Len(t, ended, 1)
	got := ended[0]
	assert.Equal(t, "run fib", got.Name())
	assert.Contains(t, got.Attributes(), attribute.Int("run.count", 10))
	assert.Contains(t, got.Attributes(), attribute.String("target.build_dir", "/tmp/b"))
	assert.Equal(t, codes.Error, got.Status().Code)

	var names []string
	for _, e := range got.Events() {
		names = append(names, e.Name)
	}
	assert.Contains(t, names, "output")
}

func TestOTelTracer_StreamsToRenderer(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRenderer := mocks.NewMockRenderer(ctrl)

	sr := tracetest.NewSpanRecorder()
	tp := telemetry.NewProvider(sr)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	tracer := telemetry.NewOTelTracerWithProvider(tp, "test").WithRenderer(mockRenderer)

	mockRenderer.EXPECT().OnPlanEmit([]string{"a.c:s:clang", "b.c:s:gcc"})
	tracer.EmitPlan(context.Background(), []string{"a.c:s:clang", "b.c:s:gcc"})

	_, span := tracer.Start(context.Background(), "build a")
	mockRenderer.EXPECT().OnTaskLog(gomock.Any(), []byte("compiling\n"))
	_, err := span.Write([]byte("compiling\n"))
	require.NoError(t, err)
	span.End()
}

func TestOTelTracer_EmitPlanAddsEvent(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := telemetry.NewProvider(sr)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	tracer := telemetry.NewOTelTracerWithProvider(tp, "test")
	ctx, root := tracer.Start(context.Background(), "session")
	tracer.EmitPlan(ctx, []string{"a.c:s:clang"})
	root.End()

	ended := sr.Ended()
	require.Len(t, ended, 1)
	require.Len(t, ended[0].Events(), 1)
	assert.Equal(t, "plan_emitted", ended[0].Events()[0].Name)
}

func TestNoOpTracer(t *testing.T) {
	t.Parallel()

	tracer := telemetry.NewNoOpTracer()
	ctx := context.Background()
	tracer.EmitPlan(ctx, []string{"a"})

	newCtx, span := tracer.Start(ctx, "span", ports.WithAttribute("k", "v"))
	assert.Equal(t, ctx, newCtx)

	span.SetAttribute("int", 1)
	span.RecordError(errors.New("boom"))
	n, err := span.Write([]byte("data"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	span.End()
}
