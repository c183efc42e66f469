package observability

import (
	"context"
	"errors"
	"testing"
)

func TestNewTracerNoEndpointIsNoop(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{ServiceName: "replay-test"})
	defer shutdown(context.Background())

	if tracer == nil {
		t.Fatal("NewTracer() returned nil")
	}

	ctx, span := tracer.Start(context.Background(), "operation")
	defer span.End()
	if ctx == nil {
		t.Fatal("Start() returned nil context")
	}
}

func TestWithSpanPassesErrorThrough(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{ServiceName: "replay-test"})
	defer shutdown(context.Background())

	want := errors.New("stage failed")
	got := WithSpan(context.Background(), tracer, "stage", func(ctx context.Context) error {
		return want
	})
	if !errors.Is(got, want) {
		t.Errorf("WithSpan() error = %v, want %v", got, want)
	}

	if err := WithSpan(context.Background(), tracer, "stage", func(ctx context.Context) error {
		return nil
	}); err != nil {
		t.Errorf("WithSpan() error = %v", err)
	}
}

func TestTraceHelpersProduceSpans(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{ServiceName: "replay-test"})
	defer shutdown(context.Background())

	ctx := context.Background()

	_, span := tracer.TraceExecution(ctx, "sess-1", "claude-3")
	span.End()

	_, span = tracer.TraceProcessRun(ctx, "code")
	span.End()

	_, span = tracer.TraceStoreOp(ctx, "fork", "sess-1")
	span.End()
}

func TestGetTraceIDWithoutSpan(t *testing.T) {
	if id := GetTraceID(context.Background()); id != "" {
		t.Errorf("GetTraceID(empty ctx) = %q", id)
	}
}
