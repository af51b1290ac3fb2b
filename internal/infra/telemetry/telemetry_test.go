package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitTracer_NoopWhenEndpointUnset(t *testing.T) {
	t.Setenv(EnvEndpoint, "")
	prev := otel.GetTracerProvider()

	shutdown, err := InitTracer(context.Background(), "ascend-test", "0.0.1", "")
	if err != nil {
		t.Fatalf("InitTracer() error: %v", err)
	}
	defer shutdown(context.Background())

	if otel.GetTracerProvider() != prev {
		t.Error("global provider replaced without an endpoint")
	}
}

func TestTracer_UsesGlobalProvider(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})

	_, span := Tracer("test").Start(context.Background(), "flushed-span")
	span.End()

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	if spans[0].Name != "flushed-span" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "flushed-span")
	}
}
