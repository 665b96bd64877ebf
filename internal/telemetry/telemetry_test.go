package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/busops/ticket-counter/internal/telemetry"
)

func TestInit_NoEndpointIsNoop(t *testing.T) {
	shutdown, err := telemetry.Init(context.Background(), "", "ticket-counter")

	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
	assert.ElementsMatch(t, []string{"traceparent", "tracestate", "baggage"}, otel.GetTextMapPropagator().Fields())
}

func TestInit_WithEndpoint(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	// The gRPC exporter dials lazily, so Init succeeds without a collector.
	shutdown, err := telemetry.Init(context.Background(), "127.0.0.1:4317", "ticket-counter")
	require.NoError(t, err)
	assert.NotSame(t, prev, otel.GetTracerProvider())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = shutdown(ctx)
}
