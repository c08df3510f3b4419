package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInit_WithoutEndpoint(t *testing.T) {
	prev := otel.GetTracerProvider()

	shutdown, err := Init(context.Background(), "", "florist-storefront")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
	assert.Equal(t, prev, otel.GetTracerProvider())
}

func TestInit_InstallsProvider(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	for _, endpoint := range []string{"localhost:4317", "http://localhost:4317"} {
		shutdown, err := Init(context.Background(), endpoint, "florist-storefront")
		require.NoError(t, err, endpoint)

		_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
		assert.True(t, ok, endpoint)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_ = shutdown(ctx)
		cancel()
	}
}
