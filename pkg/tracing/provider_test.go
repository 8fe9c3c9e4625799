package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	ctx := context.Background()

	t.Run("none leaves spans as no-ops", func(t *testing.T) {
		shutdown, err := Setup(ctx, Config{Exporter: "none"})
		require.NoError(t, err)
		assert.NoError(t, shutdown(ctx))
	})

	t.Run("unsupported exporter", func(t *testing.T) {
		_, err := Setup(ctx, Config{Exporter: "zipkin"})
		assert.ErrorContains(t, err, "unsupported tracing exporter")
	})

	t.Run("console records span ids", func(t *testing.T) {
		shutdown, err := Setup(ctx, Config{ServiceName: "clover-test", Exporter: "console", SampleRatio: 1})
		require.NoError(t, err)
		defer func() {
			_ = shutdown(ctx)
			SetTracer(nil)
		}()

		spanCtx, span := StartSpan(ctx, "tracing.Test")
		defer span.End()
		assert.NotEmpty(t, GetTraceID(spanCtx))
	})
}

func TestStartSpan_WithoutTracer(t *testing.T) {
	SetTracer(nil)
	ctx, span := StartSpan(context.Background(), "tracing.NoTracer")
	require.NotNil(t, span)
	assert.Empty(t, GetTraceID(ctx))
}
