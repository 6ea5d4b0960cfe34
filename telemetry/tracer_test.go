package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomind-ai/orchestrator-core/core"
)

func TestNewOTelTelemetrySatisfiesCoreTelemetry(t *testing.T) {
	tel, err := NewOTelTelemetry("orchestrator-core-test")
	require.NoError(t, err)
	defer tel.Shutdown(context.Background())

	var _ core.Telemetry = tel

	ctx, span := tel.StartSpan(context.Background(), "unit-test-span")
	require.NotNil(t, ctx)
	require.NotNil(t, span)

	span.SetAttribute("key", "value")
	span.RecordError(nil)
	span.End()
}

func TestOTelTelemetryDisabledReturnsNoopTracer(t *testing.T) {
	t.Setenv("OTEL_SDK_DISABLED", "true")

	tel, err := NewOTelTelemetry("disabled-test")
	require.NoError(t, err)
	assert.Nil(t, tel.tp)

	require.NoError(t, tel.Shutdown(context.Background()))
}
