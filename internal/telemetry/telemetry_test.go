package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestInitReturnsProvider(t *testing.T) {
	ctx := context.Background()
	// Exports will fail without a collector but init must not.
	p, err := Init(ctx, "test-service", "http://localhost:4318", "test")
	require.NoError(t, err)
	assert.NotNil(t, p.Tracer)
	assert.NotNil(t, p.Meter)
	assert.NotNil(t, p.TracerProvider)
	assert.NotNil(t, p.MeterProvider)

	// The final metric export has no collector to reach; only check that
	// shutdown returns within its deadline.
	shutdownCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	_ = p.Shutdown(shutdownCtx)
}

func TestHarnessMetricsRecord(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(ctx)

	m, err := NewHarnessMetrics(mp.Meter("test"))
	require.NoError(t, err)

	m.RecordFetch(ctx, FetchParams{Retailer: "backcountry", Outcome: "success", StatusCode: 200, DurationSec: 0.2, Options: 2})
	m.RecordFetch(ctx, FetchParams{Retailer: "backcountry", Outcome: "failed", DurationSec: 0.1})
	m.RecordReadiness(ctx, "ready", 1.5)
	m.ScriptLoadAttempt.Add(ctx, 1)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	names := map[string]bool{}
	for _, md := range rm.ScopeMetrics[0].Metrics {
		names[md.Name] = true
	}
	assert.True(t, names["promise.api.fetch.count"])
	assert.True(t, names["promise.api.fetch.duration"])
	assert.True(t, names["promise.api.delivery_options"])
	assert.True(t, names["promise.widget.readiness.count"])
	assert.True(t, names["promise.widget.readiness.duration"])
	assert.True(t, names["promise.widget.script_load.attempts"])
}
