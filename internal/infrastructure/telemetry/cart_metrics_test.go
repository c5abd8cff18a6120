package telemetry_test

import (
	"context"
	"testing"

	"github.com/shophuyvan/shophuyvan-sub002/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestCartMetrics(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(ctx) })

	metrics, err := telemetry.NewCartMetrics(provider.Meter("test"))
	require.NoError(t, err)

	metrics.RecordPull(ctx, true)
	metrics.RecordPull(ctx, false)
	metrics.RecordPush(ctx, "web", 2)
	metrics.RecordPush(ctx, "mini", 7)
	metrics.RecordClear(ctx)
	metrics.RecordError(ctx, "push")

	got := collect(t, reader)
	assert.EqualValues(t, 2, sumOf(t, got["cart_sync_pull_total"]))
	assert.EqualValues(t, 2, sumOf(t, got["cart_sync_push_total"]))
	assert.EqualValues(t, 1, sumOf(t, got["cart_sync_clear_total"]))
	assert.EqualValues(t, 1, sumOf(t, got["cart_sync_errors_total"]))

	hist, ok := got["cart_sync_items"].Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	var count uint64
	var sum int64
	for _, dp := range hist.DataPoints {
		count += dp.Count
		sum += dp.Sum
	}
	assert.EqualValues(t, 2, count)
	assert.EqualValues(t, 9, sum)
}
