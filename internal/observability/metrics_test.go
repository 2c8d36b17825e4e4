package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/abk1969/ai-act-assistant-sub000/internal/generation"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumOf(t *testing.T, data metricdata.Aggregation) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "expected int64 sum, got %T", data)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetricsRecord(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	m, err := NewMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordSource(ctx, "eur-lex", true, 4)
	m.RecordSource(ctx, "ai-office", false, 0)
	m.RecordGeneration(ctx, "analysis", generation.Stats{Generated: 2, Malformed: 1})
	m.RecordFallbacks(ctx, "analysis", 1)
	m.RecordFallbacks(ctx, "planning", 0)
	m.RecordPersist(ctx, nil)
	m.RecordPersist(ctx, errors.New("down"))
	m.RecordRun(ctx, 1500*time.Millisecond, 3)

	got := collect(t, reader)
	assert.Equal(t, int64(4), sumOf(t, got["regwatch.documents.collected"]))
	assert.Equal(t, int64(1), sumOf(t, got["regwatch.source.failures"]))
	assert.Equal(t, int64(3), sumOf(t, got["regwatch.generation.attempts"]))
	assert.Equal(t, int64(1), sumOf(t, got["regwatch.stage.fallbacks"]))
	assert.Equal(t, int64(1), sumOf(t, got["regwatch.insights.persisted"]))
	assert.Equal(t, int64(1), sumOf(t, got["regwatch.insights.persist_failures"]))

	hist, ok := got["regwatch.run.duration"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.InDelta(t, 1.5, hist.DataPoints[0].Sum, 1e-9)
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordSource(ctx, "x", true, 1)
	m.RecordGeneration(ctx, "analysis", generation.Stats{Generated: 1})
	m.RecordFallbacks(ctx, "analysis", 1)
	m.RecordPersist(ctx, nil)
	m.RecordRun(ctx, time.Second, 0)
}

func TestNewMetricsDefaultsToGlobalMeter(t *testing.T) {
	m, err := NewMetrics(nil)
	require.NoError(t, err)
	assert.NotNil(t, m)
}
