// Package observability records pipeline metrics through OpenTelemetry.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/abk1969/ai-act-assistant-sub000/internal/generation"
)

const meterName = "github.com/abk1969/ai-act-assistant-sub000"

// Metrics holds the pipeline instruments. A nil *Metrics records nothing.
type Metrics struct {
	documents   metric.Int64Counter
	sourceFails metric.Int64Counter
	generations metric.Int64Counter
	fallbacks   metric.Int64Counter
	persisted   metric.Int64Counter
	persistFail metric.Int64Counter
	runDuration metric.Float64Histogram
}

// NewMetrics creates instruments on meter, or on the global meter provider when meter is nil.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(meterName)
	}

	m := &Metrics{}
	var err error

	if m.documents, err = meter.Int64Counter("regwatch.documents.collected",
		metric.WithDescription("Documents returned by source adapters"),
		metric.WithUnit("{document}"),
	); err != nil {
		return nil, fmt.Errorf("documents counter: %w", err)
	}
	if m.sourceFails, err = meter.Int64Counter("regwatch.source.failures",
		metric.WithDescription("Source adapter calls that failed"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, fmt.Errorf("source failures counter: %w", err)
	}
	if m.generations, err = meter.Int64Counter("regwatch.generation.attempts",
		metric.WithDescription("Text generation attempts by stage and outcome"),
		metric.WithUnit("{attempt}"),
	); err != nil {
		return nil, fmt.Errorf("generation counter: %w", err)
	}
	if m.fallbacks, err = meter.Int64Counter("regwatch.stage.fallbacks",
		metric.WithDescription("Items that received a fallback or conservative result"),
		metric.WithUnit("{item}"),
	); err != nil {
		return nil, fmt.Errorf("fallback counter: %w", err)
	}
	if m.persisted, err = meter.Int64Counter("regwatch.insights.persisted",
		metric.WithDescription("Insight summaries written to the store"),
		metric.WithUnit("{insight}"),
	); err != nil {
		return nil, fmt.Errorf("persisted counter: %w", err)
	}
	if m.persistFail, err = meter.Int64Counter("regwatch.insights.persist_failures",
		metric.WithDescription("Insight summaries the store rejected"),
		metric.WithUnit("{insight}"),
	); err != nil {
		return nil, fmt.Errorf("persist failures counter: %w", err)
	}
	if m.runDuration, err = meter.Float64Histogram("regwatch.run.duration",
		metric.WithDescription("Wall-clock duration of a pipeline run"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("run duration histogram: %w", err)
	}

	return m, nil
}

// RecordSource counts one source call.
func (m *Metrics) RecordSource(ctx context.Context, source string, success bool, documents int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("source", source))
	if !success {
		m.sourceFails.Add(ctx, 1, attrs)
		return
	}
	m.documents.Add(ctx, int64(documents), attrs)
}

// RecordGeneration adds a stage's generation outcomes.
func (m *Metrics) RecordGeneration(ctx context.Context, stage string, stats generation.Stats) {
	if m == nil {
		return
	}
	for status, n := range map[generation.Status]int{
		generation.Generated:   stats.Generated,
		generation.Unavailable: stats.Unavailable,
		generation.Malformed:   stats.Malformed,
	} {
		if n == 0 {
			continue
		}
		m.generations.Add(ctx, int64(n), metric.WithAttributes(
			attribute.String("stage", stage),
			attribute.String("status", status.String()),
		))
	}
}

// RecordFallbacks counts items a stage could not process normally.
func (m *Metrics) RecordFallbacks(ctx context.Context, stage string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.fallbacks.Add(ctx, int64(n), metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordPersist counts one store write.
func (m *Metrics) RecordPersist(ctx context.Context, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.persistFail.Add(ctx, 1)
		return
	}
	m.persisted.Add(ctx, 1)
}

// RecordRun observes the duration of a completed run.
func (m *Metrics) RecordRun(ctx context.Context, d time.Duration, insights int) {
	if m == nil {
		return
	}
	m.runDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.Bool("produced_insights", insights > 0)))
}
