package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records pipeline metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordStage records one stage execution with its duration and row count.
	RecordStage(ctx context.Context, stage string, duration time.Duration, rows int)

	// RecordRun records a pipeline run completion.
	RecordRun(ctx context.Context, success bool, duration time.Duration)

	// RecordSkipped records raw records dropped during normalization.
	RecordSkipped(ctx context.Context, cause string, count int)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	stageRows      metric.Int64Counter
	stageLatency   metric.Float64Histogram
	runs           metric.Int64Counter
	runLatency     metric.Float64Histogram
	skippedRecords metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("abpipeline")

	stageRows, err := meter.Int64Counter("abpipeline.stage.rows",
		metric.WithDescription("Rows produced per pipeline stage"),
	)
	if err != nil {
		return nil, err
	}

	stageLatency, err := meter.Float64Histogram("abpipeline.stage.latency_ms",
		metric.WithDescription("Stage execution latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	runs, err := meter.Int64Counter("abpipeline.runs",
		metric.WithDescription("Number of pipeline runs"),
	)
	if err != nil {
		return nil, err
	}

	runLatency, err := meter.Float64Histogram("abpipeline.run.latency_ms",
		metric.WithDescription("Pipeline run latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	skippedRecords, err := meter.Int64Counter("abpipeline.records.skipped",
		metric.WithDescription("Raw records skipped during normalization"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		stageRows:      stageRows,
		stageLatency:   stageLatency,
		runs:           runs,
		runLatency:     runLatency,
		skippedRecords: skippedRecords,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordStage records one stage execution.
func (m *otelMetrics) RecordStage(ctx context.Context, stage string, duration time.Duration, rows int) {
	attrs := []attribute.KeyValue{
		attribute.String("stage", stage),
	}
	m.stageRows.Add(ctx, int64(rows), metric.WithAttributes(attrs...))
	m.stageLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordRun records a pipeline run.
func (m *otelMetrics) RecordRun(ctx context.Context, success bool, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.Bool("success", success),
	}
	m.runs.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.runLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordSkipped records dropped raw records by cause.
func (m *otelMetrics) RecordSkipped(ctx context.Context, cause string, count int) {
	if count == 0 {
		return
	}
	m.skippedRecords.Add(ctx, int64(count), metric.WithAttributes(
		attribute.String("cause", cause),
	))
}
