// Package observability provides structured logging, metrics, and tracing
// for pipeline runs.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds pipeline context to a logger. Returns a new logger with
// run_id and stage fields.
func EnrichLogger(logger *slog.Logger, runID, stage string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("run_id", runID),
		slog.String("stage", stage),
	)
}

// LogRunStart logs the start of a pipeline run.
func LogRunStart(logger *slog.Logger, runID, experiment string, rawEvents, assignments int) {
	if logger == nil {
		return
	}
	logger.Info("pipeline run starting",
		slog.String("run_id", runID),
		slog.String("experiment", experiment),
		slog.Int("raw_events", rawEvents),
		slog.Int("assignments", assignments),
	)
}

// LogRunComplete logs successful pipeline completion.
func LogRunComplete(logger *slog.Logger, runID string, durationMs float64, exposed int) {
	if logger == nil {
		return
	}
	logger.Info("pipeline run completed",
		slog.String("run_id", runID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("exposed_users", exposed),
	)
}

// LogRunError logs pipeline failure.
func LogRunError(logger *slog.Logger, runID string, err error, durationMs float64, stage string) {
	if logger == nil {
		return
	}
	logger.Error("pipeline run failed",
		slog.String("run_id", runID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.String("stage", stage),
	)
}

// LogStageComplete logs one pipeline stage finishing.
func LogStageComplete(logger *slog.Logger, stage string, rows int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("stage completed",
		slog.String("stage", stage),
		slog.Int("rows", rows),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogSkippedRecords logs records dropped during normalization. Skips are a
// data-quality signal, so this logs at Warn even though the run continues.
func LogSkippedRecords(logger *slog.Logger, schemaSkips, unknownTypeSkips, clamped int) {
	if logger == nil {
		return
	}
	if schemaSkips == 0 && unknownTypeSkips == 0 && clamped == 0 {
		return
	}
	logger.Warn("records skipped during normalization",
		slog.Int("schema_mapping", schemaSkips),
		slog.Int("unknown_event_type", unknownTypeSkips),
		slog.Int("negative_revenue_clamped", clamped),
	)
}

// TimedOperation measures the duration of an operation. Returns a function
// that, when called, returns the elapsed time in milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
