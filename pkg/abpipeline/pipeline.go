package abpipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/saumya-sinha01/ecommerce-product-analytics-poc/pkg/abpipeline/config"
	"github.com/saumya-sinha01/ecommerce-product-analytics-poc/pkg/abpipeline/observability"
	"github.com/saumya-sinha01/ecommerce-product-analytics-poc/pkg/abpipeline/stats"
)

// spanHandle is a nil-tolerant wrapper around an optional stage span.
type spanHandle struct {
	span trace.Span
}

func (h spanHandle) end(err error) {
	if h.span == nil {
		return
	}
	observability.EndSpanWithError(h.span, err)
}

// Pipeline wires the engine stages into one explicit composition:
// normalize, resolve exposures, window outcomes, build marts, analyze.
// Construct with New; a Pipeline is immutable and safe for repeated Run
// calls.
type Pipeline struct {
	cfg           *config.Config
	exposureEvent EventType
	goalEvent     EventType
	normalizer    *Normalizer
	windower      *Windower
	logger        *slog.Logger
	metrics       observability.MetricsRecorder
	tracing       bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder. Default: observability.NoopMetrics.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(p *Pipeline) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithTracing enables OTel spans for the run and each stage.
// The global tracer provider must be configured separately.
func WithTracing() Option {
	return func(p *Pipeline) {
		p.tracing = true
	}
}

// New creates a Pipeline from validated configuration. The configured
// exposure and goal events are resolved against the canonical vocabulary
// here, so a misconfigured experiment fails before any data is read.
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	exposureEvent, ok := ParseEventType(cfg.Experiment.ExposureEvent)
	if !ok {
		return nil, ErrUnknownExposureEvent
	}
	goalEvent, ok := ParseEventType(cfg.Experiment.GoalEvent)
	if !ok {
		return nil, ErrUnknownGoalEvent
	}

	p := &Pipeline{
		cfg:           cfg,
		exposureEvent: exposureEvent,
		goalEvent:     goalEvent,
		normalizer:    NewNormalizer(cfg.Schema.Events.EventName),
		windower:      NewWindower(cfg.Experiment.Window.Std(), goalEvent),
		logger:        slog.Default(),
		metrics:       observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Result is the output of one pipeline run.
type Result struct {
	RunID  string        `json:"run_id"`
	Marts  *Marts        `json:"marts"`
	Report *stats.Report `json:"report"`

	// Data-quality counters surfaced to the operator.
	Normalize NormalizeStats `json:"normalize"`
	Assigned  int            `json:"assigned_users"`
	Unexposed int            `json:"unexposed_users"`
}

// Run executes the full batch over the given extract. The computation is a
// single pass with no shared mutable state; re-running on unchanged input
// produces byte-identical marts and an identical report.
//
// Per-record data-quality issues are counted and skipped. Structural
// errors (*AssignmentVariantError, *MartIntegrityError) and an empty
// variant (*stats.InsufficientDataError) abort the run.
func (p *Pipeline) Run(ctx context.Context, raws []RawEvent, assignments []Assignment) (*Result, error) {
	runID := uuid.NewString()
	done := observability.TimedOperation()
	observability.LogRunStart(p.logger, runID, p.cfg.Experiment.Name, len(raws), len(assignments))

	runCtx := ctx
	var runSpan spanHandle
	if p.tracing {
		runCtx, runSpan.span = observability.StartRunSpan(ctx, p.cfg.Experiment.Name, runID)
	}

	result, err := p.run(runCtx, runID, raws, assignments)

	elapsed := done()
	p.metrics.RecordRun(ctx, err == nil, time.Duration(elapsed)*time.Millisecond)
	if err != nil {
		observability.LogRunError(p.logger, runID, err, elapsed, "")
		runSpan.end(err)
		return nil, err
	}
	observability.LogRunComplete(p.logger, runID, elapsed, len(result.Marts.Exposure))
	runSpan.end(nil)
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, runID string, raws []RawEvent, assignments []Assignment) (*Result, error) {
	// Stage 1: normalize the raw extract onto the canonical schema.
	events, normStats, err := p.stageNormalize(ctx, raws)
	if err != nil {
		return nil, err
	}

	// Stage 2: resolve one exposure instant per assigned, exposed user.
	exposures, err := p.stageExposures(ctx, assignments, events)
	if err != nil {
		return nil, err
	}

	// Stage 3+4: window outcomes and assemble the marts.
	marts, err := p.stageMarts(ctx, exposures.Records, events)
	if err != nil {
		return nil, err
	}

	// Stage 5: statistical inference over the joined marts.
	report, err := p.stageAnalyze(ctx, marts)
	if err != nil {
		return nil, err
	}

	return &Result{
		RunID:     runID,
		Marts:     marts,
		Report:    report,
		Normalize: normStats,
		Assigned:  exposures.Assigned,
		Unexposed: exposures.Unexposed,
	}, nil
}

func (p *Pipeline) stageNormalize(ctx context.Context, raws []RawEvent) ([]Event, NormalizeStats, error) {
	done := observability.TimedOperation()
	span := p.startStage(ctx, "normalize")

	events, normStats := p.normalizer.NormalizeBatch(raws)

	observability.LogSkippedRecords(p.logger, normStats.SkippedSchema, normStats.SkippedUnknown, normStats.ClampedRevenue)
	p.metrics.RecordSkipped(ctx, "schema_mapping", normStats.SkippedSchema)
	p.metrics.RecordSkipped(ctx, "unknown_event_type", normStats.SkippedUnknown)
	p.finishStage(ctx, span, "normalize", len(events), done(), nil)
	return events, normStats, nil
}

func (p *Pipeline) stageExposures(ctx context.Context, assignments []Assignment, events []Event) (*ExposureResult, error) {
	done := observability.TimedOperation()
	span := p.startStage(ctx, "resolve_exposures")

	exposures, err := ResolveExposures(assignments, events, p.exposureEvent)
	if err != nil {
		p.finishStage(ctx, span, "resolve_exposures", 0, done(), err)
		return nil, err
	}
	p.finishStage(ctx, span, "resolve_exposures", len(exposures.Records), done(), nil)
	return exposures, nil
}

func (p *Pipeline) stageMarts(ctx context.Context, exposures []ExposureRecord, events []Event) (*Marts, error) {
	done := observability.TimedOperation()
	span := p.startStage(ctx, "build_marts")

	marts, err := BuildMarts(exposures, events, p.windower)
	if err != nil {
		p.finishStage(ctx, span, "build_marts", 0, done(), err)
		return nil, err
	}
	p.finishStage(ctx, span, "build_marts", len(marts.Outcomes), done(), nil)
	return marts, nil
}

func (p *Pipeline) stageAnalyze(ctx context.Context, marts *Marts) (*stats.Report, error) {
	done := observability.TimedOperation()
	span := p.startStage(ctx, "analyze")

	observations := make([]stats.Observation, len(marts.Outcomes))
	for i, out := range marts.Outcomes {
		observations[i] = stats.Observation{
			Treatment:      marts.Exposure[i].Variant == VariantTreatment,
			Purchased:      out.Purchased,
			NetRevenue:     out.NetRevenue,
			EventsInWindow: out.EventsInWindow,
		}
	}

	report, err := stats.Analyze(observations, p.cfg.Experiment.ConfidenceLevel)
	if err != nil {
		p.finishStage(ctx, span, "analyze", 0, done(), err)
		return nil, err
	}
	if report.RegressionError != "" {
		p.logger.Warn("regression skipped",
			slog.String("reason", report.RegressionError))
	}
	p.finishStage(ctx, span, "analyze", len(observations), done(), nil)
	return report, nil
}

func (p *Pipeline) startStage(ctx context.Context, stage string) spanHandle {
	var h spanHandle
	if p.tracing {
		_, h.span = observability.StartStageSpan(ctx, stage)
	}
	return h
}

func (p *Pipeline) finishStage(ctx context.Context, span spanHandle, stage string, rows int, elapsedMs float64, err error) {
	if err == nil {
		observability.LogStageComplete(p.logger, stage, rows, elapsedMs)
		p.metrics.RecordStage(ctx, stage, time.Duration(elapsedMs)*time.Millisecond, rows)
	}
	span.end(err)
}
