// Package observe provides the observability primitives shared by every
// glyphfix package: OpenTelemetry metrics and tracing, trace-aware slog
// loggers and the HTTP middleware that ties them together.
//
// Instruments are created from a [metric.MeterProvider]. [InitProvider]
// installs one backed by a Prometheus exporter so the daemon can serve
// /metrics. Tests build their own [Metrics] with [NewMetrics] over a manual
// reader; production code uses [DefaultMetrics].
package observe

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the glyphfix instruments. All methods are safe for
// concurrent use.
type Metrics struct {
	// Correction pipeline.
	StageDuration metric.Float64Histogram // attr stage
	Corrections   metric.Int64Counter     // attrs stage, rule

	// Compilation.
	CompileDuration metric.Float64Histogram // attr success
	CompileTotal    metric.Int64Counter     // attr success

	// Scoring.
	ScoreDuration    metric.Float64Histogram
	ReviewRequired   metric.Int64Counter
	ProviderRequests metric.Int64Counter // attrs provider, status
	ProviderErrors   metric.Int64Counter // attrs provider, kind

	// Grading and HTTP.
	ActiveGrades        metric.Int64UpDownCounter
	HTTPRequestDuration metric.Float64Histogram // attrs method, path
}

// Bucket boundaries in seconds. Correction stages are in-process and fast;
// compiler and model calls take up to a minute.
var (
	stageBuckets   = []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1}
	latencyBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}
)

// builder creates instruments from one meter and collects creation errors
// so NewMetrics can report them together.
type builder struct {
	meter metric.Meter
	errs  []error
}

func (b *builder) histogram(name, desc string, buckets []float64) metric.Float64Histogram {
	opts := []metric.Float64HistogramOption{metric.WithDescription(desc), metric.WithUnit("s")}
	if buckets != nil {
		opts = append(opts, metric.WithExplicitBucketBoundaries(buckets...))
	}
	h, err := b.meter.Float64Histogram(name, opts...)
	b.errs = append(b.errs, err)
	return h
}

func (b *builder) counter(name, desc string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc))
	b.errs = append(b.errs, err)
	return c
}

func (b *builder) gauge(name, desc string) metric.Int64UpDownCounter {
	g, err := b.meter.Int64UpDownCounter(name, metric.WithDescription(desc))
	b.errs = append(b.errs, err)
	return g
}

// NewMetrics creates every instrument on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	b := &builder{meter: mp.Meter(scope)}
	m := &Metrics{
		StageDuration: b.histogram("glyphfix.correction.stage.duration",
			"Latency of one correction stage.", stageBuckets),
		Corrections: b.counter("glyphfix.corrections",
			"Applied corrections by stage and rule."),

		CompileDuration: b.histogram("glyphfix.compile.duration",
			"Latency of compiling one source file.", latencyBuckets),
		CompileTotal: b.counter("glyphfix.compile.total",
			"Compiler runs by outcome."),

		ScoreDuration: b.histogram("glyphfix.score.duration",
			"Latency of scoring one submission, retries included.", latencyBuckets),
		ReviewRequired: b.counter("glyphfix.score.review_required",
			"Scores flagged for manual review."),
		ProviderRequests: b.counter("glyphfix.provider.requests",
			"LLM provider requests by provider and status."),
		ProviderErrors: b.counter("glyphfix.provider.errors",
			"LLM provider errors by provider and kind."),

		ActiveGrades: b.gauge("glyphfix.grade.active",
			"Grading requests in flight."),
		HTTPRequestDuration: b.histogram("glyphfix.http.request.duration",
			"HTTP request latency by method and route.", nil),
	}
	if err := errors.Join(b.errs...); err != nil {
		return nil, err
	}
	return m, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the process-wide [Metrics] built on the global
// meter provider. Call it after [InitProvider]. It panics if the instruments
// cannot be created.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		m, err := NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: default metrics: " + err.Error())
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

// RecordStage records the duration of one correction stage run.
func (m *Metrics) RecordStage(ctx context.Context, stage string, seconds float64) {
	m.StageDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordCorrection counts one applied correction.
func (m *Metrics) RecordCorrection(ctx context.Context, stage, rule string) {
	m.Corrections.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("rule", rule),
	))
}

// RecordCompile records one compiler run and its outcome.
func (m *Metrics) RecordCompile(ctx context.Context, success bool, seconds float64) {
	attrs := metric.WithAttributes(attribute.String("success", strconv.FormatBool(success)))
	m.CompileDuration.Record(ctx, seconds, attrs)
	m.CompileTotal.Add(ctx, 1, attrs)
}

// RecordScore records one finished scoring run.
func (m *Metrics) RecordScore(ctx context.Context, seconds float64, needsReview bool) {
	m.ScoreDuration.Record(ctx, seconds)
	if needsReview {
		m.ReviewRequired.Add(ctx, 1)
	}
}

// RecordProviderRequest counts one provider call with status "ok" or "error".
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, status string) {
	m.ProviderRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", status),
	))
}

// RecordProviderError counts one provider failure of the given kind.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("kind", kind),
	))
}

// GradeStarted marks a grade as in flight. The returned func marks it done.
func (m *Metrics) GradeStarted(ctx context.Context) (done func()) {
	m.ActiveGrades.Add(ctx, 1)
	return func() { m.ActiveGrades.Add(ctx, -1) }
}
