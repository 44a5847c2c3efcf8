// Package observe provides observability primitives for voxkey:
// OpenTelemetry metrics with a Prometheus exporter bridge.
//
// Metrics are recorded through the OpenTelemetry Metrics API and scraped via
// the standard /metrics endpoint exposed by the host daemon. A package-level
// default [Metrics] instance ([DefaultMetrics]) is provided for convenience;
// tests should use [NewMetrics] with a custom [metric.MeterProvider] to
// avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all voxkey metrics.
const meterName = "github.com/voxkey/voxkey"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// RecordingDuration tracks the length of dictation recordings from
	// startRecording to stopRecording.
	RecordingDuration metric.Float64Histogram

	// CleanupDuration tracks LLM transcript cleanup latency.
	CleanupDuration metric.Float64Histogram

	// ParseDuration tracks natural-language parse latency.
	ParseDuration metric.Float64Histogram

	// --- Counters ---

	// Dictations counts completed dictation round-trips. Use with
	// attribute.String("outcome", "ready"|"cancelled"|"error").
	Dictations metric.Int64Counter

	// Parses counts parser invocations. Use with
	// attribute.String("status", "valid"|"invalid").
	Parses metric.Int64Counter

	// StateTransitions counts session status changes. Use with
	// attribute.String("to", ...).
	StateTransitions metric.Int64Counter

	// CleanupFallbacks counts dictations where the cleanup backend was
	// unavailable and the raw transcript was used.
	CleanupFallbacks metric.Int64Counter

	// --- Gauges ---

	// ActiveRecordings tracks recordings currently in flight (0 or 1 in
	// practice; the instrument keeps the invariant visible).
	ActiveRecordings metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// the dictation pipeline: parses are sub-millisecond, cleanup calls are
// network-bound, recordings run for seconds.
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.RecordingDuration, err = m.Float64Histogram("voxkey.recording.duration",
		metric.WithDescription("Length of dictation recordings."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CleanupDuration, err = m.Float64Histogram("voxkey.cleanup.duration",
		metric.WithDescription("Latency of LLM transcript cleanup."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ParseDuration, err = m.Float64Histogram("voxkey.parse.duration",
		metric.WithDescription("Latency of natural-language parsing."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.Dictations, err = m.Int64Counter("voxkey.dictations",
		metric.WithDescription("Completed dictation round-trips by outcome."),
	); err != nil {
		return nil, err
	}
	if met.Parses, err = m.Int64Counter("voxkey.parses",
		metric.WithDescription("Parser invocations by validity."),
	); err != nil {
		return nil, err
	}
	if met.StateTransitions, err = m.Int64Counter("voxkey.state.transitions",
		metric.WithDescription("Session status transitions by target state."),
	); err != nil {
		return nil, err
	}
	if met.CleanupFallbacks, err = m.Int64Counter("voxkey.cleanup.fallbacks",
		metric.WithDescription("Dictations that fell back to the raw transcript."),
	); err != nil {
		return nil, err
	}

	if met.ActiveRecordings, err = m.Int64UpDownCounter("voxkey.active_recordings",
		metric.WithDescription("Recordings currently in flight."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer. Panics if instrument creation fails (should not happen with
// the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordDictation records a completed dictation round-trip.
func (m *Metrics) RecordDictation(ctx context.Context, outcome string) {
	m.Dictations.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordParse records one parser invocation.
func (m *Metrics) RecordParse(ctx context.Context, valid bool, seconds float64) {
	status := "valid"
	if !valid {
		status = "invalid"
	}
	m.Parses.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	m.ParseDuration.Record(ctx, seconds)
}

// RecordTransition records a session status change.
func (m *Metrics) RecordTransition(ctx context.Context, to string) {
	m.StateTransitions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("to", to)))
}
