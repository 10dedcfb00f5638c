// Package observe provides the observability primitives for voxkey:
// OpenTelemetry metric instruments and a Prometheus exporter bridge so the
// pipeline can be watched through a standard /metrics endpoint.
//
// A package-level default [Metrics] instance ([DefaultMetrics]) is provided
// for convenience; tests should use [NewMetrics] with their own
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope for all voxkey metrics.
const meterName = "github.com/voxkey/voxkey"

// Metrics holds the metric instruments for the dictation pipeline. All
// fields are safe for concurrent use.
type Metrics struct {
	// FramesProcessed counts audio frames through the voice activity
	// detector. Attribute: speech ("true"/"false").
	FramesProcessed metric.Int64Counter

	// SegmentsDetected counts completed speech segments.
	SegmentsDetected metric.Int64Counter

	// TranscriptionDuration tracks recogniser latency per segment.
	TranscriptionDuration metric.Float64Histogram

	// CorrectionDuration tracks correction-engine latency per utterance.
	CorrectionDuration metric.Float64Histogram

	// CorrectionsApplied counts individual text substitutions.
	CorrectionsApplied metric.Int64Counter

	// InjectionDuration tracks end-to-end injection latency.
	InjectionDuration metric.Float64Histogram

	// Injections counts injection results. Attribute: outcome.
	Injections metric.Int64Counter

	// ActiveSessions tracks live dictation sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram boundaries (in seconds) sized for a
// dictation loop: sub-10ms correction passes up to multi-second
// transcriptions.
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates all instruments on the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.FramesProcessed, err = m.Int64Counter("voxkey.audio.frames",
		metric.WithDescription("Audio frames processed by the voice activity detector."),
	); err != nil {
		return nil, err
	}
	if met.SegmentsDetected, err = m.Int64Counter("voxkey.audio.segments",
		metric.WithDescription("Completed speech segments."),
	); err != nil {
		return nil, err
	}
	if met.TranscriptionDuration, err = m.Float64Histogram("voxkey.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription per segment."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CorrectionDuration, err = m.Float64Histogram("voxkey.correction.duration",
		metric.WithDescription("Latency of the correction engine per utterance."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CorrectionsApplied, err = m.Int64Counter("voxkey.correction.applied",
		metric.WithDescription("Individual text substitutions applied."),
	); err != nil {
		return nil, err
	}
	if met.InjectionDuration, err = m.Float64Histogram("voxkey.injection.duration",
		metric.WithDescription("Latency of text injection per utterance."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Injections, err = m.Int64Counter("voxkey.injection.results",
		metric.WithDescription("Injection results by outcome."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("voxkey.active_sessions",
		metric.WithDescription("Live dictation sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call from the global meter provider.
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

// RecordFrame counts one VAD frame.
func (m *Metrics) RecordFrame(ctx context.Context, speech bool) {
	val := "false"
	if speech {
		val = "true"
	}
	m.FramesProcessed.Add(ctx, 1, metric.WithAttributes(attribute.String("speech", val)))
}

// RecordInjection counts one injection result by outcome.
func (m *Metrics) RecordInjection(ctx context.Context, outcome string, seconds float64) {
	m.Injections.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	m.InjectionDuration.Record(ctx, seconds)
}
