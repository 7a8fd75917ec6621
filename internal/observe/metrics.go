// Package observe provides application-wide observability primitives for
// Grimoire: OpenTelemetry metrics, structured logging helpers, and HTTP
// middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Grimoire metrics.
const meterName = "github.com/spielleiter/grimoire"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// TurnDuration tracks end-to-end chat turn latency, from request to
	// persisted memory.
	TurnDuration metric.Float64Histogram

	// GenerationDuration tracks LLM completion latency. Use with attribute:
	//   attribute.String("purpose", "reply"|"summary"|"content")
	GenerationDuration metric.Float64Histogram

	// --- Counters ---

	// Turns counts completed chat turns. Use with attributes:
	//   attribute.String("npc_id", ...), attribute.String("status", ...)
	Turns metric.Int64Counter

	// Compactions counts memory compaction attempts. Use with attribute:
	//   attribute.String("status", "success"|"fallback")
	Compactions metric.Int64Counter

	// ProviderErrors counts LLM provider errors. Use with attribute:
	//   attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// LLM round-trip latencies.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.TurnDuration, err = m.Float64Histogram("grimoire.chat.turn.duration",
		metric.WithDescription("End-to-end latency of a chat turn."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.GenerationDuration, err = m.Float64Histogram("grimoire.generation.duration",
		metric.WithDescription("Latency of LLM completions by purpose."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Turns, err = m.Int64Counter("grimoire.chat.turns",
		metric.WithDescription("Total chat turns by NPC ID and status."),
	); err != nil {
		return nil, err
	}
	if met.Compactions, err = m.Int64Counter("grimoire.chat.compactions",
		metric.WithDescription("Total memory compaction attempts by status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("grimoire.provider.errors",
		metric.WithDescription("Total LLM provider errors by kind."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("grimoire.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
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

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
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

// RecordTurn records a completed (or failed) chat turn with the standard
// attribute set.
func (m *Metrics) RecordTurn(ctx context.Context, npcID, status string, seconds float64) {
	attrs := metric.WithAttributes(
		attribute.String("npc_id", npcID),
		attribute.String("status", status),
	)
	m.Turns.Add(ctx, 1, attrs)
	m.TurnDuration.Record(ctx, seconds, attrs)
}

// RecordGeneration records an LLM completion latency sample.
func (m *Metrics) RecordGeneration(ctx context.Context, purpose string, seconds float64) {
	m.GenerationDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("purpose", purpose)),
	)
}

// RecordCompaction records a memory compaction attempt.
func (m *Metrics) RecordCompaction(ctx context.Context, status string) {
	m.Compactions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordProviderError records an LLM provider error by classification kind.
func (m *Metrics) RecordProviderError(ctx context.Context, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}
