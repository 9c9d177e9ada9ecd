// Package observe holds the telemetry of revisa: OpenTelemetry metrics and
// spans, trace-aware logging, and instrumentation of the ops endpoint.
//
// [InitProvider] exports metrics in Prometheus format. Code without an
// injected [Metrics] uses [DefaultMetrics].
package observe

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Revisa metrics.
const meterName = "github.com/MrWong99/revisa"

// Metrics holds the instruments of a revisa process. All fields are safe for
// concurrent use.
type Metrics struct {
	// DocumentDuration tracks one whole document run. Attribute: mode.
	DocumentDuration metric.Float64Histogram

	// BatchDuration tracks one batch, from prompt to the last patch attempt.
	BatchDuration metric.Float64Histogram

	// LLMDuration tracks a single language-model call, retries excluded.
	LLMDuration metric.Float64Histogram

	// ProviderRequests counts provider API calls. Attributes: provider, status.
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider errors. Attributes: provider, kind.
	ProviderErrors metric.Int64Counter

	// Corrections counts correction records. Attributes: source, applied.
	Corrections metric.Int64Counter

	// PatchFailures counts records that could not be applied. Attribute: reason.
	PatchFailures metric.Int64Counter

	// Unresolved counts suggestions that matched no unit.
	Unresolved metric.Int64Counter

	// BreakerTransitions counts circuit breaker state changes.
	// Attributes: provider, state.
	BreakerTransitions metric.Int64Counter

	// Documents counts finished document runs. Attributes: mode, status.
	Documents metric.Int64Counter

	// ActiveDocuments tracks documents currently being processed.
	ActiveDocuments metric.Int64UpDownCounter

	// HTTPRequestDuration tracks ops endpoint latency. Attributes: route, status.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets (seconds) span a fast cached reply up to a slow full
// document.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300,
}

// NewMetrics creates every instrument from mp. Tests pass their own
// provider to keep readings apart.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	met := &Metrics{}

	histograms := []struct {
		dst        *metric.Float64Histogram
		name, desc string
	}{
		{&met.DocumentDuration, "revisa.document.duration", "Latency of a whole document run."},
		{&met.BatchDuration, "revisa.batch.duration", "Latency of one batch including the model call and patching."},
		{&met.LLMDuration, "revisa.llm.duration", "Latency of a single language-model call."},
		{&met.HTTPRequestDuration, "revisa.http.request.duration", "Ops endpoint latency by route and status class."},
	}
	for _, h := range histograms {
		inst, err := m.Float64Histogram(h.name,
			metric.WithDescription(h.desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(latencyBuckets...),
		)
		if err != nil {
			return nil, fmt.Errorf("observe: %s: %w", h.name, err)
		}
		*h.dst = inst
	}

	counters := []struct {
		dst        *metric.Int64Counter
		name, desc string
	}{
		{&met.ProviderRequests, "revisa.provider.requests", "Provider API requests by provider and status."},
		{&met.ProviderErrors, "revisa.provider.errors", "Provider errors by provider and kind."},
		{&met.Corrections, "revisa.corrections", "Correction records by source and applied flag."},
		{&met.PatchFailures, "revisa.patch.failures", "Corrections that could not be applied, by reason."},
		{&met.Unresolved, "revisa.corrections.unresolved", "Suggestions that matched no unit of their batch."},
		{&met.BreakerTransitions, "revisa.breaker.transitions", "Circuit breaker state changes by provider and new state."},
		{&met.Documents, "revisa.documents", "Finished document runs by mode and status."},
	}
	for _, c := range counters {
		inst, err := m.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("observe: %s: %w", c.name, err)
		}
		*c.dst = inst
	}

	var err error
	if met.ActiveDocuments, err = m.Int64UpDownCounter("revisa.active_documents",
		metric.WithDescription("Documents currently being processed."),
	); err != nil {
		return nil, fmt.Errorf("observe: revisa.active_documents: %w", err)
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Panics if instrument creation
// fails, which does not happen with the global provider.
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

// labels turns alternating keys and values into a measurement option.
func labels(kv ...string) metric.MeasurementOption {
	attrs := make([]attribute.KeyValue, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		attrs = append(attrs, attribute.String(kv[i], kv[i+1]))
	}
	return metric.WithAttributes(attrs...)
}

// RecordProviderRequest counts one provider call; status is "ok" or "error".
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, status string) {
	m.ProviderRequests.Add(ctx, 1, labels("provider", provider, "status", status))
}

// RecordProviderError counts one failed batch. kind is e.g. "exhausted" or
// "malformed".
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1, labels("provider", provider, "kind", kind))
}

// RecordCorrection counts one correction record.
func (m *Metrics) RecordCorrection(ctx context.Context, source string, applied bool) {
	m.Corrections.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.Bool("applied", applied),
	))
}

// RecordPatchFailure counts one record that was not applied.
func (m *Metrics) RecordPatchFailure(ctx context.Context, reason string) {
	m.PatchFailures.Add(ctx, 1, labels("reason", reason))
}

// RecordBreakerTransition counts one circuit breaker state change.
func (m *Metrics) RecordBreakerTransition(ctx context.Context, provider, state string) {
	m.BreakerTransitions.Add(ctx, 1, labels("provider", provider, "state", state))
}

// RecordDocument counts one finished document run.
func (m *Metrics) RecordDocument(ctx context.Context, mode, status string) {
	m.Documents.Add(ctx, 1, labels("mode", mode, "status", status))
}
