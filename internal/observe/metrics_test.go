package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// counterValue sums the data points of counter name whose attribute key has
// value.
func counterValue(rm metricdata.ResourceMetrics, name, key, value string) (int64, bool) {
	met := findMetric(rm, name)
	if met == nil {
		return 0, false
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		return 0, false
	}
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.Emit() == value {
			total += dp.Value
		}
	}
	return total, true
}

func TestRecorders(t *testing.T) {
	t.Parallel()
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordProviderRequest(ctx, "openai", "ok")
	m.RecordProviderRequest(ctx, "openai", "ok")
	m.RecordProviderRequest(ctx, "openai", "error")
	m.RecordProviderError(ctx, "openai", "malformed")
	m.RecordCorrection(ctx, "model", true)
	m.RecordCorrection(ctx, "model", false)
	m.RecordCorrection(ctx, "auto-detected", true)
	m.RecordPatchFailure(ctx, "not_found")
	m.RecordPatchFailure(ctx, "not_found")
	m.RecordPatchFailure(ctx, "guard")
	m.RecordBreakerTransition(ctx, "openai/gpt-4o", "open")
	m.RecordDocument(ctx, "revise", "ok")
	m.RecordDocument(ctx, "compare", "error")
	rm := collect(t, reader)

	tests := []struct {
		metric, key, value string
		want               int64
	}{
		{"revisa.provider.requests", "status", "ok", 2},
		{"revisa.provider.requests", "status", "error", 1},
		{"revisa.provider.errors", "kind", "malformed", 1},
		{"revisa.corrections", "source", "model", 2},
		{"revisa.corrections", "applied", "true", 2},
		{"revisa.patch.failures", "reason", "not_found", 2},
		{"revisa.breaker.transitions", "provider", "openai/gpt-4o", 1},
		{"revisa.documents", "mode", "compare", 1},
		{"revisa.documents", "status", "ok", 1},
	}
	for _, tt := range tests {
		got, ok := counterValue(rm, tt.metric, tt.key, tt.value)
		if !ok {
			t.Errorf("%s: not collected", tt.metric)
			continue
		}
		if got != tt.want {
			t.Errorf("%s{%s=%q}: got %d, want %d", tt.metric, tt.key, tt.value, got, tt.want)
		}
	}
}

func TestHistograms(t *testing.T) {
	t.Parallel()
	m, reader := newTestMetrics(t)
	ctx := context.Background()
	for _, h := range []struct {
		record func(float64)
	}{
		{func(v float64) { m.DocumentDuration.Record(ctx, v) }},
		{func(v float64) { m.BatchDuration.Record(ctx, v) }},
		{func(v float64) { m.LLMDuration.Record(ctx, v) }},
		{func(v float64) { m.HTTPRequestDuration.Record(ctx, v) }},
	} {
		h.record(0.2)
		h.record(45)
	}
	rm := collect(t, reader)

	for _, name := range []string{
		"revisa.document.duration", "revisa.batch.duration", "revisa.llm.duration", "revisa.http.request.duration",
	} {
		met := findMetric(rm, name)
		if met == nil {
			t.Errorf("%s: not collected", name)
			continue
		}
		hist, ok := met.Data.(metricdata.Histogram[float64])
		if !ok || len(hist.DataPoints) != 1 {
			t.Errorf("%s: want one histogram data point, got %T", name, met.Data)
			continue
		}
		dp := hist.DataPoints[0]
		if dp.Count != 2 {
			t.Errorf("%s: count got %d, want 2", name, dp.Count)
		}
		if len(dp.Bounds) != len(latencyBuckets) {
			t.Errorf("%s: got %d bounds, want %d", name, len(dp.Bounds), len(latencyBuckets))
		}
	}
}

func TestActiveDocuments(t *testing.T) {
	t.Parallel()
	m, reader := newTestMetrics(t)
	ctx := context.Background()
	m.ActiveDocuments.Add(ctx, 1)
	m.ActiveDocuments.Add(ctx, 1)
	m.ActiveDocuments.Add(ctx, -1)

	met := findMetric(collect(t, reader), "revisa.active_documents")
	if met == nil {
		t.Fatal("not collected")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 1 {
		t.Errorf("got %+v, want a single point of 1", met.Data)
	}
}

func TestDefaultMetrics_IsShared(t *testing.T) {
	t.Parallel()
	if DefaultMetrics() != DefaultMetrics() {
		t.Error("DefaultMetrics returned different instances")
	}
}
