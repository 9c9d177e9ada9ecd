package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope name for the Revisa tracer.
const tracerName = "github.com/MrWong99/revisa"

// Tracer returns the tracer of the globally registered [trace.TracerProvider].
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan starts a new span and returns the updated context and span. The
// caller must call span.End() when done.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// CorrelationID extracts the trace ID from the OTel span context in ctx.
// Returns the empty string when no active span with a valid trace ID exists.
func CorrelationID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

type runKey struct{}

type runInfo struct {
	id       string
	document string
}

// WithRun attaches a run ID and document path to ctx. [Logger] adds both to
// every record logged under ctx.
func WithRun(ctx context.Context, runID, document string) context.Context {
	return context.WithValue(ctx, runKey{}, runInfo{id: runID, document: document})
}

// RunID returns the run ID attached by [WithRun], or "".
func RunID(ctx context.Context) string {
	ri, _ := ctx.Value(runKey{}).(runInfo)
	return ri.id
}

// Logger returns the default [slog.Logger] enriched with trace_id and span_id
// of the active span and with the run attached by [WithRun].
func Logger(ctx context.Context) *slog.Logger {
	l := slog.Default()
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		l = l.With(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	if ri, ok := ctx.Value(runKey{}).(runInfo); ok {
		l = l.With(
			slog.String("run_id", ri.id),
			slog.String("document", ri.document),
		)
	}
	return l
}
