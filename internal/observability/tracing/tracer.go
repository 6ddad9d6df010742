package tracing

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName identifies spans created by this module.
const InstrumentationName = "politikk-moter"

// GetTracer returns the tracer for creating spans. It resolves the global
// provider on every call so a provider installed later (or by a test) is used.
//
// Example usage:
//
//	ctx, span := tracing.GetTracer().Start(ctx, "operation-name")
//	defer span.End()
func GetTracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// Setup installs an SDK tracer provider as the global provider and returns
// its shutdown function. Extra options (exporters, samplers) are passed
// through.
func Setup(opts ...sdktrace.TracerProviderOption) func(context.Context) error {
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp.Shutdown
}

// RecordError marks the span as failed. A nil error is ignored.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// TraceID returns the trace ID of the span in ctx, or "" when there is none.
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

// ErrNoSpan is returned by SpanFromContext when ctx carries no recording span.
var ErrNoSpan = errors.New("no recording span in context")

// SpanFromContext returns the recording span in ctx.
func SpanFromContext(ctx context.Context) (trace.Span, error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return span, ErrNoSpan
	}
	return span, nil
}
