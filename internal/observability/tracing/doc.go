// Package tracing provides OpenTelemetry tracing integration.
//
// A pipeline run opens a root span, each source and calendar gets a child
// span, and every batch delivery gets its own span. The trace ID is added to
// the run logger so log entries and spans can be correlated.
//
// Example usage:
//
//	shutdown := tracing.Setup()
//	defer shutdown(context.Background())
//
//	ctx, span := tracing.GetTracer().Start(ctx, "extract.source")
//	defer span.End()
package tracing
