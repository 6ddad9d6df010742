// Package observability groups the logging, metrics, tracing and error
// reporting used by the scraper pipeline.
//
// Subpackages:
//   - logging: slog loggers with run-scoped context propagation
//   - metrics: Prometheus collectors for sources, batches and deliveries
//   - tracing: OpenTelemetry spans per run, source and delivery
//   - errorreport: optional Sentry capture of fetch and delivery failures
package observability
