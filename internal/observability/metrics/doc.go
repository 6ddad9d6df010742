// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes the pipeline metrics:
//   - Source metrics (records extracted, fetch failures, extraction duration)
//   - Calendar metrics (records merged per calendar)
//   - Pipeline metrics (runs, demo fallbacks, batch sizes)
//   - Delivery metrics (per batch, by status)
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint of the worker.
//
// Example usage:
//
//	start := time.Now()
//	meetings, err := parser.Parse(ctx, page, src)
//	metrics.RecordSourceExtraction(src.Name, string(src.Type), len(meetings), time.Since(start))
package metrics
