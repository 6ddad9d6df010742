// Package logging provides structured logging utilities with context propagation.
//
// Every pipeline run gets its own logger carrying a run_id attribute. The
// logger travels in the context so parsers and collaborators log with the
// same attributes as the run that invoked them.
//
// Example usage:
//
//	logger := logging.NewLogger()
//	ctx := logging.WithLogger(ctx, logging.WithRunID(logger, runID))
//	logging.FromContext(ctx).Info("pipeline started")
package logging
