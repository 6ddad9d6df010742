// Package report splits a pipeline's meetings into delivery batches and
// renders each batch as a Slack message.
package report
