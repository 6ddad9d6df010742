package metrics

import "time"

// RecordSourceExtraction records a successful extraction of one source.
// A zero count is still recorded so the source shows up in dashboards.
func RecordSourceExtraction(source, sourceType string, count int, duration time.Duration) {
	SourceRecordsTotal.WithLabelValues(source, sourceType).Add(float64(count))
	SourceExtractionDuration.WithLabelValues(sourceType).Observe(duration.Seconds())
}

// RecordSourceFailure records a source that contributed zero records because
// of an error. Reason is a short classification such as "fetch" or "render".
func RecordSourceFailure(source, reason string) {
	SourceFailuresTotal.WithLabelValues(source, reason).Inc()
}

// RecordDetailCacheLookup records a detail-page cache lookup.
func RecordDetailCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	DetailCacheLookupsTotal.WithLabelValues(result).Inc()
}

// RecordCalendarRecords records meetings read from a calendar source.
func RecordCalendarRecords(calendar string, count int) {
	CalendarRecordsTotal.WithLabelValues(calendar).Add(float64(count))
}

// RecordDemoFallback records a pipeline that substituted the demo dataset.
func RecordDemoFallback(pipeline string) {
	DemoFallbacksTotal.WithLabelValues(pipeline).Inc()
}

// RecordPipelineRun records the outcome of one pipeline run.
func RecordPipelineRun(pipeline string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	PipelineRunsTotal.WithLabelValues(pipeline, status).Inc()
	PipelineRunDuration.WithLabelValues(pipeline).Observe(duration.Seconds())
}

// RecordDelivery records the delivery of one batch. Status is "success",
// "failure", "dry_run" or "skipped".
func RecordDelivery(pipeline, batch, status string, meetings int) {
	DeliveriesTotal.WithLabelValues(pipeline, batch, status).Inc()
	BatchMeetings.WithLabelValues(pipeline, batch).Set(float64(meetings))
}
