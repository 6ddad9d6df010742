package extract_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"politikk-moter/internal/usecase/extract"
)

func TestDemoMeetings_SurviveWindowFilter(t *testing.T) {
	today := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)

	demo := extract.DemoMeetings(today)
	require.NotEmpty(t, demo)

	filtered := extract.FilterByHorizon(demo, today, 10)
	assert.Len(t, filtered, len(demo))

	for _, m := range demo {
		assert.True(t, extract.IsDemo(m), m.Title)
		assert.Equal(t, extract.DemoProvenance, m.Provenance)
	}
	assert.Equal(t, "2026-01-05", demo[0].Date)
}
