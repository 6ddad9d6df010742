package calendar

import (
	"context"
	"fmt"
	"time"

	"politikk-moter/internal/domain/entity"
	"politikk-moter/internal/usecase/extract"
	"politikk-moter/internal/utils/text"
)

// Mock is the test-mode calendar: one fixed event per source, dated today.
type Mock struct {
	Now func() time.Time
}

var _ extract.CalendarReader = (*Mock)(nil)

// ListEvents implements extract.CalendarReader.
func (m *Mock) ListEvents(_ context.Context, sourceID string, _ int) ([]entity.Meeting, error) {
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	title := fmt.Sprintf("Test calendar-møte (%s)", sourceID)
	meeting, err := entity.NewMeeting(entity.MeetingInput{
		Title:       title,
		Date:        now().Format(text.ISODate),
		Time:        "14:00",
		Location:    "Kontoret",
		SourceGroup: entity.CalendarSourceGroupDefault,
		URL:         "https://calendar.google.com/calendar",
		RawExcerpt:  fmt.Sprintf("Google Calendar (%s)", sourceID),
		Provenance:  entity.CalendarProvenance(sourceID),
	})
	if err != nil {
		return nil, err
	}
	return []entity.Meeting{meeting}, nil
}
