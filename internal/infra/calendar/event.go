package calendar

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"politikk-moter/internal/domain/entity"
	"politikk-moter/internal/utils/text"
)

// EventDuration is the length given to timed meetings written to a calendar.
const EventDuration = 2 * time.Hour

const eventZone = "Europe/Oslo"

var kommuneLine = regexp.MustCompile(`(?i)Kommune:\s*([^,\n\r]+)`)

// Event is the subset of a Google Calendar event resource used here.
type Event struct {
	ID          string    `json:"id,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	HTMLLink    string    `json:"htmlLink,omitempty"`
	Start       EventTime `json:"start"`
	End         EventTime `json:"end"`
}

// EventTime is either a timed dateTime or an all-day date.
type EventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

type eventList struct {
	Items         []Event `json:"items"`
	NextPageToken string  `json:"nextPageToken"`
}

// EventToMeeting converts an event read from the calendar identified by
// sourceID. Events without a usable start are rejected.
func EventToMeeting(ev Event, sourceID string) (entity.Meeting, bool) {
	title := strings.TrimSpace(ev.Summary)
	if title == "" {
		title = entity.CalendarDefaultTitle
	}

	var date, clock string
	switch {
	case ev.Start.DateTime != "":
		t, err := time.Parse(time.RFC3339, ev.Start.DateTime)
		if err != nil {
			return entity.Meeting{}, false
		}
		// the event's own offset is the local time of the meeting
		date, clock = t.Format(text.ISODate), t.Format("15:04")
	case ev.Start.Date != "":
		date = ev.Start.Date
	default:
		return entity.Meeting{}, false
	}

	m, err := entity.NewMeeting(entity.MeetingInput{
		Title:       title,
		Date:        date,
		Time:        clock,
		Location:    ev.Location,
		SourceGroup: eventGroup(title, ev.Description),
		URL:         ev.HTMLLink,
		RawExcerpt:  "Google Calendar: " + title,
		Provenance:  entity.CalendarProvenance(sourceID),
	})
	if err != nil {
		return entity.Meeting{}, false
	}
	return m, true
}

// eventGroup reads "Kommune: X" from the description, else a trailing
// "(X kommune)" in the title.
func eventGroup(title, description string) string {
	if m := kommuneLine.FindStringSubmatch(description); m != nil {
		if g := strings.TrimSpace(m[1]); g != "" {
			return g
		}
	}
	if strings.Contains(strings.ToLower(title), "kommune") {
		if idx := strings.LastIndex(title, "("); idx >= 0 {
			candidate := strings.TrimSpace(strings.TrimRight(title[idx+1:], ")"))
			if strings.Contains(strings.ToLower(candidate), "kommune") {
				return candidate
			}
		}
	}
	return entity.CalendarSourceGroupDefault
}

// Summary is the event title written for a meeting.
func Summary(m entity.Meeting) string {
	return fmt.Sprintf("%s (%s)", m.Title, m.SourceGroup)
}

// MeetingToEvent builds the event written for m. Timed meetings last
// EventDuration in Europe/Oslo; date-only meetings become all-day events.
func MeetingToEvent(m entity.Meeting) (Event, error) {
	day, err := time.Parse(text.ISODate, m.Date)
	if err != nil {
		return Event{}, fmt.Errorf("meeting date %q: %w", m.Date, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Møte: %s\n", m.Title)
	fmt.Fprintf(&b, "Kommune: %s\n", m.SourceGroup)
	if m.HasLocation() {
		fmt.Fprintf(&b, "Sted: %s\n", m.Location)
	}
	if m.URL != "" {
		fmt.Fprintf(&b, "Mer info: %s\n", m.URL)
	}
	b.WriteString("\nAutomatisk lagt til av Politikk-bot")

	ev := Event{
		Summary:     Summary(m),
		Description: b.String(),
	}
	if m.HasLocation() {
		ev.Location = m.Location
	}

	if !m.HasTime() {
		ev.Start = EventTime{Date: m.Date}
		ev.End = EventTime{Date: day.AddDate(0, 0, 1).Format(text.ISODate)}
		return ev, nil
	}
	start, err := time.Parse(text.ISODate+" 15:04", m.Date+" "+m.Time)
	if err != nil {
		return Event{}, fmt.Errorf("meeting time %q: %w", m.Time, err)
	}
	const layout = "2006-01-02T15:04:05"
	ev.Start = EventTime{DateTime: start.Format(layout), TimeZone: eventZone}
	ev.End = EventTime{DateTime: start.Add(EventDuration).Format(layout), TimeZone: eventZone}
	return ev, nil
}
