package entity

import (
	"encoding/json"
	"fmt"
	"strings"

	"politikk-moter/internal/utils/text"
)

// Defaults applied when a field could not be extracted.
const (
	DefaultTitle               = text.PlaceholderTitle
	CalendarDefaultTitle       = "Kalender-møte"
	LocationUnspecified        = text.UnspecifiedLocation
	SourceGroupUnknown         = "Ukjent kommune"
	CalendarSourceGroupDefault = "Manuelt lagt til"

	// EpochDate is used by FromMapping when the mapping carries no usable date.
	EpochDate = "1970-01-01"
)

// Length bounds, counted in runes.
const (
	MaxTitleLength    = 100
	MaxLocationLength = 50
	MaxExcerptLength  = 300
)

// Meeting is one political meeting as it is rendered and delivered.
// Values are built with NewMeeting and never mutated afterwards; the only
// late-bound change is WithFallbackURL, which returns a copy.
type Meeting struct {
	Title       string
	Date        string // YYYY-MM-DD
	Time        string // HH:MM, empty when the source is date-only
	Location    string
	SourceGroup string
	URL         string
	RawExcerpt  string
	Provenance  string // e.g. "calendar:turnus", empty for scraped records
}

// MeetingInput carries the raw field values for NewMeeting.
type MeetingInput struct {
	Title       string
	Date        string
	Time        string
	Location    string
	SourceGroup string
	URL         string
	RawExcerpt  string
	Provenance  string
}

// NewMeeting validates the input and applies defaults and length bounds.
// A missing or impossible date is rejected with a ValidationError, which
// matches ErrValidationFailed.
func NewMeeting(in MeetingInput) (Meeting, error) {
	date := strings.TrimSpace(in.Date)
	if date == "" {
		return Meeting{}, &ValidationError{Field: "date", Message: "date is required"}
	}
	if !text.IsISODate(date) {
		return Meeting{}, &ValidationError{Field: "date", Message: fmt.Sprintf("%q is not a calendar date", date)}
	}

	clock := strings.TrimSpace(in.Time)
	if clock != "" && !text.IsClock(clock) {
		return Meeting{}, &ValidationError{Field: "time", Message: fmt.Sprintf("%q is not a HH:MM time", clock)}
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = DefaultTitle
	}
	location := strings.TrimSpace(in.Location)
	if location == "" {
		location = LocationUnspecified
	}
	group := strings.TrimSpace(in.SourceGroup)
	if group == "" {
		group = SourceGroupUnknown
	}

	return Meeting{
		Title:       strings.TrimSpace(text.Truncate(title, MaxTitleLength)),
		Date:        date,
		Time:        clock,
		Location:    strings.TrimSpace(text.Truncate(location, MaxLocationLength)),
		SourceGroup: group,
		URL:         strings.TrimSpace(in.URL),
		RawExcerpt:  strings.TrimSpace(text.Truncate(in.RawExcerpt, MaxExcerptLength)),
		Provenance:  strings.TrimSpace(in.Provenance),
	}, nil
}

// FromMapping coerces a loosely typed mapping (as produced by ToMap or a JSON
// document) into a Meeting. Missing values get the same defaults as NewMeeting,
// an unusable date becomes EpochDate and an unusable time is dropped.
func FromMapping(m map[string]any) (Meeting, error) {
	if m == nil {
		return Meeting{}, fmt.Errorf("from mapping: %w", ErrInvalidInput)
	}

	date := stringValue(m["date"])
	if !text.IsISODate(date) {
		if iso, ok := text.ParseDateISO(date); ok {
			date = iso
		} else {
			date = EpochDate
		}
	}

	clock := stringValue(m["time"])
	if clock != "" && !text.IsClock(clock) {
		if parsed, ok := text.ParseTime(clock); ok {
			clock = parsed
		} else {
			clock = ""
		}
	}

	return NewMeeting(MeetingInput{
		Title:       stringValue(m["title"]),
		Date:        date,
		Time:        clock,
		Location:    stringValue(m["location"]),
		SourceGroup: stringValue(m["kommune"]),
		URL:         stringValue(m["url"]),
		RawExcerpt:  stringValue(m["raw_text"]),
		Provenance:  stringValue(m["source"]),
	})
}

// ToMap returns the mapping form read by FromMapping. Absent optional values
// are nil.
func (m Meeting) ToMap() map[string]any {
	out := map[string]any{
		"title":    m.Title,
		"date":     m.Date,
		"time":     nil,
		"location": m.Location,
		"kommune":  m.SourceGroup,
		"url":      m.URL,
		"raw_text": m.RawExcerpt,
		"source":   nil,
	}
	if m.Time != "" {
		out["time"] = m.Time
	}
	if m.Provenance != "" {
		out["source"] = m.Provenance
	}
	return out
}

// SortKey orders meetings by date and then by time, with date-only meetings
// first on their day.
func (m Meeting) SortKey() string {
	clock := m.Time
	if clock == "" {
		clock = "00:00"
	}
	return m.Date + " " + clock
}

// DedupKey identifies duplicates within one extraction pass.
func (m Meeting) DedupKey() string {
	return m.Date + "|" + strings.ToLower(m.Title) + "|" + m.SourceGroup
}

// HasTime reports whether the meeting has a start time.
func (m Meeting) HasTime() bool {
	return m.Time != ""
}

// HasLocation reports whether a venue was found.
func (m Meeting) HasLocation() bool {
	return m.Location != "" && m.Location != LocationUnspecified
}

// WithFallbackURL returns a copy with URL set to u when no URL was extracted.
func (m Meeting) WithFallbackURL(u string) Meeting {
	if m.URL == "" {
		m.URL = u
	}
	return m
}

type meetingJSON struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	Time        string `json:"time,omitempty"`
	Location    string `json:"location"`
	SourceGroup string `json:"kommune"`
	URL         string `json:"url"`
	RawExcerpt  string `json:"raw_text,omitempty"`
	Provenance  string `json:"source,omitempty"`
}

// MarshalJSON encodes the meeting with the same keys as ToMap.
func (m Meeting) MarshalJSON() ([]byte, error) {
	return json.Marshal(meetingJSON(m))
}

// UnmarshalJSON decodes and validates a meeting encoded by MarshalJSON.
func (m *Meeting) UnmarshalJSON(data []byte) error {
	var raw meetingJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	built, err := NewMeeting(MeetingInput(raw))
	if err != nil {
		return err
	}
	*m = built
	return nil
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
