package extract

import (
	"sort"
	"time"

	"politikk-moter/internal/domain/entity"
	"politikk-moter/internal/utils/text"
)

// Dedup removes meetings sharing (date, lower-cased title, source group),
// keeping the first occurrence and the input order.
func Dedup(meetings []entity.Meeting) []entity.Meeting {
	if len(meetings) == 0 {
		return meetings
	}
	seen := make(map[string]struct{}, len(meetings))
	out := make([]entity.Meeting, 0, len(meetings))
	for _, m := range meetings {
		key := m.DedupKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, m)
	}
	return out
}

// FilterByHorizon keeps meetings dated within [today, today+days], both ends
// inclusive, sorted by date and time. Meetings with unparseable dates are
// dropped.
func FilterByHorizon(meetings []entity.Meeting, today time.Time, days int) []entity.Meeting {
	start := civilDay(today)
	end := start.AddDate(0, 0, days)

	out := make([]entity.Meeting, 0, len(meetings))
	for _, m := range meetings {
		d, err := time.Parse(text.ISODate, m.Date)
		if err != nil {
			continue
		}
		if d.Before(start) || d.After(end) {
			continue
		}
		out = append(out, m)
	}
	SortMeetings(out)
	return out
}

// SortMeetings orders meetings by date and then time, date-only first.
func SortMeetings(meetings []entity.Meeting) {
	sort.SliceStable(meetings, func(i, j int) bool {
		return meetings[i].SortKey() < meetings[j].SortKey()
	})
}

func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
