package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"politikk-moter/internal/domain/entity"
	"politikk-moter/internal/utils/text"
)

// DefaultHorizonDays is the window named in the heading.
const DefaultHorizonDays = 10

// EmptyBody is written in place of date sections when there are no meetings.
const EmptyBody = "Ingen møter funnet i perioden."

var (
	weekdays = [...]string{"Søndag", "Mandag", "Tirsdag", "Onsdag", "Torsdag", "Fredag", "Lørdag"}
	months   = [...]string{"januar", "februar", "mars", "april", "mai", "juni", "juli",
		"august", "september", "oktober", "november", "desember"}
)

// Options tune the message heading and summary.
type Options struct {
	HeadingSuffix string
	Expected      []string
	HorizonDays   int
}

// Format renders meetings with the default horizon.
func Format(meetings []entity.Meeting, headingSuffix string, expected []string) string {
	return FormatWith(meetings, Options{HeadingSuffix: headingSuffix, Expected: expected})
}

// FormatBatch renders one batch.
func FormatBatch(b Batch, horizonDays int) string {
	return FormatWith(b.Meetings, Options{
		HeadingSuffix: b.HeadingSuffix(),
		Expected:      b.Expected,
		HorizonDays:   horizonDays,
	})
}

// FormatWith renders meetings as Slack mrkdwn: a heading, one section per
// date, and a per-organisation summary. Meetings are expected in date order.
func FormatWith(meetings []entity.Meeting, opts Options) string {
	days := opts.HorizonDays
	if days <= 0 {
		days = DefaultHorizonDays
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📅 *Politiske møter de neste %d dagene*", days)
	if opts.HeadingSuffix != "" {
		b.WriteString(" – " + opts.HeadingSuffix)
	}
	b.WriteString("\n\n")

	if len(meetings) == 0 {
		b.WriteString(EmptyBody + "\n")
	}

	counts := make(map[string]int)
	current := ""
	for _, m := range meetings {
		if m.Date != current {
			current = m.Date
			fmt.Fprintf(&b, "\n*%s*\n", DateHeader(m.Date))
		}

		group := m.SourceGroup
		if group == "" {
			group = entity.SourceGroupUnknown
		}
		display := fmt.Sprintf("%s (%s)", m.Title, group)
		if m.URL != "" {
			display = fmt.Sprintf("<%s|%s>", m.URL, display)
		}
		if m.HasTime() {
			fmt.Fprintf(&b, "• %s - kl. %s\n", display, m.Time)
		} else {
			fmt.Fprintf(&b, "• %s\n", display)
		}
		if m.HasLocation() {
			fmt.Fprintf(&b, "  %s\n", m.Location)
		}
		counts[group]++
	}

	for _, name := range opts.Expected {
		if _, ok := counts[name]; !ok {
			counts[name] = 0
		}
	}
	if len(counts) == 0 {
		return b.String()
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	b.WriteString("\n*Oppsummering per kommune*\n")
	for _, name := range names {
		fmt.Fprintf(&b, "• %s: %d %s\n", name, counts[name], plural(counts[name]))
	}
	return b.String()
}

// DateHeader renders an ISO date as "Mandag 13. oktober 2025". Dates that do
// not parse are returned unchanged.
func DateHeader(iso string) string {
	d, err := time.Parse(text.ISODate, iso)
	if err != nil {
		return iso
	}
	return fmt.Sprintf("%s %02d. %s %d", weekdays[d.Weekday()], d.Day(), months[d.Month()-1], d.Year())
}

func plural(n int) string {
	if n == 1 {
		return "møte"
	}
	return "møter"
}
