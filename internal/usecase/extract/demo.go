package extract

import (
	"time"

	"politikk-moter/internal/domain/entity"
	"politikk-moter/internal/utils/text"
)

// DemoProvenance tags every record of the demo dataset.
const DemoProvenance = "demo"

type demoMeeting struct {
	offset   int
	title    string
	clock    string
	location string
	group    string
}

var demoMeetings = []demoMeeting{
	{0, "Ungdomsrådet", "09:00", "Formannskapssalen", "Sauda kommune"},
	{1, "Eldrerådet", "10:00", "Formannskapssalen", "Sauda kommune"},
	{2, "Klagenemnd for eiendomsskatt", "09:00", "Møterom - Heiahornet", "Strand kommune"},
	{2, "Utvalg for areal, næring og kultur", "12:00", "Kommunestyresalen", "Sauda kommune"},
	{3, "Administrasjonsutvalget", "10:00", "Kommunestyresalen", "Sauda kommune"},
	{3, "Formannskapet", "11:00", "Kommunestyresalen", "Sauda kommune"},
	{3, "Forvaltningsutvalget", "16:00", "Kommunestyresalen", "Strand kommune"},
	{3, "Kommunestyret - temamøte", "18:00", "Kommunestyresalen", "Strand kommune"},
}

// DemoMeetings returns the fixed degraded-mode dataset, dated relative to
// today so it survives the date-window filter. Every record is tagged with
// DemoProvenance.
func DemoMeetings(today time.Time) []entity.Meeting {
	out := make([]entity.Meeting, 0, len(demoMeetings))
	for _, d := range demoMeetings {
		date := today.AddDate(0, 0, d.offset).Format(text.ISODate)
		m, err := entity.NewMeeting(entity.MeetingInput{
			Title:       d.title,
			Date:        date,
			Time:        d.clock,
			Location:    d.location,
			SourceGroup: d.group,
			RawExcerpt:  d.title + ", " + date + ", kl. " + d.clock,
			Provenance:  DemoProvenance,
		})
		if err != nil {
			continue
		}
		out = append(out, m)
	}
	return out
}

// IsDemo reports whether m belongs to the demo dataset.
func IsDemo(m entity.Meeting) bool {
	return m.Provenance == DemoProvenance
}
