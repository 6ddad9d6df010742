package scraper

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"politikk-moter/internal/domain/entity"
	"politikk-moter/internal/usecase/extract"
	"politikk-moter/internal/utils/text"
)

var (
	daySeparators = regexp.MustCompile(`[,;\n/\\]+`)
	bareDay       = regexp.MustCompile(`\b[0-3]?\d\b`)
	gridRowHint   = regexp.MustCompile(`(?i)møte|row`)
)

// GridParser reads the year-at-a-glance committee tables published by the
// onACOS meeting portal: one row per committee, one column per month.
type GridParser struct {
	Now func() time.Time

	// Year overrides the calendar year used for the table. Zero means the
	// current year of Now.
	Year int
}

// NewGridParser creates a GridParser on the wall clock.
func NewGridParser() *GridParser {
	return &GridParser{Now: time.Now}
}

var _ extract.Parser = (*GridParser)(nil)

// Parse implements extract.Parser.
func (p *GridParser) Parse(_ context.Context, page extract.Page, src entity.SourceConfig) ([]entity.Meeting, error) {
	doc, err := loadDocument(page)
	if err != nil {
		return nil, err
	}
	x := newExtractor(page, src)

	if cardItems(doc).Length() > 0 {
		return parseCards(doc, x), nil
	}
	if table, months := gridTable(doc); table != nil {
		if meetings := parseGrid(table, months, x, p.year()); len(meetings) > 0 {
			return meetings, nil
		}
	}

	c := newCollector()
	doc.Find("tr, div").FilterFunction(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		return gridRowHint.MatchString(class)
	}).Each(func(_ int, s *goquery.Selection) {
		if m, ok := x.fromElement(s); ok {
			c.add(m)
		}
	})
	return c.out, nil
}

func (p *GridParser) year() int {
	if p.Year != 0 {
		return p.Year
	}
	return currentYear(p.Now)
}

// gridTable picks the table captioned "Møteplan", then the first table with
// a month header, then the first table with positional month columns.
func gridTable(doc *goquery.Document) (*goquery.Selection, map[int]time.Month) {
	var captioned *goquery.Selection
	doc.Find("table").EachWithBreak(func(_ int, t *goquery.Selection) bool {
		if strings.Contains(t.Find("caption").Text(), "Møteplan") {
			captioned = t
			return false
		}
		return true
	})
	if captioned != nil {
		months := monthHeader(captioned)
		if len(months) == 0 {
			months = positionalMonths()
		}
		return captioned, months
	}
	if table, months := findGrid(doc); table != nil {
		return table, months
	}
	if first := doc.Find("table").First(); first.Length() > 0 {
		return first, positionalMonths()
	}
	return nil, nil
}

// findGrid returns the first table with a month header row.
func findGrid(doc *goquery.Document) (*goquery.Selection, map[int]time.Month) {
	var (
		table  *goquery.Selection
		months map[int]time.Month
	)
	doc.Find("table").EachWithBreak(func(_ int, t *goquery.Selection) bool {
		if m := monthHeader(t); len(m) > 0 {
			table, months = t, m
			return false
		}
		return true
	})
	return table, months
}

// monthHeader maps column index to month for the first row of t that has
// at least two month-named cells.
func monthHeader(t *goquery.Selection) map[int]time.Month {
	var months map[int]time.Month
	t.Find("tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		found := make(map[int]time.Month)
		tr.Children().Filter("th, td").Each(func(idx int, cell *goquery.Selection) {
			if m, ok := text.MonthFromName(text.Normalize(cell.Text())); ok {
				found[idx] = m
			}
		})
		if len(found) >= 2 {
			months = found
			return false
		}
		return true
	})
	return months
}

func positionalMonths() map[int]time.Month {
	months := make(map[int]time.Month, 12)
	for i := 1; i <= 12; i++ {
		months[i] = time.Month(i)
	}
	return months
}

// gridEntry is one committee/day cell of the grid.
type gridEntry struct {
	committee string
	date      string
	day       int
	month     time.Month
	year      int
	link      string // day link, else committee link
	boardLink string
}

// gridEntries walks the committee rows and yields one entry per valid day.
func gridEntries(table *goquery.Selection, months map[int]time.Month, base string, year int) []gridEntry {
	var out []gridEntry
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Children().Filter("th, td")
		if cells.Length() == 0 {
			return
		}
		head := cells.First()
		committee := text.Normalize(head.Text())
		if committee == "" || skipCommittee(committee) {
			return
		}
		if _, isHeader := text.MonthFromName(text.Normalize(cells.Eq(1).Text())); isHeader {
			return
		}
		committeeLink := ""
		if href, ok := head.Find("a[href]").First().Attr("href"); ok {
			committeeLink = resolveURL(base, href)
		}

		for idx := 1; idx < cells.Length(); idx++ {
			month, ok := months[idx]
			if !ok {
				continue
			}
			for _, d := range cellDays(cells.Eq(idx)) {
				day, err := strconv.Atoi(onlyDigits(d.text))
				if err != nil {
					continue
				}
				civil, ok := text.CivilDate(year, int(month), day)
				if !ok {
					continue
				}
				link := committeeLink
				if d.href != "" {
					link = resolveURL(base, d.href)
				}
				out = append(out, gridEntry{
					committee: committee,
					date:      civil.Format(text.ISODate),
					day:       day,
					month:     month,
					year:      year,
					link:      link,
					boardLink: committeeLink,
				})
			}
		}
	})
	return out
}

func parseGrid(table *goquery.Selection, months map[int]time.Month, x extractor, year int) []entity.Meeting {
	c := newCollector()
	for _, e := range gridEntries(table, months, x.base, year) {
		m, err := entity.NewMeeting(entity.MeetingInput{
			Title:       text.CleanTitle(e.committee),
			Date:        e.date,
			SourceGroup: x.src.Name,
			URL:         e.link,
			RawExcerpt:  e.committee + " " + e.date,
		})
		if err != nil {
			continue
		}
		c.add(m)
	}
	return c.out
}

func skipCommittee(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasPrefix(lower, "utvalg") ||
		strings.Contains(lower, "vis forrige") ||
		strings.Contains(lower, "vis neste")
}

type dayCell struct {
	text string
	href string
}

// cellDays reads the day numbers of one month cell: its anchors, else the
// separated values, else any bare 1-2 digit numbers.
func cellDays(cell *goquery.Selection) []dayCell {
	var days []dayCell
	cell.Find("a").Each(func(_ int, a *goquery.Selection) {
		if t := strings.TrimSpace(a.Text()); t != "" {
			href, _ := a.Attr("href")
			days = append(days, dayCell{text: t, href: href})
		}
	})
	if len(days) > 0 {
		return days
	}

	raw := strings.TrimSpace(blockText(cell))
	for _, part := range daySeparators.Split(raw, -1) {
		if part = strings.TrimSpace(part); part != "" {
			days = append(days, dayCell{text: part})
		}
	}
	if len(days) > 0 {
		return days
	}

	for _, n := range bareDay.FindAllString(text.Normalize(cell.Text()), -1) {
		days = append(days, dayCell{text: n})
	}
	return days
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
