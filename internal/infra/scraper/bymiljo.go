package scraper

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"politikk-moter/internal/domain/entity"
	"politikk-moter/internal/usecase/extract"
	"politikk-moter/internal/utils/text"
)

// DefaultSummaryTitle names the summary meeting when the page has no h1.
const DefaultSummaryTitle = "Styringsgruppemøte"

var plannedHeadings = []string{"planlagte møter", "møteplan", "kommende møter"}

// SummaryListParser is the "bymiljo" recipe: a lead paragraph announcing the
// next meeting, and a list of planned meetings under its own heading. Past
// meetings are dropped.
type SummaryListParser struct {
	Now func() time.Time
}

// NewSummaryListParser creates a SummaryListParser on the wall clock.
func NewSummaryListParser() *SummaryListParser {
	return &SummaryListParser{Now: time.Now}
}

var _ extract.Parser = (*SummaryListParser)(nil)

// Parse implements extract.Parser.
func (p *SummaryListParser) Parse(_ context.Context, page extract.Page, src entity.SourceConfig) ([]entity.Meeting, error) {
	doc, err := loadDocument(page)
	if err != nil {
		return nil, err
	}
	x := newExtractor(page, src)
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	today := now().Format(text.ISODate)

	c := newCollector()
	keep := func(m entity.Meeting) {
		if m.Date >= today {
			c.add(m)
		}
	}

	if m, ok := x.fromSummary(doc); ok {
		keep(m)
	}

	doc.Find("h1, h2, h3, h4").Each(func(_ int, h *goquery.Selection) {
		if !isPlannedHeading(h.Text()) {
			return
		}
		list := h.NextAllFiltered("ul, ol").First()
		if list.Length() == 0 {
			list = h.Parent().Find("ul, ol").First()
		}
		list.Find("li").Each(func(_ int, li *goquery.Selection) {
			if m, ok := x.fromElement(li); ok {
				keep(m)
			}
		})
	})
	return c.out, nil
}

func isPlannedHeading(s string) bool {
	lower := strings.ToLower(text.Normalize(s))
	for _, h := range plannedHeadings {
		if strings.Contains(lower, h) {
			return true
		}
	}
	return false
}

// fromSummary reads the lead block, else the first main paragraph with a
// date. Its title is the page heading.
func (x extractor) fromSummary(doc *goquery.Document) (entity.Meeting, bool) {
	block := doc.Find(".summary, .ingress, .lead, .intro").First()
	if block.Length() == 0 {
		doc.Find("main p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if _, ok := text.ParseDateISO(text.Normalize(s.Text())); ok {
				block = s
				return false
			}
			return true
		})
	}
	if block.Length() == 0 {
		return entity.Meeting{}, false
	}

	body := text.Normalize(blockText(block))
	date, ok := text.ParseDateISO(body)
	if !ok {
		return entity.Meeting{}, false
	}
	clock, _ := text.ParseTime(body)
	location, _ := text.InferLocation(blockText(block))

	title := text.CleanTitle(doc.Find("h1").First().Text())
	if text.IsPlaceholder(title) {
		title = DefaultSummaryTitle
	}

	m, err := entity.NewMeeting(entity.MeetingInput{
		Title:       title,
		Date:        date,
		Time:        clock,
		Location:    location,
		SourceGroup: x.src.Name,
		URL:         x.base,
		RawExcerpt:  body,
	})
	if err != nil {
		return entity.Meeting{}, false
	}
	return m, true
}
