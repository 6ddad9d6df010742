package scraper

import (
	"context"
	"regexp"
	"time"

	"github.com/PuerkitoBio/goquery"

	"politikk-moter/internal/domain/entity"
	"politikk-moter/internal/usecase/extract"
)

var meetingClass = regexp.MustCompile(`(?i)møte|meeting|resultat`)

// SimpleListParser reads the plain ACOS meeting lists: headings and
// meeting-classed blocks with a date somewhere in their text.
type SimpleListParser struct {
	Now func() time.Time
}

// NewSimpleListParser creates a SimpleListParser on the wall clock.
func NewSimpleListParser() *SimpleListParser {
	return &SimpleListParser{Now: time.Now}
}

var _ extract.Parser = (*SimpleListParser)(nil)

// Parse implements extract.Parser.
func (p *SimpleListParser) Parse(_ context.Context, page extract.Page, src entity.SourceConfig) ([]entity.Meeting, error) {
	doc, err := loadDocument(page)
	if err != nil {
		return nil, err
	}
	x := newExtractor(page, src)
	if meetings, ok := structural(doc, x, currentYear(p.Now)); ok && len(meetings) > 0 {
		return meetings, nil
	}

	c := newCollector()
	x.scan(doc, "h1, h2, h3, h4, h5, h6", false, c)
	classed := doc.Find("[class]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		return meetingClass.MatchString(class)
	})
	x.each(classed, c)
	x.each(doc.Find("article"), c)
	x.scan(doc, "p, div, li, td", true, c)
	return c.out, nil
}

// each runs fromElement over sel without the containment rule.
func (x extractor) each(sel *goquery.Selection, c *collector) {
	sel.Each(func(_ int, s *goquery.Selection) {
		if m, ok := x.fromElement(s); ok {
			c.add(m)
		}
	})
}

func currentYear(now func() time.Time) int {
	if now == nil {
		now = time.Now
	}
	return now().Year()
}
