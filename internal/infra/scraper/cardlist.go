package scraper

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"politikk-moter/internal/domain/entity"
	"politikk-moter/internal/usecase/extract"
	"politikk-moter/internal/utils/text"
)

var rowHint = regexp.MustCompile(`(?i)møte|meeting|row`)

// CardListParser reads the teaser-card lists rendered by the Elements
// meeting portal.
type CardListParser struct{}

// NewCardListParser creates a CardListParser.
func NewCardListParser() *CardListParser {
	return &CardListParser{}
}

var _ extract.Parser = (*CardListParser)(nil)

// Parse implements extract.Parser. Pages without teaser cards fall back to
// meeting-like rows and links, and then to the generic scan.
func (p *CardListParser) Parse(_ context.Context, page extract.Page, src entity.SourceConfig) ([]entity.Meeting, error) {
	doc, err := loadDocument(page)
	if err != nil {
		return nil, err
	}
	x := newExtractor(page, src)

	if cardItems(doc).Length() > 0 {
		return parseCards(doc, x), nil
	}

	c := newCollector()
	rowLinks(doc).Each(func(_ int, s *goquery.Selection) {
		if m, ok := x.fromElement(s); ok {
			c.add(m)
		}
	})
	if len(c.out) > 0 {
		return c.out, nil
	}
	return genericScan(doc, x), nil
}

func cardItems(doc *goquery.Document) *goquery.Selection {
	if items := doc.Find(".bc-content-list-item"); items.Length() > 0 {
		return items
	}
	return doc.Find(".bc-content-teaser")
}

// rowLinks selects rows and links whose class or href looks meeting-related.
func rowLinks(doc *goquery.Document) *goquery.Selection {
	return doc.Find("tr, a, div, li").FilterFunction(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		href, _ := s.Attr("href")
		return rowHint.MatchString(class) || rowHint.MatchString(href)
	})
}

func parseCards(doc *goquery.Document, x extractor) []entity.Meeting {
	c := newCollector()
	cardItems(doc).Each(func(_ int, item *goquery.Selection) {
		if m, ok := x.fromCard(item); ok {
			c.add(m)
		}
	})
	return c.out
}

// fromCard reads one teaser card. Time and location come from the labeled
// metadata list; the anchor's aria-label backs up title, date and time.
func (x extractor) fromCard(item *goquery.Selection) (entity.Meeting, bool) {
	anchor := item.Find(".bc-content-teaser-title a").First()
	if anchor.Length() == 0 {
		anchor = item.Find("a[href]").First()
	}
	aria, _ := anchor.Attr("aria-label")
	aria = text.Normalize(aria)

	title := text.Normalize(anchor.Text())
	if title == "" {
		title, _, _ = strings.Cut(aria, ",")
	}
	title = text.CleanTitle(title)
	if text.IsBlacklisted(title) {
		return entity.Meeting{}, false
	}

	date, ok := "", false
	if block := item.Find(`[class*="meetingDate"]`).First(); block.Length() > 0 {
		date, ok = text.ParseDateISO(strings.Join(text.Lines(blockText(block)), " "))
	}
	if !ok {
		if date, ok = text.ParseDateISO(aria); !ok {
			return entity.Meeting{}, false
		}
	}

	clock, location := "", ""
	item.Find("dt").Each(func(_ int, dt *goquery.Selection) {
		label := strings.ToLower(strings.TrimSuffix(text.Normalize(dt.Text()), ":"))
		value := text.Normalize(dt.NextFiltered("dd").Text())
		switch label {
		case "tid", "tidspunkt", "klokkeslett":
			if t, ok := text.ParseTime(value); ok {
				clock = t
			}
		case "stad", "sted", "møtested":
			location = value
		}
	})
	if clock == "" {
		clock, _ = text.ParseTime(aria)
	}
	if location == "" {
		location, _ = text.InferLocation(blockText(item))
	}

	href, _ := anchor.Attr("href")
	m, err := entity.NewMeeting(entity.MeetingInput{
		Title:       title,
		Date:        date,
		Time:        clock,
		Location:    location,
		SourceGroup: x.src.Name,
		URL:         resolveURL(x.base, href),
		RawExcerpt:  text.Normalize(blockText(item)),
	})
	if err != nil {
		return entity.Meeting{}, false
	}
	return m, true
}
