package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"politikk-moter/internal/domain/entity"
	"politikk-moter/internal/usecase/extract"
	"politikk-moter/internal/utils/text"
)

// meetingZone is the zone feed timestamps are read in.
var meetingZone = func() *time.Location {
	loc, err := time.LoadLocation("Europe/Oslo")
	if err != nil {
		return time.UTC
	}
	return loc
}()

// FeedParser reads RSS and Atom meeting feeds.
type FeedParser struct{}

// NewFeedParser creates a FeedParser.
func NewFeedParser() *FeedParser {
	return &FeedParser{}
}

var _ extract.Parser = (*FeedParser)(nil)

// Parse implements extract.Parser. Items without any date are skipped.
func (p *FeedParser) Parse(_ context.Context, page extract.Page, src entity.SourceConfig) ([]entity.Meeting, error) {
	feed, err := gofeed.NewParser().ParseString(string(page.Body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	c := newCollector()
	for _, it := range feed.Items {
		if m, ok := feedMeeting(it, src); ok {
			c.add(m)
		}
	}
	return c.out, nil
}

func feedMeeting(it *gofeed.Item, src entity.SourceConfig) (entity.Meeting, bool) {
	description := it.Description
	if description == "" {
		description = it.Content
	}
	description = htmlText(description)
	combined := text.Normalize(it.Title + " " + description)

	var stamp *time.Time
	switch {
	case it.PublishedParsed != nil:
		stamp = it.PublishedParsed
	case it.UpdatedParsed != nil:
		stamp = it.UpdatedParsed
	}

	date, ok := "", false
	if stamp != nil {
		date, ok = stamp.In(meetingZone).Format(text.ISODate), true
	} else {
		date, ok = text.ParseDateISO(combined)
	}
	if !ok {
		return entity.Meeting{}, false
	}

	clock, ok := text.ParseTime(combined)
	if !ok && stamp != nil {
		local := stamp.In(meetingZone)
		if local.Hour() != 0 || local.Minute() != 0 {
			clock = local.Format("15:04")
		}
	}

	title := text.CleanTitle(it.Title)
	if text.IsBlacklisted(title) {
		return entity.Meeting{}, false
	}
	location, _ := text.InferLocation(description)

	m, err := entity.NewMeeting(entity.MeetingInput{
		Title:       title,
		Date:        date,
		Time:        clock,
		Location:    location,
		SourceGroup: src.Name,
		URL:         strings.TrimSpace(it.Link),
		RawExcerpt:  combined,
	})
	if err != nil {
		return entity.Meeting{}, false
	}
	return m, true
}

// htmlText flattens an HTML fragment to its text lines.
func htmlText(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return fragment
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return blockText(doc.Selection)
}
