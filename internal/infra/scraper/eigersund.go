package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"politikk-moter/internal/domain/entity"
	"politikk-moter/internal/infra/fetcher"
	"politikk-moter/internal/observability/logging"
	"politikk-moter/internal/usecase/extract"
	"politikk-moter/internal/utils/text"
)

// DefaultDetailDaysAhead bounds which grid meetings get a detail fetch.
const DefaultDetailDaysAhead = 10

var (
	detailKl    = regexp.MustCompile(`(?i)kl\.?\s*([0-2]?\d)[:.]([0-5]\d)`)
	detailClock = regexp.MustCompile(`\b([0-2]?\d)[:.]([0-5]\d)\b`)
)

// eigersundVenues is tried longest first so "Rådhussalen" beats "Rådhus".
var eigersundVenues = []string{
	"Kommunestyresalen",
	"Rådhussalen",
	"Rådhuset",
	"Rådhus",
	"Kinosalen",
	"Kinosal",
	"Storsalen",
	"Kyrkja",
}

// DetailTableParser is the two-step "eigersund" recipe: the listing is an
// onACOS month grid with no times, so each upcoming meeting's committee page
// is fetched to recover time and venue.
type DetailTableParser struct {
	Now       func() time.Time
	DaysAhead int
	// Year of the grid; zero means the current year of Now.
	Year int

	// Fetcher backs a private cache when the context carries no run cache.
	Fetcher extract.Fetcher
}

// NewDetailTableParser creates a DetailTableParser.
func NewDetailTableParser(f extract.Fetcher) *DetailTableParser {
	return &DetailTableParser{
		Now:       time.Now,
		DaysAhead: DefaultDetailDaysAhead,
		Fetcher:   f,
	}
}

var _ extract.Parser = (*DetailTableParser)(nil)

// Parse implements extract.Parser. Only meetings from today through
// DaysAhead are returned. A failed detail fetch keeps the meeting without
// a time.
func (p *DetailTableParser) Parse(ctx context.Context, page extract.Page, src entity.SourceConfig) ([]entity.Meeting, error) {
	doc, err := loadDocument(page)
	if err != nil {
		return nil, err
	}
	table, months := gridTable(doc)
	if table == nil {
		return nil, nil
	}

	now := p.now()
	year := p.Year
	if year == 0 {
		year = now.Year()
	}
	days := p.DaysAhead
	if days <= 0 {
		days = DefaultDetailDaysAhead
	}
	from := now.Format(text.ISODate)
	to := now.AddDate(0, 0, days).Format(text.ISODate)

	x := newExtractor(page, src)
	cache := p.cache(ctx)
	logger := logging.FromContext(ctx)

	c := newCollector()
	for _, e := range gridEntries(table, months, x.base, year) {
		if e.date < from || e.date > to {
			continue
		}
		link := e.boardLink
		if link == "" {
			link = x.base
		}

		in := entity.MeetingInput{
			Title:       text.CleanTitle(e.committee),
			Date:        e.date,
			SourceGroup: src.Name,
			URL:         link,
			RawExcerpt:  fmt.Sprintf("Eigersund: %s %d.%d.%d", e.committee, e.day, int(e.month), e.year),
		}
		if cache != nil && link != x.base {
			clock, location, err := enrichFromDetail(ctx, cache, link)
			if err != nil {
				logger.Debug("detail page unavailable",
					slog.String("source", src.Name),
					slog.String("url", link),
					slog.Any("error", err))
			}
			in.Time, in.Location = clock, location
		}

		m, err := entity.NewMeeting(in)
		if err != nil {
			continue
		}
		c.add(m)
	}
	return c.out, nil
}

func (p *DetailTableParser) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *DetailTableParser) cache(ctx context.Context) *extract.DetailCache {
	if cache := extract.DetailCacheFrom(ctx); cache != nil {
		return cache
	}
	if p.Fetcher == nil {
		return nil
	}
	return extract.NewDetailCache(p.Fetcher, extract.FetchOptions{})
}

// enrichFromDetail reads time and venue from a committee detail page.
func enrichFromDetail(ctx context.Context, cache *extract.DetailCache, link string) (clock, location string, err error) {
	page, err := cache.Get(ctx, link)
	if err != nil {
		return "", "", err
	}
	body, err := fetcher.ReadableText(page)
	if err != nil {
		doc, derr := loadDocument(*page)
		if derr != nil {
			return "", "", derr
		}
		body = blockText(doc.Find("body"))
	}

	clock = clockFromDetail(body)
	if loc, ok := text.InferLocationWith(body, eigersundVenues); ok {
		location = loc
	}
	return clock, location, nil
}

// clockFromDetail prefers a "kl." time and falls back to the first bare
// HH:MM or HH.MM that is not part of a date.
func clockFromDetail(body string) string {
	if m := detailKl.FindStringSubmatch(body); m != nil {
		if clock, ok := text.Clock(m[1], m[2]); ok {
			return clock
		}
	}
	for _, loc := range detailClock.FindAllStringSubmatchIndex(body, -1) {
		if partOfDate(body, loc[0], loc[1]) {
			continue
		}
		if clock, ok := text.Clock(body[loc[2]:loc[3]], body[loc[4]:loc[5]]); ok {
			return clock
		}
	}
	return ""
}

// partOfDate reports whether body[start:end] is flanked by another ".N"
// like "13.10" in "13.10.2025".
func partOfDate(body string, start, end int) bool {
	if end+1 < len(body) && body[end] == '.' && isDigit(body[end+1]) {
		return true
	}
	if start >= 2 && body[start-1] == '.' && isDigit(body[start-2]) {
		return true
	}
	return false
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
