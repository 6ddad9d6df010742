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

var (
	trailingParen = regexp.MustCompile(`\s*\(([^)]*)\)\s*$`)
	lastUpdated   = regexp.MustCompile(`(?i)sist oppdatert|last updated`)
)

// OpenGovParser reads the 360online meeting list cards ("klepp" recipe).
// Each meeting is an anchor to /Meetings/Details/ holding a name block and
// a list of date/time spans.
type OpenGovParser struct{}

// NewOpenGovParser creates an OpenGovParser.
func NewOpenGovParser() *OpenGovParser {
	return &OpenGovParser{}
}

var _ extract.Parser = (*OpenGovParser)(nil)

// Parse implements extract.Parser.
func (p *OpenGovParser) Parse(_ context.Context, page extract.Page, src entity.SourceConfig) ([]entity.Meeting, error) {
	doc, err := loadDocument(page)
	if err != nil {
		return nil, err
	}
	x := newExtractor(page, src)

	c := newCollector()
	doc.Find(`a[href*="/Meetings/Details/"]`).Each(func(_ int, a *goquery.Selection) {
		if m, ok := x.fromOpenGovCard(a); ok {
			c.add(m)
		}
	})
	return c.out, nil
}

func (x extractor) fromOpenGovCard(a *goquery.Selection) (entity.Meeting, bool) {
	name := text.Normalize(a.Find(".meetingName").Text())
	if name == "" {
		return entity.Meeting{}, false
	}
	var inParen string
	if m := trailingParen.FindStringSubmatch(name); m != nil {
		inParen = m[1]
		name = strings.TrimSpace(name[:len(name)-len(m[0])])
	}

	var spans []string
	a.Find(".meetingDate span").Each(func(_ int, s *goquery.Selection) {
		if t := text.Normalize(s.Text()); t != "" {
			spans = append(spans, t)
		}
	})

	date, ok, dateSpan := "", false, -1
	for i, s := range spans {
		if lastUpdated.MatchString(s) {
			continue
		}
		if date, ok = text.ParseDateISO(s); ok {
			dateSpan = i
			break
		}
	}
	if !ok {
		if date, ok = text.ParseDateISO(inParen); !ok {
			return entity.Meeting{}, false
		}
	}

	// The time never comes from the date span or a last-updated stamp.
	clock := ""
	for i, s := range spans {
		if i == dateSpan || lastUpdated.MatchString(s) {
			continue
		}
		if t, ok := text.ParseTime(s); ok {
			clock = t
			break
		}
	}

	title := text.CleanTitle(name)
	if text.IsBlacklisted(title) {
		return entity.Meeting{}, false
	}
	href, _ := a.Attr("href")
	m, err := entity.NewMeeting(entity.MeetingInput{
		Title:       title,
		Date:        date,
		Time:        clock,
		SourceGroup: x.src.Name,
		URL:         resolveURL(x.base, href),
		RawExcerpt:  text.Normalize(blockText(a)),
	})
	if err != nil {
		return entity.Meeting{}, false
	}
	return m, true
}
