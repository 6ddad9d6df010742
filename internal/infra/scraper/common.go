// Package scraper holds the markup strategies that turn municipal meeting
// pages into entity.Meeting records.
package scraper

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"politikk-moter/internal/domain/entity"
	"politikk-moter/internal/usecase/extract"
	"politikk-moter/internal/utils/text"
)

var (
	// committeeWords is the council vocabulary that marks a container as
	// meeting-related.
	committeeWords = regexp.MustCompile(`(?i)møte|meeting|utvalg|styre|råd|nemnd|formannskap|kommunestyre|fylkesting`)
	numericDate    = regexp.MustCompile(`\b\d{1,2}[./-]\d{1,2}[./-](?:\d{4}|\d{2})\b`)
	longDigits     = regexp.MustCompile(`^\d{6,}$`)
	dateTimeOnly   = regexp.MustCompile(`^[\d\s./:\-–kl]+$`)
)

// loadDocument parses the page body.
func loadDocument(page extract.Page) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	return doc, nil
}

// blockText returns the element's text with one line per text node, so that
// sibling blocks do not run together the way Selection.Text does.
func blockText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(s *goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			switch goquery.NodeName(c) {
			case "#text":
				if t := strings.TrimSpace(c.Text()); t != "" {
					b.WriteString(t)
					b.WriteByte('\n')
				}
			case "script", "style", "noscript", "#comment":
			default:
				walk(c)
			}
		})
	}
	walk(sel)
	return b.String()
}

// resolveURL makes href absolute against base. Unparseable input is
// returned unchanged.
func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	b, err := url.Parse(base)
	if err != nil || b.Scheme == "" {
		return ref.String()
	}
	return b.ResolveReference(ref).String()
}

// hasCommitteeContext reports whether s mentions a date and council vocabulary.
func hasCommitteeContext(s string) bool {
	return numericDate.MatchString(s) && committeeWords.MatchString(s)
}

// extractor runs the shared element extraction for one source.
type extractor struct {
	src  entity.SourceConfig
	base string
}

func newExtractor(page extract.Page, src entity.SourceConfig) extractor {
	base := page.URL
	if base == "" {
		base = src.URL
	}
	return extractor{src: src, base: base}
}

// fromElement turns one element into a meeting. It reports false when the
// element carries no date, is navigation noise, or has a blacklisted title.
func (x extractor) fromElement(sel *goquery.Selection) (entity.Meeting, bool) {
	raw := blockText(sel)
	visible := text.Normalize(raw)
	if skipText(visible) {
		return entity.Meeting{}, false
	}

	candidates := make([]string, 0, 4)
	for _, attr := range []string{"title", "aria-label"} {
		if v, ok := sel.Attr(attr); ok && strings.TrimSpace(v) != "" {
			candidates = append(candidates, text.Normalize(v))
		}
	}
	candidates = append(candidates, visible)
	sel.Find("[aria-label], [title]").Each(func(_ int, c *goquery.Selection) {
		for _, attr := range []string{"aria-label", "title"} {
			if v, ok := c.Attr(attr); ok && strings.TrimSpace(v) != "" {
				candidates = append(candidates, text.Normalize(v))
			}
		}
	})

	date, dateIdx := "", -1
	for i, c := range candidates {
		if d, ok := text.ParseDateISO(c); ok {
			date, dateIdx = d, i
			break
		}
	}
	if dateIdx < 0 {
		return entity.Meeting{}, false
	}

	clock, ok := text.ParseTime(candidates[dateIdx])
	if !ok {
		for i, c := range candidates {
			if i == dateIdx {
				continue
			}
			if clock, ok = text.ParseTime(c); ok {
				break
			}
		}
	}

	title := text.CleanTitle(rawTitle(sel, raw))
	if text.IsPlaceholder(title) {
		if idx := text.FirstDateIndex(candidates[dateIdx]); idx > 0 {
			title = text.CleanTitle(candidates[dateIdx][:idx])
		}
	}
	if text.IsBlacklisted(title) {
		return entity.Meeting{}, false
	}

	location, _ := text.InferLocation(raw)

	m, err := entity.NewMeeting(entity.MeetingInput{
		Title:       title,
		Date:        date,
		Time:        clock,
		Location:    location,
		SourceGroup: x.src.Name,
		URL:         x.link(sel),
		RawExcerpt:  visible,
	})
	if err != nil {
		return entity.Meeting{}, false
	}
	return m, true
}

// link returns the element's own href, or the href of its only anchor.
func (x extractor) link(sel *goquery.Selection) string {
	if href, ok := sel.Attr("href"); ok {
		return resolveURL(x.base, href)
	}
	anchors := sel.Find("a[href]")
	if anchors.Length() == 1 {
		href, _ := anchors.Attr("href")
		return resolveURL(x.base, href)
	}
	return ""
}

func skipText(s string) bool {
	if text.CountRunes(s) < 5 {
		return true
	}
	compact := strings.ReplaceAll(s, " ", "")
	if longDigits.MatchString(compact) {
		return true
	}
	return dateTimeOnly.MatchString(strings.ToLower(s))
}

// rawTitle picks the title text: the heading itself, a child heading or
// emphasis, else the first line of some length that is not a date.
func rawTitle(sel *goquery.Selection, raw string) string {
	if isHeading(goquery.NodeName(sel)) {
		return sel.Text()
	}
	if h := sel.Find("h1, h2, h3, h4, h5, h6, strong, b").First(); h.Length() > 0 {
		if t := strings.TrimSpace(h.Text()); t != "" {
			return t
		}
	}
	for _, line := range text.Lines(raw) {
		if text.CountRunes(line) > 3 && text.FirstDateIndex(line) < 0 && text.HasLetter(line) {
			return line
		}
	}
	return ""
}

func isHeading(name string) bool {
	switch name {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}

// collector dedups records within a single parser pass.
type collector struct {
	seen map[string]bool
	out  []entity.Meeting
}

func newCollector() *collector {
	return &collector{seen: make(map[string]bool)}
}

func (c *collector) add(m entity.Meeting) {
	key := m.DedupKey()
	if c.seen[key] {
		return
	}
	c.seen[key] = true
	c.out = append(c.out, m)
}

// scan runs fromElement over every element matched by selector, skipping
// elements that contain another candidate so the innermost element wins.
func (x extractor) scan(doc *goquery.Document, selector string, requireContext bool, c *collector) {
	matched := doc.Find(selector)
	if requireContext {
		matched = matched.FilterFunction(func(_ int, s *goquery.Selection) bool {
			return hasCommitteeContext(text.Normalize(blockText(s)))
		})
	}
	matched.Each(func(_ int, s *goquery.Selection) {
		if s.FindSelection(matched).Length() > 0 {
			return
		}
		if m, ok := x.fromElement(s); ok {
			c.add(m)
		}
	})
}

// structural tries the specific structural strategies before any element
// scan. It reports false when neither signature is present.
func structural(doc *goquery.Document, x extractor, year int) ([]entity.Meeting, bool) {
	if cardItems(doc).Length() > 0 {
		return parseCards(doc, x), true
	}
	if table, months := findGrid(doc); table != nil {
		return parseGrid(table, months, x, year), true
	}
	return nil, false
}
