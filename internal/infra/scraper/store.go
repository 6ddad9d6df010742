package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"politikk-moter/internal/domain/entity"
	"politikk-moter/internal/usecase/extract"
	"politikk-moter/internal/utils/text"
)

// Store window relative to now.
const (
	StoreLookbackDays  = 2
	StoreLookaheadDays = 400
)

var (
	meetingTypenames = map[string]bool{"meeting": true, "mote": true, "møte": true}
	stateGlobals     = []string{"__APOLLO_STATE__", "__INITIAL_STATE__"}
	startKeys        = []string{"start", "startDate", "startTime", "date", "meetingDate"}
	isoLayouts       = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04"}
)

// StoreParser walks the client-side object graph of script-rendered meeting
// portals. The graph comes from the renderer, or from state embedded in the
// page (__NEXT_DATA__, window.__APOLLO_STATE__). Pages without any store are
// scanned as plain HTML.
type StoreParser struct {
	Now func() time.Time
}

// NewStoreParser creates a StoreParser on the wall clock.
func NewStoreParser() *StoreParser {
	return &StoreParser{Now: time.Now}
}

var _ extract.Parser = (*StoreParser)(nil)

// Parse implements extract.Parser. Results are limited to the store window
// and sorted by date and time.
func (p *StoreParser) Parse(_ context.Context, page extract.Page, src entity.SourceConfig) ([]entity.Meeting, error) {
	store := page.Store
	var doc *goquery.Document
	if store == nil {
		var err error
		if doc, err = loadDocument(page); err != nil {
			return nil, err
		}
		store = embeddedStore(doc)
	}
	if store == nil {
		x := newExtractor(page, src)
		if meetings, ok := structural(doc, x, currentYear(p.Now)); ok && len(meetings) > 0 {
			return meetings, nil
		}
		return genericScan(doc, x), nil
	}

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	t := now()
	from := t.AddDate(0, 0, -StoreLookbackDays).Format(text.ISODate)
	to := t.AddDate(0, 0, StoreLookaheadDays).Format(text.ISODate)

	x := newExtractor(page, src)
	g := newGraph(store)
	c := newCollector()
	for _, node := range g.meetings {
		m, ok := x.fromStoreNode(g, node)
		if !ok || m.Date < from || m.Date > to {
			continue
		}
		c.add(m)
	}

	sort.SliceStable(c.out, func(i, j int) bool {
		return c.out[i].SortKey() < c.out[j].SortKey()
	})
	return c.out, nil
}

// embeddedStore decodes state serialized into the page's scripts.
func embeddedStore(doc *goquery.Document) map[string]any {
	if raw := strings.TrimSpace(doc.Find("script#__NEXT_DATA__").First().Text()); raw != "" {
		var data map[string]any
		if err := json.Unmarshal([]byte(raw), &data); err == nil {
			return data
		}
	}

	var store map[string]any
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		body := s.Text()
		for _, global := range stateGlobals {
			idx := strings.Index(body, global)
			if idx < 0 {
				continue
			}
			rest := body[idx+len(global):]
			brace := strings.Index(rest, "{")
			if brace < 0 {
				continue
			}
			var data map[string]any
			// Decode reads one value and leaves any trailing script alone.
			if err := json.NewDecoder(strings.NewReader(rest[brace:])).Decode(&data); err == nil {
				store = data
				return false
			}
		}
		return true
	})
	return store
}

// graph indexes every object of a store by its normalized key and by
// typename:id so references can be followed.
type graph struct {
	byKey    map[string]map[string]any
	meetings []map[string]any
}

func newGraph(store map[string]any) *graph {
	g := &graph{byKey: make(map[string]map[string]any)}
	for key, v := range store {
		if obj, ok := v.(map[string]any); ok {
			g.byKey[key] = obj
		}
	}
	keys := make([]string, 0, len(store))
	for k := range store {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		g.walk(store[k])
	}
	return g
}

func (g *graph) walk(v any) {
	switch node := v.(type) {
	case map[string]any:
		typename, _ := node["__typename"].(string)
		if typename != "" {
			if id := scalarString(node["id"]); id != "" {
				g.byKey[typename+":"+id] = node
			}
			if meetingTypenames[strings.ToLower(typename)] {
				g.meetings = append(g.meetings, node)
			}
		}
		keys := make([]string, 0, len(node))
		for k := range node {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			g.walk(node[k])
		}
	case []any:
		for _, item := range node {
			g.walk(item)
		}
	}
}

// resolve follows a {"__ref": key} pointer.
func (g *graph) resolve(v any) map[string]any {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	if ref, ok := obj["__ref"].(string); ok {
		return g.byKey[ref]
	}
	return obj
}

func (x extractor) fromStoreNode(g *graph, node map[string]any) (entity.Meeting, bool) {
	var (
		date, clock string
		ok          bool
	)
	for _, key := range startKeys {
		if date, clock, ok = parseStart(node[key]); ok {
			break
		}
	}
	if !ok {
		return entity.Meeting{}, false
	}

	title := ""
	for _, key := range []string{"board", "committee", "utvalg", "organ"} {
		if board := g.resolve(node[key]); board != nil {
			if title = firstString(board, "name", "title"); title != "" {
				break
			}
		}
	}
	if title == "" {
		title = firstString(node, "title", "name")
	}
	title = text.CleanTitle(title)
	if text.IsBlacklisted(title) {
		return entity.Meeting{}, false
	}

	location := firstString(node, "location", "place", "sted")
	if location == "" {
		if loc := g.resolve(node["location"]); loc != nil {
			location = firstString(loc, "name", "title")
		}
	}

	link := firstString(node, "url", "href", "link")
	if link != "" {
		link = resolveURL(x.base, link)
	}

	m, err := entity.NewMeeting(entity.MeetingInput{
		Title:       title,
		Date:        date,
		Time:        clock,
		Location:    location,
		SourceGroup: x.src.Name,
		URL:         link,
		RawExcerpt:  fmt.Sprintf("%s %s %s", title, date, clock),
	})
	if err != nil {
		return entity.Meeting{}, false
	}
	return m, true
}

// parseStart reads an ISO string, epoch seconds or epoch milliseconds.
// Date-only values carry no time.
func parseStart(v any) (date, clock string, ok bool) {
	switch s := v.(type) {
	case string:
		s = strings.TrimSpace(s)
		if s == "" {
			return "", "", false
		}
		if isDigits(s) {
			if t, ok := text.EpochTime(s); ok {
				return t.Format(text.ISODate), t.Format("15:04"), true
			}
			return "", "", false
		}
		for _, layout := range isoLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				if layout == time.RFC3339 {
					t = t.In(meetingZone)
				}
				return t.Format(text.ISODate), t.Format("15:04"), true
			}
		}
		if text.IsISODate(s) {
			return s, "", true
		}
		if d, ok := text.ParseDateISO(s); ok {
			c, _ := text.ParseTime(s)
			return d, c, true
		}
	case float64:
		if s <= 0 || s != math.Trunc(s) {
			return "", "", false
		}
		if t, ok := text.EpochTime(strconv.FormatInt(int64(s), 10)); ok {
			return t.Format(text.ISODate), t.Format("15:04"), true
		}
	}
	return "", "", false
}

func firstString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func scalarString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return ""
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return s != ""
}
