package scraper_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"politikk-moter/internal/domain/entity"
	"politikk-moter/internal/usecase/extract"
)

// monday is the pinned "today" for every parser test.
var monday = time.Date(2025, time.October, 13, 9, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return monday }

func htmlPage(url, body string) extract.Page {
	return extract.Page{URL: url, StatusCode: 200, ContentType: "text/html", Body: []byte(body)}
}

func source(name, url string, typ entity.SourceType) entity.SourceConfig {
	return entity.SourceConfig{Name: name, URL: url, Type: typ}
}

func byTitle(meetings []entity.Meeting, title string) (entity.Meeting, bool) {
	for _, m := range meetings {
		if m.Title == title {
			return m, true
		}
	}
	return entity.Meeting{}, false
}

// mapFetcher serves canned pages and counts calls per URL.
type mapFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls map[string]int
}

func newMapFetcher(pages map[string]string) *mapFetcher {
	return &mapFetcher{pages: pages, calls: make(map[string]int)}
}

func (f *mapFetcher) Fetch(_ context.Context, url string, _ extract.FetchOptions) (*extract.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[url]++
	body, ok := f.pages[url]
	if !ok {
		return nil, errors.New("404 not found")
	}
	page := htmlPage(url, body)
	return &page, nil
}

func (f *mapFetcher) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}
