package scraper

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"

	"politikk-moter/internal/domain/entity"
	"politikk-moter/internal/usecase/extract"
)

const genericSelector = "div, article, section, li, tr, h1, h2, h3, h4, h5, h6, p, span"

// GenericParser is the last-resort element scan used for custom sources
// without a provider recipe and for unknown source types.
type GenericParser struct {
	Now func() time.Time
}

// NewGenericParser creates a GenericParser on the wall clock.
func NewGenericParser() *GenericParser {
	return &GenericParser{Now: time.Now}
}

var _ extract.Parser = (*GenericParser)(nil)

// Parse implements extract.Parser.
func (p *GenericParser) Parse(_ context.Context, page extract.Page, src entity.SourceConfig) ([]entity.Meeting, error) {
	doc, err := loadDocument(page)
	if err != nil {
		return nil, err
	}
	x := newExtractor(page, src)
	if meetings, ok := structural(doc, x, currentYear(p.Now)); ok && len(meetings) > 0 {
		return meetings, nil
	}
	return genericScan(doc, x), nil
}

func genericScan(doc *goquery.Document, x extractor) []entity.Meeting {
	c := newCollector()
	x.scan(doc, genericSelector, true, c)
	return c.out
}
