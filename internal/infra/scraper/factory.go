package scraper

import (
	"time"

	"politikk-moter/internal/domain/entity"
	"politikk-moter/internal/usecase/extract"
)

// Factory builds the parser registries consumed by extract.Service.
// All parsers share one clock so tests can pin "today".
type Factory struct {
	// Fetcher serves detail-page fetches outside an extraction run.
	Fetcher extract.Fetcher
	Now     func() time.Time
}

// NewFactory creates a Factory on the wall clock.
func NewFactory(fetcher extract.Fetcher) *Factory {
	return &Factory{Fetcher: fetcher, Now: time.Now}
}

// Parsers returns the strategy registry keyed by source type.
func (f *Factory) Parsers() map[entity.SourceType]extract.Parser {
	return map[entity.SourceType]extract.Parser{
		entity.SourceTypeACOS:     &SimpleListParser{Now: f.Now},
		entity.SourceTypeOnACOS:   &GridParser{Now: f.Now},
		entity.SourceTypeElements: NewCardListParser(),
		entity.SourceTypeCustom:   f.Generic(),
		entity.SourceTypeFeed:     NewFeedParser(),
		entity.SourceTypeStore:    &StoreParser{Now: f.Now},
	}
}

// Providers returns the per-provider recipes for custom sources.
func (f *Factory) Providers() map[string]extract.Parser {
	eigersund := NewDetailTableParser(f.Fetcher)
	eigersund.Now = f.Now
	return map[string]extract.Parser{
		entity.ProviderKlepp:     NewOpenGovParser(),
		entity.ProviderEigersund: eigersund,
		entity.ProviderBymiljo:   &SummaryListParser{Now: f.Now},
	}
}

// Generic returns the last-resort element scan.
func (f *Factory) Generic() extract.Parser {
	return &GenericParser{Now: f.Now}
}
