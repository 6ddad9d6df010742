package scraper_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"politikk-moter/internal/domain/entity"
	"politikk-moter/internal/infra/scraper"
)

func TestFactory_Registries(t *testing.T) {
	f := scraper.NewFactory(newMapFetcher(nil))

	parsers := f.Parsers()
	for _, typ := range []entity.SourceType{
		entity.SourceTypeACOS, entity.SourceTypeOnACOS, entity.SourceTypeElements,
		entity.SourceTypeCustom, entity.SourceTypeFeed, entity.SourceTypeStore,
	} {
		assert.Contains(t, parsers, typ)
		assert.True(t, typ.IsKnown(), typ)
	}

	providers := f.Providers()
	assert.IsType(t, &scraper.OpenGovParser{}, providers[entity.ProviderKlepp])
	assert.IsType(t, &scraper.DetailTableParser{}, providers[entity.ProviderEigersund])
	assert.IsType(t, &scraper.SummaryListParser{}, providers[entity.ProviderBymiljo])
	assert.IsType(t, &scraper.GenericParser{}, f.Generic())
}
