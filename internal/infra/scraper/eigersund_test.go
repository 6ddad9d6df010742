package scraper_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"politikk-moter/internal/domain/entity"
	"politikk-moter/internal/infra/scraper"
	"politikk-moter/internal/usecase/extract"
)

const eigersundBase = "https://innsyn.onacos.no/eigersund/mote/"

const eigersundGrid = `<table>
  <caption>Møteplan 2025</caption>
  <tr><th>Utvalg</th><th>Jan</th><th>Feb</th><th>Mar</th><th>Apr</th><th>Mai</th><th>Jun</th>
      <th>Jul</th><th>Aug</th><th>Sep</th><th>Okt</th><th>Nov</th><th>Des</th></tr>
  <tr><td><a href="../utvalg/42">Formannskapet</a></td><td></td><td></td><td></td><td></td><td></td><td></td>
      <td></td><td></td><td></td><td>14, 21, 28</td><td></td><td></td></tr>
  <tr><td><a href="../utvalg/43">Kommunestyret</a></td><td></td><td></td><td></td><td></td><td></td><td></td>
      <td></td><td></td><td></td><td>20</td><td></td><td></td></tr>
  <tr><td>Eldrerådet</td><td></td><td></td><td></td><td></td><td></td><td></td>
      <td></td><td></td><td></td><td>15</td><td></td><td></td></tr>
</table>`

const eigersundDetail = `<!DOCTYPE html>
<html><head><title>Formannskapet</title></head>
<body>
<nav><a href="/">Forside</a></nav>
<article>
<h1>Formannskapet</h1>
<p>Møtet holdes torsdag 16. oktober 2025 kl. 10:00 i Rådhuset, Egersund.
Saksliste og møtedokumenter er publisert og tilgjengelig for innbyggerne.
Møtet er åpent for publikum og strømmes på kommunens nettsider.</p>
<p>Sted: Kommunestyresalen</p>
</article>
</body></html>`

const formannskapetURL = "https://innsyn.onacos.no/eigersund/utvalg/42"

func eigersundSource() entity.SourceConfig {
	return entity.SourceConfig{
		Name:     "Eigersund kommune",
		URL:      eigersundBase,
		Type:     entity.SourceTypeCustom,
		Provider: entity.ProviderEigersund,
	}
}

func TestDetailTableParser_EnrichesFromDetailPages(t *testing.T) {
	f := newMapFetcher(map[string]string{formannskapetURL: eigersundDetail})
	ctx := extract.WithDetailCache(context.Background(), extract.NewDetailCache(f, extract.FetchOptions{}))

	p := &scraper.DetailTableParser{Now: fixedNow, DaysAhead: 10}
	meetings, err := p.Parse(ctx, htmlPage(eigersundBase, eigersundGrid), eigersundSource())
	require.NoError(t, err)
	require.Len(t, meetings, 4)

	tests := []struct {
		title    string
		date     string
		clock    string
		location string
		url      string
	}{
		{"Formannskapet", "2025-10-14", "10:00", "Kommunestyresalen", formannskapetURL},
		{"Formannskapet", "2025-10-21", "10:00", "Kommunestyresalen", formannskapetURL},
		{"Kommunestyret", "2025-10-20", "", entity.LocationUnspecified, "https://innsyn.onacos.no/eigersund/utvalg/43"},
		{"Eldrerådet", "2025-10-15", "", entity.LocationUnspecified, eigersundBase},
	}
	for i, tt := range tests {
		m := meetings[i]
		assert.Equal(t, tt.title, m.Title, "row %d", i)
		assert.Equal(t, tt.date, m.Date, "row %d", i)
		assert.Equal(t, tt.clock, m.Time, "row %d", i)
		assert.Equal(t, tt.location, m.Location, "row %d", i)
		assert.Equal(t, tt.url, m.URL, "row %d", i)
	}
	assert.Equal(t, "Eigersund: Formannskapet 14.10.2025", meetings[0].RawExcerpt)

	// one fetch per committee page, the failed one included
	assert.Equal(t, 1, f.calls[formannskapetURL])
	assert.Equal(t, 2, f.total())
}

func TestDetailTableParser_PrivateCacheWithoutRun(t *testing.T) {
	f := newMapFetcher(map[string]string{formannskapetURL: eigersundDetail})
	p := scraper.NewDetailTableParser(f)
	p.Now = fixedNow

	meetings, err := p.Parse(context.Background(), htmlPage(eigersundBase, eigersundGrid), eigersundSource())
	require.NoError(t, err)
	require.NotEmpty(t, meetings)
	assert.Equal(t, "10:00", meetings[0].Time)
	assert.Equal(t, 1, f.calls[formannskapetURL])
}

func TestDetailTableParser_Window(t *testing.T) {
	p := &scraper.DetailTableParser{Now: fixedNow, DaysAhead: 2}
	meetings, err := p.Parse(context.Background(), htmlPage(eigersundBase, eigersundGrid), eigersundSource())
	require.NoError(t, err)

	var dates []string
	for _, m := range meetings {
		dates = append(dates, m.Date)
		assert.False(t, m.HasTime(), "no fetcher means no enrichment")
	}
	assert.Equal(t, []string{"2025-10-14", "2025-10-15"}, dates)
}

func TestDetailTableParser_NoTable(t *testing.T) {
	p := &scraper.DetailTableParser{Now: fixedNow}
	meetings, err := p.Parse(context.Background(), htmlPage(eigersundBase, "<p>Ingen møteplan</p>"), eigersundSource())
	require.NoError(t, err)
	assert.Empty(t, meetings)
}
