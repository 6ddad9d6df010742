package scraper_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"politikk-moter/internal/domain/entity"
	"politikk-moter/internal/infra/scraper"
)

const bymiljoBase = "https://bymiljopakken.no/moter/"

func bymiljoSource() entity.SourceConfig {
	return entity.SourceConfig{Name: "Bymiljøpakken", URL: bymiljoBase, Type: entity.SourceTypeCustom, Provider: entity.ProviderBymiljo}
}

func TestSummaryListParser_SummaryAndPlannedList(t *testing.T) {
	html := `<main>
  <h1>Styringsgruppen for Bymiljøpakken</h1>
  <p class="ingress">Neste møte i styringsgruppen er 23.10.2025 kl. 12:00 på Fylkeshuset.</p>
  <h2>Planlagte møter</h2>
  <ul>
    <li>Styringsgruppemøte 01.10.2025</li>
    <li>Styringsgruppemøte 20.11.2025 kl. 09:00</li>
    <li>Styringsgruppemøte 11.12.2025</li>
  </ul>
</main>`
	p := &scraper.SummaryListParser{Now: fixedNow}
	meetings, err := p.Parse(context.Background(), htmlPage(bymiljoBase, html), bymiljoSource())
	require.NoError(t, err)
	require.Len(t, meetings, 3)

	summary := meetings[0]
	assert.Equal(t, "Styringsgruppen for Bymiljøpakken", summary.Title)
	assert.Equal(t, "2025-10-23", summary.Date)
	assert.Equal(t, "12:00", summary.Time)
	assert.Equal(t, "Fylkeshuset", summary.Location)
	assert.Equal(t, bymiljoBase, summary.URL)

	assert.Equal(t, "Styringsgruppemøte", meetings[1].Title)
	assert.Equal(t, "2025-11-20", meetings[1].Date)
	assert.Equal(t, "09:00", meetings[1].Time)
	assert.Equal(t, "2025-12-11", meetings[2].Date)
}

func TestSummaryListParser_DefaultTitleAndPastSummary(t *testing.T) {
	tests := []struct {
		name string
		html string
		want []string
	}{
		{
			name: "main paragraph without heading",
			html: `<main><p>Velkommen</p><p>Møtet holdes 24.10.2025.</p></main>`,
			want: []string{scraper.DefaultSummaryTitle + " 2025-10-24"},
		},
		{
			name: "past summary dropped",
			html: `<main><h1>Styringsgruppe</h1><div class="lead">Forrige møte var 02.10.2025.</div></main>`,
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &scraper.SummaryListParser{Now: fixedNow}
			meetings, err := p.Parse(context.Background(), htmlPage(bymiljoBase, tt.html), bymiljoSource())
			require.NoError(t, err)

			var got []string
			for _, m := range meetings {
				got = append(got, m.Title+" "+m.Date)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
