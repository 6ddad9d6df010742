package scraper_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"politikk-moter/internal/domain/entity"
	"politikk-moter/internal/infra/scraper"
	"politikk-moter/internal/utils/text"
)

const acosBase = "https://www.hjelmeland.kommune.no/politikk/"

func TestSimpleListParser_Parse(t *testing.T) {
	html := `<main>
  <h2>Formannskapet 14.10.2025</h2>
  <h3>Resultatside for møter 10.10.2025</h3>
  <div class="møteliste"><div class="meeting-item">Kommunestyret 16.10.2025 kl. 18:00</div></div>
  <p>Planutvalget har møte 21.10.2025 i Rådhuset</p>
  <p>Nyhet: Ny barnehage åpnet 01.10.2025</p>
</main>`
	p := &scraper.SimpleListParser{Now: fixedNow}
	meetings, err := p.Parse(context.Background(), htmlPage(acosBase, html),
		source("Hjelmeland kommune", acosBase, entity.SourceTypeACOS))
	require.NoError(t, err)

	var titles []string
	for _, m := range meetings {
		titles = append(titles, m.Title)
	}
	assert.Equal(t, []string{"Formannskapet", "Kommunestyret", "Planutvalget har møte"}, titles)

	k, _ := byTitle(meetings, "Kommunestyret")
	assert.Equal(t, "2025-10-16", k.Date)
	assert.Equal(t, "18:00", k.Time)

	plan, _ := byTitle(meetings, "Planutvalget har møte")
	assert.Equal(t, "Rådhuset", plan.Location)
}

func TestSimpleListParser_PlaceholderTitle(t *testing.T) {
	html := `<h2>20.10.2025 kl. 10:00 - utvalg</h2>`
	p := &scraper.SimpleListParser{Now: fixedNow}
	meetings, err := p.Parse(context.Background(), htmlPage(acosBase, html),
		source("Hjelmeland kommune", acosBase, entity.SourceTypeACOS))
	require.NoError(t, err)
	require.Len(t, meetings, 1)
	assert.Equal(t, text.PlaceholderTitle, meetings[0].Title)
	assert.Equal(t, "2025-10-20", meetings[0].Date)
	assert.Equal(t, "10:00", meetings[0].Time)
}

func TestSimpleListParser_PrefersCards(t *testing.T) {
	p := &scraper.SimpleListParser{Now: fixedNow}
	meetings, err := p.Parse(context.Background(), htmlPage(timeBase, timeCards),
		source("Time kommune", timeBase, entity.SourceTypeACOS))
	require.NoError(t, err)
	assert.Len(t, meetings, 2)
}

func TestSimpleListParser_SkipsDateOnlyNoise(t *testing.T) {
	html := `<h4>14.10.2025</h4><h4>20251014123456</h4><h4>kl. 10:00</h4>`
	p := &scraper.SimpleListParser{Now: fixedNow}
	meetings, err := p.Parse(context.Background(), htmlPage(acosBase, html),
		source("Hjelmeland kommune", acosBase, entity.SourceTypeACOS))
	require.NoError(t, err)
	assert.Empty(t, meetings)
}

func TestSimpleListParser_AttributeCandidates(t *testing.T) {
	html := `<h3><a href="/m/1" title="Eldrerådet 22.10.2025 kl. 11:00">Eldrerådet</a></h3>`
	p := &scraper.SimpleListParser{Now: fixedNow}
	meetings, err := p.Parse(context.Background(), htmlPage("https://www.sola.kommune.no/", html),
		source("Sola kommune", "https://www.sola.kommune.no/", entity.SourceTypeACOS))
	require.NoError(t, err)
	require.Len(t, meetings, 1)
	assert.Equal(t, "Eldrerådet", meetings[0].Title)
	assert.Equal(t, "2025-10-22", meetings[0].Date)
	assert.Equal(t, "11:00", meetings[0].Time)
	assert.Equal(t, "https://www.sola.kommune.no/m/1", meetings[0].URL)
}
