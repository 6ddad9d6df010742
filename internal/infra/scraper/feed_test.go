package scraper_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"politikk-moter/internal/domain/entity"
	"politikk-moter/internal/infra/scraper"
)

const meetingFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Politiske møter</title>
  <item>
    <title>Formannskapet</title>
    <link>https://www.strand.kommune.no/mote/1</link>
    <description>&lt;p&gt;Sted: Formannskapssalen&lt;/p&gt;</description>
    <pubDate>Tue, 14 Oct 2025 14:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Kommunestyret 23.10.2025 kl. 18:00</title>
    <link>https://www.strand.kommune.no/mote/2</link>
    <description>Møtet holdes i rådhuset</description>
  </item>
  <item>
    <title>Nyhetsbrev</title>
    <description>Ingen dato her</description>
  </item>
</channel>
</rss>`

func TestFeedParser_Parse(t *testing.T) {
	p := scraper.NewFeedParser()
	page := htmlPage("https://www.strand.kommune.no/rss", meetingFeed)
	page.ContentType = "application/rss+xml"

	meetings, err := p.Parse(context.Background(), page, source("Strand kommune", page.URL, entity.SourceTypeFeed))
	require.NoError(t, err)
	require.Len(t, meetings, 2)

	f := meetings[0]
	assert.Equal(t, "Formannskapet", f.Title)
	assert.Equal(t, "2025-10-14", f.Date)
	assert.Equal(t, "16:00", f.Time) // 14:00 GMT in Oslo summer time
	assert.Equal(t, "Formannskapssalen", f.Location)
	assert.Equal(t, "https://www.strand.kommune.no/mote/1", f.URL)

	k := meetings[1]
	assert.Equal(t, "Kommunestyret", k.Title)
	assert.Equal(t, "2025-10-23", k.Date)
	assert.Equal(t, "18:00", k.Time)
	assert.Equal(t, "Rådhuset", k.Location)
}

func TestFeedParser_InvalidFeed(t *testing.T) {
	p := scraper.NewFeedParser()
	_, err := p.Parse(context.Background(), htmlPage("https://example.no/rss", "not a feed"),
		source("Strand kommune", "https://example.no/rss", entity.SourceTypeFeed))
	assert.Error(t, err)
}
