package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wolfitem/news-collector/internal/infrastructure/logger"
)

const googleNewsRSS = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
  <channel>
    <title>"quantum computing" - Google News</title>
    <link>https://news.google.com/search?q=quantum+computing</link>
    <item>
      <title>Quantum computing breakthrough announced - Example Times</title>
      <link>https://www.example.com/articles/quantum</link>
      <pubDate>Tue, 10 Jun 2025 10:30:00 GMT</pubDate>
      <description>&lt;a href="https://www.example.com/articles/quantum"&gt;Quantum computing breakthrough announced&lt;/a&gt;&amp;nbsp;&amp;nbsp;&lt;font color="#6f6f6f"&gt;Example Times&lt;/font&gt;</description>
      <source url="https://www.example.com">Example Times</source>
    </item>
    <item>
      <title>N/A</title>
      <link>https://www.example.com/articles/na</link>
      <pubDate>Tue, 10 Jun 2025 11:30:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

func fixedParser() *feedParser {
	return &feedParser{now: func() time.Time { return time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC) }}
}

func TestParse_GoogleNewsRSS(t *testing.T) {
	result := fixedParser().Parse(googleNewsRSS, "quantum computing")

	assert.Equal(t, "quantum computing", result.Query)
	assert.Equal(t, "2025-06-10T12:00:00Z", result.FetchedAt)
	assert.Equal(t, "https://news.google.com/search?q=quantum+computing", result.SourceURL)
	require.Len(t, result.Articles, 1, "N/A entry is dropped")

	a := result.Articles[0]
	assert.Equal(t, "Quantum computing breakthrough announced - Example Times", a.Title)
	assert.Equal(t, "https://www.example.com/articles/quantum", a.Link)
	assert.Equal(t, "2025-06-10T10:30:00Z", a.Published)
	assert.Equal(t, "Example Times", a.Source)
	assert.Contains(t, a.Snippet, "Quantum computing breakthrough announced")
	assert.NotContains(t, a.Snippet, "<")
	assert.NotContains(t, a.Snippet, "&nbsp;")
}

func TestParse_PublisherFromDescription(t *testing.T) {
	raw := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>t</title><link>https://news.google.com/</link>
<item>
  <title>Publisher label comes from font tag</title>
  <link>https://www.example.com/a</link>
  <description>&lt;a href="https://www.example.com/a"&gt;Headline&lt;/a&gt; &lt;font color="#6f6f6f"&gt;The Daily Example&lt;/font&gt;</description>
</item>
<item>
  <title>Publisher label comes from the link</title>
  <link>https://news.example.co.uk/b</link>
  <description>plain text only</description>
</item>
</channel></rss>`

	result := fixedParser().Parse(raw, "k")
	require.Len(t, result.Articles, 2)
	assert.Equal(t, "The Daily Example", result.Articles[0].Source)
	assert.Equal(t, "example.co.uk", result.Articles[1].Source)
	assert.Equal(t, "", result.Articles[1].Published)
}

func TestParse_DublinCoreDate(t *testing.T) {
	raw := `<?xml version="1.0"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/"><channel><title>t</title>
<item>
  <title>Entry dated with dublin core</title>
  <link>https://example.com/dc</link>
  <dc:date>2025-06-10T10:30:00+05:30</dc:date>
</item>
</channel></rss>`

	result := fixedParser().Parse(raw, "k")
	require.Len(t, result.Articles, 1)
	assert.Equal(t, "2025-06-10T05:00:00Z", result.Articles[0].Published)
}

func TestParse_Atom(t *testing.T) {
	raw := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Example Atom</title>
  <link href="https://example.org/" rel="alternate"/>
  <link href="https://example.org/feed.atom" rel="self"/>
  <updated>2025-06-10T10:30:00+05:30</updated>
  <entry>
    <title>Atom entry with a long enough title</title>
    <link href="https://example.org/entry1" rel="alternate"/>
    <id>urn:entry1</id>
    <updated>2025-06-10T10:30:00+05:30</updated>
    <summary>Short summary of the entry</summary>
  </entry>
</feed>`

	result := fixedParser().Parse(raw, "atom")
	assert.Equal(t, "https://example.org/", result.SourceURL)
	require.Len(t, result.Articles, 1)

	a := result.Articles[0]
	assert.Equal(t, "https://example.org/entry1", a.Link)
	assert.Equal(t, "2025-06-10T05:00:00Z", a.Published)
	assert.Equal(t, "example.org", a.Source)
	assert.Equal(t, "Short summary of the entry", a.Snippet)
}

func TestParse_EmptyOrInvalid(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	defer logger.ReplaceCore(core)()

	for _, raw := range []string{
		"",
		"   ",
		"<html><body>blocked</body></html>",
		`<?xml version="1.0"?><rss version="2.0"><channel><title>empty</title></channel></rss>`,
	} {
		result := fixedParser().Parse(raw, "k")
		assert.Equal(t, "k", result.Query)
		assert.Equal(t, "", result.SourceURL)
		assert.NotNil(t, result.Articles)
		assert.Empty(t, result.Articles)
	}
	assert.Equal(t, 4, logs.Len())
}

func TestEntry_First(t *testing.T) {
	e := Entry{"published": " ", "pubDate": "Tue, 10 Jun 2025 10:30:00 GMT", "updated": "later"}
	assert.Equal(t, "Tue, 10 Jun 2025 10:30:00 GMT", e.First(DateFields...))
	assert.Equal(t, "", e.First(ContentFields...))
}
