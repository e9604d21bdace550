package google

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/seo-audit/internal/domain/serp"
)

const serpFixture = `
<html><body><div id="search">
  <div class="g">
    <a href="https://first.example/article"><h3>First result</h3></a>
    <div class="VwiC3b">Snippet of the first result.</div>
  </div>
  <div class="g">
    <a href="/url?q=https://second.example/page&amp;sa=U"><h3>Second result</h3></a>
    <div class="s3v9rd">Older snippet markup.</div>
  </div>
  <div class="g">
    <a href="https://accounts.google.com/signin"><h3>Internal link skipped</h3></a>
  </div>
  <div class="g">
    <a href="https://first.example/article"><h3>Duplicate of first</h3></a>
  </div>
  <div class="g">
    <a href="https://no-title.example/page"></a>
  </div>
  <div class="g">
    <a href="https://www.youtube.com/watch?v=abc"><h3>Video result</h3></a>
  </div>
  <div class="g">
    <a href="https://snippetless.example/post"><h3>No snippet here</h3></a>
  </div>
</div></body></html>`

func doc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return d
}

func TestParseResultsRankOrderAndDedupe(t *testing.T) {
	entries := parseResults(doc(t, serpFixture), 10)
	require.Len(t, entries, 4)

	assert.Equal(t, "https://first.example/article", entries[0].URL)
	assert.Equal(t, "First result", entries[0].Title)
	assert.Equal(t, "Snippet of the first result.", entries[0].Snippet)

	// /url?q= redirect unwrapped
	assert.Equal(t, "https://second.example/page", entries[1].URL)

	// ranks dense and ascending, urls unique
	seen := map[string]bool{}
	for i, e := range entries {
		assert.Equal(t, i+1, e.Rank)
		assert.False(t, seen[e.URL], "duplicate url %s", e.URL)
		seen[e.URL] = true
	}
}

func TestParseResultsToleratesPartialEntries(t *testing.T) {
	entries := parseResults(doc(t, serpFixture), 10)

	var snippetless *serp.Entry
	for i := range entries {
		if entries[i].URL == "https://snippetless.example/post" {
			snippetless = &entries[i]
		}
	}
	require.NotNil(t, snippetless, "entry without snippet must still contribute rank/url/title")
	assert.Equal(t, "No snippet here", snippetless.Title)
	assert.Empty(t, snippetless.Snippet)
}

func TestParseResultsMaxCap(t *testing.T) {
	entries := parseResults(doc(t, serpFixture), 2)
	assert.LessOrEqual(t, len(entries), 2)
}

func TestParseResultsNoRecognizedMarkup(t *testing.T) {
	assert.Empty(t, parseResults(doc(t, `<html><body><p>nothing</p></body></html>`), 10))
}

func TestClassifyVideoByHost(t *testing.T) {
	entries := parseResults(doc(t, serpFixture), 10)
	for _, e := range entries {
		if strings.Contains(e.URL, "youtube.com") {
			assert.Contains(t, e.Features, serp.FeatureVideo)
		} else {
			assert.NotContains(t, e.Features, serp.FeatureVideo)
		}
	}
}

func TestClassifyFeaturedSnippetAndAds(t *testing.T) {
	html := `
<html><body><div id="search">
  <div id="tads">
    <div class="g">
      <a href="https://sponsor.example/buy"><h3>Sponsored</h3></a>
    </div>
  </div>
  <div class="g">
    <a href="https://answer.example/what-is"><h3>Answer</h3></a>
    <div class="hgKElc">The concise answer text.</div>
  </div>
  <div class="g">
    <div class="related-question-pair">People also ask</div>
    <a href="https://paa.example/faq"><h3>FAQ</h3></a>
  </div>
</div></body></html>`

	entries := parseResults(doc(t, html), 10)
	byURL := map[string]serp.Entry{}
	for _, e := range entries {
		byURL[e.URL] = e
	}

	require.Contains(t, byURL, "https://sponsor.example/buy")
	assert.Contains(t, byURL["https://sponsor.example/buy"].Features, serp.FeatureAds)

	require.Contains(t, byURL, "https://answer.example/what-is")
	assert.Contains(t, byURL["https://answer.example/what-is"].Features, serp.FeatureFeaturedSnippet)

	require.Contains(t, byURL, "https://paa.example/faq")
	assert.Contains(t, byURL["https://paa.example/faq"].Features, serp.FeaturePeopleAlsoAsk)
}

func TestFilterHighAuthority(t *testing.T) {
	entries := []serp.Entry{
		{Rank: 1, URL: "https://en.wikipedia.org/wiki/Coffee", Title: "wiki"},
		{Rank: 2, URL: "https://small-blog.example/coffee", Title: "blog"},
		{Rank: 3, URL: "https://www.reddit.com/r/coffee", Title: "reddit"},
		{Rank: 4, URL: "https://another.example/coffee", Title: "other"},
	}
	out := filterHighAuthority(entries)
	require.Len(t, out, 2)
	assert.Equal(t, "https://small-blog.example/coffee", out[0].URL)
	assert.Equal(t, 1, out[0].Rank)
	assert.Equal(t, 2, out[1].Rank)
}

func TestLocaleFallback(t *testing.T) {
	assert.Equal(t, "www.google.es", localeFor("es").Domain)
	assert.Equal(t, "www.google.com", localeFor("zz").Domain)
	assert.Equal(t, "www.google.com", localeFor("").Domain)
}
