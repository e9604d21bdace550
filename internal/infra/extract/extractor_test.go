package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/seo-audit/internal/domain/analyses"
	"github.com/bryanwahyu/seo-audit/internal/domain/content"
)

func testExtractor() *Extractor {
	return New(nil, nil, zerolog.Nop(), Config{MinWords: 20, MaxRetries: 1})
}

func serve(t *testing.T, html string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, html)
	}))
	t.Cleanup(srv.Close)
	return srv
}

const articleHTML = `
<html><body>
<nav><a href="/a">Home</a> <a href="/b">About</a> <a href="/c">Contact</a></nav>
<article>
<h1>Brewing Better Coffee</h1>
<h2>Grind size</h2>
<p>Grinding coffee beans fresh before brewing makes a measurable difference to
extraction. A consistent grind size lets water flow evenly through the bed of
coffee, so every particle gives up its flavor at the same rate. Coffee that is
ground too fine chokes the filter, coffee ground too coarse tastes thin.</p>
<h2>Water temperature</h2>
<p>Water between ninety and ninety six degrees pulls the sweet spot of
solubles out of the coffee without scorching it.</p>
</article>
<footer><a href="/p">Privacy</a> <a href="/t">Terms</a></footer>
</body></html>`

func TestExtractReducesArticle(t *testing.T) {
	srv := serve(t, articleHTML)
	page, err := testExtractor().Extract(context.Background(), srv.URL, []string{"coffee", "espresso"})
	require.NoError(t, err)

	assert.Equal(t, srv.URL, page.URL)
	assert.Greater(t, page.WordCount, 50)

	// boilerplate stripped: nav/footer link text gone
	assert.NotContains(t, page.Text, "Privacy")
	assert.NotContains(t, page.Text, "About")

	// headings in document order with levels
	require.GreaterOrEqual(t, len(page.Headings), 3)
	assert.Equal(t, content.Heading{Level: 1, Text: "Brewing Better Coffee"}, page.Headings[0])
	assert.Equal(t, 2, page.Headings[1].Level)
	assert.Equal(t, "Brewing Better Coffee", page.H1())

	// keyword occurrences case-insensitive; absent keyword present with 0
	assert.Greater(t, page.KeywordCounts["coffee"], 3)
	assert.Equal(t, 0, page.KeywordCounts["espresso"])

	// raw html kept in memory for downstream heuristics, never marshalled
	assert.NotEmpty(t, page.RawHTML)
}

func TestExtractEmptyContent(t *testing.T) {
	srv := serve(t, `<html><body><p>too short</p></body></html>`)
	_, err := testExtractor().Extract(context.Background(), srv.URL, nil)
	assert.ErrorIs(t, err, domain.ErrEmptyContent)
}

func TestExtractUnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // port now refuses connections

	_, err := testExtractor().Extract(context.Background(), srv.URL, nil)
	assert.ErrorIs(t, err, domain.ErrUnreachablePage)
}

func TestExtractClientErrorNotRetried(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	_, err := testExtractor().Extract(context.Background(), srv.URL, nil)
	assert.ErrorIs(t, err, domain.ErrUnreachablePage)
	assert.Equal(t, 1, hits)
}

func TestExtractServerErrorRetried(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		if hits == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, articleHTML)
	}))
	t.Cleanup(srv.Close)

	page, err := testExtractor().Extract(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, hits)
	assert.Greater(t, page.WordCount, 50)
}

func TestLooksClientRendered(t *testing.T) {
	shell := `<html><body><div id="root"></div></body></html>`
	d := mustDoc(t, shell)
	assert.True(t, looksClientRendered(d, 400))

	static := mustDoc(t, articleHTML)
	assert.False(t, looksClientRendered(static, 400))

	// near-empty body without a known mount point is not an SPA
	plain := mustDoc(t, `<html><body><p>hi</p></body></html>`)
	assert.False(t, looksClientRendered(plain, 400))
}

func TestNormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", normalizeWhitespace("  a\n\tb   c\n"))
}

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return d
}
