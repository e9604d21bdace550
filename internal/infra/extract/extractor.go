package extract

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	domain "github.com/bryanwahyu/seo-audit/internal/domain/analyses"
	"github.com/bryanwahyu/seo-audit/internal/domain/content"
	"github.com/bryanwahyu/seo-audit/internal/infra/browser"
)

// Renderer is the optional browser path for JS-heavy pages.
type Renderer interface {
	Acquire(ctx context.Context) (*browser.Session, error)
	Release(s *browser.Session)
	Navigate(ctx context.Context, s *browser.Session, url string, wait browser.WaitPolicy) (*browser.DomSnapshot, error)
}

// Markers of client-rendered shells. When the static body is just one of
// these mount points, plain HTTP fetched nothing useful.
var spaMarkers = []string{"#root", "#app", "#__next", "#___gatsby"}

// Config untuk extractor
type Config struct {
	// MinWords below which a page counts as empty content.
	MinWords int
	// MaxRetries bounds refetches on transient network errors.
	MaxRetries int
	UserAgent  string
	// RenderThreshold is the static text length under which the SPA
	// heuristic considers rendering.
	RenderThreshold int
}

func (c *Config) defaults() {
	if c.MinWords <= 0 {
		c.MinWords = 40
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 2
	}
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (compatible; seo-audit/1.0)"
	}
	if c.RenderThreshold <= 0 {
		c.RenderThreshold = 400
	}
}

// Extractor reduces a page to normalized text and structural signals.
// Plain HTTP first; the browser only when the static document looks like a
// client-rendered shell, sessions are too expensive to spend by default.
type Extractor struct {
	HTTP     *http.Client
	Renderer Renderer
	Log      zerolog.Logger
	Cfg      Config
}

func New(client *http.Client, renderer Renderer, log zerolog.Logger, cfg Config) *Extractor {
	cfg.defaults()
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Extractor{HTTP: client, Renderer: renderer, Log: log, Cfg: cfg}
}

// Extract implements the extractor port.
func (e *Extractor) Extract(ctx context.Context, pageURL string, keywords []string) (*content.Page, error) {
	rawHTML, err := e.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}

	if e.Renderer != nil && looksClientRendered(doc, e.Cfg.RenderThreshold) {
		if rendered, rerr := e.render(ctx, pageURL); rerr == nil {
			rawHTML = rendered
			if d, perr := goquery.NewDocumentFromReader(strings.NewReader(rawHTML)); perr == nil {
				doc = d
			}
		} else {
			e.Log.Debug().Err(rerr).Str("url", pageURL).Msg("render fallback failed, using static document")
		}
	}

	page := reduce(doc, pageURL, rawHTML, keywords)
	if page.WordCount < e.Cfg.MinWords {
		return nil, fmt.Errorf("extract %s: %d words: %w", pageURL, page.WordCount, domain.ErrEmptyContent)
	}
	return page, nil
}

// fetch does the plain HTTP path with a small bounded retry. DNS and
// transport errors map onto the unreachable-page taxonomy.
func (e *Extractor) fetch(ctx context.Context, pageURL string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= e.Cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * time.Second):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return "", fmt.Errorf("fetch %s: %v: %w", pageURL, err, domain.ErrUnreachablePage)
		}
		req.Header.Set("User-Agent", e.Cfg.UserAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml")

		resp, err := e.HTTP.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("fetch %s: %v: %w", pageURL, err, domain.ErrUnreachablePage)
			continue
		}
		body, err := readBody(resp)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode >= 400 {
			lastErr = fmt.Errorf("fetch %s: status %d: %w", pageURL, resp.StatusCode, domain.ErrUnreachablePage)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return "", lastErr // 4xx never heals on retry
			}
			continue
		}
		return body, nil
	}
	return "", lastErr
}

func readBody(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	var sb strings.Builder
	buf := make([]byte, 32*1024)
	var total int
	for {
		n, err := resp.Body.Read(buf)
		sb.Write(buf[:n])
		total += n
		if total > 4<<20 { // 4 MiB is plenty for any article
			break
		}
		if err != nil {
			break
		}
	}
	return sb.String(), nil
}

func (e *Extractor) render(ctx context.Context, pageURL string) (string, error) {
	sess, err := e.Renderer.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer e.Renderer.Release(sess)

	snap, err := e.Renderer.Navigate(ctx, sess, pageURL, browser.WaitPolicy{
		Delay:       2 * time.Second,
		QuietPeriod: time.Second,
	})
	if err != nil {
		return "", err
	}
	return snap.HTML, nil
}

// looksClientRendered: near-empty static body plus a known mount point.
func looksClientRendered(doc *goquery.Document, threshold int) bool {
	text := normalizeWhitespace(doc.Find("body").Text())
	if len(text) >= threshold {
		return false
	}
	for _, marker := range spaMarkers {
		if doc.Find(marker).Length() > 0 {
			return true
		}
	}
	return false
}

// reduce strips boilerplate and computes the structural signals.
func reduce(doc *goquery.Document, pageURL, rawHTML string, keywords []string) *content.Page {
	doc.Find("script, style, noscript, iframe, svg, template").Remove()
	stripBoilerplate(doc)

	text := normalizeWhitespace(doc.Find("body").Text())
	words := strings.Fields(text)

	page := &content.Page{
		URL:           pageURL,
		RawHTML:       rawHTML,
		Text:          text,
		WordCount:     len(words),
		KeywordCounts: map[string]int{},
	}

	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		t := normalizeWhitespace(s.Text())
		if t == "" {
			return
		}
		level := int(s.Get(0).Data[1] - '0')
		page.Headings = append(page.Headings, content.Heading{Level: level, Text: t})
	})

	for _, kw := range keywords {
		page.KeywordCounts[strings.ToLower(kw)] = content.CountOccurrences(text, kw)
	}
	return page
}

// stripBoilerplate drops nodes that are mostly navigation chrome, judged by
// link-text density rather than a fixed tag blocklist.
func stripBoilerplate(doc *goquery.Document) {
	doc.Find("nav, header, footer, aside, form").Each(func(_ int, s *goquery.Selection) {
		if linkDensity(s) > 0.5 || len(normalizeWhitespace(s.Text())) < 200 {
			s.Remove()
		}
	})
	// generic containers that are nearly all links (menus, tag clouds)
	doc.Find("ul, div").Each(func(_ int, s *goquery.Selection) {
		txt := normalizeWhitespace(s.Text())
		if len(txt) > 0 && len(txt) < 600 && linkDensity(s) > 0.8 && s.Children().Length() > 3 {
			s.Remove()
		}
	})
}

func linkDensity(s *goquery.Selection) float64 {
	total := len(normalizeWhitespace(s.Text()))
	if total == 0 {
		return 0
	}
	var linked int
	s.Find("a").Each(func(_ int, a *goquery.Selection) {
		linked += len(normalizeWhitespace(a.Text()))
	})
	return float64(linked) / float64(total)
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
