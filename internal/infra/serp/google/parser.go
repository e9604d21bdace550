package google

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/bryanwahyu/seo-audit/internal/domain/serp"
)

// Several generations of Google result markup. Tried in order, first
// selector producing results wins.
var resultSelectors = []string{
	"div.g:not(.g-blk)",
	"div.MjjYud",
	"div.yuRUbf",
	"div[data-sokoban-container]",
}

var titleSelectors = []string{"h3", ".LC20lb", "[role=\"heading\"]", ".DKV0Md"}

var snippetSelectors = []string{".VwiC3b", ".s3v9rd", ".st", "[data-sncf]", ".IsZvec"}

// parseResults reduces a result document to ordered entries. Tolerant of
// partial failure per entry: a result missing a snippet or features still
// contributes rank, url and title.
func parseResults(doc *goquery.Document, max int) []serp.Entry {
	var containers *goquery.Selection
	for _, sel := range resultSelectors {
		found := doc.Find(sel)
		if found.Length() > 0 {
			containers = found
			break
		}
	}
	if containers == nil {
		return nil
	}

	var entries []serp.Entry
	containers.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href := resultLink(s)
		if href == "" {
			return true
		}
		title := firstText(s, titleSelectors)
		if title == "" {
			return true
		}
		entries = append(entries, serp.Entry{
			Rank:     len(entries) + 1,
			URL:      href,
			Title:    title,
			Snippet:  firstText(s, snippetSelectors),
			Features: classify(s),
		})
		return len(entries) < max
	})
	return serp.Dedupe(entries)
}

// resultLink finds the organic link of a container, skipping Google-internal
// hrefs and unwrapping /url?q= redirects.
func resultLink(s *goquery.Selection) string {
	var out string
	s.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		href = cleanHref(href)
		if href == "" {
			return true
		}
		out = href
		return false
	})
	return out
}

func cleanHref(href string) string {
	if strings.HasPrefix(href, "/url?") {
		if u, err := url.Parse(href); err == nil {
			href = u.Query().Get("q")
		}
	}
	if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
		return ""
	}
	host := serp.Domain(href)
	if host == "" || strings.HasSuffix(host, "google.com") || strings.Contains(host, "googleusercontent.") {
		return ""
	}
	return href
}

func firstText(s *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if t := strings.TrimSpace(s.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}
