package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	domain "github.com/bryanwahyu/seo-audit/internal/domain/analyses"
	"github.com/bryanwahyu/seo-audit/internal/domain/serp"
	"github.com/bryanwahyu/seo-audit/internal/infra/browser"
)

// Navigator is the slice of the browser pool the scraper needs.
type Navigator interface {
	Acquire(ctx context.Context) (*browser.Session, error)
	Release(s *browser.Session)
	Navigate(ctx context.Context, s *browser.Session, url string, wait browser.WaitPolicy) (*browser.DomSnapshot, error)
}

// Cache port, byte-level. Backed by redis with memory fallback.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration)
}

// localeConfig maps a request locale onto the right Google property.
type localeConfig struct {
	Domain string
	GL     string
	HL     string
}

var locales = map[string]localeConfig{
	"us": {Domain: "www.google.com", GL: "us", HL: "en"},
	"uk": {Domain: "www.google.co.uk", GL: "uk", HL: "en"},
	"ca": {Domain: "www.google.ca", GL: "ca", HL: "en"},
	"au": {Domain: "www.google.com.au", GL: "au", HL: "en"},
	"es": {Domain: "www.google.es", GL: "es", HL: "es"},
	"mx": {Domain: "www.google.com.mx", GL: "mx", HL: "es"},
	"fr": {Domain: "www.google.fr", GL: "fr", HL: "fr"},
	"de": {Domain: "www.google.de", GL: "de", HL: "de"},
	"id": {Domain: "www.google.co.id", GL: "id", HL: "id"},
}

func localeFor(locale string) localeConfig {
	if c, ok := locales[strings.ToLower(locale)]; ok {
		return c
	}
	return locales["us"]
}

// Domains that rank on raw authority for almost anything. Filtered out of
// competitor sets because comparing a small site against them is noise.
var highAuthorityDomains = map[string]bool{
	"wikipedia.org": true,
	"youtube.com":   true,
	"facebook.com":  true,
	"amazon.com":    true,
	"twitter.com":   true,
	"x.com":         true,
	"instagram.com": true,
	"linkedin.com":  true,
	"pinterest.com": true,
	"reddit.com":    true,
	"quora.com":     true,
}

// Config untuk scraper
type Config struct {
	// MinDelay is the politeness floor between two Google fetches.
	MinDelay time.Duration
	// MaxPerHour caps fetches in a rolling one-hour window. Once full,
	// the next fetch waits for the oldest slot to expire.
	MaxPerHour int
	// MaxRetries bounds navigation retries on timeout. Blocks never retry.
	MaxRetries int
	// MaxResults per result page when the caller does not specify.
	MaxResults int
	// FilterHighAuthority drops the big generic domains from results.
	FilterHighAuthority bool
	CacheTTL            time.Duration
}

func (c *Config) defaults() {
	if c.MinDelay <= 0 {
		c.MinDelay = 15 * time.Second
	}
	if c.MaxPerHour <= 0 {
		c.MaxPerHour = 20
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.MaxResults <= 0 {
		c.MaxResults = 20
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = time.Hour
	}
}

// Scraper fetches and parses Google result pages through the browser pool.
type Scraper struct {
	Browser Navigator
	Cache   Cache
	Log     zerolog.Logger
	Cfg     Config

	mu        sync.Mutex
	lastFetch time.Time
	window    []time.Time // reserved fetch slots in the last hour
}

func NewScraper(nav Navigator, cache Cache, log zerolog.Logger, cfg Config) *Scraper {
	cfg.defaults()
	return &Scraper{Browser: nav, Cache: cache, Log: log, Cfg: cfg}
}

// FetchSERP implements the scraper port. Cached results short-circuit the
// browser entirely, which is also the fallback path when Google blocks us.
// pages > 1 walks result offsets and merges in rank order.
func (s *Scraper) FetchSERP(ctx context.Context, keyword, locale string, maxResults, pages int) (serp.Result, error) {
	if maxResults <= 0 {
		maxResults = s.Cfg.MaxResults
	}
	if pages <= 0 {
		pages = 1
	}
	key := fmt.Sprintf("serp:%s:%s:%d", strings.ToLower(locale), strings.ToLower(keyword), pages)
	if s.Cache != nil {
		if b, ok := s.Cache.Get(ctx, key); ok {
			var cached serp.Result
			if err := json.Unmarshal(b, &cached); err == nil {
				return cached, nil
			}
		}
	}

	lc := localeFor(locale)
	var entries []serp.Entry
	for page := 0; page < pages; page++ {
		searchURL := fmt.Sprintf("https://%s/search?q=%s&num=%d&gl=%s&hl=%s",
			lc.Domain, url.QueryEscape(keyword), maxResults, lc.GL, lc.HL)
		if page > 0 {
			searchURL += fmt.Sprintf("&start=%d", page*maxResults)
		}

		snap, err := s.navigateWithRetry(ctx, searchURL)
		if err != nil {
			// keep what earlier pages produced, an empty first page
			// propagates the error
			if len(entries) > 0 {
				s.Log.Warn().Err(err).Int("page", page).Str("keyword", keyword).Msg("serp page fetch failed, keeping earlier pages")
				break
			}
			return serp.Result{}, err
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(snap.HTML))
		if err != nil {
			return serp.Result{}, fmt.Errorf("parse serp document: %w", err)
		}
		pageEntries := parseResults(doc, maxResults)
		if len(pageEntries) == 0 {
			// past the end of results, deeper pages will not help
			break
		}
		entries = append(entries, pageEntries...)
	}

	entries = serp.Dedupe(entries)
	if s.Cfg.FilterHighAuthority {
		entries = filterHighAuthority(entries)
	}
	res := serp.Result{
		Keyword:   keyword,
		Locale:    strings.ToLower(locale),
		Entries:   entries,
		FetchedAt: time.Now().UTC(),
	}

	if s.Cache != nil && len(entries) > 0 {
		if b, err := json.Marshal(res); err == nil {
			s.Cache.Set(ctx, key, b, s.Cfg.CacheTTL)
		}
	}
	return res, nil
}

// navigateWithRetry retries only on navigation timeout, with exponential
// backoff. A detected block surfaces immediately: retrying a block makes
// the fingerprint worse.
func (s *Scraper) navigateWithRetry(ctx context.Context, searchURL string) (*browser.DomSnapshot, error) {
	var lastErr error
	for attempt := 0; attempt < s.Cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<attempt) * time.Second
			s.Log.Debug().Str("url", searchURL).Dur("backoff", backoff).Msg("retrying serp navigation")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if err := s.politeWait(ctx); err != nil {
			return nil, err
		}

		sess, err := s.Browser.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		snap, err := s.Browser.Navigate(ctx, sess, searchURL, browser.WaitPolicy{
			Selector:    "#search",
			QuietPeriod: 800 * time.Millisecond,
		})
		s.Browser.Release(sess)

		if err == nil {
			return snap, nil
		}
		if errors.Is(err, domain.ErrBlockedByTarget) {
			return nil, err
		}
		if !errors.Is(err, domain.ErrNavigationTimeout) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// politeWait enforces the minimum delay between fetches and the rolling
// hourly cap, shared across all goroutines using this scraper. Returns early
// when ctx is done so a phase deadline is not spent sleeping.
func (s *Scraper) politeWait(ctx context.Context) error {
	wait := s.reserve(time.Now())
	if wait <= 0 {
		return nil
	}
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// reserve books the next fetch slot and returns how long the caller must
// wait for it. Slots already booked by concurrent callers count against both
// the politeness delay and the hourly window.
func (s *Scraper) reserve(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	wait := s.Cfg.MinDelay - now.Sub(s.lastFetch)
	if wait < 0 {
		wait = 0
	}

	// drop window entries older than one hour
	cut := now.Add(-time.Hour)
	keep := s.window[:0]
	for _, t := range s.window {
		if t.After(cut) {
			keep = append(keep, t)
		}
	}
	s.window = keep

	if len(s.window) >= s.Cfg.MaxPerHour {
		if until := s.window[0].Add(time.Hour).Sub(now); until > wait {
			wait = until
		}
	}

	at := now.Add(wait)
	s.lastFetch = at
	s.window = append(s.window, at)
	return wait
}

func filterHighAuthority(entries []serp.Entry) []serp.Entry {
	out := entries[:0]
	for _, e := range entries {
		if !isHighAuthority(serp.Domain(e.URL)) {
			out = append(out, e)
		}
	}
	// re-rank dense after dropping
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func isHighAuthority(host string) bool {
	for d := range highAuthorityDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
