package backlink

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	domain "github.com/bryanwahyu/seo-audit/internal/domain/analyses"
	"github.com/bryanwahyu/seo-audit/internal/domain/backlink"
	"github.com/bryanwahyu/seo-audit/internal/domain/serp"
)

// MentionSearcher finds pages referring to a domain through the SERP
// scraper, the closest thing to a link index we can query at request time.
type MentionSearcher interface {
	FetchSERP(ctx context.Context, keyword, locale string, maxResults, pages int) (serp.Result, error)
}

// Cache port, same shape as the scraper's.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration)
}

// Prober collects proxy signals for one domain. Every probe soft-fails to a
// nil signal, the scoring function downgrades confidence accordingly.
type Prober struct {
	HTTP     *http.Client
	Mentions MentionSearcher
	Cache    Cache
	Log      zerolog.Logger
	CacheTTL time.Duration
}

func NewProber(client *http.Client, mentions MentionSearcher, cache Cache, log zerolog.Logger) *Prober {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Prober{HTTP: client, Mentions: mentions, Cache: cache, Log: log, CacheTTL: 12 * time.Hour}
}

// Estimate implements the estimator port.
func (p *Prober) Estimate(ctx context.Context, host string) (*backlink.Estimate, error) {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	if host == "" {
		return nil, fmt.Errorf("estimate: empty domain: %w", domain.ErrInsufficientSignal)
	}

	key := "backlink:" + host
	if p.Cache != nil {
		if b, ok := p.Cache.Get(ctx, key); ok {
			var cached backlink.Estimate
			if err := json.Unmarshal(b, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	var sig backlink.Signals

	if hasTLS, millis, ok := p.probeHomepage(ctx, host); ok {
		sig.HasTLS = &hasTLS
		sig.ResponseMillis = &millis
	}
	if ok, found := p.probePath(ctx, host, "/robots.txt"); found {
		sig.HasRobots = &ok
	}
	if ok, found := p.probePath(ctx, host, "/sitemap.xml"); found {
		sig.HasSitemap = &ok
	}
	if n, ok := p.probeMentions(ctx, host); ok {
		sig.ReferringPages = &n
	}

	if sig.SignalCount() == 0 {
		return nil, fmt.Errorf("estimate %s: %w", host, domain.ErrInsufficientSignal)
	}

	est := backlink.Score(host, sig)
	if p.Cache != nil {
		if b, err := json.Marshal(est); err == nil {
			p.Cache.Set(ctx, key, b, p.CacheTTL)
		}
	}
	return &est, nil
}

// probeHomepage tries https then http, reporting transport security and
// response latency in one round trip.
func (p *Prober) probeHomepage(ctx context.Context, host string) (hasTLS bool, millis int64, ok bool) {
	for _, scheme := range []string{"https", "http"} {
		start := time.Now()
		resp, err := p.get(ctx, scheme+"://"+host+"/")
		if err != nil {
			continue
		}
		resp.Body.Close()
		if resp.StatusCode >= 500 {
			continue
		}
		return scheme == "https", time.Since(start).Milliseconds(), true
	}
	p.Log.Debug().Str("domain", host).Msg("homepage probe failed on both schemes")
	return false, 0, false
}

// probePath reports (exists, probeWorked). A 404 is a real answer, a
// transport error is no answer at all.
func (p *Prober) probePath(ctx context.Context, host, path string) (exists, found bool) {
	resp, err := p.get(ctx, "https://"+host+path)
	if err != nil {
		return false, false
	}
	resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusOK:
		return true, true
	case resp.StatusCode == http.StatusNotFound:
		return false, true
	default:
		return false, false
	}
}

// probeMentions counts SERP results referring to the domain from elsewhere.
// A lower bound by construction, one result page deep.
func (p *Prober) probeMentions(ctx context.Context, host string) (int, bool) {
	if p.Mentions == nil {
		return 0, false
	}
	query := fmt.Sprintf("%q -site:%s", host, host)
	res, err := p.Mentions.FetchSERP(ctx, query, "us", 20, 1)
	if err != nil {
		p.Log.Debug().Err(err).Str("domain", host).Msg("mention search failed")
		return 0, false
	}
	n := 0
	for _, e := range res.Entries {
		if serp.Domain(e.URL) != host {
			n++
		}
	}
	return n, true
}

func (p *Prober) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; seo-audit/1.0)")
	return p.HTTP.Do(req)
}
