package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const suggestEndpoint = "https://suggestqueries.google.com/complete/search"

// Suggester fetches related keywords from the Google suggest API. Plain
// HTTP, no browser session needed, the endpoint is not bot-hostile.
type Suggester struct {
	HTTP  *http.Client
	Cache Cache
	TTL   time.Duration
}

func NewSuggester(client *http.Client, cache Cache) *Suggester {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Suggester{HTTP: client, Cache: cache, TTL: 6 * time.Hour}
}

// KeywordSuggestions returns autocomplete suggestions for a seed keyword.
func (s *Suggester) KeywordSuggestions(ctx context.Context, seed, locale string) ([]string, error) {
	seed = strings.TrimSpace(seed)
	if seed == "" {
		return nil, fmt.Errorf("seed keyword is required")
	}
	key := fmt.Sprintf("suggest:%s:%s", strings.ToLower(locale), strings.ToLower(seed))
	if s.Cache != nil {
		if b, ok := s.Cache.Get(ctx, key); ok {
			var cached []string
			if err := json.Unmarshal(b, &cached); err == nil {
				return cached, nil
			}
		}
	}

	lc := localeFor(locale)
	q := url.Values{}
	q.Set("client", "firefox")
	q.Set("q", seed)
	q.Set("hl", lc.HL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, suggestEndpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch suggestions: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("suggest endpoint returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	// payload shape: ["seed", ["suggestion", ...], ...]
	var payload []json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil || len(payload) < 2 {
		return nil, fmt.Errorf("unexpected suggest payload")
	}
	var suggestions []string
	if err := json.Unmarshal(payload[1], &suggestions); err != nil {
		return nil, fmt.Errorf("unexpected suggest payload: %w", err)
	}

	if s.Cache != nil {
		if b, err := json.Marshal(suggestions); err == nil {
			s.Cache.Set(ctx, key, b, s.TTL)
		}
	}
	return suggestions, nil
}
