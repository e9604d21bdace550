package serp

import (
	"net/url"
	"strings"
	"time"
)

// FeatureTag enum untuk fitur SERP
type FeatureTag string

const (
	FeatureFeaturedSnippet FeatureTag = "featured_snippet"
	FeaturePeopleAlsoAsk   FeatureTag = "people_also_ask"
	FeatureLocalPack       FeatureTag = "local_pack"
	FeatureAds             FeatureTag = "ads"
	FeatureVideo           FeatureTag = "video"
)

// Entry is one organic result. Rank is 1-based and order is ranking order.
type Entry struct {
	Rank     int          `json:"rank"`
	URL      string       `json:"url"`
	Title    string       `json:"title"`
	Snippet  string       `json:"snippet,omitempty"`
	Features []FeatureTag `json:"features,omitempty"`
}

// Result is an ordered result set for one keyword+locale. Entries must stay
// in rank order end to end, never re-sorted downstream.
type Result struct {
	Keyword   string    `json:"keyword"`
	Locale    string    `json:"locale"`
	Entries   []Entry   `json:"entries"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Dedupe drops later entries sharing a URL with an earlier one, keeping the
// first (best ranked) occurrence and re-numbering ranks so they stay dense.
func Dedupe(entries []Entry) []Entry {
	seen := make(map[string]bool, len(entries))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		key := strings.TrimRight(e.URL, "/")
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		e.Rank = len(out) + 1
		out = append(out, e)
	}
	return out
}

// Domain extracts the registrable host of an entry URL, empty when unparseable.
func Domain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}
