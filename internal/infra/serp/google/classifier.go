package google

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/bryanwahyu/seo-audit/internal/domain/serp"
)

// featureRule is one structural classifier. Rules are independent and
// ordered; per tag the best-scoring match above threshold wins, so a single
// brittle selector never decides alone.
type featureRule struct {
	tag   serp.FeatureTag
	score float64
	match func(s *goquery.Selection) bool
}

const featureThreshold = 0.5

var featureRules = []featureRule{
	{serp.FeatureFeaturedSnippet, 0.9, func(s *goquery.Selection) bool {
		return s.Find(".hgKElc").Length() > 0
	}},
	{serp.FeatureFeaturedSnippet, 0.7, func(s *goquery.Selection) bool {
		return s.Closest(".xpdopen").Length() > 0
	}},
	{serp.FeaturePeopleAlsoAsk, 0.9, func(s *goquery.Selection) bool {
		return s.Find(".related-question-pair").Length() > 0 ||
			s.Closest(".related-question-pair").Length() > 0
	}},
	{serp.FeatureLocalPack, 0.8, func(s *goquery.Selection) bool {
		return s.Find(".VkpGBb").Length() > 0 || s.Closest(".VkpGBb").Length() > 0
	}},
	{serp.FeatureAds, 0.9, func(s *goquery.Selection) bool {
		return s.Closest("#tads, #bottomads").Length() > 0
	}},
	{serp.FeatureAds, 0.6, func(s *goquery.Selection) bool {
		_, ok := s.Attr("data-text-ad")
		return ok
	}},
	{serp.FeatureVideo, 0.8, func(s *goquery.Selection) bool {
		return s.Find(".RzdJxc, video").Length() > 0
	}},
	{serp.FeatureVideo, 0.5, func(s *goquery.Selection) bool {
		href := resultLink(s)
		return strings.Contains(serp.Domain(href), "youtube.com") ||
			strings.Contains(serp.Domain(href), "vimeo.com")
	}},
}

// classify runs every rule against one result container. A rule panicking
// on odd markup must not abort the fetch, the entry just keeps an empty set.
func classify(s *goquery.Selection) (tags []serp.FeatureTag) {
	defer func() {
		if recover() != nil {
			tags = nil
		}
	}()

	best := map[serp.FeatureTag]float64{}
	for _, r := range featureRules {
		if best[r.tag] >= r.score {
			continue
		}
		if r.match(s) {
			best[r.tag] = r.score
		}
	}
	// preserve rule order in the output so it is stable
	seen := map[serp.FeatureTag]bool{}
	for _, r := range featureRules {
		if seen[r.tag] {
			continue
		}
		if best[r.tag] >= featureThreshold {
			tags = append(tags, r.tag)
			seen[r.tag] = true
		}
	}
	return tags
}
