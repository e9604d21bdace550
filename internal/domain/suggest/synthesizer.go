package suggest

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/bryanwahyu/seo-audit/internal/domain/backlink"
	"github.com/bryanwahyu/seo-audit/internal/domain/content"
	"github.com/bryanwahyu/seo-audit/internal/domain/semantics"
	"github.com/bryanwahyu/seo-audit/internal/domain/vitals"
)

// Category enum
type Category string

const (
	CategoryContent     Category = "content"
	CategoryBacklinks   Category = "backlinks"
	CategoryPerformance Category = "performance"
	CategoryTechnical   Category = "technical"
)

// canonical category order untuk sorting stabil
var categoryOrder = map[Category]int{
	CategoryContent:     0,
	CategoryBacklinks:   1,
	CategoryPerformance: 2,
	CategoryTechnical:   3,
}

// Priority enum
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

var priorityRank = map[Priority]int{
	PriorityCritical: 3,
	PriorityHigh:     2,
	PriorityMedium:   1,
	PriorityLow:      0,
}

// Suggestion is one recommendation with the signal that produced it.
type Suggestion struct {
	Category Category `json:"category"`
	Priority Priority `json:"priority"`
	Message  string   `json:"message"`
	Evidence string   `json:"evidence"`
}

// Weights for the overall score. Configuration, not constants.
type Weights struct {
	Similarity float64 `yaml:"similarity" json:"similarity"`
	Backlinks  float64 `yaml:"backlinks" json:"backlinks"`
	Vitals     float64 `yaml:"vitals" json:"vitals"`
	Technical  float64 `yaml:"technical" json:"technical"`
}

func DefaultWeights() Weights {
	return Weights{Similarity: 0.40, Backlinks: 0.30, Vitals: 0.20, Technical: 0.10}
}

// Validate checks the weights sum to 1 within tolerance.
func (w Weights) Validate() error {
	sum := w.Similarity + w.Backlinks + w.Vitals + w.Technical
	if math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("scoring weights must sum to 1, got %.4f", sum)
	}
	return nil
}

// Inputs are the already-collected signals. Nil fields mean the phase was
// skipped or degraded.
type Inputs struct {
	Gap       *semantics.GapReport
	Backlinks *backlink.Estimate
	Vitals    *vitals.Sample
	Target    *content.Page
	Keywords  []string
}

// Synthesize is a pure function over Inputs. Same inputs, same output, same
// order: priority descending then canonical category order.
func Synthesize(in Inputs) []Suggestion {
	var out []Suggestion
	out = append(out, contentRules(in)...)
	out = append(out, backlinkRules(in)...)
	out = append(out, performanceRules(in)...)
	out = append(out, technicalRules(in)...)

	sort.SliceStable(out, func(i, j int) bool {
		if priorityRank[out[i].Priority] != priorityRank[out[j].Priority] {
			return priorityRank[out[i].Priority] > priorityRank[out[j].Priority]
		}
		return categoryOrder[out[i].Category] < categoryOrder[out[j].Category]
	})
	return out
}

func contentRules(in Inputs) []Suggestion {
	var out []Suggestion
	if in.Gap != nil && len(in.Gap.Competitors) > 0 {
		gap := 1 - in.Gap.MeanSimilarity
		missing := len(in.Gap.MissingTopics)
		switch {
		case gap > 0.4 && missing > 3:
			out = append(out, Suggestion{
				Category: CategoryContent,
				Priority: PriorityCritical,
				Message: fmt.Sprintf("content diverges strongly from ranking competitors; cover: %s",
					strings.Join(in.Gap.MissingTopics, ", ")),
				Evidence: fmt.Sprintf("mean similarity %.2f, %d missing topics", in.Gap.MeanSimilarity, missing),
			})
		case gap > 0.4:
			out = append(out, Suggestion{
				Category: CategoryContent,
				Priority: PriorityHigh,
				Message:  "content similarity to ranking competitors is low; broaden topical coverage",
				Evidence: fmt.Sprintf("mean similarity %.2f", in.Gap.MeanSimilarity),
			})
		case missing > 0:
			out = append(out, Suggestion{
				Category: CategoryContent,
				Priority: PriorityMedium,
				Message: fmt.Sprintf("competitors cover topics the page does not: %s",
					strings.Join(in.Gap.MissingTopics, ", ")),
				Evidence: fmt.Sprintf("%d missing topics", missing),
			})
		}
	}
	if in.Target != nil && in.Target.WordCount < 300 {
		out = append(out, Suggestion{
			Category: CategoryContent,
			Priority: PriorityHigh,
			Message:  "page content is thin; aim for at least 300 words of substantive text",
			Evidence: fmt.Sprintf("word count %d", in.Target.WordCount),
		})
	}
	if in.Target != nil {
		for _, kw := range in.Keywords {
			d := in.Target.KeywordDensity(kw)
			switch {
			case d == 0:
				out = append(out, Suggestion{
					Category: CategoryContent,
					Priority: PriorityMedium,
					Message:  fmt.Sprintf("target keyword %q does not appear in the page text", kw),
					Evidence: "keyword density 0.0%",
				})
			case d > 3:
				out = append(out, Suggestion{
					Category: CategoryContent,
					Priority: PriorityLow,
					Message:  fmt.Sprintf("keyword %q looks over-optimized, reduce repetition", kw),
					Evidence: fmt.Sprintf("keyword density %.1f%%", d),
				})
			}
		}
	}
	return out
}

// backlinkRules caps priority at medium whenever the estimate is
// low-confidence: a guess must never drive a critical claim.
func backlinkRules(in Inputs) []Suggestion {
	est := in.Backlinks
	if est == nil {
		return []Suggestion{{
			Category: CategoryBacklinks,
			Priority: PriorityLow,
			Message:  "backlink authority could not be assessed for this run",
			Evidence: "no backlink signals collected",
		}}
	}

	var p Priority
	var msg string
	switch {
	case est.AuthorityScore < 20:
		p = PriorityHigh
		msg = "domain authority is very low; invest in earning links from relevant sites"
	case est.AuthorityScore < 40:
		p = PriorityMedium
		msg = "domain authority is below average; grow the referring-domain footprint"
	default:
		p = PriorityLow
		msg = "domain authority looks healthy; keep existing link profile maintained"
	}
	if est.Confidence == backlink.ConfidenceLow {
		p = capPriority(p, PriorityMedium)
	}
	return []Suggestion{{
		Category: CategoryBacklinks,
		Priority: p,
		Message:  msg,
		Evidence: fmt.Sprintf("authority %d/100, ~%d referring pages, confidence %s",
			est.AuthorityScore, est.ReferringDomains, est.Confidence),
	}}
}

func performanceRules(in Inputs) []Suggestion {
	var out []Suggestion
	if in.Vitals == nil {
		return out
	}
	if r := vitals.RateLCP(in.Vitals.LCPMillis); r == vitals.RatingPoor || r == vitals.RatingNeedsImprovement {
		p := PriorityMedium
		if r == vitals.RatingPoor {
			p = PriorityHigh
		}
		out = append(out, Suggestion{
			Category: CategoryPerformance,
			Priority: p,
			Message:  "largest contentful paint is slow; optimize hero images and server response",
			Evidence: fmt.Sprintf("LCP %.0fms (%s)", *in.Vitals.LCPMillis, r),
		})
	}
	if r := vitals.RateCLS(in.Vitals.CLS); r == vitals.RatingPoor || r == vitals.RatingNeedsImprovement {
		p := PriorityMedium
		if r == vitals.RatingPoor {
			p = PriorityHigh
		}
		out = append(out, Suggestion{
			Category: CategoryPerformance,
			Priority: p,
			Message:  "layout shifts during load; reserve space for images, embeds and fonts",
			Evidence: fmt.Sprintf("CLS %.3f (%s)", *in.Vitals.CLS, r),
		})
	}
	if r := vitals.RateFID(in.Vitals.FIDMillis); r == vitals.RatingPoor {
		out = append(out, Suggestion{
			Category: CategoryPerformance,
			Priority: PriorityMedium,
			Message:  "input delay is high; split long main-thread tasks",
			Evidence: fmt.Sprintf("FID %.0fms (%s)", *in.Vitals.FIDMillis, r),
		})
	}
	return out
}

func technicalRules(in Inputs) []Suggestion {
	var out []Suggestion
	if in.Backlinks != nil && in.Backlinks.Signals.HasTLS != nil && !*in.Backlinks.Signals.HasTLS {
		out = append(out, Suggestion{
			Category: CategoryTechnical,
			Priority: PriorityHigh,
			Message:  "site is not served over HTTPS",
			Evidence: "TLS probe failed",
		})
	}
	if in.Backlinks != nil && in.Backlinks.Signals.HasSitemap != nil && !*in.Backlinks.Signals.HasSitemap {
		out = append(out, Suggestion{
			Category: CategoryTechnical,
			Priority: PriorityLow,
			Message:  "no sitemap.xml found; publish one to help crawl coverage",
			Evidence: "sitemap probe returned not found",
		})
	}
	if in.Target != nil && in.Target.H1() == "" {
		out = append(out, Suggestion{
			Category: CategoryTechnical,
			Priority: PriorityMedium,
			Message:  "page has no H1 heading",
			Evidence: "heading structure contains no level-1 entry",
		})
	}
	return out
}

func capPriority(p, max Priority) Priority {
	if priorityRank[p] > priorityRank[max] {
		return max
	}
	return p
}

// OverallScore combines the sub-scores per configured weights, clamped to
// [0,100]. Missing phases contribute a neutral 50 so a degraded run still
// yields a comparable number; coverage metadata carries the caveat.
func OverallScore(in Inputs, w Weights) float64 {
	simScore := 50.0
	if in.Gap != nil && len(in.Gap.Competitors) > 0 {
		simScore = in.Gap.MeanSimilarity * 100
	}
	blScore := 50.0
	if in.Backlinks != nil {
		blScore = float64(in.Backlinks.AuthorityScore)
	}
	vitScore := in.Vitals.Score()
	techScore := technicalScore(in)

	total := simScore*w.Similarity + blScore*w.Backlinks + vitScore*w.Vitals + techScore*w.Technical
	return math.Max(0, math.Min(100, total))
}

func technicalScore(in Inputs) float64 {
	score := 100.0
	if in.Backlinks != nil && in.Backlinks.Signals.HasTLS != nil && !*in.Backlinks.Signals.HasTLS {
		score -= 40
	}
	if in.Target == nil {
		return 50
	}
	if in.Target.H1() == "" {
		score -= 30
	}
	if in.Target.WordCount < 300 {
		score -= 30
	}
	return math.Max(0, score)
}
