package vitals

import "time"

// Rating per the published Core Web Vitals bands.
type Rating string

const (
	RatingGood             Rating = "good"
	RatingNeedsImprovement Rating = "needs_improvement"
	RatingPoor             Rating = "poor"
	RatingUnknown          Rating = "unknown"
)

// Sample holds one performance capture. Nil metric means the rendering
// engine did not expose it, partial data is still actionable.
type Sample struct {
	URL        string    `json:"url"`
	LCPMillis  *float64  `json:"lcp_millis"`
	CLS        *float64  `json:"cls"`
	TTIMillis  *float64  `json:"tti_millis"`
	FIDMillis  *float64  `json:"fid_millis"`
	CapturedAt time.Time `json:"captured_at"`
}

// RateLCP: good ≤ 2.5s, needs improvement ≤ 4s, else poor.
func RateLCP(millis *float64) Rating {
	if millis == nil {
		return RatingUnknown
	}
	switch {
	case *millis <= 2500:
		return RatingGood
	case *millis <= 4000:
		return RatingNeedsImprovement
	default:
		return RatingPoor
	}
}

// RateCLS: good ≤ 0.1, needs improvement ≤ 0.25, else poor.
func RateCLS(cls *float64) Rating {
	if cls == nil {
		return RatingUnknown
	}
	switch {
	case *cls <= 0.1:
		return RatingGood
	case *cls <= 0.25:
		return RatingNeedsImprovement
	default:
		return RatingPoor
	}
}

// RateFID: good ≤ 100ms, needs improvement ≤ 300ms, else poor.
func RateFID(millis *float64) Rating {
	if millis == nil {
		return RatingUnknown
	}
	switch {
	case *millis <= 100:
		return RatingGood
	case *millis <= 300:
		return RatingNeedsImprovement
	default:
		return RatingPoor
	}
}

// Score maps a sample onto [0,100] for the overall weighting. Unknown
// metrics are skipped, an all-unknown sample scores neutral 50.
func (s *Sample) Score() float64 {
	if s == nil {
		return 50
	}
	var sum float64
	var n int
	for _, r := range []Rating{RateLCP(s.LCPMillis), RateCLS(s.CLS), RateFID(s.FIDMillis)} {
		switch r {
		case RatingGood:
			sum += 100
		case RatingNeedsImprovement:
			sum += 60
		case RatingPoor:
			sum += 25
		default:
			continue
		}
		n++
	}
	if n == 0 {
		return 50
	}
	return sum / float64(n)
}
