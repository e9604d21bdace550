package backlink

import "math"

// MinIndependentSignals is the floor under which confidence is always low,
// and at which it is capped at medium.
const MinIndependentSignals = 2

// agreementTolerance is the max spread between normalized per-signal scores
// still counted as "signals agree" when promoting to high confidence.
const agreementTolerance = 0.6

// Score derives an Estimate from whatever signals were collected.
// Weighting follows the band scheme: transport security 15, crawlability 15,
// latency 10, referral footprint 35, index footprint 25, total 100.
func Score(domain string, sig Signals) Estimate {
	est := Estimate{Domain: domain, Signals: sig}

	// normalized [0,1] score per independent signal type, nil = unavailable
	var parts []float64

	var score float64
	if sig.HasTLS != nil {
		v := 0.0
		if *sig.HasTLS {
			v = 1
		}
		score += v * 15
		parts = append(parts, v)
	}
	if sig.HasRobots != nil || sig.HasSitemap != nil {
		v := 0.0
		if sig.HasRobots != nil && *sig.HasRobots {
			v += 0.4
		}
		if sig.HasSitemap != nil && *sig.HasSitemap {
			v += 0.6
		}
		score += v * 15
		parts = append(parts, v)
	}
	if sig.ResponseMillis != nil {
		v := latencyScore(*sig.ResponseMillis)
		score += v * 10
		parts = append(parts, v)
	}
	if sig.ReferringPages != nil {
		v := logScore(*sig.ReferringPages, 1000)
		score += v * 35
		parts = append(parts, v)
		est.ReferringDomains = *sig.ReferringPages
	}
	if sig.IndexedPages != nil {
		v := logScore(*sig.IndexedPages, 10000)
		score += v * 25
		parts = append(parts, v)
	}

	est.AuthorityScore = int(math.Round(math.Min(score, 100)))
	est.Confidence = confidence(parts)
	est.Rating = rating(est.AuthorityScore)
	return est
}

// SignalCount returns how many independent signal types are available.
func (s Signals) SignalCount() int {
	n := 0
	if s.HasTLS != nil {
		n++
	}
	if s.HasRobots != nil || s.HasSitemap != nil {
		n++
	}
	if s.ResponseMillis != nil {
		n++
	}
	if s.ReferringPages != nil {
		n++
	}
	if s.IndexedPages != nil {
		n++
	}
	return n
}

// confidence ladder: below the minimum always low, exactly at the minimum at
// most medium, above it high only when the signals agree within tolerance.
// Never high from a single source, that is a correctness invariant.
func confidence(parts []float64) Confidence {
	n := len(parts)
	if n < MinIndependentSignals {
		return ConfidenceLow
	}
	if n == MinIndependentSignals {
		return ConfidenceMedium
	}
	lo, hi := parts[0], parts[0]
	for _, p := range parts[1:] {
		lo = math.Min(lo, p)
		hi = math.Max(hi, p)
	}
	if hi-lo <= agreementTolerance {
		return ConfidenceHigh
	}
	return ConfidenceMedium
}

func latencyScore(millis int64) float64 {
	switch {
	case millis <= 0:
		return 0
	case millis < 500:
		return 1
	case millis < 2000:
		return 0.7
	case millis < 5000:
		return 0.3
	default:
		return 0
	}
}

// logScore maps a count onto [0,1] logarithmically so the first links matter
// far more than the thousandth.
func logScore(count, saturation int) float64 {
	if count <= 0 {
		return 0
	}
	v := math.Log1p(float64(count)) / math.Log1p(float64(saturation))
	return math.Min(v, 1)
}

func rating(score int) string {
	switch {
	case score >= 80:
		return "excellent"
	case score >= 60:
		return "good"
	case score >= 40:
		return "average"
	case score >= 20:
		return "poor"
	default:
		return "very_poor"
	}
}
