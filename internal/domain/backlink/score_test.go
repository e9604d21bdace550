package backlink

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func boolPtr(b bool) *bool    { return &b }
func intPtr(i int) *int       { return &i }
func int64Ptr(i int64) *int64 { return &i }

func TestConfidenceLadderBySignalCount(t *testing.T) {
	cases := []struct {
		name    string
		signals Signals
		count   int
		maxConf Confidence
	}{
		{"zero signals", Signals{}, 0, ConfidenceLow},
		{"one signal", Signals{HasTLS: boolPtr(true)}, 1, ConfidenceLow},
		{
			"two signals capped at medium",
			Signals{HasTLS: boolPtr(true), HasRobots: boolPtr(true)},
			2, ConfidenceMedium,
		},
		{
			"three agreeing signals may be high",
			Signals{
				HasTLS:         boolPtr(true),
				HasRobots:      boolPtr(true),
				HasSitemap:     boolPtr(true),
				ResponseMillis: int64Ptr(300),
			},
			3, ConfidenceHigh,
		},
	}

	rank := map[Confidence]int{ConfidenceLow: 0, ConfidenceMedium: 1, ConfidenceHigh: 2}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.count, tc.signals.SignalCount())
			est := Score("example.com", tc.signals)
			assert.LessOrEqual(t, rank[est.Confidence], rank[tc.maxConf],
				"confidence %s exceeds allowed %s", est.Confidence, tc.maxConf)
		})
	}
}

func TestNeverHighBelowMinimumSignals(t *testing.T) {
	// every single-signal combination must stay low
	singles := []Signals{
		{HasTLS: boolPtr(true)},
		{HasRobots: boolPtr(true)},
		{ResponseMillis: int64Ptr(100)},
		{ReferringPages: intPtr(500)},
		{IndexedPages: intPtr(9000)},
	}
	for _, sig := range singles {
		est := Score("example.com", sig)
		assert.Equal(t, ConfidenceLow, est.Confidence)
	}
}

func TestDisagreeingSignalsStayMedium(t *testing.T) {
	// strong TLS + strong crawlability but a dead referral footprint:
	// spread above tolerance, must not claim high
	sig := Signals{
		HasTLS:         boolPtr(true),
		HasSitemap:     boolPtr(true),
		HasRobots:      boolPtr(true),
		ReferringPages: intPtr(0),
	}
	est := Score("example.com", sig)
	assert.Equal(t, ConfidenceMedium, est.Confidence)
}

func TestAuthorityScoreBounds(t *testing.T) {
	full := Signals{
		HasTLS:         boolPtr(true),
		HasRobots:      boolPtr(true),
		HasSitemap:     boolPtr(true),
		ResponseMillis: int64Ptr(200),
		ReferringPages: intPtr(100000),
		IndexedPages:   intPtr(1000000),
	}
	est := Score("example.com", full)
	assert.LessOrEqual(t, est.AuthorityScore, 100)
	assert.GreaterOrEqual(t, est.AuthorityScore, 80)
	assert.Equal(t, "excellent", est.Rating)

	empty := Score("example.com", Signals{})
	assert.Equal(t, 0, empty.AuthorityScore)
	assert.Equal(t, "very_poor", empty.Rating)
	assert.Equal(t, ConfidenceLow, empty.Confidence)
}

func TestReferringDomainsLowerBoundCarried(t *testing.T) {
	est := Score("example.com", Signals{ReferringPages: intPtr(42)})
	assert.Equal(t, 42, est.ReferringDomains)
}
