package vitals

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/bryanwahyu/seo-audit/internal/domain/vitals"
	"github.com/bryanwahyu/seo-audit/internal/infra/browser"
)

// Evaluator is the slice of the browser pool the probe needs.
type Evaluator interface {
	Acquire(ctx context.Context) (*browser.Session, error)
	Release(s *browser.Session)
	Evaluate(ctx context.Context, s *browser.Session, url string, wait browser.WaitPolicy, expr string, out interface{}) error
}

// timingScript reads what the rendering engine exposes. Missing entries stay
// null, the sample is still useful with partial data.
const timingScript = `(() => {
	const out = {lcp: null, cls: null, tti: null, fid: null};
	try {
		const nav = performance.getEntriesByType('navigation')[0];
		if (nav && nav.domInteractive > 0) out.tti = nav.domInteractive;
	} catch (e) {}
	try {
		const lcp = performance.getEntriesByType('largest-contentful-paint');
		if (lcp.length > 0) out.lcp = lcp[lcp.length - 1].startTime;
	} catch (e) {}
	try {
		let cls = 0, seen = false;
		for (const e of performance.getEntriesByType('layout-shift')) {
			if (!e.hadRecentInput) { cls += e.value; seen = true; }
		}
		if (seen) out.cls = cls;
	} catch (e) {}
	try {
		const fid = performance.getEntriesByType('first-input');
		if (fid.length > 0) out.fid = fid[0].processingStart - fid[0].startTime;
	} catch (e) {}
	return out;
})()`

// Probe measures page performance through a pooled browser session.
type Probe struct {
	Browser Evaluator
	Log     zerolog.Logger
	// SettleDelay gives late paints and shifts time to land before reading.
	SettleDelay time.Duration
}

func NewProbe(ev Evaluator, log zerolog.Logger) *Probe {
	return &Probe{Browser: ev, Log: log, SettleDelay: 3 * time.Second}
}

// Measure implements the prober port. Navigation failures propagate, but a
// page that loads always yields a sample, however sparse.
func (p *Probe) Measure(ctx context.Context, url string) (*vitals.Sample, error) {
	sess, err := p.Browser.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer p.Browser.Release(sess)

	var raw struct {
		LCP *float64 `json:"lcp"`
		CLS *float64 `json:"cls"`
		TTI *float64 `json:"tti"`
		FID *float64 `json:"fid"`
	}
	err = p.Browser.Evaluate(ctx, sess, url, browser.WaitPolicy{
		Delay:       p.SettleDelay,
		QuietPeriod: 500 * time.Millisecond,
	}, timingScript, &raw)
	if err != nil {
		return nil, err
	}

	sample := &vitals.Sample{
		URL:        url,
		LCPMillis:  raw.LCP,
		CLS:        raw.CLS,
		TTIMillis:  raw.TTI,
		FIDMillis:  raw.FID,
		CapturedAt: time.Now().UTC(),
	}
	p.Log.Debug().Str("url", url).
		Str("lcp", string(vitals.RateLCP(sample.LCPMillis))).
		Str("cls", string(vitals.RateCLS(sample.CLS))).
		Msg("vitals sample captured")
	return sample, nil
}
