package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	domain "github.com/bryanwahyu/seo-audit/internal/domain/analyses"
)

// WaitPolicy decides when a navigation is considered settled. Selector wins
// over Delay; QuietPeriod is a network-idle approximation appended after
// either, rendered pages keep loading after DOM ready.
type WaitPolicy struct {
	Delay       time.Duration
	Selector    string
	QuietPeriod time.Duration
}

// DomSnapshot is the rendered document at settle time.
type DomSnapshot struct {
	URL    string
	HTML   string
	Status int64
}

// Block page markers, lowercase. Matched against final URL and body text.
var blockIndicators = []string{
	"/sorry/",
	"captcha",
	"unusual traffic",
	"automated queries",
}

// Navigate drives one session to url under the wait policy. Consumes one
// unit of the session's page load quota whether or not it succeeds.
func (p *Pool) Navigate(ctx context.Context, s *Session, url string, wait WaitPolicy) (*DomSnapshot, error) {
	tabCtx := p.ensure(s)
	s.loads++

	runCtx, cancel := context.WithTimeout(tabCtx, p.cfg.NavTimeout)
	defer cancel()
	// propagate caller cancellation into the chromedp run
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	// first document status, written from chromedp's event goroutine
	var status atomic.Int64
	chromedp.ListenTarget(runCtx, func(ev interface{}) {
		if res, ok := ev.(*network.EventResponseReceived); ok {
			if res.Type == network.ResourceTypeDocument {
				status.CompareAndSwap(0, res.Response.Status)
			}
		}
	})

	tasks := chromedp.Tasks{
		network.Enable(),
		emulation.SetUserAgentOverride(s.ua),
		chromedp.Navigate(url),
	}
	switch {
	case wait.Selector != "":
		tasks = append(tasks, chromedp.WaitVisible(wait.Selector, chromedp.ByQuery))
	case wait.Delay > 0:
		tasks = append(tasks, chromedp.Sleep(wait.Delay))
	}
	if wait.QuietPeriod > 0 {
		tasks = append(tasks, chromedp.Sleep(wait.QuietPeriod))
	}

	var html, location string
	tasks = append(tasks,
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)

	if err := chromedp.Run(runCtx, tasks); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("navigate %s: %w", url, ctx.Err())
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("navigate %s: %w", url, domain.ErrNavigationTimeout)
		}
		return nil, fmt.Errorf("navigate %s: %v: %w", url, err, domain.ErrUnreachablePage)
	}

	st := status.Load()
	if blocked(location, html, st) {
		return nil, fmt.Errorf("navigate %s: %w", url, domain.ErrBlockedByTarget)
	}
	return &DomSnapshot{URL: location, HTML: html, Status: st}, nil
}

// Evaluate navigates and then runs a script in the settled page, decoding
// its JSON result into out. Used by the performance probe, which needs the
// page's own timing API rather than its markup.
func (p *Pool) Evaluate(ctx context.Context, s *Session, url string, wait WaitPolicy, expr string, out interface{}) error {
	tabCtx := p.ensure(s)
	s.loads++

	runCtx, cancel := context.WithTimeout(tabCtx, p.cfg.NavTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	tasks := chromedp.Tasks{
		emulation.SetUserAgentOverride(s.ua),
		chromedp.Navigate(url),
	}
	if wait.Delay > 0 {
		tasks = append(tasks, chromedp.Sleep(wait.Delay))
	}
	if wait.QuietPeriod > 0 {
		tasks = append(tasks, chromedp.Sleep(wait.QuietPeriod))
	}
	tasks = append(tasks, chromedp.Evaluate(expr, out))

	if err := chromedp.Run(runCtx, tasks); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("evaluate on %s: %w", url, ctx.Err())
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("evaluate on %s: %w", url, domain.ErrNavigationTimeout)
		}
		return fmt.Errorf("evaluate on %s: %v: %w", url, err, domain.ErrUnreachablePage)
	}
	return nil
}

func blocked(location, html string, status int64) bool {
	if status == 429 {
		return true
	}
	loc := strings.ToLower(location)
	body := strings.ToLower(html)
	for _, m := range blockIndicators {
		if strings.Contains(loc, m) {
			return true
		}
	}
	// body markers only when the page is suspiciously small, normal articles
	// may legitimately mention the word captcha
	if len(body) < 20000 {
		for _, m := range blockIndicators[1:] {
			if strings.Contains(body, m) {
				return true
			}
		}
	}
	return false
}
