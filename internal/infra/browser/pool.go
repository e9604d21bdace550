package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

// Config untuk pool browser
type Config struct {
	PoolSize      int
	PageLoadQuota int
	Headless      bool
	NavTimeout    time.Duration
	UserAgents    []string
}

func (c *Config) defaults() {
	if c.PoolSize <= 0 {
		c.PoolSize = 3
	}
	if c.PageLoadQuota <= 0 {
		c.PageLoadQuota = 25
	}
	if c.NavTimeout <= 0 {
		c.NavTimeout = 30 * time.Second
	}
	if len(c.UserAgents) == 0 {
		c.UserAgents = defaultUserAgents
	}
}

// Rotated across sessions, long-lived fingerprints get browsers flagged.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
}

// Session is one browser tab slot. loads counts navigations since the last
// recycle; once the quota is spent Release tears the tab down so the next
// user starts from a fresh fingerprint.
type Session struct {
	id     int
	ua     string
	loads  int
	tabCtx context.Context
	cancel context.CancelFunc
}

// Loads reports navigations since last recycle.
func (s *Session) Loads() int { return s.loads }

// Pool owns at most PoolSize browser sessions. Acquire/Release discipline,
// sessions are the scarce resource bounding the whole pipeline.
type Pool struct {
	cfg       Config
	log       zerolog.Logger
	allocCtx  context.Context
	allocStop context.CancelFunc
	free      chan *Session

	mu     sync.Mutex
	uaNext int
	closed bool
}

// NewPool sets up the shared exec allocator. Tabs are created lazily on
// first navigation, so constructing the pool is cheap.
func NewPool(ctx context.Context, cfg Config, log zerolog.Logger) *Pool {
	cfg.defaults()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("window-size", "1366,768"),
	)
	allocCtx, allocStop := chromedp.NewExecAllocator(ctx, opts...)

	p := &Pool{
		cfg:       cfg,
		log:       log,
		allocCtx:  allocCtx,
		allocStop: allocStop,
		free:      make(chan *Session, cfg.PoolSize),
	}
	for i := 0; i < cfg.PoolSize; i++ {
		p.free <- &Session{id: i, ua: p.nextUA()}
	}
	return p
}

// Acquire blocks until a session is free or ctx is done.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	select {
	case s, ok := <-p.free:
		if !ok {
			return nil, fmt.Errorf("browser pool closed")
		}
		return s, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire browser session: %w", ctx.Err())
	}
}

// Release returns a session to the pool, recycling it first when its page
// load quota is spent.
func (p *Pool) Release(s *Session) {
	if s == nil {
		return
	}
	if s.loads >= p.cfg.PageLoadQuota {
		p.recycle(s)
	}
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		s.teardown()
		return
	}
	p.free <- s
}

// recycle drops the underlying tab and rotates the user agent.
func (p *Pool) recycle(s *Session) {
	p.log.Debug().Int("session", s.id).Int("loads", s.loads).Msg("recycling browser session")
	s.teardown()
	s.loads = 0
	s.ua = p.nextUA()
}

func (s *Session) teardown() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
		s.tabCtx = nil
	}
}

// ensure lazily creates the chromedp tab context.
func (p *Pool) ensure(s *Session) context.Context {
	if s.tabCtx == nil {
		s.tabCtx, s.cancel = chromedp.NewContext(p.allocCtx)
	}
	return s.tabCtx
}

func (p *Pool) nextUA() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ua := p.cfg.UserAgents[p.uaNext%len(p.cfg.UserAgents)]
	p.uaNext++
	return ua
}

// Close shuts the allocator down and tears down idle sessions. In-flight
// sessions are torn down as they come back through Release.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	for {
		select {
		case s := <-p.free:
			s.teardown()
		default:
			p.allocStop()
			return
		}
	}
}
