package analyses

import "errors"

// Pipeline error taxonomy. Infra adapters wrap these so the orchestrator can
// branch on errors.Is without knowing which adapter produced them.
var (
	// ErrNavigationTimeout indicates the browser wait policy deadline elapsed.
	ErrNavigationTimeout = errors.New("navigation timeout")

	// ErrBlockedByTarget indicates bot detection (captcha page, block redirect,
	// HTTP 429). Never retried, retrying a detected block makes it worse.
	ErrBlockedByTarget = errors.New("blocked by target")

	// ErrUnreachablePage indicates DNS/network failure fetching a page.
	ErrUnreachablePage = errors.New("unreachable page")

	// ErrEmptyContent indicates the extracted text fell below the minimum
	// length. Valid terminal outcome for one page, not a crash.
	ErrEmptyContent = errors.New("empty content")

	// ErrInsufficientSignal indicates no backlink proxy signal was obtainable.
	ErrInsufficientSignal = errors.New("insufficient signal")

	// ErrModelUnavailable indicates the embedding model failed its startup
	// probe. Fatal for submissions, surfaced per-request as 503.
	ErrModelUnavailable = errors.New("embedding model unavailable")

	// ErrNoCompetitors indicates zero competitors were resolvable from SERP
	// data. The only per-request unrecoverable condition besides cancellation.
	ErrNoCompetitors = errors.New("no competitors resolvable")

	// ErrQueueFull indicates the worker queue rejected a new submission.
	ErrQueueFull = errors.New("analysis queue full")
)
