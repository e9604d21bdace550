package analyses

import (
	"time"

	"github.com/bryanwahyu/seo-audit/internal/domain/backlink"
	"github.com/bryanwahyu/seo-audit/internal/domain/content"
	"github.com/bryanwahyu/seo-audit/internal/domain/semantics"
	"github.com/bryanwahyu/seo-audit/internal/domain/serp"
	"github.com/bryanwahyu/seo-audit/internal/domain/suggest"
	"github.com/bryanwahyu/seo-audit/internal/domain/vitals"
)

// ID tipe untuk Analysis
type AnalysisID string

// State enum, urutan pipeline
type State string

const (
	StatePending      State = "pending"
	StateScraping     State = "scraping"
	StateExtracting   State = "extracting"
	StateComparing    State = "comparing"
	StateEstimating   State = "estimating"
	StateSynthesizing State = "synthesizing"
	StateComplete     State = "complete"
	StateFailed       State = "failed"
)

// Terminal reports whether no further transition is allowed from s.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

// Coverage enum untuk report metadata
type Coverage string

const (
	CoverageFull     Coverage = "full"
	CoverageDegraded Coverage = "degraded"
)

// Request is immutable once accepted by the service.
type Request struct {
	ID             AnalysisID `json:"id"`
	TargetURL      string     `json:"target_url"`
	Keywords       []string   `json:"keywords"`
	Locale         string     `json:"locale"`
	MaxCompetitors int        `json:"max_competitors"`
	MaxSerpPages   int        `json:"max_serp_pages"`
	SubmittedAt    time.Time  `json:"submitted_at"`
}

// Report is assembled exactly once per Request and immutable afterwards.
// RawHTML of the crawled pages never ends up here, content.Page drops it on marshal.
type Report struct {
	RequestID    AnalysisID           `json:"request_id"`
	TargetURL    string               `json:"target_url"`
	Serp         serp.Result          `json:"serp"`
	Target       *content.Page        `json:"target,omitempty"`
	Gap          *semantics.GapReport `json:"gap,omitempty"`
	Backlinks    *backlink.Estimate   `json:"backlinks,omitempty"`
	Vitals       *vitals.Sample       `json:"vitals,omitempty"`
	Suggestions  []suggest.Suggestion `json:"suggestions"`
	OverallScore float64              `json:"overall_score"`
	Coverage     Coverage             `json:"coverage"`
	Degradations []string             `json:"degradations,omitempty"`
	GeneratedAt  time.Time            `json:"generated_at"`
}

// Record is the persisted view of one analysis: the request, where the
// pipeline currently is, and the report once it exists.
type Record struct {
	ID            AnalysisID `json:"id"`
	Request       Request    `json:"request"`
	State         State      `json:"state"`
	FailureReason string     `json:"failure_reason,omitempty"`
	Report        *Report    `json:"report,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
