package analyses

import (
	"context"

	"github.com/bryanwahyu/seo-audit/internal/domain/backlink"
	"github.com/bryanwahyu/seo-audit/internal/domain/content"
	"github.com/bryanwahyu/seo-audit/internal/domain/semantics"
	"github.com/bryanwahyu/seo-audit/internal/domain/serp"
	"github.com/bryanwahyu/seo-audit/internal/domain/vitals"
)

// Repository port (interface untuk persistence)
type Repository interface {
	Save(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id AnalysisID) (*Record, error)
	Latest(ctx context.Context, targetURL string, limit int) ([]*Record, error)
	UpdateState(ctx context.Context, id AnalysisID, state State, reason string) error
}

// ReportArchive port (interface untuk penyimpanan report JSON penuh)
type ReportArchive interface {
	PutJSON(ctx context.Context, key string, v any) (string, error)
}

// SerpScraper port, implemented against a real search engine. pages walks
// deeper result offsets; implementations merge them in rank order.
type SerpScraper interface {
	FetchSERP(ctx context.Context, keyword, locale string, maxResults, pages int) (serp.Result, error)
}

// ContentExtractor port.
type ContentExtractor interface {
	Extract(ctx context.Context, url string, keywords []string) (*content.Page, error)
}

// Comparator port, backed by the process-wide embedding model.
type Comparator interface {
	Compare(ctx context.Context, target *content.Page, competitors []*content.Page) (*semantics.GapReport, error)
}

// BacklinkEstimator port.
type BacklinkEstimator interface {
	Estimate(ctx context.Context, domain string) (*backlink.Estimate, error)
}

// VitalsProber port.
type VitalsProber interface {
	Measure(ctx context.Context, url string) (*vitals.Sample, error)
}
