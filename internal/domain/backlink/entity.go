package backlink

// Confidence enum. Part of the contract, estimates are heuristic and
// consumers must be able to tell a guess from a grounded number.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Signals holds the proxy signals obtainable at request time. Nil pointer
// means the signal could not be collected, zero values stay meaningful.
type Signals struct {
	HasTLS         *bool  `json:"has_tls,omitempty"`
	HasRobots      *bool  `json:"has_robots,omitempty"`
	HasSitemap     *bool  `json:"has_sitemap,omitempty"`
	ResponseMillis *int64 `json:"response_millis,omitempty"`
	ReferringPages *int   `json:"referring_pages,omitempty"`
	IndexedPages   *int   `json:"indexed_pages,omitempty"`
}

// Estimate is the heuristic authority verdict for one domain.
// ReferringDomains is approximate and may be a lower bound.
type Estimate struct {
	Domain           string     `json:"domain"`
	AuthorityScore   int        `json:"authority_score"`
	ReferringDomains int        `json:"referring_domains"`
	Confidence       Confidence `json:"confidence"`
	Rating           string     `json:"rating"`
	Signals          Signals    `json:"signals"`
}
