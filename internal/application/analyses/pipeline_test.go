package analyses

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/seo-audit/internal/application"
	domain "github.com/bryanwahyu/seo-audit/internal/domain/analyses"
	"github.com/bryanwahyu/seo-audit/internal/domain/backlink"
	"github.com/bryanwahyu/seo-audit/internal/domain/content"
	"github.com/bryanwahyu/seo-audit/internal/domain/semantics"
	"github.com/bryanwahyu/seo-audit/internal/domain/serp"
	"github.com/bryanwahyu/seo-audit/internal/domain/suggest"
	"github.com/bryanwahyu/seo-audit/internal/domain/vitals"
)

// memRepo stores records through a JSON round trip, the same way the SQL
// repos do, so transient fields provably do not survive persistence.
type memRepo struct {
	mu   sync.Mutex
	recs map[domain.AnalysisID][]byte
}

func newMemRepo() *memRepo {
	return &memRepo{recs: map[domain.AnalysisID][]byte{}}
}

func (r *memRepo) Save(_ context.Context, rec *domain.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	r.recs[rec.ID] = b
	return nil
}

func (r *memRepo) Get(_ context.Context, id domain.AnalysisID) (*domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.recs[id]
	if !ok {
		return nil, nil
	}
	var rec domain.Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *memRepo) Latest(_ context.Context, _ string, _ int) ([]*domain.Record, error) {
	return nil, nil
}

func (r *memRepo) UpdateState(ctx context.Context, id domain.AnalysisID, state domain.State, reason string) error {
	rec, err := r.Get(ctx, id)
	if err != nil || rec == nil {
		return err
	}
	rec.State = state
	rec.FailureReason = reason
	return r.Save(ctx, rec)
}

type fakeScraper struct {
	fn        func(ctx context.Context, keyword string) (serp.Result, error)
	lastPages *int
}

func (f fakeScraper) FetchSERP(ctx context.Context, keyword, _ string, _, pages int) (serp.Result, error) {
	if f.lastPages != nil {
		*f.lastPages = pages
	}
	return f.fn(ctx, keyword)
}

type fakeExtractor struct {
	fn func(url string) (*content.Page, error)
}

func (f fakeExtractor) Extract(_ context.Context, url string, _ []string) (*content.Page, error) {
	return f.fn(url)
}

type fakeComparator struct{}

func (fakeComparator) Compare(_ context.Context, target *content.Page, comps []*content.Page) (*semantics.GapReport, error) {
	rep := &semantics.GapReport{TargetURL: target.URL, ModelVersion: "fake", MeanSimilarity: 0.8}
	for i, c := range comps {
		rep.Competitors = append(rep.Competitors, semantics.CompetitorSimilarity{
			URL: c.URL, Rank: i + 1, Similarity: 0.8,
		})
	}
	return rep, nil
}

type fakeEstimator struct{}

func (fakeEstimator) Estimate(_ context.Context, d string) (*backlink.Estimate, error) {
	tls := true
	return &backlink.Estimate{
		Domain:         d,
		AuthorityScore: 55,
		Confidence:     backlink.ConfidenceMedium,
		Signals:        backlink.Signals{HasTLS: &tls},
	}, nil
}

type fakeProber struct{}

func (fakeProber) Measure(_ context.Context, url string) (*vitals.Sample, error) {
	lcp := 1800.0
	return &vitals.Sample{URL: url, LCPMillis: &lcp, CapturedAt: time.Now()}, nil
}

func goodSerp(keyword string) serp.Result {
	return serp.Result{
		Keyword: keyword,
		Entries: []serp.Entry{
			{Rank: 1, URL: "https://a.example/post", Title: "A"},
			{Rank: 2, URL: "https://b.example/post", Title: "B"},
			{Rank: 3, URL: "https://a.example/post", Title: "A dup"},
			{Rank: 4, URL: "https://me.example/page", Title: "me"},
		},
	}
}

func goodPage(url string) *content.Page {
	return &content.Page{
		URL:       url,
		RawHTML:   "<html><body>secret transient markup</body></html>",
		Text:      "plenty of words about the topic at hand",
		WordCount: 600,
		Headings:  []content.Heading{{Level: 1, Text: "Title"}},
	}
}

func newTestService(repo *memRepo, scraper domain.SerpScraper) *Service {
	svc := &Service{
		Repo:       repo,
		Serp:       scraper,
		Extractor:  fakeExtractor{fn: func(url string) (*content.Page, error) { return goodPage(url), nil }},
		Comparator: fakeComparator{},
		Backlinks:  fakeEstimator{},
		Vitals:     fakeProber{},
		Weights:    suggest.DefaultWeights(),
		Clock:      application.SystemClock{},
		Log:        zerolog.Nop(),
		Limits:     Limits{Workers: 1, QueueSize: 4, MaxCompetitors: 5, RequestTimeout: 30 * time.Second, PhaseTimeout: 5 * time.Second},
	}
	svc.Start()
	svc.SetReady(true)
	return svc
}

func waitTerminal(t *testing.T, repo *memRepo, id domain.AnalysisID) *domain.Record {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec, err := repo.Get(context.Background(), id)
		require.NoError(t, err)
		if rec != nil && rec.State.Terminal() {
			return rec
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("analysis never reached a terminal state")
	return nil
}

func TestPipelineCompletesWithFullCoverage(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, fakeScraper{fn: func(_ context.Context, kw string) (serp.Result, error) {
		return goodSerp(kw), nil
	}})
	defer svc.Stop()

	id, err := svc.Submit(context.Background(), SubmitCommand{
		TargetURL: "https://me.example/page",
		Keywords:  []string{"coffee"},
	})
	require.NoError(t, err)

	rec := waitTerminal(t, repo, id)
	require.Equal(t, domain.StateComplete, rec.State)
	require.NotNil(t, rec.Report)
	assert.Equal(t, domain.CoverageFull, rec.Report.Coverage)
	assert.GreaterOrEqual(t, rec.Report.OverallScore, 0.0)
	assert.LessOrEqual(t, rec.Report.OverallScore, 100.0)

	// deduped by URL, rank order dense and preserved, own domain excluded
	// from competitors but present in the SERP record
	urls := map[string]int{}
	for i, e := range rec.Report.Serp.Entries {
		assert.Equal(t, i+1, e.Rank)
		urls[e.URL]++
	}
	for u, n := range urls {
		assert.Equal(t, 1, n, "duplicate url %s", u)
	}
	for _, c := range rec.Report.Gap.Competitors {
		assert.NotEqual(t, "me.example", serp.Domain(c.URL))
	}
}

func TestRawHTMLNeverPersisted(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, fakeScraper{fn: func(_ context.Context, kw string) (serp.Result, error) {
		return goodSerp(kw), nil
	}})
	defer svc.Stop()

	id, err := svc.Submit(context.Background(), SubmitCommand{
		TargetURL: "https://me.example/page",
		Keywords:  []string{"coffee"},
	})
	require.NoError(t, err)

	rec := waitTerminal(t, repo, id)
	require.NotNil(t, rec.Report)
	require.NotNil(t, rec.Report.Target)
	assert.Empty(t, rec.Report.Target.RawHTML)
	// everything else survives the round trip
	assert.Equal(t, 600, rec.Report.Target.WordCount)
	assert.Equal(t, "https://me.example/page", rec.Report.Target.URL)
}

func TestBlockedSerpDegradesInsteadOfFailing(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, fakeScraper{fn: func(_ context.Context, _ string) (serp.Result, error) {
		return serp.Result{}, domain.ErrBlockedByTarget
	}})
	defer svc.Stop()

	id, err := svc.Submit(context.Background(), SubmitCommand{
		TargetURL: "https://me.example/page",
		Keywords:  []string{"coffee"},
	})
	require.NoError(t, err)

	rec := waitTerminal(t, repo, id)
	require.Equal(t, domain.StateComplete, rec.State)
	require.NotNil(t, rec.Report)
	assert.Equal(t, domain.CoverageDegraded, rec.Report.Coverage)
	assert.NotEmpty(t, rec.Report.Degradations)
}

func TestEmptySerpFailsRequest(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, fakeScraper{fn: func(_ context.Context, _ string) (serp.Result, error) {
		return serp.Result{}, nil
	}})
	defer svc.Stop()

	id, err := svc.Submit(context.Background(), SubmitCommand{
		TargetURL: "https://me.example/page",
		Keywords:  []string{"coffee"},
	})
	require.NoError(t, err)

	rec := waitTerminal(t, repo, id)
	assert.Equal(t, domain.StateFailed, rec.State)
	assert.Equal(t, domain.ErrNoCompetitors.Error(), rec.FailureReason)
	assert.Nil(t, rec.Report)
}

func TestSubmitRefusedWhenModelUnavailable(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, fakeScraper{fn: func(_ context.Context, kw string) (serp.Result, error) {
		return goodSerp(kw), nil
	}})
	defer svc.Stop()
	svc.SetReady(false)

	_, err := svc.Submit(context.Background(), SubmitCommand{
		TargetURL: "https://me.example/page",
		Keywords:  []string{"coffee"},
	})
	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
}

func TestCancelAbortsInFlightAnalysis(t *testing.T) {
	repo := newMemRepo()
	started := make(chan struct{})
	svc := newTestService(repo, fakeScraper{fn: func(ctx context.Context, _ string) (serp.Result, error) {
		close(started)
		<-ctx.Done() // hang until cancelled
		return serp.Result{}, ctx.Err()
	}})
	defer svc.Stop()

	id, err := svc.Submit(context.Background(), SubmitCommand{
		TargetURL: "https://me.example/page",
		Keywords:  []string{"coffee"},
	})
	require.NoError(t, err)

	<-started
	require.True(t, svc.Cancel(id))

	rec := waitTerminal(t, repo, id)
	assert.Equal(t, domain.StateFailed, rec.State)
	assert.Equal(t, "cancelled by caller", rec.FailureReason)
}

func TestRequestedSerpPagesReachTheScraper(t *testing.T) {
	repo := newMemRepo()
	var pages int
	svc := newTestService(repo, fakeScraper{
		fn:        func(_ context.Context, kw string) (serp.Result, error) { return goodSerp(kw), nil },
		lastPages: &pages,
	})
	defer svc.Stop()

	id, err := svc.Submit(context.Background(), SubmitCommand{
		TargetURL:    "https://me.example/page",
		Keywords:     []string{"coffee"},
		MaxSerpPages: 3,
	})
	require.NoError(t, err)
	waitTerminal(t, repo, id)
	assert.Equal(t, 3, pages)

	// out-of-range values clamp instead of leaking through
	id, err = svc.Submit(context.Background(), SubmitCommand{
		TargetURL:    "https://me.example/page",
		Keywords:     []string{"coffee"},
		MaxSerpPages: 9,
	})
	require.NoError(t, err)
	waitTerminal(t, repo, id)
	assert.Equal(t, 3, pages)

	id, err = svc.Submit(context.Background(), SubmitCommand{
		TargetURL: "https://me.example/page",
		Keywords:  []string{"coffee"},
	})
	require.NoError(t, err)
	waitTerminal(t, repo, id)
	assert.Equal(t, 1, pages)
}

func TestEmptyLocaleInferredFromKeywords(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, fakeScraper{fn: func(_ context.Context, kw string) (serp.Result, error) {
		return goodSerp(kw), nil
	}})
	defer svc.Stop()

	id, err := svc.Submit(context.Background(), SubmitCommand{
		TargetURL: "https://me.example/page",
		Keywords:  []string{"el mejor café para la oficina"},
	})
	require.NoError(t, err)
	rec := waitTerminal(t, repo, id)
	assert.Equal(t, "es", rec.Request.Locale)

	// an explicit locale always wins over detection
	id, err = svc.Submit(context.Background(), SubmitCommand{
		TargetURL: "https://me.example/page",
		Keywords:  []string{"el mejor café para la oficina"},
		Locale:    "FR",
	})
	require.NoError(t, err)
	rec = waitTerminal(t, repo, id)
	assert.Equal(t, "fr", rec.Request.Locale)
}

func TestSubmitValidation(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, fakeScraper{fn: func(_ context.Context, kw string) (serp.Result, error) {
		return goodSerp(kw), nil
	}})
	defer svc.Stop()

	_, err := svc.Submit(context.Background(), SubmitCommand{Keywords: []string{"x"}})
	assert.Error(t, err)

	_, err = svc.Submit(context.Background(), SubmitCommand{TargetURL: "https://me.example"})
	assert.Error(t, err)
}
