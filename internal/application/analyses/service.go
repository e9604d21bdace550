package analyses

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bryanwahyu/seo-audit/internal/application"
	domain "github.com/bryanwahyu/seo-audit/internal/domain/analyses"
	"github.com/bryanwahyu/seo-audit/internal/domain/lang"
	"github.com/bryanwahyu/seo-audit/internal/domain/suggest"
)

// Limits per request, everything overridable from config.
type Limits struct {
	Workers        int
	QueueSize      int
	MaxCompetitors int
	RequestTimeout time.Duration
	PhaseTimeout   time.Duration
}

func (l *Limits) defaults() {
	if l.Workers <= 0 {
		l.Workers = 4
	}
	if l.QueueSize <= 0 {
		l.QueueSize = 32
	}
	if l.MaxCompetitors <= 0 {
		l.MaxCompetitors = 5
	}
	if l.RequestTimeout <= 0 {
		l.RequestTimeout = 4 * time.Minute
	}
	if l.PhaseTimeout <= 0 {
		l.PhaseTimeout = 60 * time.Second
	}
}

// Service implements use-cases untuk Analysis.
// Safe for concurrent use, one worker pool per process.
type Service struct {
	Repo       domain.Repository
	Archive    domain.ReportArchive
	Serp       domain.SerpScraper
	Extractor  domain.ContentExtractor
	Comparator domain.Comparator
	Backlinks  domain.BacklinkEstimator
	Vitals     domain.VitalsProber
	Weights    suggest.Weights
	Clock      application.Clock
	Log        zerolog.Logger
	Limits     Limits

	ready   atomic.Bool
	jobs    chan *domain.Record
	cancels sync.Map // domain.AnalysisID -> context.CancelFunc
	wg      sync.WaitGroup
}

// SubmitCommand untuk submit analysis baru
type SubmitCommand struct {
	TargetURL      string
	Keywords       []string
	Locale         string
	MaxCompetitors int
	MaxSerpPages   int
}

// Start boots the worker pool. SetReady must be called once the embedding
// model probe succeeded, submissions are refused until then.
func (s *Service) Start() {
	s.Limits.defaults()
	s.jobs = make(chan *domain.Record, s.Limits.QueueSize)
	for i := 0; i < s.Limits.Workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
}

// Stop drains the pool. Pending jobs are abandoned, their records stay in a
// non-terminal state and can be retried after restart.
func (s *Service) Stop() {
	close(s.jobs)
	s.wg.Wait()
}

// SetReady flips acceptance of new submissions.
func (s *Service) SetReady(ok bool) { s.ready.Store(ok) }

// Ready reports whether the embedding model is usable.
func (s *Service) Ready() bool { return s.ready.Load() }

// Submit validates, persists the pending record and enqueues it.
func (s *Service) Submit(ctx context.Context, cmd SubmitCommand) (domain.AnalysisID, error) {
	if !s.ready.Load() {
		return "", domain.ErrModelUnavailable
	}
	if strings.TrimSpace(cmd.TargetURL) == "" {
		return "", fmt.Errorf("target_url is required")
	}
	if len(cmd.Keywords) == 0 {
		return "", fmt.Errorf("at least one keyword is required")
	}

	now := s.Clock.Now()
	id := domain.AnalysisID(uuid.New().String())

	maxComp := cmd.MaxCompetitors
	if maxComp <= 0 || maxComp > s.Limits.MaxCompetitors {
		maxComp = s.Limits.MaxCompetitors
	}
	pages := cmd.MaxSerpPages
	if pages <= 0 {
		pages = 1
	}
	if pages > 3 {
		pages = 3
	}

	// locale kosong: tebak dari bahasa keywords
	locale := strings.ToLower(strings.TrimSpace(cmd.Locale))
	if locale == "" {
		locale = lang.LocaleForText(strings.Join(cmd.Keywords, " "))
	}

	rec := &domain.Record{
		ID: id,
		Request: domain.Request{
			ID:             id,
			TargetURL:      cmd.TargetURL,
			Keywords:       cmd.Keywords,
			Locale:         locale,
			MaxCompetitors: maxComp,
			MaxSerpPages:   pages,
			SubmittedAt:    now,
		},
		State:     domain.StatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.Save(ctx, rec); err != nil {
		return "", fmt.Errorf("save pending record: %w", err)
	}

	select {
	case s.jobs <- rec:
		return id, nil
	default:
		_ = s.Repo.UpdateState(ctx, id, domain.StateFailed, domain.ErrQueueFull.Error())
		return "", domain.ErrQueueFull
	}
}

// Get ambil 1 record by id
func (s *Service) Get(ctx context.Context, id domain.AnalysisID) (*domain.Record, error) {
	return s.Repo.Get(ctx, id)
}

// Latest ambil N record terakhir untuk satu target URL
func (s *Service) Latest(ctx context.Context, targetURL string, limit int) ([]*domain.Record, error) {
	return s.Repo.Latest(ctx, targetURL, limit)
}

// Cancel aborts an in-flight analysis. Propagates to browser navigation via
// the request context; the pool survives, sessions get released on the way
// out. Returns false when nothing was running under that id.
func (s *Service) Cancel(id domain.AnalysisID) bool {
	if v, ok := s.cancels.Load(id); ok {
		v.(context.CancelFunc)()
		return true
	}
	return false
}

func (s *Service) worker() {
	defer s.wg.Done()
	for rec := range s.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), s.Limits.RequestTimeout)
		s.cancels.Store(rec.ID, cancel)

		s.run(ctx, rec)

		s.cancels.Delete(rec.ID)
		cancel()
	}
}
