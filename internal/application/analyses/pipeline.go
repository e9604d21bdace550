package analyses

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domain "github.com/bryanwahyu/seo-audit/internal/domain/analyses"
	"github.com/bryanwahyu/seo-audit/internal/domain/backlink"
	"github.com/bryanwahyu/seo-audit/internal/domain/content"
	"github.com/bryanwahyu/seo-audit/internal/domain/semantics"
	"github.com/bryanwahyu/seo-audit/internal/domain/serp"
	"github.com/bryanwahyu/seo-audit/internal/domain/suggest"
	"github.com/bryanwahyu/seo-audit/internal/domain/vitals"
)

// run drives one record through the state machine:
// pending → scraping → extracting → comparing → estimating → synthesizing →
// complete, with failed reachable from any non-terminal state.
func (s *Service) run(ctx context.Context, rec *domain.Record) {
	log := s.Log.With().Str("analysis_id", string(rec.ID)).Str("target", rec.Request.TargetURL).Logger()
	log.Info().Msg("analysis started")

	var notes []string
	degrade := func(note string) {
		notes = append(notes, note)
		log.Warn().Str("note", note).Msg("phase degraded")
	}

	// ---- scraping ----
	if !s.transition(rec, domain.StateScraping) {
		return
	}
	serpRes, blocked := s.scrape(ctx, rec.Request, degrade)
	if err := s.checkAborted(ctx, rec); err != nil {
		return
	}
	if len(serpRes.Entries) == 0 && !blocked {
		s.fail(rec, domain.ErrNoCompetitors.Error())
		return
	}

	// ---- extracting ----
	if !s.transition(rec, domain.StateExtracting) {
		return
	}
	target, err := s.extractOne(ctx, rec.Request.TargetURL, rec.Request.Keywords)
	if err != nil {
		degrade(fmt.Sprintf("target extraction failed: %v", err))
	}
	picks := selectCompetitors(serpRes.Entries, serp.Domain(rec.Request.TargetURL), rec.Request.MaxCompetitors)
	competitors := s.extractCompetitors(ctx, picks, rec.Request.Keywords, degrade)
	if err := s.checkAborted(ctx, rec); err != nil {
		return
	}

	// ---- comparing ----
	if !s.transition(rec, domain.StateComparing) {
		return
	}
	gap := s.compare(ctx, target, competitors, degrade)
	if err := s.checkAborted(ctx, rec); err != nil {
		return
	}

	// ---- estimating (backlinks + vitals fan out together) ----
	if !s.transition(rec, domain.StateEstimating) {
		return
	}
	estimate, sample := s.estimate(ctx, rec.Request.TargetURL, degrade)
	if err := s.checkAborted(ctx, rec); err != nil {
		return
	}

	// ---- synthesizing ----
	if !s.transition(rec, domain.StateSynthesizing) {
		return
	}
	in := suggest.Inputs{
		Gap:       gap,
		Backlinks: estimate,
		Vitals:    sample,
		Target:    target,
		Keywords:  rec.Request.Keywords,
	}
	coverage := domain.CoverageFull
	if len(notes) > 0 {
		coverage = domain.CoverageDegraded
	}
	report := &domain.Report{
		RequestID:    rec.ID,
		TargetURL:    rec.Request.TargetURL,
		Serp:         serpRes,
		Target:       target,
		Gap:          gap,
		Backlinks:    estimate,
		Vitals:       sample,
		Suggestions:  suggest.Synthesize(in),
		OverallScore: suggest.OverallScore(in, s.Weights),
		Coverage:     coverage,
		Degradations: notes,
		GeneratedAt:  s.Clock.Now(),
	}

	rec.Report = report
	rec.State = domain.StateComplete
	rec.UpdatedAt = s.Clock.Now()
	// save pakai background ctx, request deadline boleh saja sudah lewat
	saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Repo.Save(saveCtx, rec); err != nil {
		log.Error().Err(err).Msg("save final report")
		return
	}
	if s.Archive != nil {
		key := fmt.Sprintf("reports/%s.json", rec.ID)
		if _, err := s.Archive.PutJSON(saveCtx, key, report); err != nil {
			log.Warn().Err(err).Msg("archive report")
		}
	}
	log.Info().Str("coverage", string(coverage)).Float64("score", report.OverallScore).Msg("analysis complete")
}

// scrape fetches one SERP per keyword and merges them in keyword order,
// deduped by URL. A block on one keyword degrades coverage, never fails the
// request, and is never retried.
func (s *Service) scrape(ctx context.Context, req domain.Request, degrade func(string)) (serp.Result, bool) {
	merged := serp.Result{
		Keyword:   req.Keywords[0],
		Locale:    req.Locale,
		FetchedAt: s.Clock.Now(),
	}
	blocked := false
	for _, kw := range req.Keywords {
		phaseCtx, cancel := context.WithTimeout(ctx, s.Limits.PhaseTimeout)
		res, err := s.Serp.FetchSERP(phaseCtx, kw, req.Locale, req.MaxCompetitors*4, req.MaxSerpPages)
		cancel()
		if err != nil {
			if errors.Is(err, domain.ErrBlockedByTarget) {
				blocked = true
				degrade(fmt.Sprintf("serp fetch blocked for %q", kw))
				continue
			}
			degrade(fmt.Sprintf("serp fetch failed for %q: %v", kw, err))
			continue
		}
		merged.Entries = append(merged.Entries, res.Entries...)
	}
	merged.Entries = serp.Dedupe(merged.Entries)
	return merged, blocked
}

// selectCompetitors keeps SERP order, skips the target's own domain and caps
// at the configured competitor count.
func selectCompetitors(entries []serp.Entry, targetDomain string, max int) []serp.Entry {
	out := make([]serp.Entry, 0, max)
	for _, e := range entries {
		if serp.Domain(e.URL) == targetDomain {
			continue
		}
		out = append(out, e)
		if len(out) >= max {
			break
		}
	}
	return out
}

func (s *Service) extractOne(ctx context.Context, url string, keywords []string) (*content.Page, error) {
	phaseCtx, cancel := context.WithTimeout(ctx, s.Limits.PhaseTimeout)
	defer cancel()
	return s.Extractor.Extract(phaseCtx, url, keywords)
}

// extractCompetitors fans out bounded by the browser session pool, which is
// the real backpressure here. Order of the result mirrors SERP order,
// failed entries are dropped with a degradation note.
func (s *Service) extractCompetitors(ctx context.Context, picks []serp.Entry, keywords []string, degrade func(string)) []*content.Page {
	results := make([]*content.Page, len(picks))
	var mu sync.Mutex
	var failures []string

	var wg sync.WaitGroup
	for i, e := range picks {
		// truncate fan-out when the overall deadline is close
		if s.nearDeadline(ctx) {
			degrade(fmt.Sprintf("skipped %d competitor(s), request deadline near", len(picks)-i))
			break
		}
		wg.Add(1)
		go func(i int, e serp.Entry) {
			defer wg.Done()
			page, err := s.extractOne(ctx, e.URL, keywords)
			if err != nil {
				mu.Lock()
				failures = append(failures, fmt.Sprintf("competitor %s: %v", e.URL, err))
				mu.Unlock()
				return
			}
			results[i] = page
		}(i, e)
	}
	wg.Wait()

	for _, f := range failures {
		degrade(f)
	}

	out := make([]*content.Page, 0, len(results))
	for _, p := range results {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (s *Service) compare(ctx context.Context, target *content.Page, competitors []*content.Page, degrade func(string)) *semantics.GapReport {
	if target == nil || len(competitors) == 0 {
		degrade("semantic comparison skipped, no target or no competitor content")
		return nil
	}
	phaseCtx, cancel := context.WithTimeout(ctx, s.Limits.PhaseTimeout)
	defer cancel()
	gap, err := s.Comparator.Compare(phaseCtx, target, competitors)
	if err != nil {
		degrade(fmt.Sprintf("semantic comparison failed: %v", err))
		return nil
	}
	return gap
}

// estimate runs the backlink probe and the vitals probe in parallel, both
// soft-failing into degradation notes. Vitals are skipped entirely near the
// deadline, they are the least critical phase.
func (s *Service) estimate(ctx context.Context, targetURL string, degrade func(string)) (*backlink.Estimate, *vitals.Sample) {
	var (
		wg       sync.WaitGroup
		estimate *backlink.Estimate
		sample   *vitals.Sample
		estErr   error
		vitErr   error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		phaseCtx, cancel := context.WithTimeout(ctx, s.Limits.PhaseTimeout)
		defer cancel()
		estimate, estErr = s.Backlinks.Estimate(phaseCtx, serp.Domain(targetURL))
	}()

	if s.nearDeadline(ctx) {
		vitErr = fmt.Errorf("skipped, request deadline near")
	} else {
		wg.Add(1)
		go func() {
			defer wg.Done()
			phaseCtx, cancel := context.WithTimeout(ctx, s.Limits.PhaseTimeout)
			defer cancel()
			sample, vitErr = s.Vitals.Measure(phaseCtx, targetURL)
		}()
	}
	wg.Wait()

	if estErr != nil {
		estimate = nil
		degrade(fmt.Sprintf("backlink estimation failed: %v", estErr))
	}
	if vitErr != nil {
		sample = nil
		degrade(fmt.Sprintf("vitals probe unavailable: %v", vitErr))
	}
	return estimate, sample
}

// nearDeadline reports whether less than half a PhaseTimeout remains.
func (s *Service) nearDeadline(ctx context.Context) bool {
	dl, ok := ctx.Deadline()
	if !ok {
		return false
	}
	return time.Until(dl) < s.Limits.PhaseTimeout/2
}

// transition persists the new state. A failed persist fails the run, the
// state row is how callers observe progress.
func (s *Service) transition(rec *domain.Record, next domain.State) bool {
	rec.State = next
	rec.UpdatedAt = s.Clock.Now()
	if err := s.Repo.UpdateState(context.Background(), rec.ID, next, ""); err != nil {
		s.Log.Error().Err(err).Str("analysis_id", string(rec.ID)).Str("state", string(next)).Msg("state update failed")
		s.fail(rec, fmt.Sprintf("state persistence failed: %v", err))
		return false
	}
	return true
}

// checkAborted turns cancellation/deadline into a terminal failed state.
func (s *Service) checkAborted(ctx context.Context, rec *domain.Record) error {
	if err := ctx.Err(); err != nil {
		reason := "cancelled by caller"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "request deadline exceeded"
		}
		s.fail(rec, reason)
		return err
	}
	return nil
}

func (s *Service) fail(rec *domain.Record, reason string) {
	rec.State = domain.StateFailed
	rec.FailureReason = reason
	rec.UpdatedAt = s.Clock.Now()
	if err := s.Repo.UpdateState(context.Background(), rec.ID, domain.StateFailed, reason); err != nil {
		s.Log.Error().Err(err).Str("analysis_id", string(rec.ID)).Msg("mark failed")
	}
	s.Log.Warn().Str("analysis_id", string(rec.ID)).Str("reason", reason).Msg("analysis failed")
}
