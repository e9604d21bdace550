package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appanalyses "github.com/bryanwahyu/seo-audit/internal/application/analyses"
	domain "github.com/bryanwahyu/seo-audit/internal/domain/analyses"
	"github.com/bryanwahyu/seo-audit/internal/infra/serp/google"
	"github.com/bryanwahyu/seo-audit/internal/middleware"
)

type Router struct {
	svc       *appanalyses.Service
	suggester *google.Suggester
	health    http.HandlerFunc
}

func NewRouter(svc *appanalyses.Service, suggester *google.Suggester, health http.HandlerFunc) http.Handler {
	r := &Router{svc: svc, suggester: suggester, health: health}
	mux := chi.NewRouter()

	if health != nil {
		mux.Get("/health", health)
	} else {
		mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("ok"))
		})
	}
	mux.Get("/ready", middleware.ReadinessHandler(svc.Ready))
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1", func(rt chi.Router) {
		rt.Post("/analyses", r.wrap(r.handleSubmit))
		rt.Get("/analyses/latest", r.wrap(r.handleLatest))
		rt.Get("/analyses/{id}", r.wrap(r.handleGet))
		rt.Delete("/analyses/{id}", r.wrap(r.handleCancel))
		rt.Post("/keywords/suggestions", r.wrap(r.handleSuggestions))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// badRequestError marks validation failures so wrap maps them to 400.
type badRequestError struct{ err error }

func (e badRequestError) Error() string { return e.err.Error() }
func (e badRequestError) Unwrap() error { return e.err }

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			var bad badRequestError
			switch {
			case errors.Is(err, sql.ErrNoRows):
				http.Error(w, "not found", http.StatusNotFound)
			case errors.Is(err, domain.ErrQueueFull):
				w.Header().Set("Retry-After", "30")
				http.Error(w, "analysis queue is full", http.StatusTooManyRequests)
			case errors.Is(err, domain.ErrModelUnavailable):
				http.Error(w, "embedding model unavailable", http.StatusServiceUnavailable)
			case errors.As(err, &bad):
				http.Error(w, err.Error(), http.StatusBadRequest)
			default:
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		}
	}
}

// POST /v1/analyses
// Body: {"target_url": "...", "keywords": ["..."], "locale": "us"}
func (r *Router) handleSubmit(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		TargetURL      string   `json:"target_url"`
		Keywords       []string `json:"keywords"`
		Locale         string   `json:"locale"`
		MaxCompetitors int      `json:"max_competitors"`
		MaxSerpPages   int      `json:"max_serp_pages"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequestError{err}
	}

	if err := middleware.ValidateURL(body.TargetURL); err != nil {
		return badRequestError{err}
	}
	if err := middleware.ValidateLocale(body.Locale); err != nil {
		return badRequestError{err}
	}
	if len(body.Keywords) == 0 {
		return badRequestError{fmt.Errorf("at least one keyword is required")}
	}
	for _, kw := range body.Keywords {
		if err := middleware.ValidateKeyword(kw); err != nil {
			return badRequestError{err}
		}
	}

	id, err := r.svc.Submit(req.Context(), appanalyses.SubmitCommand{
		TargetURL:      body.TargetURL,
		Keywords:       body.Keywords,
		Locale:         body.Locale,
		MaxCompetitors: body.MaxCompetitors,
		MaxSerpPages:   body.MaxSerpPages,
	})
	if err != nil {
		return err
	}

	middleware.IncrementAnalyses()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	return json.NewEncoder(w).Encode(map[string]any{
		"id":     id,
		"state":  domain.StatePending,
		"status": "queued",
	})
}

// GET /v1/analyses/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateAnalysisID(id); err != nil {
		return badRequestError{err}
	}

	rec, err := r.svc.Get(req.Context(), domain.AnalysisID(id))
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(rec)
}

// GET /v1/analyses/latest?target=<url>&limit=20
func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
	target := req.URL.Query().Get("target")
	if err := middleware.ValidateURL(target); err != nil {
		return badRequestError{err}
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	limit = middleware.ValidateLimit(limit)

	list, err := r.svc.Latest(req.Context(), target, limit)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(list)
}

// DELETE /v1/analyses/{id} aborts an in-flight analysis
func (r *Router) handleCancel(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateAnalysisID(id); err != nil {
		return badRequestError{err}
	}

	cancelled := r.svc.Cancel(domain.AnalysisID(id))

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(map[string]any{
		"id":        id,
		"cancelled": cancelled,
	})
}

// POST /v1/keywords/suggestions
// Body: {"seed": "best running shoes", "locale": "us"}
func (r *Router) handleSuggestions(w http.ResponseWriter, req *http.Request) error {
	if r.suggester == nil {
		return fmt.Errorf("keyword suggestions are not configured")
	}
	var body struct {
		Seed   string `json:"seed"`
		Locale string `json:"locale"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequestError{err}
	}
	if err := middleware.ValidateKeyword(body.Seed); err != nil {
		return badRequestError{err}
	}
	if err := middleware.ValidateLocale(body.Locale); err != nil {
		return badRequestError{err}
	}

	suggestions, err := r.suggester.KeywordSuggestions(req.Context(), body.Seed, body.Locale)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(map[string]any{
		"seed":        body.Seed,
		"suggestions": suggestions,
	})
}
