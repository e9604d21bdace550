package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/bryanwahyu/seo-audit/internal/application"
	appanalyses "github.com/bryanwahyu/seo-audit/internal/application/analyses"
	"github.com/bryanwahyu/seo-audit/internal/config"
	openaienc "github.com/bryanwahyu/seo-audit/internal/infra/ai/openai"
	backlinkprobe "github.com/bryanwahyu/seo-audit/internal/infra/backlink"
	"github.com/bryanwahyu/seo-audit/internal/infra/browser"
	"github.com/bryanwahyu/seo-audit/internal/infra/cache"
	mysqlp "github.com/bryanwahyu/seo-audit/internal/infra/db/mysql"
	postgresp "github.com/bryanwahyu/seo-audit/internal/infra/db/postgres"
	"github.com/bryanwahyu/seo-audit/internal/infra/extract"
	"github.com/bryanwahyu/seo-audit/internal/infra/httpserver"
	"github.com/bryanwahyu/seo-audit/internal/infra/serp/google"
	minioStore "github.com/bryanwahyu/seo-audit/internal/infra/storage"
	vitalsprobe "github.com/bryanwahyu/seo-audit/internal/infra/vitals"
	"github.com/bryanwahyu/seo-audit/internal/middleware"

	domain "github.com/bryanwahyu/seo-audit/internal/domain/analyses"
	"github.com/bryanwahyu/seo-audit/internal/domain/semantics"
	"github.com/bryanwahyu/seo-audit/internal/domain/suggest"
)

func main() {
	// .env optional, secrets bisa lewat environment
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "seo-audit").Logger()
	if os.Getenv("LOG_PRETTY") == "1" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	ctx := context.Background()

	// connect database, driver pilih dari config
	var db *sql.DB
	var analysisRepo domain.Repository
	switch cfg.Database.Driver {
	case "postgres":
		db, err = postgresp.Connect(ctx, cfg.PostgresDSN(), cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres connect error")
		}
		analysisRepo = postgresp.NewAnalysisRepository(db)
	default:
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN(), cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
		if err != nil {
			log.Fatal().Err(err).Msg("mysql connect error")
		}
		analysisRepo = mysqlp.NewAnalysisRepository(db)
	}
	defer db.Close()

	// init minio
	store, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("minio init error")
	}

	// init cache (redis + memory fallback)
	byteCache := cache.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
	defer byteCache.Close()

	// init browser pool
	headless := true
	if cfg.Browser.Headless != nil {
		headless = *cfg.Browser.Headless
	}
	pool := browser.NewPool(ctx, browser.Config{
		PoolSize:      cfg.Browser.PoolSize,
		PageLoadQuota: cfg.Browser.PageLoadQuota,
		Headless:      headless,
		NavTimeout:    time.Duration(cfg.Browser.NavTimeoutSec) * time.Second,
		UserAgents:    cfg.Browser.UserAgents,
	}, log)
	defer pool.Close()

	// init embedding encoder + startup probe
	encoder := openaienc.NewEncoder(cfg.OpenAI.APIKey, cfg.OpenAI.EmbeddingModel)
	modelReady := true
	probeCtx, probeCancel := context.WithTimeout(ctx, 15*time.Second)
	if err := encoder.Probe(probeCtx); err != nil {
		// tetap serve, health endpoint yang kasih tau model down
		log.Error().Err(err).Msg("embedding model probe failed, submissions will be refused")
		modelReady = false
	}
	probeCancel()

	// init scraper
	filterAuthority := true
	if cfg.Scraper.FilterHighAuthority != nil {
		filterAuthority = *cfg.Scraper.FilterHighAuthority
	}
	scraper := google.NewScraper(pool, byteCache, log, google.Config{
		MinDelay:            time.Duration(cfg.Scraper.MinDelaySec) * time.Second,
		MaxPerHour:          cfg.Scraper.MaxPerHour,
		MaxRetries:          cfg.Scraper.MaxRetries,
		MaxResults:          cfg.Scraper.MaxResults,
		FilterHighAuthority: filterAuthority,
	})
	suggester := google.NewSuggester(nil, byteCache)

	// init extractor, backlink prober, vitals probe
	extractor := extract.New(nil, pool, log, extract.Config{})
	prober := backlinkprobe.NewProber(nil, scraper, byteCache, log)
	vprobe := vitalsprobe.NewProbe(pool, log)

	// scoring weights, default kalau tidak diisi
	weights := suggest.Weights{
		Similarity: cfg.Weights.Similarity,
		Backlinks:  cfg.Weights.Backlinks,
		Vitals:     cfg.Weights.Vitals,
		Technical:  cfg.Weights.Technical,
	}
	if err := weights.Validate(); err != nil {
		log.Warn().Err(err).Msg("invalid scoring weights, using defaults")
		weights = suggest.DefaultWeights()
	}

	// init service
	svc := &appanalyses.Service{
		Repo:       analysisRepo,
		Archive:    store,
		Serp:       scraper,
		Extractor:  extractor,
		Comparator: semantics.NewComparator(encoder),
		Backlinks:  prober,
		Vitals:     vprobe,
		Weights:    weights,
		Clock:      application.SystemClock{},
		Log:        log,
		Limits: appanalyses.Limits{
			Workers:        cfg.Pipeline.Workers,
			QueueSize:      cfg.Pipeline.QueueSize,
			MaxCompetitors: cfg.Pipeline.MaxCompetitors,
			RequestTimeout: time.Duration(cfg.Pipeline.RequestTimeoutSec) * time.Second,
			PhaseTimeout:   time.Duration(cfg.Pipeline.PhaseTimeoutSec) * time.Second,
		},
	}
	svc.Start()
	svc.SetReady(modelReady)
	defer svc.Stop()

	// health checks
	health := middleware.HealthHandler(map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
		"model": middleware.CheckerFunc(func(ctx context.Context) error {
			if !svc.Ready() {
				return fmt.Errorf("embedding model unavailable")
			}
			return nil
		}),
	})

	// init router + middleware chain
	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-API-KEY", "Authorization"},
	}))
	mux.Use(middleware.LoggingMiddleware(log))
	mux.Use(middleware.MetricsMiddleware)
	if len(cfg.Auth.Keys) > 0 {
		mux.Use(middleware.APIKeyAuth(cfg.Auth.Keys))
	}
	capacity, refill := cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate
	if capacity <= 0 {
		capacity = 30
	}
	if refill <= 0 {
		refill = 1
	}
	mux.Use(middleware.RateLimitMiddleware(capacity, refill))
	mux.Mount("/", httpserver.NewRouter(svc, suggester, health))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info().Msg("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}
