package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trackmark/internal/admintoken"
	"trackmark/internal/audit"
	"trackmark/internal/batch"
	batchhandler "trackmark/internal/batch/handler"
	"trackmark/internal/component"
	componenthandler "trackmark/internal/component/handler"
	componentmetrics "trackmark/internal/component/metrics"
	"trackmark/internal/platform/config"
	"trackmark/internal/platform/httpserver"
	"trackmark/internal/platform/kafka"
	"trackmark/internal/platform/logger"
	platformmetrics "trackmark/internal/platform/metrics"
	"trackmark/internal/platform/postgres"
	platformredis "trackmark/internal/platform/redis"
	"trackmark/internal/quality"
	qualityhandler "trackmark/internal/quality/handler"
	qualitymetrics "trackmark/internal/quality/metrics"
	"trackmark/internal/render"
	"trackmark/internal/serial"
	serialhandler "trackmark/internal/serial/handler"
	serialmetrics "trackmark/internal/serial/metrics"
	"trackmark/internal/serial/store/counter"
	"trackmark/internal/validation"
	"trackmark/pkg/platform/middleware/admin"
	"trackmark/pkg/platform/middleware/metadata"
	"trackmark/pkg/platform/middleware/requestid"
	"trackmark/pkg/platform/middleware/requesttime"
)

// main wires the dependency graph and keeps the server lifecycle small.
// Business logic lives in the internal service packages.
func main() {
	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		log.Error("postgres unavailable", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	publisher, closePublisher, err := buildAuditPublisher(cfg.Kafka, log)
	if err != nil {
		log.Error("audit trail unavailable", "error", err)
		os.Exit(1)
	}
	defer closePublisher()

	counterStore, err := buildCounterStore(ctx, db, redisClient, log)
	if err != nil {
		log.Error("serial ledger unavailable", "error", err)
		os.Exit(1)
	}

	allocator, err := serial.New(counterStore,
		serial.WithLogger(log),
		serial.WithMetrics(serialmetrics.New()),
	)
	if err != nil {
		log.Error("serial allocator init failed", "error", err)
		os.Exit(1)
	}

	validator, err := validation.New(validation.DefaultRegistry(),
		validation.WithSerialReader(allocator),
	)
	if err != nil {
		log.Error("validation engine init failed", "error", err)
		os.Exit(1)
	}

	componentStore, err := buildComponentStore(ctx, db)
	if err != nil {
		log.Error("component store init failed", "error", err)
		os.Exit(1)
	}

	registrar, err := component.New(componentStore, validator, allocator,
		component.WithLogger(log),
		component.WithMetrics(componentmetrics.New()),
		component.WithAuditPublisher(publisher),
	)
	if err != nil {
		log.Error("component service init failed", "error", err)
		os.Exit(1)
	}

	processor, err := batch.New(registrar,
		batch.WithLogger(log),
		batch.WithWorkers(cfg.BatchWorkers),
	)
	if err != nil {
		log.Error("batch processor init failed", "error", err)
		os.Exit(1)
	}

	engine, err := quality.New(render.NewDecoder(), qualityConfig(cfg.Quality),
		quality.WithLogger(log),
		quality.WithMetrics(qualitymetrics.New()),
	)
	if err != nil {
		log.Error("quality engine init failed", "error", err)
		os.Exit(1)
	}

	renderer := render.NewRenderer(render.DefaultConfig())
	tokens := admintoken.NewService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)

	router := chi.NewRouter()
	router.Use(chimw.Recoverer)
	router.Use(requestid.Middleware)
	router.Use(requesttime.Middleware)
	router.Use(metadata.ClientMetadata)
	router.Use(platformmetrics.NewHTTP().Middleware)

	router.Get("/healthz", healthz(db, redisClient))
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	router.Group(func(r chi.Router) {
		componenthandler.New(registrar, renderer, log).Register(r)
		batchhandler.New(processor, log).Register(r)
		qualityhandler.New(engine, log, qualityhandler.WithAuditPublisher(publisher)).Register(r)
	})
	router.Group(func(r chi.Router) {
		r.Use(admin.RequireAdmin(admintoken.NewMiddlewareAdapter(tokens), log))
		serialhandler.New(allocator, publisher, log).Register(r)
	})

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("trackmark listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	if err := httpserver.Shutdown(srv, 10*time.Second); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

// buildAuditPublisher prefers Kafka and falls back to the log-only trail.
func buildAuditPublisher(cfg config.KafkaConfig, log *slog.Logger) (audit.Publisher, func(), error) {
	if len(cfg.Brokers) == 0 {
		log.Info("audit trail using log publisher")
		return audit.NewLogPublisher(log), func() {}, nil
	}
	producer, err := kafka.NewProducer(cfg.Brokers, cfg.Topic)
	if err != nil {
		return nil, nil, err
	}
	publisher, err := audit.NewKafkaPublisher(producer)
	if err != nil {
		producer.Close()
		return nil, nil, err
	}
	log.Info("audit trail using kafka", "topic", cfg.Topic)
	return publisher, producer.Close, nil
}

// buildCounterStore picks the serial ledger backend: Postgres, then Redis,
// then in-process memory.
func buildCounterStore(ctx context.Context, db *sql.DB, redisClient *platformredis.Client, log *slog.Logger) (serial.CounterStore, error) {
	switch {
	case db != nil:
		store := counter.NewPostgresStore(db)
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		log.Info("serial ledger using postgres")
		return store, nil
	case redisClient != nil:
		log.Info("serial ledger using redis")
		return counter.NewRedisStore(redisClient.Client), nil
	default:
		log.Warn("serial ledger using in-memory store; serials reset on restart")
		return counter.NewInMemoryStore(), nil
	}
}

func buildComponentStore(ctx context.Context, db *sql.DB) (component.Store, error) {
	if db == nil {
		return component.NewInMemoryStore(), nil
	}
	store := component.NewPostgresStore(db)
	if err := store.Migrate(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func qualityConfig(overrides config.QualityConfig) quality.Config {
	cfg := quality.DefaultConfig()
	if overrides.MinModulePx > 0 {
		cfg.MinModulePx = overrides.MinModulePx
	}
	if overrides.PassThreshold > 0 {
		cfg.PassThreshold = overrides.PassThreshold
	}
	if overrides.MarginalThreshold > 0 {
		cfg.MarginalThreshold = overrides.MarginalThreshold
	}
	if overrides.SharpnessThreshold > 0 {
		cfg.SharpnessThreshold = overrides.SharpnessThreshold
	}
	return cfg
}

func healthz(db *sql.DB, redisClient *platformredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				http.Error(w, `{"status":"degraded","postgres":"down"}`, http.StatusServiceUnavailable)
				return
			}
		}
		if redisClient != nil {
			if err := redisClient.Health(ctx); err != nil {
				http.Error(w, `{"status":"degraded","redis":"down"}`, http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
