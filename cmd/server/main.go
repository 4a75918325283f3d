package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"perfeval/internal/db"
	"perfeval/internal/domain/audit"
	"perfeval/internal/domain/directory"
	"perfeval/internal/domain/evaluation"
	"perfeval/internal/domain/evidence"
	"perfeval/internal/domain/notifications"
	"perfeval/internal/domain/period"
	"perfeval/internal/platform/config"
	"perfeval/internal/platform/email"
	"perfeval/internal/platform/jobs"
	"perfeval/internal/platform/metrics"
	"perfeval/internal/transport/http/api"
	evaluationhandler "perfeval/internal/transport/http/handlers/evaluation"
	evidencehandler "perfeval/internal/transport/http/handlers/evidence"
	notificationshandler "perfeval/internal/transport/http/handlers/notifications"
	periodshandler "perfeval/internal/transport/http/handlers/periods"
	"perfeval/internal/transport/http/middleware"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config invalid: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			log.Fatalf("migrations failed: %v", err)
		}
	}

	collector := metrics.New()

	evidenceStore := evidence.NewStore(pool)
	evidenceSvc := evidence.NewService(evidenceStore)
	periodStore := period.NewStore(pool)
	periodSvc := period.NewService(periodStore)
	directoryStore := directory.NewStore(pool)
	auditSvc := audit.New(pool)

	notificationsSvc := notifications.New(notifications.NewStore(pool), email.New(cfg), cfg.EmailFrom)

	evaluationSvc := evaluation.NewService(
		evaluation.NewStore(pool),
		evidenceStore,
		periodStore,
		directoryStore,
		evaluation.WithNotifier(notificationsSvc),
		evaluation.WithMetrics(collector),
		evaluation.WithBatchFailureTolerance(cfg.BatchFailureTolerance),
	)

	jobRunner := jobs.New(cfg, evaluationSvc)
	jobRunner.Start(ctx)

	isProd := cfg.Environment == "production"

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(collector))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(isProd))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metricsz", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(collector.Snapshot())
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ResolveActor(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))

		evaluationhandler.NewHandler(evaluationSvc, auditSvc).RegisterRoutes(r)
		evidencehandler.NewHandler(evidenceSvc, auditSvc).RegisterRoutes(r)
		periodshandler.NewHandler(periodSvc, auditSvc).RegisterRoutes(r)
		notificationshandler.NewHandler(notificationsSvc).RegisterRoutes(r)

		r.Post("/jobs/reaggregate", func(w http.ResponseWriter, r *http.Request) {
			requestID := middleware.GetRequestID(r.Context())
			if _, ok := middleware.GetActor(r.Context()); !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "actor identity required", requestID)
				return
			}
			result, err := jobRunner.ReaggregateNow(r.Context())
			if err != nil {
				api.Fail(w, http.StatusInternalServerError, "reaggregate_failed", "stale evaluation refresh failed", requestID)
				return
			}
			api.Success(w, result, requestID)
		})
	})

	log.Printf("evaluation engine listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, router); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
