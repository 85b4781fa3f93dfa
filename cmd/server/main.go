package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	benstore "janani/internal/beneficiary/store"
	"janani/internal/benefit/cache"
	"janani/internal/benefit/eligibility"
	benefithandler "janani/internal/benefit/handler"
	benefitmetrics "janani/internal/benefit/metrics"
	benefitservice "janani/internal/benefit/service"
	benefitstore "janani/internal/benefit/store"
	jwttoken "janani/internal/jwt_token"
	"janani/internal/platform/config"
	"janani/internal/platform/httpserver"
	"janani/internal/platform/kafka"
	"janani/internal/platform/logger"
	"janani/internal/platform/metrics"
	"janani/internal/platform/middleware"
	"janani/internal/platform/postgres"
	"janani/internal/platform/redis"
	audit "janani/pkg/platform/audit"
	auditmemory "janani/pkg/platform/audit/store/memory"
	auditpostgres "janani/pkg/platform/audit/store/postgres"
	auditworker "janani/pkg/platform/audit/worker"
)

const auditRelayInterval = 2 * time.Second

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage: postgres when configured, in-memory otherwise (dev mode).
	var (
		ledgerStore benefitservice.Store
		pregnancies benstore.PregnancyStore
		signals     benstore.SignalStore
		auditStore  audit.Store
		auditOutbox *auditpostgres.Store
	)
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		ledgerStore = benefitstore.NewPostgres(db)
		beneficiaryStore := benstore.NewPostgres(db)
		pregnancies, signals = beneficiaryStore, beneficiaryStore
		auditOutbox = auditpostgres.New(db)
		auditStore = auditOutbox
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		ledgerStore = benefitstore.NewInMemoryStore()
		beneficiaryStore := benstore.NewInMemoryStore()
		pregnancies, signals = beneficiaryStore, beneficiaryStore
		auditStore = auditmemory.NewInMemoryStore()
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	httpMetrics := metrics.New()
	evaluator := eligibility.NewEvaluator(pregnancies, signals)
	svc := benefitservice.New(ledgerStore, evaluator, pregnancies,
		benefitservice.WithLogger(log),
		benefitservice.WithMetrics(benefitmetrics.New()),
		benefitservice.WithAuditPublisher(audit.NewPublisher(auditStore)),
		benefitservice.WithSummaryCache(cache.New(redisClient, cfg.SummaryCacheTTL)),
	)

	tokens := jwttoken.NewService(cfg.JWTSigningKey, cfg.JWTIssuer)

	router := chi.NewRouter()
	router.Use(
		middleware.Recovery(log),
		middleware.RequestID,
		middleware.RequestTime,
		middleware.Logger(log),
		middleware.Timeout(30*time.Second),
		middleware.ContentTypeJSON,
		middleware.Latency(httpMetrics),
	)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(tokens, log))
		benefithandler.New(svc, log).Register(r)
	})

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting janani benefit service", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// Audit relay: ship outbox entries to Kafka. Needs both postgres (the
	// outbox) and brokers; without them events stay in the local store.
	if auditOutbox != nil && len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("kafka producer setup failed", "error", err)
			os.Exit(1)
		}
		defer producer.Close()

		relay := auditworker.NewWorker(auditOutbox, producer, auditRelayInterval, log)
		group.Go(func() error {
			log.Info("starting audit relay", "topic", cfg.Kafka.Topic)
			if err := relay.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
