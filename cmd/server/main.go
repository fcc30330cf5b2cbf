package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/mavuno/agrolink/internal/api"
	"github.com/mavuno/agrolink/internal/clock"
	"github.com/mavuno/agrolink/internal/config"
	"github.com/mavuno/agrolink/internal/connectivity"
	"github.com/mavuno/agrolink/internal/db"
	"github.com/mavuno/agrolink/internal/diagnosis"
	"github.com/mavuno/agrolink/internal/domain"
	"github.com/mavuno/agrolink/internal/metrics"
	"github.com/mavuno/agrolink/internal/notifier"
	"github.com/mavuno/agrolink/internal/queue"
	"github.com/mavuno/agrolink/internal/ratelimiter"
	"github.com/mavuno/agrolink/internal/repository"
	"github.com/mavuno/agrolink/internal/service"
	"github.com/mavuno/agrolink/internal/worker"
)

func main() {
	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger, err := zcfg.Build()
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()

	// ---- dealer directory and cases ----
	var (
		dealers repository.DealerRepository
		cases   repository.CaseRepository
	)
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()

		if err := db.Migrate(cfg.MigrationsPath, cfg.DatabaseURL); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
		logger.Info("database migrations applied")

		dealers = repository.NewPgDealerRepository(pool)
		cases = repository.NewPgCaseRepository(pool)
	} else {
		logger.Info("DATABASE_URL not set, serving the built-in dealer directory")
		dealers = repository.NewSeededDealerRepository()
		cases = repository.NewMemoryCaseRepository()
	}

	// ---- offline queue store ----
	store, err := queue.OpenSQLiteStore(cfg.QueueDBPath)
	if err != nil {
		logger.Fatal("failed to open queue store", zap.Error(err))
	}
	defer store.Close()

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Context for all background goroutines; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	var (
		net     connectivity.Checker
		runners []worker.Runner
	)
	if cfg.ConnectivityProbeURL != "" {
		prober := connectivity.NewProber(cfg.ConnectivityProbeURL, cfg.ConnectivityInterval, cfg.ConnectivityInterval/2, logger)
		net = prober
		runners = append(runners, prober)
	} else {
		net = connectivity.NewSwitch(true)
	}

	var diagnoser diagnosis.Diagnoser = diagnosis.Unavailable{}
	if cfg.GeminiAPIKey != "" {
		d, err := diagnosis.NewGenAIDiagnoser(ctx, diagnosis.GenAIConfig{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel})
		if err != nil {
			logger.Fatal("failed to create diagnoser", zap.Error(err))
		}
		diagnoser = d
	} else {
		logger.Warn("GEMINI_API_KEY not set, diagnoses stay queued")
	}

	var n notifier.Notifier = notifier.NopNotifier{}
	if cfg.NotifyWebhookURL != "" {
		n = notifier.NewWebhookNotifier(cfg.NotifyWebhookURL, cfg.NotifyTimeout)
	}

	clk := clock.Real{}
	market := service.NewMarketplaceService(dealers, clk, logger.With(zap.String("component", "marketplace")),
		service.MarketplaceOptions{
			SearchLatency:     cfg.SearchLatency,
			SubstituteLatency: cfg.SubstituteLatency,
			OnSearch:          m.SearchHook(),
		})

	diag := service.NewDiagnosisService(diagnoser, cases, ratelimiter.New(cfg.DiagnosisRatePerSec), n, net, clk,
		logger.With(zap.String("component", "diagnosis")))
	diag.OnModelLatency = func(d time.Duration) { m.DiagnosisLatency.Observe(d.Seconds()) }

	q := queue.New[domain.DiagnosisSubmission](cfg.DiagnosisQueueKey, store, diag.Process, net, logger,
		m.QueueHooks(cfg.DiagnosisQueueKey))
	diag.Bind(q)

	// ---- background loops ----
	runners = append(runners,
		worker.RunnerFunc(q.Run),
		worker.NewRetryWorker(q, cfg.SyncRetryInterval, logger),
	)
	bg := worker.NewPool(runners...)
	bg.Start(workerCtx)

	// ---- HTTP server ----
	router := api.NewRouter(market, diag, net, reg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Stop the drain loop, retry ticker and prober.
	cancelWorkers()

	// 3. Wait for an in-flight drain to finish its current item. Pending
	// items are already persisted and resume on the next start.
	bg.Wait()

	logger.Info("server stopped cleanly", zap.Int("pending", q.Len()))
}
