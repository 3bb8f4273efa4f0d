package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/zencounsel/counsel-api/internal/config"
	"github.com/zencounsel/counsel-api/internal/storage"
	internalWorker "github.com/zencounsel/counsel-api/internal/worker"
	"github.com/zencounsel/counsel-api/pkg/logger"
	"github.com/zencounsel/counsel-api/pkg/messaging/redis"
	"github.com/zencounsel/counsel-api/pkg/metrics"
	"github.com/zencounsel/counsel-api/pkg/worker"
)

func setupHealthCheck(port int, reg *prometheus.Registry, checks map[string]func(context.Context) error) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		for name, check := range checks {
			if err := check(ctx); err != nil {
				http.Error(w, fmt.Sprintf("%s: %v", name, err), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("health check server failed")
		}
	}()
	return srv
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load config
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Initialize logger
	lg := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		JSON:       cfg.Log.JSON,
	}).WithFields(map[string]interface{}{"component": "outbox-worker"})
	log.Logger = lg.Zerolog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer stores.Close()
	if !stores.Shared() {
		log.Fatal().Str("driver", cfg.Store.Driver).Msg("the worker needs a shared store; use outbox.embedded with the memory driver")
	}

	// Initialize Redis broker
	broker, err := redis.NewRedisBroker(cfg.Redis.ToBrokerConfig(), &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Redis broker")
	}
	defer broker.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics("counsel_worker", registry)

	processor, err := worker.NewOutboxProcessor(
		stores.Outbox,
		broker,
		cfg.Outbox.ToWorkerConfig(cfg.Redis.Channel),
		lg,
		m,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid outbox settings")
	}
	cleanup := internalWorker.NewOutboxCleanupWorker(stores.Outbox, cfg.Outbox.Retention, cfg.Outbox.CleanupInterval, lg, m)

	// Setup health check endpoints
	healthSrv := setupHealthCheck(cfg.Outbox.HealthPort, registry, stores.Checks)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		cleanup.Start(ctx)
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down...")
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server shutdown")
	}
}
