package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/zencounsel/counsel-api/internal/config"
	appointmentHandler "github.com/zencounsel/counsel-api/internal/handler/appointment"
	assessmentHandler "github.com/zencounsel/counsel-api/internal/handler/assessment"
	consultationHandler "github.com/zencounsel/counsel-api/internal/handler/consultation"
	counsellorHandler "github.com/zencounsel/counsel-api/internal/handler/counsellor"
	"github.com/zencounsel/counsel-api/internal/handler/health"
	matchHandler "github.com/zencounsel/counsel-api/internal/handler/match"
	promHandler "github.com/zencounsel/counsel-api/internal/handler/prometheus"
	statsHandler "github.com/zencounsel/counsel-api/internal/handler/stats"
	"github.com/zencounsel/counsel-api/internal/middleware"
	"github.com/zencounsel/counsel-api/internal/router"
	appointmentService "github.com/zencounsel/counsel-api/internal/service/appointment"
	assessmentService "github.com/zencounsel/counsel-api/internal/service/assessment"
	consultationService "github.com/zencounsel/counsel-api/internal/service/consultation"
	counsellorService "github.com/zencounsel/counsel-api/internal/service/counsellor"
	eventService "github.com/zencounsel/counsel-api/internal/service/event"
	matchService "github.com/zencounsel/counsel-api/internal/service/match"
	statsService "github.com/zencounsel/counsel-api/internal/service/stats"
	"github.com/zencounsel/counsel-api/internal/storage"
	internalWorker "github.com/zencounsel/counsel-api/internal/worker"
	"github.com/zencounsel/counsel-api/pkg/auth"
	"github.com/zencounsel/counsel-api/pkg/logger"
	"github.com/zencounsel/counsel-api/pkg/messaging/redis"
	"github.com/zencounsel/counsel-api/pkg/metrics"
	"github.com/zencounsel/counsel-api/pkg/worker"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	lg := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		JSON:       cfg.Log.JSON,
	})
	log.Logger = lg.Zerolog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize stores
	stores, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to open store")
	}
	defer stores.Close()
	if !stores.Shared() {
		log.Warn().Msg("memory store in use; bookings are only guarded within this process")
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics("counsel", registry)
	promH := promHandler.New(registry)

	// Initialize services
	catalogue, err := appointmentService.NewCatalogue(cfg.Booking.Windows, cfg.Booking.StepMinutes)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid slot catalogue")
	}
	loc, err := time.LoadLocation(cfg.Booking.Timezone)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid booking timezone")
	}

	events := eventService.NewEventService(stores.Outbox, lg)
	appointmentSvc := appointmentService.NewService(stores.Appointments, catalogue, events, lg, m)
	matchSvc := matchService.NewService(stores.Counsellors, matchService.NewRanker(cfg.Match), cfg.Match.PoolCacheTTL, lg, m)
	consultationSvc, err := consultationService.NewService(stores.Consultations, cfg.Booking, events, lg)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid consultation settings")
	}
	assessmentSvc := assessmentService.NewService(stores.Assessments, events, lg)
	counsellorSvc := counsellorService.NewService(stores.Counsellors, matchSvc, lg)
	statsSvc := statsService.NewService(stores.Seekers, stores.Counsellors, stores.Assessments, stores.Appointments, loc, lg)

	// Initialize middleware
	if cfg.JWT.Secret == "" {
		log.Warn().Msg("jwt.secret is empty; every admin request will be rejected")
	}
	authMiddleware := middleware.NewAuthMiddleware(auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer), cfg.JWT.AdminGroup)

	// Initialize handlers
	checks := make(map[string]health.Check, len(stores.Checks))
	for name, check := range stores.Checks {
		checks[name] = check
	}
	appointmentH := appointmentHandler.NewHandler(appointmentSvc)
	counsellorH := counsellorHandler.NewHandler(counsellorSvc)

	r := router.NewRouter(
		authMiddleware,
		health.NewHandler(checks, 2*time.Second),
		promH,
		[]router.Handler{
			appointmentH,
			matchHandler.NewHandler(matchSvc),
			consultationHandler.NewHandler(consultationSvc),
			assessmentHandler.NewHandler(assessmentSvc),
			counsellorH,
		},
		[]router.AdminHandler{
			appointmentH,
			counsellorH,
			statsHandler.NewHandler(statsSvc),
		},
		router.RouterConfig{
			Mode:             cfg.Server.Mode,
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:        cfg.RateLimit.Burst,
			RateClientTTL:    cfg.RateLimit.ClientTTL,
			CORSConfig:       middleware.DefaultCORSConfig(cfg.CORS.AllowedOrigins),
			RequestTimeout:   cfg.Server.RequestTimeout,
			MaxBodySize:      cfg.Server.MaxBodyBytes,
		},
	)
	r.Setup()

	if cfg.Outbox.Embedded {
		startRelay(ctx, cfg, stores, lg, m)
	}

	// Create server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("driver", cfg.Store.Driver).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}
	log.Info().Msg("server exited")
}

// startRelay runs the outbox relay and cleanup in this process. It is the
// only way to publish events when the memory store is in use.
func startRelay(ctx context.Context, cfg *config.Config, stores *storage.Stores, lg *logger.Logger, m *metrics.Metrics) {
	zl := lg.Zerolog()
	broker, err := redis.NewRedisBroker(cfg.Redis.ToBrokerConfig(), &zl)
	if err != nil {
		log.Error().Err(err).Msg("outbox relay disabled: redis unavailable")
		return
	}

	processor, err := worker.NewOutboxProcessor(stores.Outbox, broker, cfg.Outbox.ToWorkerConfig(cfg.Redis.Channel), lg, m)
	if err != nil {
		log.Error().Err(err).Msg("outbox relay disabled")
		_ = broker.Close()
		return
	}
	cleanup := internalWorker.NewOutboxCleanupWorker(stores.Outbox, cfg.Outbox.Retention, cfg.Outbox.CleanupInterval, lg, m)

	go func() {
		defer broker.Close()
		processor.Start(ctx)
	}()
	go cleanup.Start(ctx)
}
