package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/telehealth-api/internal/config"
	"github.com/jwalitptl/telehealth-api/internal/email"
	"github.com/jwalitptl/telehealth-api/internal/repository/postgres"
	notificationService "github.com/jwalitptl/telehealth-api/internal/service/notification"
	"github.com/jwalitptl/telehealth-api/internal/worker"
	"github.com/jwalitptl/telehealth-api/pkg/logger"
	redisBroker "github.com/jwalitptl/telehealth-api/pkg/messaging/redis"
	"github.com/jwalitptl/telehealth-api/pkg/metrics"
	pkgworker "github.com/jwalitptl/telehealth-api/pkg/worker"
)

// Standalone worker binary: runs the outbox processor, the outbox retention
// pass, the booking sweeper and the invoice notifier without the HTTP API.
// All are safe to run alongside the API's own instances; the outbox claims
// rows by flipping them to PROCESSING and the sweeper's reclaim is
// transactional.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redisBroker.NewRedisBroker(redisBroker.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer broker.Close()

	outboxRepo := postgres.NewOutboxRepository(db)
	apptRepo := postgres.NewAppointmentRepository(db)
	appMetrics := metrics.NewMetrics("telehealth_worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	processor := pkgworker.NewOutboxProcessor(outboxRepo, broker, pkgworker.OutboxProcessorConfig{
		BatchSize:    cfg.Outbox.BatchSize,
		PollInterval: cfg.Outbox.PollInterval,
	}, appLogger, appMetrics)
	go processor.Start(ctx)

	retention := worker.NewOutboxRetention(outboxRepo, cfg.Outbox.CleanupInterval,
		cfg.Outbox.Retention, appLogger)
	go retention.Start(ctx)

	sweeper := worker.NewBookingSweeper(apptRepo, cfg.Sweeper.Interval,
		cfg.Sweeper.GracePeriod, cfg.Sweeper.BatchSize, appLogger, appMetrics)
	go sweeper.Start(ctx)

	notificationSvc := notificationService.NewService(email.NewSMTPSender(cfg.Email), appLogger)
	notifier := worker.NewNotifier(broker, notificationSvc, appLogger)
	if err := notifier.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start payment notifier")
	}

	setupHealthCheck(appLogger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	appLogger.Info("shutting down")
	cancel()
}

func setupHealthCheck(appLogger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(":8081", mux); err != nil {
			appLogger.Error(err, "health check server failed")
			os.Exit(1)
		}
	}()
}
