package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/telehealth-api/internal/config"
	"github.com/jwalitptl/telehealth-api/internal/email"
	"github.com/jwalitptl/telehealth-api/internal/handler"
	appointmentHandler "github.com/jwalitptl/telehealth-api/internal/handler/appointment"
	authHandler "github.com/jwalitptl/telehealth-api/internal/handler/auth"
	doctorHandler "github.com/jwalitptl/telehealth-api/internal/handler/doctor"
	doctorScheduleHandler "github.com/jwalitptl/telehealth-api/internal/handler/doctorschedule"
	paymentHandler "github.com/jwalitptl/telehealth-api/internal/handler/payment"
	scheduleHandler "github.com/jwalitptl/telehealth-api/internal/handler/schedule"
	"github.com/jwalitptl/telehealth-api/internal/middleware"
	"github.com/jwalitptl/telehealth-api/internal/repository/postgres"
	"github.com/jwalitptl/telehealth-api/internal/router"
	authService "github.com/jwalitptl/telehealth-api/internal/service/auth"
	bookingService "github.com/jwalitptl/telehealth-api/internal/service/booking"
	doctorService "github.com/jwalitptl/telehealth-api/internal/service/doctor"
	doctorScheduleService "github.com/jwalitptl/telehealth-api/internal/service/doctorschedule"
	notificationService "github.com/jwalitptl/telehealth-api/internal/service/notification"
	paymentService "github.com/jwalitptl/telehealth-api/internal/service/payment"
	scheduleService "github.com/jwalitptl/telehealth-api/internal/service/schedule"
	"github.com/jwalitptl/telehealth-api/internal/worker"
	"github.com/jwalitptl/telehealth-api/pkg/auth"
	"github.com/jwalitptl/telehealth-api/pkg/logger"
	redisBroker "github.com/jwalitptl/telehealth-api/pkg/messaging/redis"
	"github.com/jwalitptl/telehealth-api/pkg/metrics"
	"github.com/jwalitptl/telehealth-api/pkg/paygate"
	"github.com/jwalitptl/telehealth-api/pkg/security"
	pkgworker "github.com/jwalitptl/telehealth-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	if err := handler.RegisterValidators(); err != nil {
		log.Fatal().Err(err).Msg("failed to register validators")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	doctorRepo := postgres.NewDoctorRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	scheduleRepo := postgres.NewScheduleRepository(db)
	slotRepo := postgres.NewDoctorSlotRepository(db)
	apptRepo := postgres.NewAppointmentRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	appMetrics := metrics.NewMetrics("telehealth")

	// Gateway and broker
	gateway := paygate.NewClient(paygate.Config{
		BaseURL:       cfg.Gateway.BaseURL,
		StoreID:       cfg.Gateway.StoreID,
		StorePassword: cfg.Gateway.StorePassword,
		Timeout:       cfg.Gateway.Timeout,
	})

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

	// Services
	jwtSvc := auth.NewJWTService(auth.JWTConfig{
		Secret:             cfg.JWT.Secret,
		RefreshSecret:      cfg.JWT.RefreshSecret,
		ExpiryHours:        cfg.JWT.ExpiryHours,
		RefreshExpiryHours: cfg.JWT.RefreshExpiryHours,
	})
	hasher := security.NewBcryptHasher(12)

	authSvc := authService.NewService(userRepo, hasher, jwtSvc)
	doctorSvc := doctorService.NewService(doctorRepo)
	scheduleSvc := scheduleService.NewService(scheduleRepo, cfg.Schedule.SlotMinutes)
	doctorScheduleSvc := doctorScheduleService.NewService(doctorRepo, slotRepo, scheduleRepo)
	bookingSvc := bookingService.NewService(apptRepo, patientRepo, doctorRepo, appMetrics)
	paymentSvc := paymentService.NewService(gateway, paymentRepo, apptRepo, patientRepo,
		doctorRepo, scheduleRepo, outboxRepo, cfg.Gateway, appLogger, appMetrics)
	notificationSvc := notificationService.NewService(email.NewSMTPSender(cfg.Email), appLogger)

	// Background workers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := worker.NewBookingSweeper(apptRepo, cfg.Sweeper.Interval,
		cfg.Sweeper.GracePeriod, cfg.Sweeper.BatchSize, appLogger, appMetrics)
	go sweeper.Start(ctx)

	outboxProcessor := pkgworker.NewOutboxProcessor(outboxRepo, broker, pkgworker.OutboxProcessorConfig{
		BatchSize:    cfg.Outbox.BatchSize,
		PollInterval: cfg.Outbox.PollInterval,
	}, appLogger, appMetrics)
	go outboxProcessor.Start(ctx)

	notifier := worker.NewNotifier(broker, notificationSvc, appLogger)
	if err := notifier.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start payment notifier")
	}

	// HTTP layer
	authMiddleware := middleware.NewAuthMiddleware(jwtSvc)
	r := router.NewRouter(
		authMiddleware,
		handler.NewHandler(db),
		authHandler.NewHandler(authSvc),
		doctorHandler.NewHandler(doctorSvc, authSvc, doctorScheduleSvc),
		scheduleHandler.NewHandler(scheduleSvc),
		doctorScheduleHandler.NewHandler(doctorScheduleSvc),
		appointmentHandler.NewHandler(bookingSvc),
		paymentHandler.NewHandler(paymentSvc, cfg.Gateway),
		router.Config{
			RateLimit:     100,
			RateBurst:     200,
			CORSConfig:    middleware.DefaultCORSConfig(),
			MetricsPrefix: "telehealth_http",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		appLogger.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
}
