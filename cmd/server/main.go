package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/stakepot/arena-server-go/internal/attest"
	"github.com/stakepot/arena-server-go/internal/config"
	"github.com/stakepot/arena-server-go/internal/database"
	"github.com/stakepot/arena-server-go/internal/handler"
	"github.com/stakepot/arena-server-go/internal/jobs"
	"github.com/stakepot/arena-server-go/internal/middleware"
	"github.com/stakepot/arena-server-go/internal/oracle"
	"github.com/stakepot/arena-server-go/internal/redis"
	"github.com/stakepot/arena-server-go/internal/repository"
	"github.com/stakepot/arena-server-go/internal/service"
	"github.com/stakepot/arena-server-go/internal/settlement"
)

func main() {
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	entryFee, err := cfg.EntryFeeAmount()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid entry fee")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	sessionRepo := repository.NewSessionRepository(db.DB)
	attemptRepo := repository.NewAttemptRepository(db.DB)
	paymentRepo := repository.NewPaymentRepository(db.DB)
	messageRepo := repository.NewMessageRepository(db.DB)
	userRepo := repository.NewUserRepository(db.DB)

	judge := oracle.NewHTTPClient(cfg.OracleURL, cfg.OracleAPIKey, cfg.OracleTimeout())
	retry := oracle.RetryPolicy{
		MaxAttempts:       cfg.OracleMaxRetries,
		BaseDelay:         cfg.OracleRetryBase(),
		RetryFormatErrors: cfg.OracleRetryFormatErrors,
	}
	settlementClient := settlement.NewHTTPClient(cfg.SettlementURL, cfg.OracleTimeout())
	verifier := attest.NewHTTPVerifier(cfg.AttestURL, cfg.OracleTimeout())

	sessionService := service.NewSessionService(db, sessionRepo, attemptRepo)
	paymentService := service.NewPaymentService(
		paymentRepo, sessionRepo, userRepo, settlementClient, cfg.PaymentFreshness(),
	)
	attemptService := service.NewAttemptService(
		db, attemptRepo, sessionRepo, messageRepo, userRepo,
		paymentService, judge, retry, cfg.MessageQuota,
	)
	userService := service.NewUserService(userRepo, attemptRepo, messageRepo, verifier)

	authMiddleware := middleware.NewAuthMiddleware(userRepo)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(redisClient.Client, cfg.RateLimitPerMin)
	adminMiddleware := middleware.NewAdminMiddleware(cfg.AdminPasswordHash)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)

	sessionHandler := handler.NewSessionHandler(sessionService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	attemptHandler := handler.NewAttemptHandler(attemptService)
	userHandler := handler.NewUserHandler(
		userService, attemptService,
		authMiddleware.Handler, rateLimitMiddleware.Handler,
	)
	adminHandler := handler.NewAdminHandler(
		sessionService, attemptService, entryFee, cfg.SessionDuration(),
	)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pingCtx, pingCancel := context.WithTimeout(r.Context(), config.DBPingTimeout)
		defer pingCancel()

		status := "ok"
		code := http.StatusOK
		if err := db.Ping(pingCtx); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    status,
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/v1/sessions", func(r chi.Router) {
		r.Mount("/", sessionHandler.Routes())
	})

	r.Route("/v1/payments", func(r chi.Router) {
		r.Use(authMiddleware.Handler)
		r.Use(rateLimitMiddleware.Handler)
		r.Mount("/", paymentHandler.Routes())
	})

	r.Route("/v1/attempts", func(r chi.Router) {
		r.Use(authMiddleware.Handler)
		r.Use(rateLimitMiddleware.Handler)
		r.Mount("/", attemptHandler.Routes())
	})

	r.Route("/v1/users", func(r chi.Router) {
		r.Mount("/", userHandler.Routes())
	})

	r.Route("/v1/admin", func(r chi.Router) {
		r.Use(adminMiddleware.Handler)
		r.Mount("/", adminHandler.Routes())
	})

	rolloverJob := jobs.NewRolloverJob(
		sessionService, entryFee, cfg.SessionDuration(), cfg.RolloverInterval(),
	)
	rolloverJob.Start()
	defer rolloverJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerRequestTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
