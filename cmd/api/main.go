package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/care-circle-auth/internal/api/http"
	"github.com/spec-kit/care-circle-auth/internal/api/http/handlers"
	"github.com/spec-kit/care-circle-auth/internal/auth"
	"github.com/spec-kit/care-circle-auth/internal/config"
	"github.com/spec-kit/care-circle-auth/internal/events"
	"github.com/spec-kit/care-circle-auth/internal/observability"
	"github.com/spec-kit/care-circle-auth/internal/persistence"
	"github.com/spec-kit/care-circle-auth/internal/repository"
	"github.com/spec-kit/care-circle-auth/internal/service"
	"github.com/spec-kit/care-circle-auth/internal/sms"
	"github.com/spec-kit/care-circle-auth/internal/throttle"
	"github.com/spec-kit/care-circle-auth/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redisStore := persistence.NewRedis(cfg.Redis, logger)
	defer redisStore.Close()

	if cfg.Auth.JWTSecret == "" {
		logger.Warn("SUPABASE_JWT_SECRET not provided; OTP verification will fail")
	}
	if cfg.OTP.APIKey == "" {
		logger.Warn("TWOFACTOR_API_KEY not provided; OTP send and verify will fail")
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartActivityWorker(ctx, service.NewActivityService(dispatcher, logger, cfg.Activity))

	identities := repository.NewIdentityRepository(pg.PoolHandle())
	tokens := auth.NewTokenManager(cfg.Auth)
	provider := sms.NewTwoFactorClient(cfg.OTP.APIKey, cfg.OTP.BaseURL, cfg.OTP.Template, cfg.OTP.HTTPTimeout())

	deps := service.OTPDependencies{
		Identities: identities,
		Provider:   provider,
		Tokens:     tokens,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	}
	if limiter := throttle.NewSendThrottle(redisStore.Handle(), cfg.OTP.SendCooldown()); limiter != nil {
		deps.Limiter = limiter
	}
	otpService := service.NewOTPService(*cfg, deps)

	var redisPinger handlers.Pinger
	if redisStore.Handle() != nil {
		redisPinger = redisStore
	}
	var postgresPinger handlers.Pinger
	if pg.PoolHandle() != nil {
		postgresPinger = pg
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, postgresPinger, redisPinger, metrics),
		OTP:            handlers.NewOTPHandler(otpService),
		Session:        handlers.NewSessionHandler(),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, identities),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("fiber shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
