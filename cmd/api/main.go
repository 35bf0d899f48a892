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

	httptransport "github.com/spec-kit/triage-service/internal/api/http"
	"github.com/spec-kit/triage-service/internal/api/http/handlers"
	"github.com/spec-kit/triage-service/internal/auth"
	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/observability"
	"github.com/spec-kit/triage-service/internal/persistence"
	"github.com/spec-kit/triage-service/internal/ratelimit"
	"github.com/spec-kit/triage-service/internal/service"
	"github.com/spec-kit/triage-service/internal/worker"
)

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

	db, err := persistence.OpenDatabase(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err))
	}
	defer db.Close()
	store := db.Storage
	repos := store.Repositories()

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, cfg.Notification))

	tokens := auth.NewTokenManager(cfg.Auth)
	hasher := auth.NewHasher(auth.HashParamsFromConfig(cfg.Auth), cfg.Auth.HashConcurrency)
	credentials := service.NewCredentialService(hasher, repos.Credentials, logger)

	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:    repos.Users,
		UnitOfWork:  store,
		Credentials: credentials,
		Tokens:      tokens,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: repos.Tickets,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	userService := service.NewUserService(repos.Users)

	metrics := observability.NewMetrics()
	app := fiber.New(httptransport.NewFiberConfig(cfg.App.Name, httptransport.ErrorHandler(logger)))
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics,
			handlers.Dependency{Name: "storage", Pinger: store, Required: true},
			handlers.Dependency{Name: "redis", Pinger: redis},
		),
		Auth:    handlers.NewAuthHandler(authService),
		Tickets: handlers.NewTicketsHandler(ticketService),
		Users:   handlers.NewUsersHandler(userService),
		Gate:    auth.NewGate(tokens, logger),
		Limiter: ratelimit.NewLimiter(ratelimit.NewRedisCounter(redis.Client), cfg.RateLimit, logger),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
