package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/auth"
	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/observability"
	"github.com/spec-kit/triage-service/internal/persistence"
	"github.com/spec-kit/triage-service/internal/seed"
	"github.com/spec-kit/triage-service/internal/service"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.DSN == "" {
		logger.Fatal("POSTGRES_DSN is required for seeding")
	}
	cfg.Postgres.RunMigrations = true
	db, err := persistence.OpenDatabase(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err))
	}
	defer db.Close()

	fixtures, err := seed.LoadFixtures(cfg.Seed.File)
	if err != nil {
		logger.Fatal("failed to load fixtures", zap.Error(err))
	}

	store := db.Storage
	hasher := auth.NewHasher(auth.HashParamsFromConfig(cfg.Auth), cfg.Auth.HashConcurrency)
	credentials := service.NewCredentialService(hasher, store.Repositories().Credentials, logger)

	result, err := seed.NewSeeder(store, credentials, logger).Run(ctx, fixtures)
	if err != nil {
		logger.Fatal("seeding failed", zap.Error(err))
	}
	for _, t := range result.Tickets {
		logger.Info("seeded ticket", zap.String("key", t.Key), zap.String("id", t.ID), zap.String("status", string(t.Status)))
	}
}
