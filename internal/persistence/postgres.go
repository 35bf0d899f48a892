package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/repository"
	"github.com/spec-kit/triage-service/internal/repository/memstore"
)

// Storage is the backing store the services run against.
type Storage interface {
	repository.UnitOfWork
	Repositories() repository.Repositories
	Ping(ctx context.Context) error
}

// Database owns the storage selected at startup and, for Postgres, its pool.
type Database struct {
	Storage Storage
	pool    *pgxpool.Pool
}

// OpenDatabase connects to Postgres and applies migrations when enabled.
// Without a DSN it falls back to an in-memory store.
func OpenDatabase(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*Database, error) {
	if cfg.DSN == "" {
		logger.Warn("POSTGRES_DSN not provided; using in-memory storage, data is lost on exit")
		return &Database{Storage: memstore.New()}, nil
	}

	pool, err := newPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to postgres",
		zap.Int32("max_conns", pool.Config().MaxConns),
		zap.Int32("min_conns", pool.Config().MinConns))

	if cfg.RunMigrations {
		if err := RunMigrations(pool, logger); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return &Database{Storage: repository.NewStore(pool), pool: pool}, nil
}

func newPool(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse POSTGRES_DSN: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxIdleSec > 0 {
		poolCfg.MaxConnIdleTime = time.Duration(cfg.ConnMaxIdleSec) * time.Second
	}
	if cfg.ConnMaxLifeSec > 0 {
		poolCfg.MaxConnLifetime = time.Duration(cfg.ConnMaxLifeSec) * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// InMemory reports whether the memstore fallback is in use.
func (d *Database) InMemory() bool {
	return d.pool == nil
}

// Close releases pool resources.
func (d *Database) Close() {
	if d != nil && d.pool != nil {
		d.pool.Close()
	}
}
