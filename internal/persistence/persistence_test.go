package persistence

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/repository/memstore"
)

func TestOpenDatabase_InMemoryFallback(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	db, err := OpenDatabase(context.Background(), config.PostgresConfig{RunMigrations: true}, zap.New(core))
	if err != nil {
		t.Fatalf("OpenDatabase() error = %v", err)
	}
	defer db.Close()

	if !db.InMemory() {
		t.Error("InMemory() = false without a DSN")
	}
	if _, ok := db.Storage.(*memstore.Store); !ok {
		t.Errorf("Storage = %T, want *memstore.Store", db.Storage)
	}
	if err := db.Storage.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if logs.Len() != 1 {
		t.Errorf("warnings logged = %d, want 1", logs.Len())
	}
}

func TestOpenDatabase_InvalidDSN(t *testing.T) {
	_, err := OpenDatabase(context.Background(), config.PostgresConfig{DSN: "postgres://u:p@localhost:notaport/triage"}, zap.NewNop())
	if err == nil {
		t.Fatal("OpenDatabase() error = nil for a malformed DSN")
	}
}

func TestNewRedis_UnreachableIsBounded(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	start := time.Now()
	r := NewRedis(context.Background(), config.RedisConfig{Addr: "127.0.0.1:1", TimeoutMillis: 200}, zap.New(core))
	defer r.Close()

	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("NewRedis() took %v against an unreachable server", elapsed)
	}
	if logs.FilterMessage("unable to reach redis; rate limiting fails open").Len() != 1 {
		t.Errorf("expected one unreachable warning, got %v", logs.All())
	}
	if err := r.Ping(context.Background()); err == nil {
		t.Error("Ping() error = nil for an unreachable server")
	}

	var missing *Redis
	if err := missing.Ping(context.Background()); err == nil {
		t.Error("nil Redis Ping() error = nil")
	}
}
