package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("AUTH_JWT_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.App.Name != "triage-service" {
		t.Errorf("App.Name = %q, want triage-service", cfg.App.Name)
	}
	if cfg.App.Addr() != "0.0.0.0:8080" {
		t.Errorf("App.Addr() = %q", cfg.App.Addr())
	}
	if cfg.Auth.JWTSecret != "dev-secret" {
		t.Errorf("development should fall back to dev secret, got %q", cfg.Auth.JWTSecret)
	}
	if cfg.Auth.AccessTokenTTL() != time.Hour {
		t.Errorf("AccessTokenTTL() = %v, want 1h", cfg.Auth.AccessTokenTTL())
	}
	if cfg.Auth.ScryptN != 16384 || cfg.Auth.ScryptR != 8 || cfg.Auth.ScryptP != 1 {
		t.Errorf("scrypt defaults = %d/%d/%d", cfg.Auth.ScryptN, cfg.Auth.ScryptR, cfg.Auth.ScryptP)
	}
	if cfg.RateLimit.Window() != time.Minute {
		t.Errorf("RateLimit.Window() = %v, want 1m", cfg.RateLimit.Window())
	}
	if cfg.Redis.Timeout() != 500*time.Millisecond {
		t.Errorf("Redis.Timeout() = %v, want 500ms", cfg.Redis.Timeout())
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "5")
	t.Setenv("POSTGRES_RUN_MIGRATIONS", "false")
	t.Setenv("RATE_LIMIT_AUTH_MAX", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.App.Port != "9090" {
		t.Errorf("App.Port = %q", cfg.App.Port)
	}
	if cfg.Auth.JWTSecret != "s3cret" {
		t.Errorf("JWTSecret = %q", cfg.Auth.JWTSecret)
	}
	if cfg.Auth.AccessTokenTTL() != 5*time.Minute {
		t.Errorf("AccessTokenTTL() = %v", cfg.Auth.AccessTokenTTL())
	}
	if cfg.Postgres.RunMigrations {
		t.Error("RunMigrations should be false")
	}
	if cfg.RateLimit.AuthMax != 3 {
		t.Errorf("AuthMax = %d", cfg.RateLimit.AuthMax)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret in production", map[string]string{"APP_ENV": "production", "AUTH_JWT_SECRET": ""}},
		{"scrypt N not power of two", map[string]string{"AUTH_SCRYPT_N": "1000"}},
		{"scrypt N too small", map[string]string{"AUTH_SCRYPT_N": "1"}},
		{"scrypt r zero", map[string]string{"AUTH_SCRYPT_R": "0"}},
		{"bad redis db", map[string]string{"REDIS_DB": "one"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("Load() should fail")
			}
		})
	}
}
