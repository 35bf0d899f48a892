package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const envDevelopment = "development"

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	RateLimit    RateLimitConfig
	Notification NotificationConfig
	Seed         SeedConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	TimeoutMillis int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level      string
	File       string
	MaxAgeDays int
}

// AuthConfig defines authentication parameters. It is read once at startup
// and passed by value; nothing mutates it afterwards.
type AuthConfig struct {
	JWTSecret             string
	JWTIssuer             string
	AccessTokenTTLMinutes int
	ScryptN               int
	ScryptR               int
	ScryptP               int
	HashConcurrency       int
}

// RateLimitConfig bounds sign-in and sign-up attempts per client.
type RateLimitConfig struct {
	AuthMax           int
	AuthWindowSeconds int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// SeedConfig points the seeder at a fixture file.
type SeedConfig struct {
	File string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "triage-service"),
			Env:                   getEnv("APP_ENV", envDevelopment),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:          getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:      os.Getenv("REDIS_PASSWORD"),
			DB:            redisDB,
			TimeoutMillis: getEnvAsInt("REDIS_TIMEOUT_MS", 500),
		},
		Logger: LoggerConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       os.Getenv("LOG_FILE"),
			MaxAgeDays: getEnvAsInt("LOG_MAX_AGE_DAYS", 7),
		},
		Auth: AuthConfig{
			JWTSecret:             os.Getenv("AUTH_JWT_SECRET"),
			JWTIssuer:             getEnv("AUTH_JWT_ISSUER", "triage-service"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			ScryptN:               getEnvAsInt("AUTH_SCRYPT_N", 16384),
			ScryptR:               getEnvAsInt("AUTH_SCRYPT_R", 8),
			ScryptP:               getEnvAsInt("AUTH_SCRYPT_P", 1),
			HashConcurrency:       getEnvAsInt("AUTH_HASH_CONCURRENCY", runtime.NumCPU()),
		},
		RateLimit: RateLimitConfig{
			AuthMax:           getEnvAsInt("RATE_LIMIT_AUTH_MAX", 10),
			AuthWindowSeconds: getEnvAsInt("RATE_LIMIT_AUTH_WINDOW_SECONDS", 60),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
		Seed: SeedConfig{
			File: os.Getenv("SEED_FILE"),
		},
	}

	if cfg.Auth.JWTSecret == "" {
		if cfg.App.Env != envDevelopment {
			return nil, errors.New("AUTH_JWT_SECRET is required outside development")
		}
		cfg.Auth.JWTSecret = "dev-secret"
	}
	if err := cfg.Auth.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (a AuthConfig) validate() error {
	if a.ScryptN <= 1 || a.ScryptN&(a.ScryptN-1) != 0 {
		return fmt.Errorf("invalid AUTH_SCRYPT_N %d: must be a power of two greater than 1", a.ScryptN)
	}
	if a.ScryptR <= 0 || a.ScryptP <= 0 {
		return fmt.Errorf("invalid scrypt parameters r=%d p=%d", a.ScryptR, a.ScryptP)
	}
	return nil
}

// AccessTokenTTL returns the session token lifetime.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// Window returns the limiter window duration.
func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.AuthWindowSeconds) * time.Second
}

// Timeout bounds a single Redis command, including the startup ping.
func (r RedisConfig) Timeout() time.Duration {
	if r.TimeoutMillis <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(r.TimeoutMillis) * time.Millisecond
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
