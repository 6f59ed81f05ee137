// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend names accepted by BACKEND.
const (
	BackendSupabase = "supabase"
	BackendPostgres = "postgres"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetShutdownTimeout() time.Duration
}

// BackendConfig selects and configures the identity/record backend.
type BackendConfig interface {
	GetBackend() string
	GetServiceURL() string
	GetServiceRoleKey() string
}

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// RedisConfig provides the orphan registry connection.
type RedisConfig interface {
	GetRedisURL() string
}

// JWTConfig provides caller token validation settings for middleware.
type JWTConfig interface {
	GetJWTSecret() string
}

// RateLimitConfig provides per-IP limits for the provisioning route.
type RateLimitConfig interface {
	GetRateLimitPerMinute() int
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                string
	HTTPAddr           string
	ShutdownTimeout    time.Duration
	Backend            string
	ServiceURL         string
	ServiceRoleKey     string
	JWTSecret          string
	DatabaseURL        string
	RedisURL           string
	RateLimitPerMinute int
}

func (c *Config) GetHTTPAddr() string                { return c.HTTPAddr }
func (c *Config) GetShutdownTimeout() time.Duration { return c.ShutdownTimeout }

func (c *Config) GetBackend() string        { return c.Backend }
func (c *Config) GetServiceURL() string     { return c.ServiceURL }
func (c *Config) GetServiceRoleKey() string { return c.ServiceRoleKey }

func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }
func (c *Config) GetRedisURL() string    { return c.RedisURL }
func (c *Config) GetJWTSecret() string   { return c.JWTSecret }

func (c *Config) GetRateLimitPerMinute() int { return c.RateLimitPerMinute }

// IsPostgresBackend reports whether identities and records live in our own database.
func (c *Config) IsPostgresBackend() bool { return c.Backend == BackendPostgres }

// Load reads configuration from environment variables (and .env when present).
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from the given lookup function.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	getEnv := func(key, fallback string) string {
		if val, ok := lookup(key); ok {
			return val
		}
		return fallback
	}

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", getEnv("SHUTDOWN_TIMEOUT", "10s"))
	if err != nil {
		return nil, err
	}
	rateLimit, err := parseInt("RATE_LIMIT_PER_MINUTE", getEnv("RATE_LIMIT_PER_MINUTE", "30"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Env:                getEnv("APP_ENV", "development"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		ShutdownTimeout:    shutdownTimeout,
		Backend:            strings.ToLower(strings.TrimSpace(getEnv("BACKEND", BackendSupabase))),
		ServiceURL:         strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
		ServiceRoleKey:     getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		JWTSecret:          getEnv("SUPABASE_JWT_SECRET", ""),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisURL:           getEnv("REDIS_URL", ""),
		RateLimitPerMinute: rateLimit,
	}

	switch cfg.Backend {
	case BackendSupabase:
		if cfg.ServiceURL == "" || cfg.ServiceRoleKey == "" {
			return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required for the supabase backend")
		}
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return nil, fmt.Errorf("unknown BACKEND %q", cfg.Backend)
	}

	return cfg, nil
}

func parseDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", key, value)
	}
	return d, nil
}

func parseInt(key, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", key, value)
	}
	return n, nil
}
