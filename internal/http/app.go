package http

import (
	"context"

	"venue_backend/platform/config"
	"venue_backend/platform/logger"
)

// RouterConfig combines the config interfaces needed by the HTTP router.
type RouterConfig interface {
	config.JWTConfig
	config.RateLimitConfig
}

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App holds the fully initialized application dependencies.
// main.go populates it and passes it to the router.
type App struct {
	Config RouterConfig
	Logger *logger.Logger
	// Health is optional; nil means the service is always ready.
	Health  HealthChecker
	Modules []Module
}
