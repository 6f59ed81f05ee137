// Package http provides HTTP server infrastructure including the Module interface
// that all domain modules must implement for route registration.
package http

import (
	"venue_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Module represents a bounded context that can register its HTTP routes.
type Module interface {
	// Name returns the module's identifier for logging purposes.
	Name() string
	// RegisterRoutes mounts the module's routes using the shared RouterContext.
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext provides shared dependencies for module route registration.
type RouterContext struct {
	// Engine is the root Gin engine.
	Engine *gin.Engine
	// V1 is the /api/v1 route group.
	V1 *gin.RouterGroup
	// Functions is the /functions/v1 group kept for clients of the hosted edge function.
	Functions *gin.RouterGroup
	// AuthMiddleware validates caller tokens (no-op without a JWT secret).
	AuthMiddleware gin.HandlerFunc
	// RateLimiter limits write endpoints per IP; nil disables limiting.
	RateLimiter *httpkit.IPRateLimiter
}
