package router

import (
	"net/http"

	apphttp "venue_backend/internal/http"
	"venue_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// New builds the engine: global middleware, health endpoints and every module's routes.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(
		httpkit.Recovery(app.Logger),
		httpkit.RequestID(),
		httpkit.RequestLogger(app.Logger),
		httpkit.CORS(),
	)

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/readyz", func(c *gin.Context) {
		if app.Health != nil {
			if err := app.Health.Ping(c.Request.Context()); err != nil {
				app.Logger.DatabaseError("readiness ping", err)
				httpkit.Error(c, http.StatusServiceUnavailable, "not ready")
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	ctx := &apphttp.RouterContext{
		Engine:         engine,
		V1:             engine.Group("/api/v1"),
		Functions:      engine.Group("/functions/v1"),
		AuthMiddleware: httpkit.AuthRequired(app.Config),
		RateLimiter:    httpkit.NewPerMinuteLimiter(app.Config, app.Logger),
	}

	for _, m := range app.Modules {
		m.RegisterRoutes(ctx)
		app.Logger.Debug("module routes registered", "module", m.Name())
	}

	return engine
}
