// Package venueusers provides the venue user provisioning bounded context.
// This file defines the module that wires the provisioning service into the HTTP app.
package venueusers

import (
	"context"
	"fmt"

	"venue_backend/internal/events"
	apphttp "venue_backend/internal/http"
	"venue_backend/internal/venueusers/handler"
	"venue_backend/internal/venueusers/ports"
	"venue_backend/internal/venueusers/service"
	"venue_backend/platform/logger"
	"venue_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// Module is the venue users bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	log     *logger.Logger
}

// NewModule creates the module on top of the selected identity and record backends.
func NewModule(identities ports.IdentityAdmin, records ports.RecordStore, val *validator.Validator, eventBus events.Bus, log *logger.Logger) *Module {
	svc := service.New(identities, records, val, eventBus, log)

	return &Module{
		handler: handler.New(svc),
		log:     log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "venueusers"
}

// RegisterRoutes mounts the provisioning endpoint under the API and under the
// legacy functions prefix.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	guards := []gin.HandlerFunc{ctx.RateLimiter.RateLimit(), ctx.AuthMiddleware}

	m.handler.RegisterRoutes(ctx.V1, "/venue-users", guards...)
	m.handler.RegisterRoutes(ctx.Functions, "/create-venue-user", guards...)
}

// RegisterHandlers subscribes the module's audit log to provisioning events.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.VenueUserProvisioned{}.EventName(), events.HandlerFunc(func(_ context.Context, event events.Event) error {
		e, ok := event.(events.VenueUserProvisioned)
		if !ok {
			return fmt.Errorf("unexpected event type %T", event)
		}
		m.log.Info("venue user provisioned",
			"user_id", e.UserID,
			"venue_id", e.VenueID,
			"email", e.Email,
			"occurred_at", e.OccurredAt().UTC(),
		)
		return nil
	}))
}

var _ apphttp.Module = (*Module)(nil)
