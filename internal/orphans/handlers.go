package orphans

import (
	"context"
	"fmt"

	"venue_backend/internal/events"
	"venue_backend/platform/logger"
)

// RegisterHandlers subscribes the registry to orphaned identity events.
func RegisterHandlers(bus events.Bus, registry *Registry, log *logger.Logger) {
	bus.Subscribe(events.IdentityOrphaned{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.IdentityOrphaned)
		if !ok {
			return fmt.Errorf("unexpected event type %T", event)
		}

		err := registry.Record(ctx, Orphan{
			IdentityID: e.IdentityID,
			Email:      e.Email,
			VenueID:    e.VenueID,
			Stage:      e.Stage,
			Reason:     e.Reason,
			RecordedAt: e.OccurredAt().UTC(),
		})
		if err != nil {
			return fmt.Errorf("record orphan %s: %w", e.IdentityID, err)
		}

		log.Warn("orphaned identity recorded", "identity_id", e.IdentityID, "venue_id", e.VenueID, "stage", e.Stage)
		return nil
	}))
}
