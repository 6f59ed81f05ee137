package orphans

import (
	"context"
	"errors"

	"venue_backend/internal/venueusers/ports"
	"venue_backend/platform/apperr"
	"venue_backend/platform/logger"
)

// CleanupResult summarizes one cleanup pass.
type CleanupResult struct {
	Deleted []string
	Failed  map[string]error
}

// Cleanup deletes every recorded orphan through identities and drops the
// entries that are gone. An identity the backend no longer knows counts as
// deleted. Entries whose delete fails stay in the registry.
func Cleanup(ctx context.Context, registry *Registry, identities ports.IdentityAdmin, log *logger.Logger) (CleanupResult, error) {
	orphans, err := registry.List(ctx)
	if err != nil {
		return CleanupResult{}, err
	}

	result := CleanupResult{Failed: make(map[string]error)}
	for _, o := range orphans {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if err := identities.DeleteIdentity(ctx, o.IdentityID); err != nil && !apperr.Is(err, apperr.KindNotFound) {
			log.Error("orphan delete failed", "identity_id", o.IdentityID, "error", err)
			result.Failed[o.IdentityID] = err
			continue
		}

		if err := registry.Remove(ctx, o.IdentityID); err != nil {
			result.Failed[o.IdentityID] = err
			continue
		}
		log.Info("orphan deleted", "identity_id", o.IdentityID, "venue_id", o.VenueID)
		result.Deleted = append(result.Deleted, o.IdentityID)
	}

	if len(result.Failed) > 0 {
		return result, errors.New("some orphans could not be deleted")
	}
	return result, nil
}
