package supabase

import (
	"context"
	"errors"
	"net/http"

	"venue_backend/internal/venueusers/ports"
	"venue_backend/platform/apperr"
)

// timestampLayout renders instants the way the hosted database stores them
// when written from JavaScript clients: UTC with milliseconds.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// IdentityAdmin implements ports.IdentityAdmin on the admin auth API.
type IdentityAdmin struct {
	client *Client
}

func NewIdentityAdmin(client *Client) *IdentityAdmin {
	return &IdentityAdmin{client: client}
}

func (a *IdentityAdmin) CreateIdentity(ctx context.Context, email, password string) (ports.Identity, error) {
	user, err := a.client.CreateConfirmedUser(ctx, email, password)
	if err != nil {
		return ports.Identity{}, toAppErr(err, "supabase.CreateUser")
	}
	return ports.Identity{
		ID:             user.ID,
		Email:          user.Email,
		EmailConfirmed: true,
	}, nil
}

func (a *IdentityAdmin) DeleteIdentity(ctx context.Context, id string) error {
	if err := a.client.DeleteUser(ctx, id); err != nil {
		return toAppErr(err, "supabase.DeleteUser")
	}
	return nil
}

// RecordStore implements ports.RecordStore on the REST record API.
type RecordStore struct {
	client *Client
}

func NewRecordStore(client *Client) *RecordStore {
	return &RecordStore{client: client}
}

func (s *RecordStore) UpdateProfile(ctx context.Context, id string, update ports.ProfileUpdate) error {
	if _, err := s.client.UpdateByID(ctx, ports.ProfilesCollection, id, update); err != nil {
		return toAppErr(err, "supabase.UpdateProfile")
	}
	return nil
}

type venuePatch struct {
	OwnerUserID           string `json:"owner_user_id"`
	Credits               int    `json:"credits"`
	SubscriptionStatus    string `json:"subscription_status"`
	SubscriptionExpiresAt string `json:"subscription_expires_at"`
}

func (s *RecordStore) UpdateVenue(ctx context.Context, id string, update ports.VenueUpdate) error {
	patch := venuePatch{
		OwnerUserID:           update.OwnerUserID,
		Credits:               update.Credits,
		SubscriptionStatus:    update.SubscriptionStatus,
		SubscriptionExpiresAt: update.SubscriptionExpiresAt.UTC().Format(timestampLayout),
	}
	if _, err := s.client.UpdateByID(ctx, ports.VenuesCollection, id, patch); err != nil {
		return toAppErr(err, "supabase.UpdateVenue")
	}
	return nil
}

func toAppErr(err error, op string) error {
	if errors.Is(err, ErrNotFound) {
		return apperr.Wrap(apperr.KindNotFound, "record not found", err).WithOp(op)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		kind := apperr.KindInternal
		switch apiErr.Status {
		case http.StatusNotFound:
			kind = apperr.KindNotFound
		case http.StatusConflict, http.StatusUnprocessableEntity:
			kind = apperr.KindConflict
		case http.StatusBadRequest:
			kind = apperr.KindValidation
		}
		return apperr.Wrap(kind, apiErr.Error(), err).WithOp(op)
	}

	return apperr.Wrap(apperr.KindInternal, err.Error(), err).WithOp(op)
}

var (
	_ ports.IdentityAdmin = (*IdentityAdmin)(nil)
	_ ports.RecordStore   = (*RecordStore)(nil)
)
