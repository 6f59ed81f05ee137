// Package ports defines the types exchanged with the venue user provisioning
// context and the backend ports it calls into.
package ports

import (
	"context"
	"time"
)

const (
	// UserTypeVenue marks a profile as a venue owner.
	UserTypeVenue = "venue"
	// SubscriptionActive is the venue subscription status set on provisioning.
	SubscriptionActive = "active"
	// InitialCredits is granted to every newly provisioned venue account.
	InitialCredits = 100
	// SubscriptionTerm is how long the initial subscription runs.
	SubscriptionTerm = 365 * 24 * time.Hour
	// MinPasswordLength is the shortest accepted password, in UTF-16 code units.
	MinPasswordLength = 6
)

// Collection names on the record backend.
const (
	ProfilesCollection = "profiles"
	VenuesCollection   = "venues"
)

// ProvisionInput is the caller's request.
type ProvisionInput struct {
	Email    string `validate:"required"`
	Password string `validate:"required,utf16min=6"`
	VenueID  string `validate:"required"`
}

// ProvisionResult is returned on full success.
type ProvisionResult struct {
	UserID string
}

// Identity is the login record created by the identity backend.
type Identity struct {
	ID             string
	Email          string
	EmailConfirmed bool
}

// ProfileUpdate is the partial field set written to the profile row.
type ProfileUpdate struct {
	UserType    string `json:"user_type"`
	VenueID     string `json:"venue_id"`
	IsActive    bool   `json:"is_active"`
	DisplayName string `json:"display_name"`
}

// VenueUpdate is the partial field set written to the venue row.
type VenueUpdate struct {
	OwnerUserID           string    `json:"owner_user_id"`
	Credits               int       `json:"credits"`
	SubscriptionStatus    string    `json:"subscription_status"`
	SubscriptionExpiresAt time.Time `json:"subscription_expires_at"`
}

// IdentityAdmin creates and removes login identities with administrative rights.
type IdentityAdmin interface {
	// CreateIdentity creates an identity whose email is already confirmed.
	CreateIdentity(ctx context.Context, email, password string) (Identity, error)
	// DeleteIdentity removes the identity with the given id.
	DeleteIdentity(ctx context.Context, id string) error
}

// RecordStore updates existing rows by id. Updating a row that does not
// exist is an error.
type RecordStore interface {
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) error
	UpdateVenue(ctx context.Context, id string, update VenueUpdate) error
}

// Provisioner is what the HTTP layer and other modules depend on.
type Provisioner interface {
	Provision(ctx context.Context, input ProvisionInput) (ProvisionResult, error)
}
