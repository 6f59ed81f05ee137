// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"venue_backend/platform/events"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Venue User Events
// =============================================================================

// VenueUserProvisioned is published after all provisioning steps succeeded.
type VenueUserProvisioned struct {
	BaseEvent
	UserID  string `json:"userId"`
	VenueID string `json:"venueId"`
	Email   string `json:"email"`
}

func (e VenueUserProvisioned) EventName() string { return "venueusers.user.provisioned" }

// IdentityOrphaned is published when a failed provisioning could not delete
// the identity it created. The identity needs manual cleanup.
type IdentityOrphaned struct {
	BaseEvent
	IdentityID string `json:"identityId"`
	Email      string `json:"email"`
	VenueID    string `json:"venueId"`
	Stage      string `json:"stage"`
	Reason     string `json:"reason"`
}

func (e IdentityOrphaned) EventName() string { return "venueusers.identity.orphaned" }
