package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"venue_backend/internal/events"
	"venue_backend/internal/venueusers/ports"
	"venue_backend/platform/apperr"
	"venue_backend/platform/logger"
	"venue_backend/platform/saga"
	"venue_backend/platform/validator"
)

// Provisioning stages, in execution order.
const (
	StageCreateIdentity = "create_identity"
	StageUpdateProfile  = "update_profile"
	StageUpdateVenue    = "update_venue"
)

const (
	msgMissingFields    = "Missing required fields: email, password, venueId"
	msgPasswordTooShort = "Password must be at least 6 characters long"
)

var stageMessages = map[string]string{
	StageCreateIdentity: "Error creating user",
	StageUpdateProfile:  "Error updating profile",
	StageUpdateVenue:    "Error updating venue",
}

type Service struct {
	identities ports.IdentityAdmin
	records    ports.RecordStore
	val        *validator.Validator
	bus        events.Bus
	log        *logger.Logger
	now        func() time.Time
}

func New(identities ports.IdentityAdmin, records ports.RecordStore, val *validator.Validator, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		identities: identities,
		records:    records,
		val:        val,
		bus:        bus,
		log:        log,
		now:        time.Now,
	}
}

// SetClock replaces the time source used for the subscription expiry.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Provision creates the identity, attaches it to its profile as a venue owner
// and activates the venue. If a step after identity creation fails, the
// identity is deleted. The profile is not reverted when the venue step fails.
func (s *Service) Provision(ctx context.Context, input ports.ProvisionInput) (ports.ProvisionResult, error) {
	log := s.log.WithContext(ctx)

	if err := s.validate(input); err != nil {
		log.ProvisioningEvent("validate", input.Email, input.VenueID, false, err.Error())
		return ports.ProvisionResult{}, err
	}

	var identity ports.Identity
	run := saga.New(
		saga.Step{
			Name: StageCreateIdentity,
			Action: func(ctx context.Context) error {
				created, err := s.identities.CreateIdentity(ctx, input.Email, input.Password)
				if err != nil {
					return err
				}
				identity = created
				return nil
			},
			Compensate: func(ctx context.Context) error {
				return s.identities.DeleteIdentity(ctx, identity.ID)
			},
		},
		saga.Step{
			Name: StageUpdateProfile,
			Action: func(ctx context.Context) error {
				return s.records.UpdateProfile(ctx, identity.ID, ports.ProfileUpdate{
					UserType:    ports.UserTypeVenue,
					VenueID:     input.VenueID,
					IsActive:    true,
					DisplayName: PlaceholderDisplayName(input.VenueID),
				})
			},
		},
		saga.Step{
			Name: StageUpdateVenue,
			Action: func(ctx context.Context) error {
				return s.records.UpdateVenue(ctx, input.VenueID, ports.VenueUpdate{
					OwnerUserID:           identity.ID,
					Credits:               ports.InitialCredits,
					SubscriptionStatus:    ports.SubscriptionActive,
					SubscriptionExpiresAt: SubscriptionExpiry(s.now()),
				})
			},
		},
	)
	run.OnCompensationError = func(step string, err error) {
		log.CompensationFailed(step, identity.ID, err)
	}

	if err := run.Run(ctx); err != nil {
		return ports.ProvisionResult{}, s.handleFailure(ctx, log, input, identity, err)
	}

	log.ProvisioningEvent("complete", input.Email, input.VenueID, true, "")
	if s.bus != nil {
		s.bus.Publish(ctx, events.VenueUserProvisioned{
			BaseEvent: events.NewBaseEvent(),
			UserID:    identity.ID,
			VenueID:   input.VenueID,
			Email:     input.Email,
		})
	}

	return ports.ProvisionResult{UserID: identity.ID}, nil
}

func (s *Service) validate(input ports.ProvisionInput) error {
	err := s.val.Struct(input)
	if err == nil {
		return nil
	}

	tags := validator.FailedTags(err)
	switch {
	case len(tags["required"]) > 0:
		return apperr.Validation(msgMissingFields)
	case len(tags[validator.TagUTF16Min]) > 0:
		return apperr.Validation(msgPasswordTooShort)
	default:
		return apperr.Wrap(apperr.KindValidation, "invalid request", err)
	}
}

func (s *Service) handleFailure(ctx context.Context, log *logger.Logger, input ports.ProvisionInput, identity ports.Identity, err error) error {
	var stepErr *saga.StepError
	if !errors.As(err, &stepErr) {
		return err
	}

	log.ProvisioningEvent(stepErr.Step, input.Email, input.VenueID, false, stepErr.Err.Error())

	if len(stepErr.CompensationErrs) > 0 && s.bus != nil {
		orphaned := events.IdentityOrphaned{
			BaseEvent:  events.NewBaseEvent(),
			IdentityID: identity.ID,
			Email:      input.Email,
			VenueID:    input.VenueID,
			Stage:      stepErr.Step,
			Reason:     errors.Join(stepErr.CompensationErrs...).Error(),
		}
		if pubErr := s.bus.PublishSync(context.WithoutCancel(ctx), orphaned); pubErr != nil {
			log.Error("failed to record orphaned identity", "identity_id", identity.ID, "error", pubErr)
		}
	}

	message := fmt.Sprintf("%s: %s", stageMessages[stepErr.Step], causeMessage(stepErr.Err))
	return apperr.Wrap(apperr.KindInternal, message, stepErr.Err).WithOp(stepErr.Step)
}

func causeMessage(err error) string {
	if domainErr, ok := apperr.As(err); ok {
		return domainErr.Message
	}
	return err.Error()
}

// PlaceholderDisplayName is the name given to a freshly provisioned venue profile.
func PlaceholderDisplayName(venueID string) string {
	return "Venue User " + venueID
}

// SubscriptionExpiry returns the end of the initial subscription started at now,
// in UTC with millisecond precision.
func SubscriptionExpiry(now time.Time) time.Time {
	return now.UTC().Add(ports.SubscriptionTerm).Truncate(time.Millisecond)
}

var _ ports.Provisioner = (*Service)(nil)
