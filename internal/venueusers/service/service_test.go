package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"venue_backend/internal/events"
	"venue_backend/internal/venueusers/ports"
	"venue_backend/platform/apperr"
	"venue_backend/platform/logger"
	"venue_backend/platform/validator"
)

const (
	testEmail    = "owner@venue.test"
	testPassword = "hunter22"
	testVenueID  = "venue-123"
)

type fakeIdentities struct {
	mu        sync.Mutex
	byID      map[string]string // id -> email
	seq       int
	createErr error
	deleteErr error
	deleted   []string
}

func newFakeIdentities() *fakeIdentities {
	return &fakeIdentities{byID: make(map[string]string)}
}

func (f *fakeIdentities) CreateIdentity(_ context.Context, email, _ string) (ports.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return ports.Identity{}, f.createErr
	}
	for _, existing := range f.byID {
		if existing == email {
			return ports.Identity{}, errors.New("A user with this email address has already been registered")
		}
	}
	f.seq++
	id := fmt.Sprintf("user-%d", f.seq)
	f.byID[id] = email
	return ports.Identity{ID: id, Email: email, EmailConfirmed: true}, nil
}

func (f *fakeIdentities) DeleteIdentity(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeIdentities) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

type fakeRecords struct {
	profileErr error
	venueErr   error
	// knownVenues, when set, limits which venue ids an update matches.
	knownVenues map[string]bool
	profiles   map[string]ports.ProfileUpdate
	venues     map[string]ports.VenueUpdate
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{
		profiles: make(map[string]ports.ProfileUpdate),
		venues:   make(map[string]ports.VenueUpdate),
	}
}

func (f *fakeRecords) UpdateProfile(_ context.Context, id string, update ports.ProfileUpdate) error {
	if f.profileErr != nil {
		return f.profileErr
	}
	f.profiles[id] = update
	return nil
}

func (f *fakeRecords) UpdateVenue(_ context.Context, id string, update ports.VenueUpdate) error {
	if f.venueErr != nil {
		return f.venueErr
	}
	if f.knownVenues != nil && !f.knownVenues[id] {
		return apperr.NotFound("record not found")
	}
	f.venues[id] = update
	return nil
}

type capturingBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *capturingBus) Publish(_ context.Context, e events.Event) { b.record(e) }
func (b *capturingBus) PublishSync(_ context.Context, e events.Event) error {
	b.record(e)
	return nil
}
func (b *capturingBus) Subscribe(string, events.Handler) {}

func (b *capturingBus) record(e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, e)
}

func (b *capturingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.published))
	for _, e := range b.published {
		names = append(names, e.EventName())
	}
	return names
}

type fixture struct {
	svc        *Service
	identities *fakeIdentities
	records    *fakeRecords
	bus        *capturingBus
	now        time.Time
}

func newFixture() *fixture {
	f := &fixture{
		identities: newFakeIdentities(),
		records:    newFakeRecords(),
		bus:        &capturingBus{},
		now:        time.Date(2026, 3, 14, 9, 26, 53, 589_793_238, time.UTC),
	}
	f.svc = New(f.identities, f.records, validator.New(), f.bus, logger.Discard())
	f.svc.SetClock(func() time.Time { return f.now })
	return f
}

func validInput() ports.ProvisionInput {
	return ports.ProvisionInput{Email: testEmail, Password: testPassword, VenueID: testVenueID}
}

func requireStageError(t *testing.T, err error, stage, prefix string) {
	t.Helper()
	domainErr, ok := apperr.As(err)
	if !ok {
		t.Fatalf("expected *apperr.Error, got %T: %v", err, err)
	}
	if domainErr.Kind != apperr.KindInternal || domainErr.Op != stage {
		t.Fatalf("expected internal error at %s, got kind=%d op=%s", stage, domainErr.Kind, domainErr.Op)
	}
	if !strings.HasPrefix(domainErr.Message, prefix) {
		t.Fatalf("expected message prefix %q, got %q", prefix, domainErr.Message)
	}
}

func TestProvisionSuccess(t *testing.T) {
	f := newFixture()

	result, err := f.svc.Provision(context.Background(), validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.UserID != "user-1" {
		t.Fatalf("expected user-1, got %q", result.UserID)
	}

	profile := f.records.profiles["user-1"]
	want := ports.ProfileUpdate{UserType: "venue", VenueID: testVenueID, IsActive: true, DisplayName: "Venue User venue-123"}
	if profile != want {
		t.Fatalf("unexpected profile update %#v", profile)
	}

	venue := f.records.venues[testVenueID]
	if venue.OwnerUserID != "user-1" || venue.Credits != 100 || venue.SubscriptionStatus != "active" {
		t.Fatalf("unexpected venue update %#v", venue)
	}
	wantExpiry := f.now.Add(365 * 24 * 60 * 60 * 1000 * time.Millisecond).Truncate(time.Millisecond)
	if !venue.SubscriptionExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expected expiry %s, got %s", wantExpiry, venue.SubscriptionExpiresAt)
	}

	if len(f.identities.deleted) != 0 {
		t.Fatalf("no identity should be deleted on success, got %v", f.identities.deleted)
	}
	if names := f.bus.names(); len(names) != 1 || names[0] != "venueusers.user.provisioned" {
		t.Fatalf("expected provisioned event, got %v", names)
	}
}

func TestProvisionValidation(t *testing.T) {
	cases := []struct {
		name    string
		input   ports.ProvisionInput
		message string
	}{
		{"missing email", ports.ProvisionInput{Password: testPassword, VenueID: testVenueID}, msgMissingFields},
		{"missing password", ports.ProvisionInput{Email: testEmail, VenueID: testVenueID}, msgMissingFields},
		{"missing venue", ports.ProvisionInput{Email: testEmail, Password: testPassword}, msgMissingFields},
		{"missing and short", ports.ProvisionInput{Password: "abc", VenueID: testVenueID}, msgMissingFields},
		{"short password", ports.ProvisionInput{Email: testEmail, Password: "12345", VenueID: testVenueID}, msgPasswordTooShort},
		{"short astral password", ports.ProvisionInput{Email: testEmail, Password: "𝄞𝄞", VenueID: testVenueID}, msgPasswordTooShort},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.svc.Provision(context.Background(), tc.input)

			if !apperr.Is(err, apperr.KindValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			domainErr, _ := apperr.As(err)
			if domainErr.Message != tc.message {
				t.Fatalf("expected %q, got %q", tc.message, domainErr.Message)
			}
			if f.identities.seq != 0 {
				t.Fatal("validation failures must not reach the identity backend")
			}
		})
	}
}

func TestProvisionSixCharacterPasswordIsAccepted(t *testing.T) {
	f := newFixture()
	input := validInput()
	input.Password = "123456"

	if _, err := f.svc.Provision(context.Background(), input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestProvisionPasswordLengthCountsUTF16Units(t *testing.T) {
	f := newFixture()
	input := validInput()
	// Three runes outside the BMP encode to six UTF-16 code units.
	input.Password = "𝄞𝄞𝄞"

	if _, err := f.svc.Provision(context.Background(), input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestProvisionIdentityFailureNeedsNoRollback(t *testing.T) {
	f := newFixture()
	f.identities.createErr = errors.New("email rate limit exceeded")

	_, err := f.svc.Provision(context.Background(), validInput())

	requireStageError(t, err, StageCreateIdentity, "Error creating user: email rate limit exceeded")
	if len(f.identities.deleted) != 0 {
		t.Fatalf("nothing to roll back, got deletes %v", f.identities.deleted)
	}
	if len(f.records.profiles) != 0 || len(f.records.venues) != 0 {
		t.Fatal("records must not be touched")
	}
}

func TestProvisionProfileFailureDeletesIdentity(t *testing.T) {
	f := newFixture()
	f.records.profileErr = errors.New("permission denied for table profiles")

	_, err := f.svc.Provision(context.Background(), validInput())

	requireStageError(t, err, StageUpdateProfile, "Error updating profile: permission denied")
	if len(f.identities.deleted) != 1 || f.identities.deleted[0] != "user-1" {
		t.Fatalf("expected user-1 deleted, got %v", f.identities.deleted)
	}
	if f.identities.count() != 0 {
		t.Fatal("identity store should be empty after rollback")
	}
	if len(f.records.venues) != 0 {
		t.Fatal("venue must not be updated after profile failure")
	}

	f.records.profileErr = nil
	result, err := f.svc.Provision(context.Background(), validInput())
	if err != nil {
		t.Fatalf("retry with same email should succeed, got %v", err)
	}
	if result.UserID != "user-2" {
		t.Fatalf("expected fresh identity, got %q", result.UserID)
	}
}

func TestProvisionVenueFailureDeletesIdentity(t *testing.T) {
	f := newFixture()
	f.records.venueErr = apperr.NotFound("venue not found")

	_, err := f.svc.Provision(context.Background(), validInput())

	requireStageError(t, err, StageUpdateVenue, "Error updating venue: venue not found")
	if len(f.identities.deleted) != 1 || f.identities.deleted[0] != "user-1" {
		t.Fatalf("expected user-1 deleted, got %v", f.identities.deleted)
	}
	if _, ok := f.records.profiles["user-1"]; !ok {
		t.Fatal("profile update is intentionally left in place")
	}
}

func TestProvisionUnknownVenueRollsBackIdentity(t *testing.T) {
	f := newFixture()
	f.records.knownVenues = map[string]bool{"venue-other": true}

	_, err := f.svc.Provision(context.Background(), validInput())

	requireStageError(t, err, StageUpdateVenue, "Error updating venue: record not found")
	if len(f.identities.deleted) != 1 || f.identities.deleted[0] != "user-1" {
		t.Fatalf("expected user-1 deleted, got %v", f.identities.deleted)
	}
	if f.identities.count() != 0 {
		t.Fatal("identity store should be empty after rollback")
	}
	if len(f.records.venues) != 0 {
		t.Fatalf("no venue should be updated, got %v", f.records.venues)
	}
	for _, name := range f.bus.names() {
		if name == (events.VenueUserProvisioned{}).EventName() {
			t.Fatal("provisioned event must not be published on rollback")
		}
	}
}

func TestRepeatedProfileFailuresLeaveNoIdentities(t *testing.T) {
	f := newFixture()
	f.records.profileErr = errors.New("profile trigger missing")

	for i := 0; i < 2; i++ {
		if _, err := f.svc.Provision(context.Background(), validInput()); err == nil {
			t.Fatalf("attempt %d: expected failure", i+1)
		}
	}

	if f.identities.count() != 0 {
		t.Fatalf("expected no residual identities, got %d", f.identities.count())
	}
	if len(f.identities.deleted) != 2 || f.identities.deleted[0] == f.identities.deleted[1] {
		t.Fatalf("each attempt must delete its own identity, got %v", f.identities.deleted)
	}
}

func TestFailedCompensationKeepsOriginalErrorAndReportsOrphan(t *testing.T) {
	f := newFixture()
	f.records.venueErr = errors.New("connection reset")
	f.identities.deleteErr = errors.New("admin api unavailable")

	_, err := f.svc.Provision(context.Background(), validInput())

	requireStageError(t, err, StageUpdateVenue, "Error updating venue: connection reset")

	f.bus.mu.Lock()
	defer f.bus.mu.Unlock()
	if len(f.bus.published) != 1 {
		t.Fatalf("expected one orphan event, got %d", len(f.bus.published))
	}
	orphan, ok := f.bus.published[0].(events.IdentityOrphaned)
	if !ok {
		t.Fatalf("expected IdentityOrphaned, got %T", f.bus.published[0])
	}
	if orphan.IdentityID != "user-1" || orphan.Stage != StageUpdateVenue || orphan.VenueID != testVenueID {
		t.Fatalf("unexpected orphan event %#v", orphan)
	}
	if !strings.Contains(orphan.Reason, "admin api unavailable") {
		t.Fatalf("expected delete failure in reason, got %q", orphan.Reason)
	}
}

func TestSubscriptionExpiryIsExactlyOneYearOfDays(t *testing.T) {
	start := time.Date(2027, 12, 31, 23, 0, 0, 123_456_789, time.FixedZone("CET", 3600))
	got := SubscriptionExpiry(start)

	if got.Location() != time.UTC {
		t.Fatalf("expected UTC, got %s", got.Location())
	}
	if got.Sub(start.Truncate(time.Millisecond)) != 365*24*time.Hour {
		t.Fatalf("expected 365 days, got %s", got.Sub(start))
	}
	if got.Nanosecond()%int(time.Millisecond) != 0 {
		t.Fatalf("expected millisecond precision, got %d ns", got.Nanosecond())
	}
}
