package repository

import (
	"context"
	"errors"
	"fmt"

	"venue_backend/internal/venueusers/ports"
	"venue_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

const (
	opCreateIdentity = "repository.CreateIdentity"
	opDeleteIdentity = "repository.DeleteIdentity"
	opUpdateProfile  = "repository.UpdateProfile"
	opUpdateVenue    = "repository.UpdateVenue"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

const insertIdentityQuery = `
	INSERT INTO identities (id, email, password_hash, email_confirmed_at)
	VALUES ($1, $2, $3, now())
	RETURNING id::text, email, email_confirmed_at IS NOT NULL`

// Every identity owns a profile row from the start; provisioning only updates it.
const insertBlankProfileQuery = `
	INSERT INTO profiles (id)
	VALUES ($1)
	ON CONFLICT (id) DO NOTHING`

const deleteIdentityQuery = `DELETE FROM identities WHERE id = $1`

const updateProfileQuery = `
	UPDATE profiles
	SET user_type = $2, venue_id = $3, is_active = $4, display_name = $5, updated_at = now()
	WHERE id = $1`

const updateVenueQuery = `
	UPDATE venues
	SET owner_user_id = $2, credits = $3, subscription_status = $4, subscription_expires_at = $5, updated_at = now()
	WHERE id = $1`

// Repository is the self-hosted Postgres implementation of the identity and record ports.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateIdentity stores a pre-confirmed identity together with its blank profile.
func (r *Repository) CreateIdentity(ctx context.Context, email, password string) (ports.Identity, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return ports.Identity{}, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return ports.Identity{}, apperr.Wrap(apperr.KindInternal, "begin transaction failed", err).WithOp(opCreateIdentity)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var identity ports.Identity
	err = tx.QueryRow(ctx, insertIdentityQuery, uuid.NewString(), email, hash).Scan(
		&identity.ID,
		&identity.Email,
		&identity.EmailConfirmed,
	)
	if err != nil {
		return ports.Identity{}, mapWriteError(err, opCreateIdentity)
	}

	if _, err = tx.Exec(ctx, insertBlankProfileQuery, identity.ID); err != nil {
		return ports.Identity{}, mapWriteError(err, opCreateIdentity)
	}

	if err = tx.Commit(ctx); err != nil {
		return ports.Identity{}, apperr.Wrap(apperr.KindInternal, "commit failed", err).WithOp(opCreateIdentity)
	}

	return identity, nil
}

// DeleteIdentity removes the identity; its profile goes with it.
func (r *Repository) DeleteIdentity(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteIdentityQuery, id)
	if err != nil {
		return mapWriteError(err, opDeleteIdentity)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("user not found").WithOp(opDeleteIdentity)
	}
	return nil
}

func (r *Repository) UpdateProfile(ctx context.Context, id string, update ports.ProfileUpdate) error {
	tag, err := r.pool.Exec(ctx, updateProfileQuery, id, update.UserType, update.VenueID, update.IsActive, update.DisplayName)
	if err != nil {
		return mapWriteError(err, opUpdateProfile)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("profile not found").WithOp(opUpdateProfile)
	}
	return nil
}

func (r *Repository) UpdateVenue(ctx context.Context, id string, update ports.VenueUpdate) error {
	tag, err := r.pool.Exec(ctx, updateVenueQuery, id, update.OwnerUserID, update.Credits, update.SubscriptionStatus, update.SubscriptionExpiresAt)
	if err != nil {
		return mapWriteError(err, opUpdateVenue)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("venue not found").WithOp(opUpdateVenue)
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", apperr.Validation("password is too long").WithOp(opCreateIdentity)
	}
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "hash password failed", err).WithOp(opCreateIdentity)
	}
	return string(hash), nil
}

func mapWriteError(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperr.Wrap(apperr.KindConflict, "A user with this email address has already been registered", err).WithOp(op)
		case pgForeignKeyViolation:
			return apperr.Wrap(apperr.KindNotFound, "venue not found", err).WithOp(op)
		}
	}
	return apperr.Wrap(apperr.KindInternal, fmt.Sprintf("database error: %v", err), err).WithOp(op)
}

var (
	_ ports.IdentityAdmin = (*Repository)(nil)
	_ ports.RecordStore   = (*Repository)(nil)
)
