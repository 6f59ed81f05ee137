package supabase

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/supabase-community/gotrue-go/types"
)

// User is the subset of the auth user record this service reads.
type User struct {
	ID    string
	Email string
}

// CreateConfirmedUser creates a user whose email needs no confirmation.
func (c *Client) CreateConfirmedUser(ctx context.Context, email, password string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	resp, err := c.auth.AdminCreateUser(types.AdminCreateUserRequest{
		Email:        email,
		Password:     &password,
		EmailConfirm: true,
	})
	if err != nil {
		return User{}, parseAuthError(err)
	}
	if resp == nil || resp.ID == uuid.Nil {
		return User{}, fmt.Errorf("create user: response has no id")
	}
	return User{ID: resp.ID.String(), Email: resp.Email}, nil
}

// DeleteUser removes a user through the admin API.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	userID, err := uuid.Parse(id)
	if err != nil {
		return &APIError{Status: http.StatusNotFound, Message: "user not found", Err: err}
	}
	return parseAuthError(c.auth.AdminDeleteUser(types.AdminDeleteUserRequest{UserID: userID}))
}
