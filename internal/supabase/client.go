// Package supabase adapts the hosted backend's admin auth API (gotrue-go) and
// its REST record API (postgrest-go) to the provisioning ports, authenticated
// with the service role key.
package supabase

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/postgrest-go"
)

const (
	authPath          = "/auth/v1"
	restPath          = "/rest/v1"
	restSchema        = "public"
	maxErrorBodyBytes = 32 << 10 // 32 KiB
)

// ErrNotFound is returned when a record update matched no row.
var ErrNotFound = errors.New("no matching row")

// Config holds the project endpoint and the service role key.
type Config struct {
	URL            string
	ServiceRoleKey string
}

// Client bundles the auth and REST clients of one project.
type Client struct {
	auth gotrue.Client
	rest *postgrest.Client
}

// NewClient validates cfg and builds both API clients.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("supabase: URL is required")
	}
	if cfg.ServiceRoleKey == "" {
		return nil, errors.New("supabase: service role key is required")
	}

	auth := gotrue.New("", cfg.ServiceRoleKey).
		WithCustomGoTrueURL(baseURL + authPath).
		WithToken(cfg.ServiceRoleKey)

	rest := postgrest.NewClient(baseURL+restPath, restSchema, map[string]string{
		"apikey":        cfg.ServiceRoleKey,
		"Authorization": "Bearer " + cfg.ServiceRoleKey,
	})
	if rest.ClientError != nil {
		return nil, fmt.Errorf("supabase: rest client: %w", rest.ClientError)
	}

	return &Client{auth: auth, rest: rest}, nil
}

// APIError is a non-2xx answer from the auth server.
type APIError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("supabase API error %d", e.Status)
}

func (e *APIError) Unwrap() error { return e.Err }

// gotrue-go reports failures as "response status code <n>: <body>".
var authErrorPattern = regexp.MustCompile(`(?s)^response status code (\d+)(?::\s*(.*))?$`)

// errorBody covers the shapes used by the auth server.
type errorBody struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
	Error            string `json:"error"`
	ErrorCode        string `json:"error_code"`
}

// parseAuthError turns an auth client error into an *APIError when it carries
// an HTTP status, keeping the backend's own message. Other errors are returned as is.
func parseAuthError(err error) error {
	if err == nil {
		return nil
	}
	m := authErrorPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return err
	}

	status, _ := strconv.Atoi(m[1])
	apiErr := &APIError{Status: status, Err: err}

	raw := m[2]
	truncated := len(raw) > maxErrorBodyBytes
	if truncated {
		raw = raw[:maxErrorBodyBytes]
	}

	var parsed errorBody
	if !truncated && json.Unmarshal([]byte(raw), &parsed) == nil {
		apiErr.Message = firstNonEmpty(parsed.Msg, parsed.Message, parsed.ErrorDescription, parsed.Error)
		apiErr.Code = parsed.ErrorCode
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(raw)
		if truncated {
			apiErr.Message += "...(truncated)"
		}
	}
	return apiErr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
