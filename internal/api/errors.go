package api

import (
	"errors"
	"fmt"
)

// CodeVerificationRequired marks a 403 that carries its own redirect target.
const CodeVerificationRequired = "VERIFICATION_REQUIRED"

var (
	// ErrSessionExpired is returned when a 401 could not be recovered by a
	// token refresh. The session must be cleared.
	ErrSessionExpired = errors.New("session expired")
	// ErrNoRefreshToken is returned by Refresh when no refresh token is held.
	ErrNoRefreshToken = errors.New("no refresh token")
)

// APIError is a non-2xx backend response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("backend %d: %s", e.Status, e.Message)
}

// VerificationRequiredError is the server-side escape hatch for gating states
// the client does not know about.
type VerificationRequiredError struct {
	RedirectTo string
	Message    string
}

func (e *VerificationRequiredError) Error() string {
	return fmt.Sprintf("verification required, redirect to %s", e.RedirectTo)
}

// StatusOf returns the HTTP status of an *APIError in err's chain, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
