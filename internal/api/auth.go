package api

import (
	"context"
	"net/http"

	"github.com/hirehub/portal/internal/account"
)

type sessionPayload struct {
	User         account.Snapshot `json:"user"`
	AccessToken  string           `json:"accessToken"`
	RefreshToken string           `json:"refreshToken"`
}

// SignupInput is the account creation form.
type SignupInput struct {
	Email    string           `json:"email"`
	Password string           `json:"password"`
	Name     string           `json:"name,omitempty"`
	UserType account.UserType `json:"userType"`
}

// Login exchanges credentials for a session and keeps the tokens.
func (c *Client) Login(ctx context.Context, email, password string) (account.Snapshot, error) {
	var out sessionPayload
	err := c.call(ctx, request{
		method: http.MethodPost,
		path:   "/auth/login",
		body:   map[string]string{"email": email, "password": password},
	}, &out)
	if err != nil {
		return account.Snapshot{}, err
	}
	c.SetTokens(Tokens{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken})
	return out.User, nil
}

// Signup creates an account and starts a session for it.
func (c *Client) Signup(ctx context.Context, in SignupInput) (account.Snapshot, error) {
	var out sessionPayload
	if err := c.call(ctx, request{method: http.MethodPost, path: "/auth/signup", body: in}, &out); err != nil {
		return account.Snapshot{}, err
	}
	c.SetTokens(Tokens{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken})
	return out.User, nil
}

// Logout invalidates the session server-side. Tokens are dropped whatever
// the outcome.
func (c *Client) Logout(ctx context.Context) error {
	defer c.ClearTokens()
	c.mu.RLock()
	refreshToken := c.tokens.RefreshToken
	c.mu.RUnlock()
	return c.call(ctx, request{
		method:    http.MethodPost,
		path:      "/auth/logout",
		body:      map[string]string{"refreshToken": refreshToken},
		protected: true,
	}, nil)
}

// CurrentAccount fetches the account snapshot for the session.
func (c *Client) CurrentAccount(ctx context.Context) (account.Snapshot, error) {
	var snap account.Snapshot
	err := c.call(ctx, request{method: http.MethodGet, path: "/auth/me", protected: true}, &snap)
	return snap, err
}

// ResendEmailVerification asks the backend to send a new verification mail.
func (c *Client) ResendEmailVerification(ctx context.Context) error {
	return c.call(ctx, request{method: http.MethodPost, path: "/auth/verify-email/resend", protected: true}, nil)
}

// VerifyEmail confirms an email verification token.
func (c *Client) VerifyEmail(ctx context.Context, token string) (account.Snapshot, error) {
	var snap account.Snapshot
	err := c.call(ctx, request{
		method:    http.MethodPost,
		path:      "/auth/verify-email",
		body:      map[string]string{"token": token},
		protected: true,
	}, &snap)
	return snap, err
}
