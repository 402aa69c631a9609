package auth

import (
	"context"
	"errors"
	"time"

	"github.com/hirehub/portal/internal/identity"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// ErrInvalidToken covers every rejected token: bad signature, expiry, wrong
// kind or a version bumped by logout.
var ErrInvalidToken = errors.New("invalid token")

// Config holds token signing parameters.
type Config struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Service issues and verifies token pairs.
type Service struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	ids        *identity.Service
	now        func() time.Time
}

// NewService builds a token service.
func NewService(cfg Config, ids *identity.Service) *Service {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = defaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = defaultRefreshTTL
	}
	return &Service{
		secret:     []byte(cfg.Secret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		ids:        ids,
		now:        time.Now,
	}
}

// SetClock replaces the time source. Tests use it to expire access tokens.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// TokenPair is what login, signup and refresh return.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// Issue mints a token pair for acct.
func (s *Service) Issue(acct identity.Account) (TokenPair, error) {
	now := s.now()
	access, err := sign(s.secret, acct.ID, kindAccess, acct.TokenVersion, now, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := sign(s.secret, acct.ID, kindRefresh, acct.TokenVersion, now, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: int64(s.accessTTL.Seconds())}, nil
}

// Refresh verifies a refresh token and rotates the pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	acct, err := s.verify(ctx, refreshToken, kindRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	return s.Issue(acct)
}

// Authenticate resolves the account behind an access token.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (identity.Account, error) {
	return s.verify(ctx, accessToken, kindAccess)
}

// Logout bumps the token version so older tokens become invalid.
func (s *Service) Logout(ctx context.Context, accountID string) error {
	return s.ids.BumpTokenVersion(ctx, accountID)
}

func (s *Service) verify(ctx context.Context, token, kind string) (identity.Account, error) {
	claims, err := parse(s.secret, token, kind, s.now)
	if err != nil {
		return identity.Account{}, ErrInvalidToken
	}
	acct, err := s.ids.Get(ctx, claims.Subject)
	if errors.Is(err, identity.ErrNotFound) {
		return identity.Account{}, ErrInvalidToken
	}
	if err != nil {
		return identity.Account{}, err
	}
	if acct.TokenVersion != claims.Version {
		return identity.Account{}, ErrInvalidToken
	}
	return acct, nil
}
