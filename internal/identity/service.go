package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hirehub/portal/internal/account"
	"github.com/hirehub/portal/internal/notification"
)

const minPasswordLen = 8

var (
	// ErrInvalidCredentials hides whether the email or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidToken is returned for unknown verification tokens.
	ErrInvalidToken = errors.New("invalid verification token")
	// ErrAlreadyVerified is returned when resending for a verified email.
	ErrAlreadyVerified = errors.New("email already verified")
)

// Service manages the account lifecycle.
type Service struct {
	repo     Repository
	notifier notification.Notifier
}

// NewService creates a new identity service.
func NewService(repo Repository, notifier notification.Notifier) *Service {
	return &Service{repo: repo, notifier: notifier}
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an unverified draft account and mails its verification
// token.
func (s *Service) Register(ctx context.Context, reg Registration) (Account, error) {
	email := normaliseEmail(reg.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return Account{}, fmt.Errorf("invalid email: %w", err)
	}
	if len(reg.Password) < minPasswordLen {
		return Account{}, fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}
	if reg.UserType != account.UserTypeIndividual && reg.UserType != account.UserTypeEmployer {
		return Account{}, fmt.Errorf("unsupported user type %q", reg.UserType)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, err
	}

	acct := Account{
		ID:                 uuid.New().String(),
		Email:              email,
		Name:               strings.TrimSpace(reg.Name),
		UserType:           reg.UserType,
		PasswordHash:       hash,
		VerifyToken:        uuid.NewString(),
		VerificationStatus: account.StatusDraft,
		CreatedAt:          time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, acct); err != nil {
		return Account{}, err
	}
	s.sendVerification(ctx, acct)
	return acct, nil
}

// Authenticate verifies credentials.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (Account, error) {
	acct, err := s.repo.FindByEmail(ctx, normaliseEmail(creds.Email))
	if errors.Is(err, ErrNotFound) {
		return Account{}, ErrInvalidCredentials
	}
	if err != nil {
		return Account{}, err
	}
	if err := bcrypt.CompareHashAndPassword(acct.PasswordHash, []byte(creds.Password)); err != nil {
		return Account{}, ErrInvalidCredentials
	}
	return acct, nil
}

// Get returns an account by id.
func (s *Service) Get(ctx context.Context, id string) (Account, error) {
	return s.repo.FindByID(ctx, id)
}

// FindByEmail returns an account by email.
func (s *Service) FindByEmail(ctx context.Context, email string) (Account, error) {
	return s.repo.FindByEmail(ctx, normaliseEmail(email))
}

// ResendVerification issues a fresh verification token.
func (s *Service) ResendVerification(ctx context.Context, id string) error {
	acct, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if acct.EmailVerified {
		return ErrAlreadyVerified
	}
	acct.VerifyToken = uuid.NewString()
	if err := s.repo.Update(ctx, acct); err != nil {
		return err
	}
	s.sendVerification(ctx, acct)
	return nil
}

// VerifyEmail consumes a verification token. The token must belong to the
// calling account.
func (s *Service) VerifyEmail(ctx context.Context, id, token string) (Account, error) {
	acct, err := s.repo.FindByVerifyToken(ctx, strings.TrimSpace(token))
	if errors.Is(err, ErrNotFound) || (err == nil && acct.ID != id) {
		return Account{}, ErrInvalidToken
	}
	if err != nil {
		return Account{}, err
	}
	acct.EmailVerified = true
	acct.VerifyToken = ""
	if err := s.repo.Update(ctx, acct); err != nil {
		return Account{}, err
	}
	return acct, nil
}

// Apply updates onboarding attributes of an account.
func (s *Service) Apply(ctx context.Context, id string, ch Changes) (Account, error) {
	acct, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Account{}, err
	}
	if ch.Phone != nil {
		acct.Phone = strings.TrimSpace(*ch.Phone)
	}
	if ch.HasPreferences != nil {
		acct.HasPreferences = *ch.HasPreferences
	}
	if ch.VerificationStatus != nil {
		acct.VerificationStatus = *ch.VerificationStatus
	}
	if ch.ProfileComplete != nil {
		acct.ProfileComplete = *ch.ProfileComplete
	}
	if ch.RejectedReason != nil {
		acct.RejectedReason = *ch.RejectedReason
	}
	if ch.Permissions != nil {
		acct.Permissions = ch.Permissions
	}
	if err := s.repo.Update(ctx, acct); err != nil {
		return Account{}, err
	}
	return acct, nil
}

// BumpTokenVersion invalidates every token issued so far.
func (s *Service) BumpTokenVersion(ctx context.Context, id string) error {
	acct, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	acct.TokenVersion++
	return s.repo.Update(ctx, acct)
}

func (s *Service) sendVerification(ctx context.Context, acct Account) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.Send(ctx, notification.EmailVerification(acct.Email, acct.VerifyToken))
}
