package identity

import (
	"time"

	"github.com/hirehub/portal/internal/account"
)

// Account is a registered marketplace account as the dev backend stores it.
type Account struct {
	ID                 string
	Email              string
	Name               string
	UserType           account.UserType
	PasswordHash       []byte
	EmailVerified      bool
	VerifyToken        string
	Phone              string
	HasPreferences     bool
	VerificationStatus account.VerificationStatus
	ProfileComplete    bool
	RejectedReason     string
	Permissions        []string
	TokenVersion       int
	CreatedAt          time.Time
}

// Snapshot returns the account as the portal sees it.
func (a Account) Snapshot() account.Snapshot {
	snap := account.Snapshot{
		ID:                 a.ID,
		Email:              a.Email,
		UserType:           a.UserType,
		EmailVerified:      a.EmailVerified,
		HasPreferences:     a.HasPreferences,
		VerificationStatus: a.VerificationStatus,
		ProfileComplete:    a.ProfileComplete,
		Permissions:        append([]string(nil), a.Permissions...),
	}
	if a.Phone != "" {
		snap.Phone = account.StringPtr(a.Phone)
	}
	if a.RejectedReason != "" {
		snap.RejectedReason = account.StringPtr(a.RejectedReason)
	}
	return snap
}

// Credentials request structure.
type Credentials struct {
	Email    string
	Password string
}

// Registration is the signup form.
type Registration struct {
	Email    string
	Password string
	Name     string
	UserType account.UserType
}

// Changes updates onboarding attributes. Nil fields are left alone.
type Changes struct {
	Phone              *string
	HasPreferences     *bool
	VerificationStatus *account.VerificationStatus
	ProfileComplete    *bool
	RejectedReason     *string
	Permissions        []string
}
