package account

import (
	"encoding/json"
	"strings"
)

// UserType identifies which side of the marketplace an account belongs to.
type UserType string

const (
	UserTypeIndividual UserType = "individual"
	UserTypeEmployer   UserType = "employer"
	UserTypeAdmin      UserType = "admin"
)

// VerificationStatus is the server-authoritative KYC state. The client only
// reads it; transitions happen on the backend.
type VerificationStatus string

const (
	StatusDraft           VerificationStatus = "draft"
	StatusPaymentVerified VerificationStatus = "payment_verified"
	StatusSubmitted       VerificationStatus = "submitted"
	StatusUnderReview     VerificationStatus = "under_review"
	StatusVerified        VerificationStatus = "verified"
	StatusRejected        VerificationStatus = "rejected"
	StatusSuspended       VerificationStatus = "suspended"
)

var knownStatuses = map[VerificationStatus]struct{}{
	StatusDraft:           {},
	StatusPaymentVerified: {},
	StatusSubmitted:       {},
	StatusUnderReview:     {},
	StatusVerified:        {},
	StatusRejected:        {},
	StatusSuspended:       {},
}

// Known reports whether the status is one this client understands.
func (s VerificationStatus) Known() bool {
	_, ok := knownStatuses[s]
	return ok
}

// UnmarshalJSON normalises case and whitespace but keeps unknown values as-is
// so callers can detect them with Known.
func (s *VerificationStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		// Non-string payloads are kept as an unknown status rather than failing
		// the whole snapshot decode.
		*s = VerificationStatus(strings.TrimSpace(string(b)))
		return nil
	}
	*s = VerificationStatus(strings.ToLower(strings.TrimSpace(raw)))
	return nil
}

// Snapshot is the client's cached view of a user's auth, verification and
// profile state. Every gating decision is made from one.
type Snapshot struct {
	ID                 string             `json:"id"`
	Email              string             `json:"email,omitempty"`
	UserType           UserType           `json:"userType"`
	EmailVerified      bool               `json:"emailVerified"`
	Phone              *string            `json:"phone,omitempty"`
	HasPreferences     bool               `json:"hasPreferences"`
	VerificationStatus VerificationStatus `json:"verificationStatus"`
	ProfileComplete    bool               `json:"profileComplete"`
	RejectedReason     *string            `json:"rejectedReason,omitempty"`
	Permissions        []string           `json:"permissions,omitempty"`
}

// HasPhone reports phone presence. Validity is not checked here.
func (s Snapshot) HasPhone() bool {
	return s.Phone != nil && strings.TrimSpace(*s.Phone) != ""
}

// HasPermission reports whether the account carries the named permission.
func (s Snapshot) HasPermission(name string) bool {
	for _, p := range s.Permissions {
		if p == name {
			return true
		}
	}
	return false
}

// IsOneOf reports whether the account's user type is in types.
func (s Snapshot) IsOneOf(types ...UserType) bool {
	for _, t := range types {
		if s.UserType == t {
			return true
		}
	}
	return false
}

// StringPtr is a small helper for building snapshots with optional fields.
func StringPtr(v string) *string {
	return &v
}
