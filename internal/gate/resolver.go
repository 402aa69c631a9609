package gate

import (
	"io"
	"log/slog"

	"github.com/hirehub/portal/internal/account"
)

// Resolver maps an account snapshot to the next required onboarding step.
// It performs no I/O besides logging and never panics on backend data.
type Resolver struct {
	logger *slog.Logger
}

// NewResolver builds a resolver. A nil logger discards output.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Resolver{logger: logger.With("component", "gate")}
}

// Resolve returns the first matching step for snap; nil means not
// authenticated. Rules are evaluated strictly in order: email, then phone,
// then preferences, and only then the verification status.
func (r *Resolver) Resolve(snap *account.Snapshot) Step {
	if snap == nil {
		return StepLogin
	}

	status := snap.VerificationStatus

	// A verified account is never re-gated, even on inconsistent data.
	if status == account.StatusVerified {
		return StepNone
	}

	if !snap.EmailVerified {
		return StepVerifyEmail
	}
	if !snap.HasPhone() {
		return StepContactDetails
	}
	if snap.UserType == account.UserTypeIndividual && !snap.HasPreferences {
		return StepIntent
	}

	if !status.Known() {
		r.logger.Warn("unrecognised verification status",
			slog.String("account_id", snap.ID),
			slog.String("status", string(status)),
			slog.String("user_type", string(snap.UserType)),
		)
		return StepNone
	}

	switch {
	case snap.UserType == account.UserTypeEmployer && status == account.StatusDraft:
		return StepEmployerPayment
	case snap.UserType == account.UserTypeIndividual && status == account.StatusDraft:
		return StepKyc
	case snap.UserType == account.UserTypeEmployer && status == account.StatusPaymentVerified:
		if !snap.ProfileComplete {
			return StepEmployerCompanyProfile
		}
		return StepKyc
	case status == account.StatusSubmitted, status == account.StatusUnderReview:
		return StepVerificationPending
	case status == account.StatusRejected:
		return StepVerificationRejected
	case status == account.StatusSuspended:
		return StepAccountSuspended
	}

	return StepNone
}
