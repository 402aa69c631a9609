package gate

// Step names the single onboarding page an account must complete next.
// The zero value means no step is required.
type Step string

const (
	StepNone                   Step = ""
	StepLogin                  Step = "login"
	StepVerifyEmail            Step = "verify_email"
	StepContactDetails         Step = "contact_details"
	StepIntent                 Step = "intent"
	StepEmployerPayment        Step = "employer_payment"
	StepEmployerCompanyProfile Step = "employer_company_profile"
	StepKyc                    Step = "kyc"
	StepVerificationPending    Step = "verification_pending"
	StepVerificationRejected   Step = "verification_rejected"
	StepAccountSuspended       Step = "account_suspended"
)

// Paths of the onboarding views, plus the two views the guard sends users to
// outside the step table.
const (
	PathLogin                  = "/login"
	PathVerifyEmail            = "/verify-email"
	PathContactDetails         = "/onboarding/contact"
	PathIntent                 = "/onboarding/intent"
	PathEmployerPayment        = "/employer/onboarding/payment"
	PathEmployerCompanyProfile = "/employer/onboarding/company-profile"
	PathKyc                    = "/kyc"
	PathKycResubmit            = "/kyc/resubmit"
	PathVerificationPending    = "/verification/pending"
	PathVerificationRejected   = "/verification/rejected"
	PathAccountSuspended       = "/account/suspended"
	PathUnauthorized           = "/unauthorized"
	PathDashboard              = "/dashboard"
)

var stepPaths = map[Step]string{
	StepLogin:                  PathLogin,
	StepVerifyEmail:            PathVerifyEmail,
	StepContactDetails:         PathContactDetails,
	StepIntent:                 PathIntent,
	StepEmployerPayment:        PathEmployerPayment,
	StepEmployerCompanyProfile: PathEmployerCompanyProfile,
	StepKyc:                    PathKyc,
	StepVerificationPending:    PathVerificationPending,
	StepVerificationRejected:   PathVerificationRejected,
	StepAccountSuspended:       PathAccountSuspended,
}

// Path returns the view location for the step, or "" for StepNone.
func (s Step) Path() string {
	return stepPaths[s]
}

// Required reports whether the step blocks access.
func (s Step) Required() bool {
	return s != StepNone
}

// Steps lists every named step in evaluation order.
func Steps() []Step {
	return []Step{
		StepLogin,
		StepVerifyEmail,
		StepContactDetails,
		StepIntent,
		StepEmployerPayment,
		StepKyc,
		StepEmployerCompanyProfile,
		StepVerificationPending,
		StepVerificationRejected,
		StepAccountSuspended,
	}
}
