package routes

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/hirehub/portal/internal/gate"
	"github.com/hirehub/portal/internal/guard"
)

type onboardingView struct {
	path string
	name string
}

var onboardingViews = []onboardingView{
	{gate.PathVerifyEmail, "verify_email"},
	{gate.PathContactDetails, "contact_details"},
	{gate.PathIntent, "intent"},
	{gate.PathEmployerPayment, "employer_payment"},
	{gate.PathEmployerCompanyProfile, "employer_company_profile"},
	{gate.PathKyc, "kyc"},
	{gate.PathKycResubmit, "kyc_resubmit"},
	{gate.PathVerificationPending, "verification_pending"},
	{gate.PathVerificationRejected, "verification_rejected"},
	{gate.PathAccountSuspended, "account_suspended"},
	{gate.PathDashboard, "dashboard"},
}

// RegisterOnboardingRoutes wires the gated onboarding views and the email
// verification actions. Every view sits behind the default guard.
func RegisterOnboardingRoutes(app *fiber.App, d Deps) {
	protect := guard.New(d.Resolver).Middleware(sessionState)

	for _, v := range onboardingViews {
		name := v.name
		app.Get(v.path, protect, func(c *fiber.Ctx) error {
			e, err := entry(c)
			if err != nil {
				return err
			}
			st := e.Manager.State()
			body := fiber.Map{"view": name, "account": st.Account}
			if name == "verification_rejected" || name == "kyc_resubmit" {
				if st.Account != nil && st.Account.RejectedReason != nil {
					body["rejectedReason"] = *st.Account.RejectedReason
				}
			}
			return c.JSON(body)
		})
	}

	app.Post(gate.PathVerifyEmail+"/resend", protect, func(c *fiber.Ctx) error {
		e, err := entry(c)
		if err != nil {
			return err
		}
		if err := e.Manager.ResendEmailVerification(c.UserContext()); err != nil {
			return err
		}
		return c.Status(http.StatusAccepted).JSON(fiber.Map{"status": "sent"})
	})

	app.Post(gate.PathVerifyEmail+"/confirm", protect, func(c *fiber.Ctx) error {
		var req struct {
			Token string `json:"token" form:"token"`
		}
		if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Token) == "" {
			return fiber.NewError(http.StatusBadRequest, "token is required")
		}
		e, err := entry(c)
		if err != nil {
			return err
		}
		if err := e.Manager.VerifyEmail(c.UserContext(), strings.TrimSpace(req.Token)); err != nil {
			return err
		}
		st := e.Manager.State()
		return c.JSON(fiber.Map{
			"account":    st.Account,
			"redirectTo": nextLocation(d.Resolver, st, ""),
		})
	})
}
