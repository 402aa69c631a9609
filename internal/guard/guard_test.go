package guard

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hirehub/portal/internal/account"
	"github.com/hirehub/portal/internal/gate"
)

type mockNavigator struct {
	mock.Mock
}

func (m *mockNavigator) Redirect(target string) error {
	args := m.Called(target)
	return args.Error(0)
}

func snapshot(userType account.UserType, status account.VerificationStatus) *account.Snapshot {
	return &account.Snapshot{
		ID:                 "acc-7",
		UserType:           userType,
		EmailVerified:      true,
		Phone:              account.StringPtr("+919800000000"),
		HasPreferences:     true,
		VerificationStatus: status,
	}
}

func authed(snap *account.Snapshot) State {
	return State{Authenticated: true, Account: snap}
}

func TestDecideLoadingNeverNavigates(t *testing.T) {
	g := New(gate.NewResolver(nil))
	d := g.Decide(State{Loading: true}, "/dashboard")
	assert.Equal(t, ActionLoading, d.Action)

	nav := &mockNavigator{}
	require.NoError(t, Enforce(d, nav))
	nav.AssertNotCalled(t, "Redirect", mock.Anything)
}

func TestDecideUnauthenticatedCarriesRedirect(t *testing.T) {
	g := New(gate.NewResolver(nil))

	d := g.Decide(State{}, "/jobs/42?tab=apply")
	assert.Equal(t, ActionRedirect, d.Action)
	assert.Equal(t, "/login?redirect=%2Fjobs%2F42%3Ftab%3Dapply", d.Target)

	d = g.Decide(State{}, "/jobs/[id]")
	assert.Equal(t, "/login", d.Target)
}

func TestDecidePermission(t *testing.T) {
	g := New(gate.NewResolver(nil), WithPermission("jobs:post"))

	snap := snapshot(account.UserTypeEmployer, account.StatusVerified)
	d := g.Decide(authed(snap), "/jobs/new")
	assert.Equal(t, Decision{Action: ActionRedirect, Target: gate.PathUnauthorized}, d)

	snap.Permissions = []string{"jobs:post"}
	assert.Equal(t, ActionRender, g.Decide(authed(snap), "/jobs/new").Action)
}

func TestDecideRedirectsToRequiredStep(t *testing.T) {
	g := New(gate.NewResolver(nil))
	snap := snapshot(account.UserTypeEmployer, account.StatusDraft)

	d := g.Decide(authed(snap), "/dashboard")
	assert.Equal(t, ActionRedirect, d.Action)
	assert.Equal(t, gate.PathEmployerPayment, d.Target)
	assert.Equal(t, gate.StepEmployerPayment, d.Step)
}

func TestDecideRendersOnStepTargetAndSubPaths(t *testing.T) {
	g := New(gate.NewResolver(nil))
	snap := snapshot(account.UserTypeIndividual, account.StatusDraft)

	for _, loc := range []string{"/kyc", "/kyc/", "/kyc/documents", "/kyc?step=2"} {
		assert.Equal(t, ActionRender, g.Decide(authed(snap), loc).Action, loc)
	}
	assert.Equal(t, ActionRedirect, g.Decide(authed(snap), "/kycx").Action)
}

func TestRejectedOnResubmitViewDoesNotNavigate(t *testing.T) {
	g := New(gate.NewResolver(nil))
	snap := snapshot(account.UserTypeIndividual, account.StatusRejected)
	snap.RejectedReason = account.StringPtr("blurry document")

	d := g.Decide(authed(snap), gate.PathKycResubmit)
	assert.Equal(t, ActionRender, d.Action)

	nav := &mockNavigator{}
	require.NoError(t, Enforce(d, nav))
	nav.AssertNotCalled(t, "Redirect", mock.Anything)

	d = g.Decide(authed(snap), gate.PathKyc)
	assert.Equal(t, gate.PathVerificationRejected, d.Target)
	nav.On("Redirect", gate.PathVerificationRejected).Return(nil).Once()
	require.NoError(t, Enforce(d, nav))
	nav.AssertExpectations(t)
}

func TestResolverRedirectPreemptsUserTypeCheck(t *testing.T) {
	g := New(gate.NewResolver(nil), WithUserTypes(account.UserTypeIndividual))
	snap := snapshot(account.UserTypeEmployer, account.StatusDraft)

	d := g.Decide(authed(snap), "/profile/wizard")
	assert.Equal(t, gate.PathEmployerPayment, d.Target)

	snap.VerificationStatus = account.StatusVerified
	d = g.Decide(authed(snap), "/profile/wizard")
	assert.Equal(t, gate.PathUnauthorized, d.Target)
}

func TestAdminExcludedByDefault(t *testing.T) {
	snap := snapshot(account.UserTypeAdmin, account.StatusVerified)

	d := New(gate.NewResolver(nil)).Decide(authed(snap), "/dashboard")
	assert.Equal(t, gate.PathUnauthorized, d.Target)

	d = New(gate.NewResolver(nil), WithUserTypes()).Decide(authed(snap), "/dashboard")
	assert.Equal(t, ActionRender, d.Action)
}

func TestDecideIsIdempotent(t *testing.T) {
	g := New(gate.NewResolver(nil))
	st := authed(snapshot(account.UserTypeIndividual, account.StatusSubmitted))
	assert.Equal(t, g.Decide(st, "/dashboard"), g.Decide(st, "/dashboard"))
}

func TestSafeRedirect(t *testing.T) {
	assert.Equal(t, "/jobs/1", SafeRedirect("/jobs/1", "/dashboard"))
	assert.Equal(t, "/dashboard", SafeRedirect("https://evil.example", "/dashboard"))
	assert.Equal(t, "/dashboard", SafeRedirect("//evil.example", "/dashboard"))
	assert.Equal(t, "/dashboard", SafeRedirect("/jobs/[id]", "/dashboard"))
	assert.Equal(t, "/dashboard", SafeRedirect("", "/dashboard"))
}

func TestMiddleware(t *testing.T) {
	st := State{}
	app := fiber.New()
	g := New(gate.NewResolver(nil))
	app.Get("/dashboard", g.Middleware(func(*fiber.Ctx) State { return st }), func(c *fiber.Ctx) error {
		return c.SendString("dashboard")
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/dashboard", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login?redirect=%2Fdashboard", resp.Header.Get(fiber.HeaderLocation))

	st = State{Loading: true}
	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/dashboard", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	st = authed(snapshot(account.UserTypeIndividual, account.StatusVerified))
	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/dashboard", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
