package guard

import (
	"net/url"
	"strings"

	"github.com/hirehub/portal/internal/account"
	"github.com/hirehub/portal/internal/gate"
)

// Action is what the guarded view should do.
type Action int

const (
	ActionRender Action = iota
	ActionRedirect
	ActionLoading
)

func (a Action) String() string {
	switch a {
	case ActionRender:
		return "render"
	case ActionRedirect:
		return "redirect"
	case ActionLoading:
		return "loading"
	default:
		return "unknown"
	}
}

// Decision is the outcome of a guard evaluation.
type Decision struct {
	Action Action
	Target string
	// Step is set when the redirect came from the gate resolver.
	Step gate.Step
}

// State is the slice of session state the guard reads.
type State struct {
	Loading       bool
	Authenticated bool
	Account       *account.Snapshot
}

// Navigator performs the navigation side effect of a decision.
type Navigator interface {
	Redirect(target string) error
}

// DefaultUserTypes is the consumer surface; administrators are excluded.
var DefaultUserTypes = []account.UserType{account.UserTypeIndividual, account.UserTypeEmployer}

// Guard enforces the gate resolver plus role and permission requirements
// declared by a view.
type Guard struct {
	resolver   *gate.Resolver
	allowed    []account.UserType
	permission string
}

// Option customises a Guard.
type Option func(*Guard)

// WithUserTypes replaces the allowed user types. Passing none disables the
// user type check.
func WithUserTypes(types ...account.UserType) Option {
	return func(g *Guard) {
		g.allowed = append([]account.UserType(nil), types...)
	}
}

// WithPermission requires the account to carry the named permission.
func WithPermission(name string) Option {
	return func(g *Guard) {
		g.permission = name
	}
}

// New builds a guard for one view.
func New(resolver *gate.Resolver, opts ...Option) *Guard {
	g := &Guard{resolver: resolver, allowed: DefaultUserTypes}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Decide evaluates the guard for the current location. location may carry a
// query string; only its path is compared against step targets. Decide has
// no side effects and returns the same decision for the same inputs.
func (g *Guard) Decide(st State, location string) Decision {
	if st.Loading {
		return Decision{Action: ActionLoading}
	}

	if !st.Authenticated {
		return Decision{Action: ActionRedirect, Target: LoginTarget(location), Step: gate.StepLogin}
	}

	if g.permission != "" && (st.Account == nil || !st.Account.HasPermission(g.permission)) {
		return Decision{Action: ActionRedirect, Target: gate.PathUnauthorized}
	}

	current := pathOf(location)
	step := g.resolver.Resolve(st.Account)
	if step.Required() {
		target := step.Path()
		// A rejected user must be able to act on the rejection.
		override := step == gate.StepVerificationRejected && within(current, gate.PathKycResubmit)
		if !override && !within(current, target) {
			if step == gate.StepLogin {
				target = LoginTarget(location)
			}
			return Decision{Action: ActionRedirect, Target: target, Step: step}
		}
	}

	if len(g.allowed) > 0 && (st.Account == nil || !st.Account.IsOneOf(g.allowed...)) {
		return Decision{Action: ActionRedirect, Target: gate.PathUnauthorized}
	}

	return Decision{Action: ActionRender}
}

// Enforce applies a decision through nav. Only redirects navigate.
func Enforce(d Decision, nav Navigator) error {
	if d.Action != ActionRedirect {
		return nil
	}
	return nav.Redirect(d.Target)
}

// LoginTarget builds the login location carrying the current location as the
// redirect parameter. Locations still holding route placeholders are dropped
// since they can never resolve.
func LoginTarget(location string) string {
	if location == "" || strings.ContainsAny(location, "[]") || within(pathOf(location), gate.PathLogin) {
		return gate.PathLogin
	}
	return gate.PathLogin + "?redirect=" + url.QueryEscape(location)
}

// SafeRedirect returns target when it is a local path, otherwise fallback.
func SafeRedirect(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, `\`) {
		return fallback
	}
	if strings.ContainsAny(target, "[]") {
		return fallback
	}
	return target
}

func pathOf(location string) string {
	if i := strings.IndexAny(location, "?#"); i >= 0 {
		location = location[:i]
	}
	if len(location) > 1 {
		location = strings.TrimRight(location, "/")
	}
	return location
}

func within(current, target string) bool {
	return current == target || strings.HasPrefix(current, target+"/")
}
