package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/hirehub/portal/internal/account"
	"github.com/hirehub/portal/internal/api"
	"github.com/hirehub/portal/internal/gate"
	"github.com/hirehub/portal/internal/guard"
)

const genericLoginError = "unable to sign in, please try again"

// AuthAPI is the backend surface the manager drives.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (account.Snapshot, error)
	Signup(ctx context.Context, in api.SignupInput) (account.Snapshot, error)
	Refresh(ctx context.Context) error
	CurrentAccount(ctx context.Context) (account.Snapshot, error)
	Logout(ctx context.Context) error
	ResendEmailVerification(ctx context.Context) error
	VerifyEmail(ctx context.Context, token string) (account.Snapshot, error)
}

// State is what the rest of the portal observes about a session.
type State struct {
	Account         *account.Snapshot `json:"account"`
	IsAuthenticated bool              `json:"isAuthenticated"`
	IsLoading       bool              `json:"isLoading"`
	Error           string            `json:"error,omitempty"`
}

// Manager owns the account snapshot lifecycle of one session: load,
// refresh, persistence across reloads, and clearing on logout. It never
// navigates itself; callers act on the state and on Recover.
type Manager struct {
	id     string
	api    AuthAPI
	store  Store
	logger *slog.Logger

	mu      sync.RWMutex
	state   State
	pending int
	checked bool
}

// NewManager builds a manager for session id.
func NewManager(id string, authAPI AuthAPI, store Store, logger *slog.Logger) *Manager {
	return &Manager{
		id:     id,
		api:    authAPI,
		store:  store,
		logger: logger.With("component", "session", "session_id", id),
	}
}

// ID returns the session id.
func (m *Manager) ID() string { return m.id }

// State returns a copy of the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := m.state
	if st.Account != nil {
		snap := *st.Account
		st.Account = &snap
	}
	return st
}

// GuardState adapts the state for the route guard.
func (m *Manager) GuardState() guard.State {
	st := m.State()
	return guard.State{Loading: st.IsLoading, Authenticated: st.IsAuthenticated, Account: st.Account}
}

// Restore loads the persisted part of the state. Tokens are not persisted,
// so a restored session is confirmed by the next CheckAuth.
func (m *Manager) Restore(ctx context.Context) {
	p, ok, err := m.store.Load(ctx, m.id)
	if err != nil {
		m.logger.Warn("restore session", slog.Any("error", err))
		return
	}
	if !ok {
		return
	}
	m.mu.Lock()
	m.state.Account = p.Account
	m.state.IsAuthenticated = p.IsAuthenticated && p.Account != nil
	m.mu.Unlock()
}

// EnsureChecked runs CheckAuth the first time it is called for the session.
// Concurrent callers observe IsLoading until the probe finishes.
func (m *Manager) EnsureChecked(ctx context.Context) State {
	m.mu.Lock()
	if m.checked {
		m.mu.Unlock()
		return m.State()
	}
	m.checked = true
	m.pending++
	m.state.IsLoading = true
	m.mu.Unlock()

	m.checkAuth(ctx)
	return m.State()
}

// Login exchanges credentials for a session. On failure the error is kept
// in the state and the session stays unauthenticated.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.begin()
	snap, err := m.api.Login(ctx, email, password)
	return m.finishAuth(ctx, snap, err)
}

// Signup creates an account and signs it in.
func (m *Manager) Signup(ctx context.Context, in api.SignupInput) error {
	m.begin()
	snap, err := m.api.Signup(ctx, in)
	return m.finishAuth(ctx, snap, err)
}

func (m *Manager) finishAuth(ctx context.Context, snap account.Snapshot, err error) error {
	m.mu.Lock()
	m.end()
	m.checked = true
	if err != nil {
		m.state.Account = nil
		m.state.IsAuthenticated = false
		m.state.Error = userMessage(err)
	} else {
		m.state.Account = &snap
		m.state.IsAuthenticated = true
		m.state.Error = ""
	}
	p := m.persisted()
	m.mu.Unlock()

	m.persist(ctx, p)
	if err != nil {
		m.logger.Info("authentication failed", slog.Any("error", err))
	}
	return err
}

// CheckAuth silently refreshes the tokens and re-reads the account. Any
// failure clears the session without reporting an error.
func (m *Manager) CheckAuth(ctx context.Context) {
	m.begin()
	m.checkAuth(ctx)
}

func (m *Manager) checkAuth(ctx context.Context) {
	if err := m.api.Refresh(ctx); err != nil {
		m.logger.Debug("silent refresh failed", slog.Any("error", err))
		m.clear(ctx, true)
		return
	}
	snap, err := m.api.CurrentAccount(ctx)
	if err != nil {
		m.logger.Debug("fetch account failed", slog.Any("error", err))
		m.clear(ctx, true)
		return
	}
	m.setAccount(ctx, snap, true)
}

// RefreshAccount re-reads the snapshot after a mutation that may have moved
// verification or profile state.
func (m *Manager) RefreshAccount(ctx context.Context) error {
	snap, err := m.api.CurrentAccount(ctx)
	if err != nil {
		if errors.Is(err, api.ErrSessionExpired) {
			m.clear(ctx, false)
		}
		return err
	}
	m.setAccount(ctx, snap, false)
	return nil
}

// Logout invalidates the session server-side on a best-effort basis, then
// always clears local state.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.api.Logout(ctx); err != nil {
		m.logger.Debug("server logout failed", slog.Any("error", err))
	}
	m.clear(ctx, false)
	if err := m.store.Delete(ctx, m.id); err != nil {
		m.logger.Warn("delete session", slog.Any("error", err))
	}
}

// ResendEmailVerification asks for a new verification mail.
func (m *Manager) ResendEmailVerification(ctx context.Context) error {
	return m.api.ResendEmailVerification(ctx)
}

// VerifyEmail confirms a verification token and refreshes the snapshot.
func (m *Manager) VerifyEmail(ctx context.Context, token string) error {
	if _, err := m.api.VerifyEmail(ctx, token); err != nil {
		return err
	}
	return m.RefreshAccount(ctx)
}

// Recover maps backend errors that demand navigation to a target location.
// An expired session is cleared and sent to Login; a verification-required
// response is sent where the backend says.
func (m *Manager) Recover(ctx context.Context, err error) (string, bool) {
	if errors.Is(err, api.ErrSessionExpired) {
		m.clear(ctx, false)
		return gate.PathLogin, true
	}
	var vErr *api.VerificationRequiredError
	if errors.As(err, &vErr) {
		m.logger.Info("backend requires verification", slog.String("redirect_to", vErr.RedirectTo))
		return guard.SafeRedirect(vErr.RedirectTo, gate.PathDashboard), true
	}
	return "", false
}

func (m *Manager) begin() {
	m.mu.Lock()
	m.pending++
	m.state.IsLoading = true
	m.mu.Unlock()
}

// end must be called with mu held.
func (m *Manager) end() {
	if m.pending > 0 {
		m.pending--
	}
	m.state.IsLoading = m.pending > 0
}

func (m *Manager) setAccount(ctx context.Context, snap account.Snapshot, loading bool) {
	m.mu.Lock()
	if loading {
		m.end()
	}
	m.state.Account = &snap
	m.state.IsAuthenticated = true
	m.state.Error = ""
	p := m.persisted()
	m.mu.Unlock()
	m.persist(ctx, p)
}

func (m *Manager) clear(ctx context.Context, loading bool) {
	m.mu.Lock()
	if loading {
		m.end()
	}
	m.state.Account = nil
	m.state.IsAuthenticated = false
	m.state.Error = ""
	p := m.persisted()
	m.mu.Unlock()
	m.persist(ctx, p)
}

// persisted must be called with mu held.
func (m *Manager) persisted() Persisted {
	p := Persisted{IsAuthenticated: m.state.IsAuthenticated}
	if m.state.Account != nil {
		snap := *m.state.Account
		p.Account = &snap
	}
	return p
}

func (m *Manager) persist(ctx context.Context, p Persisted) {
	if err := m.store.Save(ctx, m.id, p); err != nil {
		m.logger.Warn("persist session", slog.Any("error", err))
	}
}

func userMessage(err error) string {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.Status < 500 && apiErr.Message != "" {
		return apiErr.Message
	}
	return genericLoginError
}
