package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirehub/portal/internal/account"
	"github.com/hirehub/portal/internal/api"
	"github.com/hirehub/portal/internal/gate"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeAuth struct {
	mu         sync.Mutex
	account    account.Snapshot
	loginErr   error
	refreshErr error
	meErr      error
	logoutErr  error
	logouts    int
	refreshes  int
	block      chan struct{}
}

func (f *fakeAuth) Login(_ context.Context, _, _ string) (account.Snapshot, error) {
	if f.loginErr != nil {
		return account.Snapshot{}, f.loginErr
	}
	return f.account, nil
}

func (f *fakeAuth) Signup(_ context.Context, in api.SignupInput) (account.Snapshot, error) {
	return account.Snapshot{ID: "new", Email: in.Email, UserType: in.UserType}, nil
}

func (f *fakeAuth) Refresh(context.Context) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.refreshes++
	f.mu.Unlock()
	return f.refreshErr
}

func (f *fakeAuth) CurrentAccount(context.Context) (account.Snapshot, error) {
	if f.meErr != nil {
		return account.Snapshot{}, f.meErr
	}
	return f.account, nil
}

func (f *fakeAuth) Logout(context.Context) error {
	f.logouts++
	return f.logoutErr
}

func (f *fakeAuth) ResendEmailVerification(context.Context) error { return nil }

func (f *fakeAuth) VerifyEmail(context.Context, string) (account.Snapshot, error) {
	f.account.EmailVerified = true
	return f.account, nil
}

func individual() account.Snapshot {
	return account.Snapshot{
		ID:                 "u1",
		Email:              "a@example.com",
		UserType:           account.UserTypeIndividual,
		EmailVerified:      true,
		Phone:              account.StringPtr("+15550100"),
		HasPreferences:     true,
		VerificationStatus: account.StatusVerified,
	}
}

func TestLoginSuccessPersistsAccount(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager("s1", &fakeAuth{account: individual()}, store, discardLogger())

	require.NoError(t, m.Login(context.Background(), "a@example.com", "pw"))

	st := m.State()
	assert.True(t, st.IsAuthenticated)
	assert.False(t, st.IsLoading)
	assert.Empty(t, st.Error)
	require.NotNil(t, st.Account)
	assert.Equal(t, "u1", st.Account.ID)

	p, ok, err := store.Load(context.Background(), "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, p.IsAuthenticated)
	assert.Equal(t, "u1", p.Account.ID)
}

func TestLoginFailureKeepsErrorAndStaysUnauthenticated(t *testing.T) {
	auth := &fakeAuth{loginErr: &api.APIError{Status: 401, Message: "Invalid credentials"}}
	m := NewManager("s1", auth, NewMemoryStore(), discardLogger())

	err := m.Login(context.Background(), "a@example.com", "bad")
	require.Error(t, err)

	st := m.State()
	assert.False(t, st.IsAuthenticated)
	assert.Nil(t, st.Account)
	assert.Equal(t, "Invalid credentials", st.Error)
}

func TestLoginFailureHidesServerErrors(t *testing.T) {
	auth := &fakeAuth{loginErr: &api.APIError{Status: 502, Message: "upstream exploded"}}
	m := NewManager("s1", auth, NewMemoryStore(), discardLogger())

	require.Error(t, m.Login(context.Background(), "a@example.com", "pw"))
	assert.Equal(t, genericLoginError, m.State().Error)
}

func TestCheckAuthClearsSilentlyOnRefreshFailure(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), "s1", Persisted{Account: &account.Snapshot{ID: "u1"}, IsAuthenticated: true}))

	auth := &fakeAuth{refreshErr: fmt.Errorf("%w: boom", api.ErrSessionExpired)}
	m := NewManager("s1", auth, store, discardLogger())
	m.Restore(context.Background())
	require.True(t, m.State().IsAuthenticated)

	m.CheckAuth(context.Background())

	st := m.State()
	assert.False(t, st.IsAuthenticated)
	assert.Nil(t, st.Account)
	assert.Empty(t, st.Error)
	assert.False(t, st.IsLoading)

	p, _, _ := store.Load(context.Background(), "s1")
	assert.False(t, p.IsAuthenticated)
	assert.Nil(t, p.Account)
}

func TestCheckAuthClearsOnAccountFetchFailure(t *testing.T) {
	auth := &fakeAuth{meErr: &api.APIError{Status: 500}}
	m := NewManager("s1", auth, NewMemoryStore(), discardLogger())

	m.CheckAuth(context.Background())

	st := m.State()
	assert.False(t, st.IsAuthenticated)
	assert.Empty(t, st.Error)
}

func TestCheckAuthLoadsAccount(t *testing.T) {
	m := NewManager("s1", &fakeAuth{account: individual()}, NewMemoryStore(), discardLogger())

	m.CheckAuth(context.Background())

	st := m.State()
	assert.True(t, st.IsAuthenticated)
	assert.Equal(t, "u1", st.Account.ID)
}

func TestEnsureCheckedRunsOnceAndReportsLoading(t *testing.T) {
	auth := &fakeAuth{account: individual(), block: make(chan struct{})}
	m := NewManager("s1", auth, NewMemoryStore(), discardLogger())

	done := make(chan State)
	go func() { done <- m.EnsureChecked(context.Background()) }()

	require.Eventually(t, func() bool { return m.State().IsLoading }, timeout, tick)
	assert.True(t, m.GuardState().Loading)
	assert.True(t, m.EnsureChecked(context.Background()).IsLoading)

	close(auth.block)
	st := <-done
	assert.True(t, st.IsAuthenticated)
	assert.False(t, st.IsLoading)

	m.EnsureChecked(context.Background())
	assert.Equal(t, 1, auth.refreshes)
}

func TestLogoutClearsEvenWhenServerFails(t *testing.T) {
	store := NewMemoryStore()
	auth := &fakeAuth{account: individual(), logoutErr: errors.New("network down")}
	m := NewManager("s1", auth, store, discardLogger())
	require.NoError(t, m.Login(context.Background(), "a@example.com", "pw"))

	m.Logout(context.Background())

	assert.Equal(t, 1, auth.logouts)
	assert.False(t, m.State().IsAuthenticated)
	assert.Nil(t, m.State().Account)
	_, ok, err := store.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRefreshAccountPicksUpChanges(t *testing.T) {
	auth := &fakeAuth{account: individual()}
	m := NewManager("s1", auth, NewMemoryStore(), discardLogger())
	require.NoError(t, m.Login(context.Background(), "a@example.com", "pw"))

	auth.account.VerificationStatus = account.StatusUnderReview
	require.NoError(t, m.RefreshAccount(context.Background()))
	assert.Equal(t, account.StatusUnderReview, m.State().Account.VerificationStatus)
}

func TestRefreshAccountExpiredSessionClears(t *testing.T) {
	auth := &fakeAuth{account: individual()}
	m := NewManager("s1", auth, NewMemoryStore(), discardLogger())
	require.NoError(t, m.Login(context.Background(), "a@example.com", "pw"))

	auth.meErr = api.ErrSessionExpired
	err := m.RefreshAccount(context.Background())
	assert.ErrorIs(t, err, api.ErrSessionExpired)
	assert.False(t, m.State().IsAuthenticated)
}

func TestVerifyEmailRefreshesSnapshot(t *testing.T) {
	acct := individual()
	acct.EmailVerified = false
	auth := &fakeAuth{account: acct}
	m := NewManager("s1", auth, NewMemoryStore(), discardLogger())
	require.NoError(t, m.Login(context.Background(), "a@example.com", "pw"))

	require.NoError(t, m.VerifyEmail(context.Background(), "tok"))
	assert.True(t, m.State().Account.EmailVerified)
}

func TestRecover(t *testing.T) {
	auth := &fakeAuth{account: individual()}
	m := NewManager("s1", auth, NewMemoryStore(), discardLogger())
	require.NoError(t, m.Login(context.Background(), "a@example.com", "pw"))

	target, ok := m.Recover(context.Background(), &api.VerificationRequiredError{RedirectTo: gate.PathKyc})
	assert.True(t, ok)
	assert.Equal(t, gate.PathKyc, target)
	assert.True(t, m.State().IsAuthenticated)

	target, ok = m.Recover(context.Background(), &api.VerificationRequiredError{RedirectTo: "https://evil.example"})
	assert.True(t, ok)
	assert.Equal(t, gate.PathDashboard, target)

	_, ok = m.Recover(context.Background(), errors.New("other"))
	assert.False(t, ok)

	target, ok = m.Recover(context.Background(), fmt.Errorf("%w: refresh rejected", api.ErrSessionExpired))
	assert.True(t, ok)
	assert.Equal(t, gate.PathLogin, target)
	assert.False(t, m.State().IsAuthenticated)
}

func TestSignupAuthenticates(t *testing.T) {
	m := NewManager("s1", &fakeAuth{}, NewMemoryStore(), discardLogger())
	require.NoError(t, m.Signup(context.Background(), api.SignupInput{Email: "n@example.com", UserType: account.UserTypeEmployer}))
	st := m.State()
	assert.True(t, st.IsAuthenticated)
	assert.Equal(t, account.UserTypeEmployer, st.Account.UserType)
}
