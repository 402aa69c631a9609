package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirehub/portal/internal/account"
	"github.com/hirehub/portal/internal/api"
	"github.com/hirehub/portal/internal/wizard"
)

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestRedisStoreRoundTripAndTTL(t *testing.T) {
	mr, client := setupRedis(t)
	store := NewRedisStore(client, time.Hour)
	ctx := context.Background()

	_, ok, err := store.Load(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	snap := account.Snapshot{ID: "u1", UserType: account.UserTypeEmployer, VerificationStatus: account.StatusDraft}
	require.NoError(t, store.Save(ctx, "s1", Persisted{Account: &snap, IsAuthenticated: true}))

	p, ok, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, p.IsAuthenticated)
	assert.Equal(t, snap.ID, p.Account.ID)
	assert.Equal(t, account.StatusDraft, p.Account.VerificationStatus)

	mr.FastForward(2 * time.Hour)
	_, ok, err = store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStorePersistsNoTokens(t *testing.T) {
	mr, client := setupRedis(t)
	store := NewRedisStore(client, time.Hour)
	snap := account.Snapshot{ID: "u1"}
	require.NoError(t, store.Save(context.Background(), "s1", Persisted{Account: &snap, IsAuthenticated: true}))

	raw, err := mr.Get(keyPrefix + "s1")
	require.NoError(t, err)
	assert.NotContains(t, raw, "accessToken")
	assert.NotContains(t, raw, "refreshToken")
	assert.Contains(t, raw, `"isAuthenticated":true`)
}

func TestRedisStoreDelete(t *testing.T) {
	_, client := setupRedis(t)
	store := NewRedisStore(client, time.Hour)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "s1", Persisted{}))
	require.NoError(t, store.Delete(ctx, "s1"))
	_, ok, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistryRestoresPersistedState(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	store := NewMemoryStore()
	snap := account.Snapshot{ID: "u1"}
	require.NoError(t, store.Save(context.Background(), "s1", Persisted{Account: &snap, IsAuthenticated: true}))

	reg := NewRegistry(api.Config{BaseURL: srv.URL}, store, wizard.DefaultPoints(), time.Hour, discardLogger())
	e := reg.Get(context.Background(), "s1")
	require.NotNil(t, e.Manager)
	assert.True(t, e.Manager.State().IsAuthenticated)
	assert.False(t, e.Client.HasTokens())

	assert.Same(t, e, reg.Get(context.Background(), "s1"))
	assert.NotEqual(t, reg.NewID(), reg.NewID())
}

func TestRegistryDropsIdleEntries(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	reg := NewRegistry(api.Config{BaseURL: "http://backend.invalid"}, NewMemoryStore(), wizard.DefaultPoints(), 10*time.Minute, discardLogger())
	reg.now = func() time.Time { return now }

	reg.Get(context.Background(), "old")
	now = now.Add(30 * time.Minute)
	reg.Get(context.Background(), "new")

	assert.Equal(t, 1, reg.Len())
	reg.Remove("new")
	assert.Equal(t, 0, reg.Len())
}

// slowStore holds the first Load until release is closed.
type slowStore struct {
	Store
	loading chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *slowStore) Load(ctx context.Context, id string) (Persisted, bool, error) {
	s.once.Do(func() {
		close(s.loading)
		<-s.release
	})
	return s.Store.Load(ctx, id)
}

func TestRegistryConcurrentGetWaitsForRestore(t *testing.T) {
	mem := NewMemoryStore()
	snap := account.Snapshot{ID: "u1"}
	require.NoError(t, mem.Save(context.Background(), "s1", Persisted{Account: &snap, IsAuthenticated: true}))
	store := &slowStore{Store: mem, loading: make(chan struct{}), release: make(chan struct{})}

	reg := NewRegistry(api.Config{BaseURL: "http://backend.invalid"}, store, wizard.DefaultPoints(), time.Hour, discardLogger())

	go reg.Get(context.Background(), "s1")
	<-store.loading

	got := make(chan *Entry, 1)
	go func() { got <- reg.Get(context.Background(), "s1") }()

	assert.Never(t, func() bool { return len(got) > 0 }, 50*time.Millisecond, tick)
	close(store.release)

	select {
	case e := <-got:
		assert.True(t, e.Manager.State().IsAuthenticated)
		assert.Equal(t, "u1", e.Manager.State().Account.ID)
	case <-time.After(timeout):
		t.Fatal("second Get never returned")
	}
}
