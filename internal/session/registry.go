package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hirehub/portal/internal/api"
	"github.com/hirehub/portal/internal/wizard"
)

const sweepInterval = time.Minute

// Entry groups everything the portal keeps in memory for one browser
// session. Tokens live only inside Client.
type Entry struct {
	Manager *Manager
	Client  *api.Client
	Wizard  *wizard.Service

	lastSeen time.Time
	// restored is closed once the persisted state has been loaded.
	restored chan struct{}
}

// Registry maps session ids to live entries. Entries idle for longer than
// the idle timeout are dropped; their persisted state stays in the Store.
type Registry struct {
	apiCfg api.Config
	store  Store
	points wizard.Points
	idle   time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu        sync.Mutex
	entries   map[string]*Entry
	lastSweep time.Time
}

// NewRegistry builds a registry. Each new entry gets its own api.Client.
func NewRegistry(apiCfg api.Config, store Store, points wizard.Points, idle time.Duration, logger *slog.Logger) *Registry {
	return &Registry{
		apiCfg:  apiCfg,
		store:   store,
		points:  points,
		idle:    idle,
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]*Entry),
	}
}

// NewID returns a fresh opaque session id.
func (r *Registry) NewID() string {
	return uuid.NewString()
}

// Get returns the entry for id, creating and restoring it when needed.
func (r *Registry) Get(ctx context.Context, id string) *Entry {
	now := r.now()

	r.mu.Lock()
	r.sweepLocked(now)
	if e, ok := r.entries[id]; ok {
		e.lastSeen = now
		r.mu.Unlock()
		<-e.restored
		return e
	}
	client := api.New(r.apiCfg, r.logger)
	e := &Entry{
		Manager:  NewManager(id, client, r.store, r.logger),
		Client:   client,
		Wizard:   wizard.NewService(client, r.points, r.logger),
		lastSeen: now,
		restored: make(chan struct{}),
	}
	r.entries[id] = e
	r.mu.Unlock()

	// Other requests of the session wait here so none of them acts on, or
	// gets overwritten by, the state from before the restore.
	e.Manager.Restore(ctx)
	close(e.restored)
	return e
}

// Remove forgets the in-memory entry for id.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}

// Len reports the number of live entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) sweepLocked(now time.Time) {
	if r.idle <= 0 || now.Sub(r.lastSweep) < sweepInterval {
		return
	}
	r.lastSweep = now
	for id, e := range r.entries {
		if now.Sub(e.lastSeen) > r.idle {
			delete(r.entries, id)
		}
	}
}
