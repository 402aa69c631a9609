package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hirehub/portal/internal/account"
)

const keyPrefix = "portal:session:v1:"

// Persisted is the part of the session state that survives reloads. Tokens
// are deliberately absent.
type Persisted struct {
	Account         *account.Snapshot `json:"account"`
	IsAuthenticated bool              `json:"isAuthenticated"`
}

// Store persists session state by session id.
type Store interface {
	Load(ctx context.Context, id string) (Persisted, bool, error)
	Save(ctx context.Context, id string, p Persisted) error
	Delete(ctx context.Context, id string) error
}

// RedisStore keeps persisted sessions in Redis with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore builds a Redis-backed store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, id string) (Persisted, bool, error) {
	raw, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Persisted{}, false, nil
	}
	if err != nil {
		return Persisted{}, false, fmt.Errorf("load session: %w", err)
	}
	var p Persisted
	if err := json.Unmarshal(raw, &p); err != nil {
		return Persisted{}, false, fmt.Errorf("decode session: %w", err)
	}
	return p, true, nil
}

func (s *RedisStore) Save(ctx context.Context, id string, p Persisted) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+id, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

type memoryStore struct {
	mu    sync.RWMutex
	items map[string]Persisted
}

// NewMemoryStore builds an in-process store for development and tests.
func NewMemoryStore() Store {
	return &memoryStore{items: make(map[string]Persisted)}
}

func (s *memoryStore) Load(_ context.Context, id string) (Persisted, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.items[id]
	return p, ok, nil
}

func (s *memoryStore) Save(_ context.Context, id string, p Persisted) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = p
	return nil
}

func (s *memoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}
