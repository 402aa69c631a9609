package identity

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]Account
	byEmail  map[string]string
}

// NewMemoryRepository builds an in-memory account store for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{accounts: make(map[string]Account), byEmail: make(map[string]string)}
}

func (r *memoryRepository) Create(_ context.Context, acct Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[acct.Email]; exists {
		return ErrExists
	}
	r.accounts[acct.ID] = clone(acct)
	r.byEmail[acct.Email] = acct.ID
	return nil
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return Account{}, ErrNotFound
	}
	return clone(r.accounts[id]), nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acct, ok := r.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return clone(acct), nil
}

func (r *memoryRepository) FindByVerifyToken(_ context.Context, token string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if token == "" {
		return Account{}, ErrNotFound
	}
	for _, acct := range r.accounts {
		if acct.VerifyToken == token {
			return clone(acct), nil
		}
	}
	return Account{}, ErrNotFound
}

func (r *memoryRepository) Update(_ context.Context, acct Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[acct.ID]; !ok {
		return ErrNotFound
	}
	r.accounts[acct.ID] = clone(acct)
	return nil
}

func clone(acct Account) Account {
	acct.PasswordHash = append([]byte(nil), acct.PasswordHash...)
	acct.Permissions = append([]string(nil), acct.Permissions...)
	return acct
}
