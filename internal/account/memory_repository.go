package account

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

// NewMemoryRepository builds an in-memory account store for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{accounts: make(map[string]Account)}
}

func (r *memoryRepository) FindByCaller(_ context.Context, caller string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acct, ok := r.accounts[caller]
	if !ok {
		return Account{}, ErrNotFound
	}
	return acct, nil
}

func (r *memoryRepository) Upsert(_ context.Context, acct Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.accounts[acct.Caller]; ok {
		acct.CreatedAt = existing.CreatedAt
	}
	r.accounts[acct.Caller] = acct
	return nil
}
