package payments

import (
    "context"
    "sync"
)

type memoryRepository struct {
    mu       sync.Mutex
    requests map[string]TransferRequest
}

// NewMemoryRepository constructs an in-memory repository for development and tests.
func NewMemoryRepository() Repository {
    return &memoryRepository{requests: make(map[string]TransferRequest)}
}

func (r *memoryRepository) Insert(_ context.Context, req TransferRequest) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    if _, exists := r.requests[req.ClientTxID]; exists {
        return ErrDuplicateTransaction
    }
    r.requests[req.ClientTxID] = req
    return nil
}
