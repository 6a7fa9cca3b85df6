package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

type memoryRepository struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

// NewMemoryRepository builds a process-local session backend for development
// and tests. A zero ttl keeps entries until deleted.
func NewMemoryRepository(ttl time.Duration) Repository {
	return &memoryRepository{ttl: ttl, now: time.Now, entries: make(map[string]memoryEntry)}
}

func (r *memoryRepository) Load(_ context.Context, callID string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.lookup(callID)
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), e.data...), nil
}

func (r *memoryRepository) Update(ctx context.Context, callID string, fn UpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var current []byte
	e, found := r.lookup(callID)
	if found {
		current = append([]byte(nil), e.data...)
	}
	next, err := fn(current, found)
	if err != nil || next == nil {
		return err
	}
	entry := memoryEntry{data: next}
	if r.ttl > 0 {
		entry.expiresAt = r.now().Add(r.ttl)
	}
	r.entries[callID] = entry
	return nil
}

func (r *memoryRepository) Delete(_ context.Context, callID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, callID)
	return nil
}

func (r *memoryRepository) lookup(callID string) (memoryEntry, bool) {
	e, ok := r.entries[callID]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiresAt.IsZero() && !r.now().Before(e.expiresAt) {
		delete(r.entries, callID)
		return memoryEntry{}, false
	}
	return e, true
}
