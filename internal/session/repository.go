package session

import "context"

// UpdateFunc computes the next persisted value from the current one. found is
// false when no value exists. Returning a nil slice leaves storage untouched.
type UpdateFunc func(current []byte, found bool) ([]byte, error)

// Repository is the durable key/value backend of the store. Update must run
// fn and write its result atomically, returning ErrConflict when a concurrent
// writer got in between.
type Repository interface {
	Load(ctx context.Context, callID string) ([]byte, error)
	Update(ctx context.Context, callID string, fn UpdateFunc) error
	Delete(ctx context.Context, callID string) error
}
