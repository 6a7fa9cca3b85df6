package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const badgerKeyPrefix = "session/"

// BadgerRepository stores sessions in an embedded Badger database, for
// single-node deployments without Redis.
type BadgerRepository struct {
	db  *badger.DB
	ttl time.Duration
}

var _ Repository = (*BadgerRepository)(nil)

// NewBadgerRepository wraps an open Badger database.
func NewBadgerRepository(db *badger.DB, ttl time.Duration) *BadgerRepository {
	return &BadgerRepository{db: db, ttl: ttl}
}

// Load returns the raw session payload for callID.
func (r *BadgerRepository) Load(ctx context.Context, callID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var raw []byte
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(callID))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return raw, nil
}

// Update applies fn inside a read-write transaction. Badger detects
// conflicting commits and rejects the later one.
func (r *BadgerRepository) Update(ctx context.Context, callID string, fn UpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := badgerKey(callID)
	err := r.db.Update(func(txn *badger.Txn) error {
		var current []byte
		found := false
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return fmt.Errorf("load session: %w", err)
		default:
			if current, err = item.ValueCopy(nil); err != nil {
				return fmt.Errorf("load session: %w", err)
			}
			found = true
		}

		next, err := fn(current, found)
		if err != nil || next == nil {
			return err
		}
		entry := badger.NewEntry(key, next)
		if r.ttl > 0 {
			entry = entry.WithTTL(r.ttl)
		}
		return txn.SetEntry(entry)
	})
	if errors.Is(err, badger.ErrConflict) {
		return ErrConflict
	}
	return err
}

// Delete removes the session for callID.
func (r *BadgerRepository) Delete(ctx context.Context, callID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(badgerKey(callID))
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func badgerKey(callID string) []byte {
	return []byte(badgerKeyPrefix + callID)
}
