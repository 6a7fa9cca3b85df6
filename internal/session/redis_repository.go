package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ivr:session:v1:"

// RedisRepository stores sessions in Redis. Updates run inside WATCH/MULTI so
// a concurrent write to the same call aborts the transaction.
type RedisRepository struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ Repository = (*RedisRepository)(nil)

// NewRedisRepository constructs a Redis-backed session repository. A zero ttl
// keeps sessions until deleted.
func NewRedisRepository(client redis.UniversalClient, ttl time.Duration) *RedisRepository {
	return &RedisRepository{client: client, ttl: ttl}
}

// Load returns the raw session payload for callID.
func (r *RedisRepository) Load(ctx context.Context, callID string) ([]byte, error) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+callID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return raw, nil
}

// Update applies fn to the stored payload in an optimistic transaction.
func (r *RedisRepository) Update(ctx context.Context, callID string, fn UpdateFunc) error {
	key := redisKeyPrefix + callID
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		found := true
		if errors.Is(err, redis.Nil) {
			current, found = nil, false
		} else if err != nil {
			return fmt.Errorf("load session: %w", err)
		}

		next, err := fn(current, found)
		if err != nil || next == nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, r.ttl)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrConflict
	}
	return err
}

// Delete removes the session for callID.
func (r *RedisRepository) Delete(ctx context.Context, callID string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+callID).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
