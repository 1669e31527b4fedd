// Package lock serializes write operations across processes.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ReconcileKey guards every operation that writes to the backing store.
const ReconcileKey = "fletes:reconcile"

var ErrLocked = errors.New("another reconciliation run is in progress")

// Release gives the lock back.
type Release func(ctx context.Context) error

type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

// Noop never blocks. Used when no redis is configured.
type Noop struct{}

func (Noop) Acquire(context.Context, string) (Release, error) {
	return func(context.Context) error { return nil }, nil
}

// Redis is a distributed lock with a fixed TTL.
type Redis struct {
	locker *redislock.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{locker: redislock.New(client), ttl: ttl}
}

func (r *Redis) Acquire(ctx context.Context, key string) (Release, error) {
	l, err := r.locker.Obtain(ctx, key, r.ttl, nil)
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}
	return func(ctx context.Context) error {
		err := l.Release(ctx)
		if errors.Is(err, redislock.ErrLockNotHeld) {
			return nil
		}
		return err
	}, nil
}
