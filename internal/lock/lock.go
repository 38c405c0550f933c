// Package lock serializes reconciliation runs and resets per scope.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"ledger-reconciliation-backend/internal/apperror"
)

const (
	DefaultTTL = 10 * time.Minute
	keyPrefix  = "reconciliation:scope:"

	unlockScript = "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end"
)

// ScopeLocker hands out exclusive per-scope locks. Acquire returns
// apperror.ErrScopeBusy when the scope is already held.
type ScopeLocker interface {
	Acquire(ctx context.Context, scope string) (Release, error)
}

// Release gives the lock back. It is safe to call more than once.
type Release func(ctx context.Context) error

type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisLocker{client: client, ttl: ttl}
}

func (l *RedisLocker) Acquire(ctx context.Context, scope string) (Release, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("acquire scope lock: %w", err)
	}
	key := keyPrefix + scope
	value := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, value, l.ttl).Result()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("acquire scope lock: %w", ctxErr)
		}
		return nil, apperror.StoreUnavailable("acquire scope lock", err)
	}
	if !ok {
		return nil, fmt.Errorf("scope %q: %w", scope, apperror.ErrScopeBusy)
	}

	var once sync.Once
	return func(ctx context.Context) error {
		var releaseErr error
		once.Do(func() {
			result, err := l.client.Eval(ctx, unlockScript, []string{key}, value).Result()
			if err != nil {
				releaseErr = err
				return
			}
			if result == int64(0) {
				releaseErr = fmt.Errorf("unlock failed, lock for scope %q expired or is held by another holder", scope)
			}
		})
		return releaseErr
	}, nil
}

// LocalLocker is used when no redis is configured. It only guards runs
// inside this process.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

func (l *LocalLocker) Acquire(_ context.Context, scope string) (Release, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[scope]; busy {
		return nil, fmt.Errorf("scope %q: %w", scope, apperror.ErrScopeBusy)
	}
	l.held[scope] = struct{}{}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, scope)
			l.mu.Unlock()
		})
		return nil
	}, nil
}
