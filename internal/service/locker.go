package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/deptforge/agent-departments/internal/persistence"
	apperrors "github.com/deptforge/agent-departments/pkg/util/errorutil"
)

// Locker serializes work on one key. Release must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

// NewChatLocker returns the Redis locker when redis answers a ping and a
// process-local one otherwise. The second result is the Redis handle readiness
// should track; it is nil when the local locker was chosen.
func NewChatLocker(ctx context.Context, redis *persistence.Redis, ttl, wait time.Duration, logger *zap.Logger) (Locker, *persistence.Redis) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := redis.Ping(ctx); err != nil {
		logger.Warn("redis unavailable; chat locks are process-local", zap.Error(err))
		return NewLocalLocker(), nil
	}
	return NewRedisLocker(redis, ttl, wait), redis
}

type redisLocker struct {
	redis *persistence.Redis
	ttl   time.Duration
	wait  time.Duration
}

// NewRedisLocker shares chat locks across replicas through Redis.
func NewRedisLocker(redis *persistence.Redis, ttl, wait time.Duration) Locker {
	return &redisLocker{redis: redis, ttl: ttl, wait: wait}
}

func (l *redisLocker) Lock(ctx context.Context, key string) (func(), error) {
	release, err := l.redis.Lock(ctx, key, l.ttl, l.wait)
	if errors.Is(err, persistence.ErrLockBusy) {
		return nil, apperrors.NewConflict("conversation is busy, retry shortly", map[string]any{"lock": key})
	}
	return release, err
}

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewLocalLocker serializes per key within this process only.
func NewLocalLocker() Locker {
	return &keyedMutex{locks: make(map[string]chan struct{})}
}

func (k *keyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	ch, ok := k.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		k.locks[key] = ch
	}
	k.mu.Unlock()

	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
