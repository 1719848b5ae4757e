package lockpkg

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisLocker coordinates leases through Redis. The lease is held by a
// unique holder token and expires after Config.LeaseTime unless released.
type RedisLocker struct {
	rs      *redsync.Redsync
	cfg     Config
	metrics Metrics
}

// NewRedisLocker returns a RedisLocker backed by the given client.
func NewRedisLocker(client *redis.Client, cfg Config, m Metrics) *RedisLocker {
	return &RedisLocker{
		rs:      redsync.New(goredis.NewPool(client)),
		cfg:     cfg,
		metrics: m,
	}
}

// Acquire obtains the lease for key, retrying every Config.RetryInterval
// until Config.AcquireTimeout is exhausted.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (Lease, error) {
	mu := l.rs.NewMutex(key,
		redsync.WithExpiry(l.cfg.LeaseTime),
		redsync.WithTries(l.cfg.tries()),
		redsync.WithRetryDelay(l.cfg.RetryInterval),
	)

	if err := mu.LockContext(ctx); err != nil {
		l.metrics.LockFailed(key)
		return nil, fmt.Errorf("%w: %s: %v", ErrNotAcquired, key, err)
	}

	l.metrics.LockAcquired(key)

	return &redisLease{mu: mu}, nil
}

type redisLease struct {
	mu   *redsync.Mutex
	once sync.Once
}

// Release gives up the lease. Unlock errors are logged only: the lease
// expiry reclaims the key, and a release fault must never escape the
// protected block.
func (l *redisLease) Release(ctx context.Context) {
	l.once.Do(func() {
		if ok, err := l.mu.UnlockContext(ctx); !ok || err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("key", l.mu.Name()).Msg("lock release failed")
		}
	})
}
