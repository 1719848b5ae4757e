package lockpkg

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryLocker coordinates leases within a single process. It is used for
// single-node deployments and in tests; multi-node deployments need the
// Redis backend.
type MemoryLocker struct {
	mu      sync.Mutex
	held    map[string]struct{}
	cfg     Config
	metrics Metrics
}

// NewMemoryLocker returns an in-process Locker.
func NewMemoryLocker(cfg Config, m Metrics) *MemoryLocker {
	return &MemoryLocker{
		held:    make(map[string]struct{}),
		cfg:     cfg,
		metrics: m,
	}
}

// Acquire obtains the lease for key, polling every Config.RetryInterval
// until Config.AcquireTimeout is exhausted.
func (l *MemoryLocker) Acquire(ctx context.Context, key string) (Lease, error) {
	deadline := time.Now().Add(l.cfg.AcquireTimeout)

	for {
		if l.tryAcquire(key) {
			l.metrics.LockAcquired(key)
			return &memoryLease{locker: l, key: key}, nil
		}

		if time.Now().After(deadline) {
			l.metrics.LockFailed(key)
			return nil, fmt.Errorf("%w: %s", ErrNotAcquired, key)
		}

		select {
		case <-ctx.Done():
			l.metrics.LockFailed(key)
			return nil, fmt.Errorf("%w: %s: %v", ErrNotAcquired, key, ctx.Err())
		case <-time.After(l.cfg.RetryInterval):
		}
	}
}

func (l *MemoryLocker) tryAcquire(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, taken := l.held[key]; taken {
		return false
	}

	l.held[key] = struct{}{}

	return true
}

func (l *MemoryLocker) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.held, key)
}

type memoryLease struct {
	locker *MemoryLocker
	key    string
	once   sync.Once
}

// Release gives up the lease. Safe to call more than once.
func (l *memoryLease) Release(context.Context) {
	l.once.Do(func() { l.locker.release(l.key) })
}
