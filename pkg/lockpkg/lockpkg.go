// Package lockpkg provides named mutual-exclusion leases for coordinating
// balance mutations across concurrent callers and processes.
package lockpkg

import (
	"context"
	"errors"
	"time"
)

// ErrNotAcquired indicates that the lease could not be obtained within the
// acquire timeout.
var ErrNotAcquired = errors.New("lock not acquired")

// Lease is a held claim on a named resource. Release is idempotent: double
// release and releasing an already expired lease are safe no-ops.
type Lease interface {
	Release(ctx context.Context)
}

// Locker acquires leases on named resources. Acquisition waits a bounded
// time and fails with ErrNotAcquired on expiry; the lease itself expires
// server-side after the configured hold duration should the holder die
// without releasing.
type Locker interface {
	Acquire(ctx context.Context, key string) (Lease, error)
}

// Metrics receives lock acquisition outcomes. Implementations must be safe
// for concurrent use.
type Metrics interface {
	LockAcquired(key string)
	LockFailed(key string)
}

// Config holds lease timing settings.
type Config struct {
	// AcquireTimeout bounds how long Acquire waits for a contended lease.
	AcquireTimeout time.Duration
	// LeaseTime force-releases an abandoned lease. It is a crash safety
	// net, not a substitute for explicit release.
	LeaseTime time.Duration
	// RetryInterval is the pause between acquisition attempts.
	RetryInterval time.Duration
}

// tries converts the acquire timeout into a bounded attempt count.
func (c Config) tries() int {
	if c.RetryInterval <= 0 {
		return 1
	}

	n := int(c.AcquireTimeout/c.RetryInterval) + 1
	if n < 1 {
		n = 1
	}

	return n
}

// AccountKey composes the lock key guarding a single account.
func AccountKey(accountNumber string) string {
	return "account:lock:" + accountNumber
}

// TransferKey composes the pair-lock key guarding a two-account transfer.
// The two account numbers are sorted lexicographically before composing the
// key so that transfers A->B and B->A contend for the same lease in the
// same global order; no ordering cycle between any two transfers can form.
func TransferKey(from, to string) string {
	lo, hi := from, to
	if hi < lo {
		lo, hi = hi, lo
	}

	return "transaction:lock:" + lo + ":" + hi
}
