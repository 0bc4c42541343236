package lock

import (
	"context"
	"errors"
	"time"
)

var (
	ErrLockAcquisitionTimeout = errors.New("lock acquisition timed out")
	ErrLockExpired            = errors.New("lock lease expired")
	ErrLockNotHeld            = errors.New("lock not held by this token")
	ErrInvalidLease           = errors.New("lock lease must be positive")
)

// RetryPolicy bounds how long Acquire keeps trying a busy key.
// The first attempt is always made; MaxRetries more follow, Delay apart.
type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
}

// Handle identifies one successful acquisition.
type Handle struct {
	Key        string
	Token      string
	Lease      time.Duration
	AcquiredAt time.Time
}

// Deadline is the instant after which the holder must stop using the lock.
func (h *Handle) Deadline() time.Time {
	return h.AcquiredAt.Add(h.Lease)
}

// CriticalSection runs while the lock is held. Store access must go through the guard.
type CriticalSection func(ctx context.Context, guard *Guard) error

// Locker abstracts lease-based locking over a resource key.
type Locker interface {
	// Acquire takes the lock for key, retrying according to policy.
	Acquire(ctx context.Context, key string, lease time.Duration, policy RetryPolicy) (*Handle, error)
	// Release frees the lock only if the handle still owns it.
	Release(ctx context.Context, handle *Handle) error
	// WithLock acquires, runs fn with a lease-aware guard and always releases.
	WithLock(ctx context.Context, key string, lease time.Duration, policy RetryPolicy, fn CriticalSection) error
}
