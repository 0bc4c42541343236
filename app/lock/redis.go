package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-auctions/app/metrics"
)

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	client *redis.Client
	now    func() time.Time
	logger logrus.FieldLogger
}

type Option func(*RedisLocker)

// WithClock overrides the clock used for lease bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(l *RedisLocker) {
		l.now = now
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(l *RedisLocker) {
		l.logger = logger
	}
}

// NewRedisLocker constructs a Redis-based lock manager.
func NewRedisLocker(client *redis.Client, opts ...Option) *RedisLocker {
	l := &RedisLocker{
		client: client,
		now:    time.Now,
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire sets key to a fresh token with NX and the lease as TTL, retrying while the key is held.
func (l *RedisLocker) Acquire(ctx context.Context, key string, lease time.Duration, policy RetryPolicy) (*Handle, error) {
	if lease <= 0 {
		return nil, ErrInvalidLease
	}

	token := uuid.NewString()
	started := time.Now()

	for attempt := 0; ; attempt++ {
		// Taken before the write so the local deadline never outlives the TTL in Redis.
		acquiredAt := l.now()

		ok, err := l.client.SetNX(ctx, key, token, lease).Result()
		if err != nil {
			return nil, fmt.Errorf("set lock %s: %w", key, err)
		}
		if ok {
			metrics.LockAcquireDuration.Observe(time.Since(started).Seconds())
			return &Handle{Key: key, Token: token, Lease: lease, AcquiredAt: acquiredAt}, nil
		}

		if attempt >= policy.MaxRetries {
			metrics.LockAcquireTimeouts.Inc()
			return nil, fmt.Errorf("%w: %s after %d attempts", ErrLockAcquisitionTimeout, key, attempt+1)
		}
		if err := sleep(ctx, policy.Delay); err != nil {
			return nil, err
		}
	}
}

// Release deletes the lock key if it still holds the handle's token.
func (l *RedisLocker) Release(ctx context.Context, handle *Handle) error {
	if handle == nil {
		return nil
	}

	deleted, err := releaseScript.Run(ctx, l.client, []string{handle.Key}, handle.Token).Int64()
	if err != nil {
		return fmt.Errorf("release lock %s: %w", handle.Key, err)
	}
	if deleted == 0 {
		return fmt.Errorf("%w: %s", ErrLockNotHeld, handle.Key)
	}
	return nil
}

// WithLock runs fn under the lock for key and releases it on every exit path.
func (l *RedisLocker) WithLock(ctx context.Context, key string, lease time.Duration, policy RetryPolicy, fn CriticalSection) error {
	handle, err := l.Acquire(ctx, key, lease, policy)
	if err != nil {
		return err
	}
	defer func() {
		if err := l.Release(context.Background(), handle); err != nil {
			l.logger.WithError(err).WithField("lock_key", key).Warn("lock release failed")
		}
	}()

	return fn(ctx, NewGuard(l.client, handle, l.now))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
