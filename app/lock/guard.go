package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guard is the only store access a critical section gets. Every operation
// checks the lease first and fails with ErrLockExpired without reaching Redis
// once the deadline has passed. The check happens at operation boundaries
// only; computation between operations is never interrupted.
type Guard struct {
	client redis.Cmdable
	handle *Handle
	now    func() time.Time
}

// NewGuard wraps client with the lease held by handle.
func NewGuard(client redis.Cmdable, handle *Handle, now func() time.Time) *Guard {
	if now == nil {
		now = time.Now
	}
	return &Guard{client: client, handle: handle, now: now}
}

// Err reports ErrLockExpired once the lease is over.
func (g *Guard) Err() error {
	if !g.now().Before(g.handle.Deadline()) {
		return fmt.Errorf("%w: %s", ErrLockExpired, g.handle.Key)
	}
	return nil
}

// Handle returns the acquisition this guard is bound to.
func (g *Guard) Handle() *Handle {
	return g.handle
}

func (g *Guard) HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd {
	if err := g.Err(); err != nil {
		cmd := redis.NewMapStringStringCmd(ctx, "hgetall", key)
		cmd.SetErr(err)
		return cmd
	}
	return g.client.HGetAll(ctx, key)
}

// TxPipelined checks the lease and then runs fn as one MULTI/EXEC batch.
func (g *Guard) TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error) {
	if err := g.Err(); err != nil {
		return nil, err
	}
	return g.client.TxPipelined(ctx, fn)
}
