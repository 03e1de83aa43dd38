package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes work on one session across server replicas
// that share a journal backend.
type DistributedLocker interface {
	// Lock blocks until the lock for key is held or ctx is done.
	// The returned UnlockFunc MUST be called; the TTL bounds a crashed holder.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
