package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker coordinates session ownership across replicas.
// The session manager already serializes turns within one process; a
// locker extends that guarantee to multi-instance deployments.
type DistributedLocker interface {
	// Lock acquires the lock for a key (a session ID), blocking until it
	// is acquired or the context is canceled. The returned UnlockFunc
	// MUST be called to release the lock; the TTL bounds how long a
	// crashed holder can wedge the session.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
