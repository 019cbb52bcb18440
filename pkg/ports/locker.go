package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock.
type UnlockFunc func(ctx context.Context) error

// Locker serializes runs that share a run key across processes.
// The engine itself is single-writer; callers that may start the same run twice
// (a cron schedule, two terminals) take the lock around the whole run.
type Locker interface {
	// Lock blocks until the lock for key is acquired or ctx is canceled.
	// ttl bounds how long a crashed holder keeps the lock, where the backend supports it.
	// Returns an UnlockFunc that MUST be called to release the lock.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
