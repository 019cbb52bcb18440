package file

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/tessera/pkg/ports"
	"github.com/gofrs/flock"
)

// Locker implements ports.Locker with advisory file locks, one lock file per key.
// The ttl argument is ignored: the OS releases the lock when the holder dies.
type Locker struct {
	dir        string
	retryDelay time.Duration
}

// NewLocker creates a Locker storing lock files under dir.
func NewLocker(dir string) *Locker {
	return &Locker{dir: dir, retryDelay: 100 * time.Millisecond}
}

// Lock blocks until the file lock for key is held or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string, _ time.Duration) (ports.UnlockFunc, error) {
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to ensure lock directory: %w", err)
	}

	fl := flock.New(filepath.Join(l.dir, url.PathEscape(key)+".lock"))
	ok, err := fl.TryLockContext(ctx, l.retryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire file lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("failed to acquire file lock for %q", key)
	}

	return func(context.Context) error {
		return fl.Unlock()
	}, nil
}
