package instance

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another process holds the instance lock.
var ErrLocked = errors.New("another instance holds the lock")

const retryDelay = 10 * time.Millisecond

// Lock is an advisory, process-wide lock on a file. It keeps two copies of the
// service configured with the same lock file from running side by side.
type Lock struct {
	fileLock *flock.Flock
	timeout  time.Duration
}

// New prepares a lock on path. A zero timeout means a single attempt.
func New(path string, timeout time.Duration) (*Lock, error) {
	if path == "" {
		return nil, fmt.Errorf("lock path cannot be empty")
	}
	if timeout < 0 {
		return nil, fmt.Errorf("lock timeout cannot be negative")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	return &Lock{
		fileLock: flock.New(path),
		timeout:  timeout,
	}, nil
}

// Path returns the lock file path
func (l *Lock) Path() string {
	return l.fileLock.Path()
}

// Acquire takes the lock, retrying until the configured timeout or the context
// deadline, whichever comes first.
func (l *Lock) Acquire(ctx context.Context) error {
	if l.timeout == 0 {
		locked, err := l.fileLock.TryLock()
		if err != nil {
			return fmt.Errorf("failed to acquire lock %s: %w", l.Path(), err)
		}
		if !locked {
			return fmt.Errorf("%w: %s", ErrLocked, l.Path())
		}
		return nil
	}

	lockCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	locked, err := l.fileLock.TryLockContext(lockCtx, retryDelay)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return fmt.Errorf("%w: %s after %v", ErrLocked, l.Path(), l.timeout)
		}
		return fmt.Errorf("failed to acquire lock %s: %w", l.Path(), err)
	}
	if !locked {
		return fmt.Errorf("%w: %s after %v", ErrLocked, l.Path(), l.timeout)
	}
	return nil
}

// Release unlocks the file. The lock file itself is left in place.
func (l *Lock) Release() error {
	return l.fileLock.Unlock()
}
