package clipstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"voxclip/internal/services"
)

const lockRetryDelay = 100 * time.Millisecond

// Locker hands out per-video advisory file locks.
type Locker struct {
	dir string
}

// NewLocker stores lock files under dir.
func NewLocker(dir string) *Locker {
	return &Locker{dir: dir}
}

// Lock blocks until the lock for videoID is held or ctx is done. The
// returned function releases the lock.
func (l *Locker) Lock(ctx context.Context, videoID string) (func(), error) {
	if err := validateVideoID(videoID); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	lock := flock.New(filepath.Join(l.dir, videoID+".lock"))
	ok, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !ok {
		if ctx.Err() != nil {
			return nil, services.Wrap(services.ErrConflict, "lock", "acquire", fmt.Sprintf("video %s is busy with another command", videoID), ctx.Err())
		}
		return nil, fmt.Errorf("acquire lock for %s: %w", videoID, err)
	}
	return func() { _ = lock.Unlock() }, nil
}

// TryLock acquires the lock for videoID without waiting.
func (l *Locker) TryLock(videoID string) (func(), bool, error) {
	if err := validateVideoID(videoID); err != nil {
		return nil, false, err
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, false, fmt.Errorf("create lock dir: %w", err)
	}
	lock := flock.New(filepath.Join(l.dir, videoID+".lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock for %s: %w", videoID, err)
	}
	if !ok {
		return nil, false, nil
	}
	return func() { _ = lock.Unlock() }, true, nil
}
