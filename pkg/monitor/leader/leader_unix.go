//go:build unix

package leader

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// TryAcquire attempts a non-blocking exclusive lock on path, creating
// the file if needed. Returns ErrNotLeader when another process holds
// it.
func TryAcquire(path string) (*Lock, error) {
	fd, err := unix.Open(path, unix.O_CREAT|unix.O_RDWR|unix.O_CLOEXEC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}

	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		unix.Close(fd)
		if err == unix.EWOULDBLOCK {
			return nil, ErrNotLeader
		}
		return nil, fmt.Errorf("flock %s: %w", path, err)
	}

	return &Lock{path: path, fd: fd}, nil
}

// Release drops the lock. Safe to call once on a held lock.
func (l *Lock) Release() error {
	if err := unix.Flock(l.fd, unix.LOCK_UN); err != nil {
		unix.Close(l.fd)
		return fmt.Errorf("unlock %s: %w", l.path, err)
	}
	return unix.Close(l.fd)
}
