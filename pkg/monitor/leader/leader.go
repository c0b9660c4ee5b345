// Package leader provides host-wide single-instance election through an
// advisory file lock. Exactly one process per host can hold the lock;
// the rest carry on without the guarded role. The kernel releases the
// lock when the holder exits, so a crashed leader never needs manual
// cleanup.
package leader

import "errors"

// ErrNotLeader is returned when another process already holds the lock.
var ErrNotLeader = errors.New("leader lock held by another process")

// Lock is an acquired leadership lock. Release it on shutdown; the
// operating system also releases it if the process dies.
type Lock struct {
	path string
	fd   int
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }
