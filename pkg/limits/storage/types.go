package storage

import (
	"context"
	"time"
)

// Backend is the quota store consulted by the rate limiter. It records
// request timestamps per key and admits a request only while the count of
// timestamps strictly inside the trailing window is below the limit.
//
// Implementations must make Admit atomic with respect to concurrent calls
// for the same key: two racing requests against a key with one slot left
// must not both be admitted.
type Backend interface {
	// Admit purges entries older than window, then admits and records the
	// current timestamp if the in-window count is below limit. Returns
	// whether the request was admitted. An error means the store itself
	// could not be consulted, not that the request was over quota.
	Admit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)

	// Close releases any resources held by the backend.
	Close() error
}
