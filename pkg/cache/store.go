package cache

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable marks a transient cache outage. Callers must treat it as a
// degraded-mode signal, never as a fatal error: every component consulting
// the conversation cache has an explicit behavior for a missing answer.
var ErrUnavailable = errors.New("conversation cache unavailable")

// Store is the shared conversation cache holding buffer window snapshots and
// handoff pause markers, keyed by conversation and expiring by TTL.
type Store interface {
	// Get returns the value and whether the key was present. A false second
	// return with a nil error means the key simply does not exist.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set writes the value with the given TTL. A zero TTL means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error
}
