// Package store defines the key-value store behind session credentials.
//
// The bridge keeps one OAuth credential record per session. The interface
// is deliberately small so a deployment can swap the in-memory backend for
// a persistent one (see the redis subpackage) without touching dispatch
// logic.
package store

import (
	"context"
	"time"
)

// Store is a flat key-value store with optional per-key TTL.
type Store interface {
	// Get retrieves the value for key. Returns (nil, nil) when the key is
	// absent or expired; errors are reserved for backend failures.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. A zero ttl means no expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
