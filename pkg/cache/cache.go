// Package cache stores rendered artifacts, keyed by a hash of the input they
// were rendered from.
//
// Rendering a tree through Graphviz takes far longer than playing a
// scenario, and the same tree is drawn again and again: every poll of
// /layout.svg and every `algoviz layout -f svg` of an unchanged scenario.
// A [Cache] lets callers skip the render when the DOT source is unchanged.
//
// Three implementations are provided:
//   - [FileCache]: one file per entry under a directory, for the CLI
//   - [RedisCache]: shared between processes using the redis state backend
//   - [NullCache]: stores nothing
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the value for key and whether it was found.
	// Expired entries are reported as misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources.
	Close() error
}
