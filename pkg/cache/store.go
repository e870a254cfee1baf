package cache

import (
	"context"
	"errors"
)

var (
	// ErrCacheMiss indicates the requested key was not found or was expired.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates a stored entry could not be decoded.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Stats describes the current state of a store. Valid and Expired are
// computed against the current time at call, never cached.
type Stats struct {
	Total   int
	Valid   int
	Expired int
}

// Store is a TTL-bounded key/value store keyed by normalized
// (restaurant name, source) pairs.
//
// Get returns ErrCacheMiss for absent keys and for expired entries; an
// expired entry is evicted as a side effect of the lookup. Set fully replaces
// whatever was stored under the entry's key. CleanupExpired sweeps all
// entries and returns the number evicted; calling it again without time
// passing removes nothing.
type Store[P any] interface {
	Get(ctx context.Context, name, source string) (*Entry[P], error)
	Set(ctx context.Context, entry Entry[P]) error
	Remove(ctx context.Context, name, source string) error
	Clear(ctx context.Context) error
	CleanupExpired(ctx context.Context) (int, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}
