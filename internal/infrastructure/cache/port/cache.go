package port

import (
	"context"
	"time"
)

// Cache is the key-value contract the presence tracker runs on.
// Implementations must be safe for concurrent use.
//
// Values are plain strings so the port stays free of serialization concerns.
type Cache interface {
	// Get returns ("", ErrMiss) when the key does not exist.
	Get(ctx context.Context, key string) (string, error)

	// MGet returns one entry per key, in order. Missing keys yield ok=false.
	MGet(ctx context.Context, keys ...string) ([]Entry, error)

	// Set stores value at key with the provided TTL. Zero or negative TTL means
	// no expiration.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Del removes one or more keys and returns the number of keys removed.
	Del(ctx context.Context, keys ...string) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}

// Entry is one MGet result.
type Entry struct {
	Value string
	OK    bool
}

// ErrMiss signals a cache miss so callers can tell it from transport errors.
var ErrMiss = errMiss{}

type errMiss struct{}

func (e errMiss) Error() string { return "cache: miss" }
