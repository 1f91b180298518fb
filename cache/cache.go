package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrClosed is returned by operations on a closed cache.
var ErrClosed = errors.New("cache is closed")

// Cache stores response bodies by request key.
type Cache interface {
	// Get returns the stored body and true on a hit.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores body under key.
	Set(ctx context.Context, key string, body []byte) error

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// Key derives the cache key of a request.
func Key(method, url string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(url))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
