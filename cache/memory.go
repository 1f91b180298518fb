package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// DefaultMemoryMaxBytes bounds the total body size a Memory cache holds.
const DefaultMemoryMaxBytes = 64 << 20

// Memory is an in-process cache bounded by the total size of the stored
// bodies, with an optional TTL. Admission and eviction are ristretto's
// TinyLFU policy, so a Set may be dropped when the cache is full.
type Memory struct {
	store  *ristretto.Cache[string, []byte]
	ttl    time.Duration
	closed atomic.Bool
}

// NewMemory creates a memory cache holding up to DefaultMemoryMaxBytes. A
// zero ttl keeps entries until they are evicted or cleared.
func NewMemory(ttl time.Duration) (*Memory, error) {
	return NewMemoryWithLimit(ttl, DefaultMemoryMaxBytes)
}

// NewMemoryWithLimit is NewMemory with an explicit size bound in bytes.
func NewMemoryWithLimit(ttl time.Duration, maxBytes int64) (*Memory, error) {
	if maxBytes <= 0 {
		return nil, fmt.Errorf("memory cache size must be positive, got %d", maxBytes)
	}
	store, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		// About ten counters per expected entry, assuming bodies of a few KiB.
		NumCounters:        max(maxBytes/400, 1000),
		MaxCost:            maxBytes,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	return &Memory{store: store, ttl: ttl}, nil
}

// Get returns a copy of the stored body. Expired entries miss.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	if m.closed.Load() {
		return nil, false, ErrClosed
	}
	body, ok := m.store.Get(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), body...), true, nil
}

// Set stores a copy of body. It returns once the entry is visible to Get
// or has been rejected by the admission policy.
func (m *Memory) Set(_ context.Context, key string, body []byte) error {
	if m.closed.Load() {
		return ErrClosed
	}
	b := append([]byte(nil), body...)
	if m.ttl > 0 {
		m.store.SetWithTTL(key, b, int64(len(b)), m.ttl)
	} else {
		m.store.Set(key, b, int64(len(b)))
	}
	m.store.Wait()
	return nil
}

// Clear removes every entry.
func (m *Memory) Clear(_ context.Context) error {
	if m.closed.Load() {
		return ErrClosed
	}
	m.store.Clear()
	return nil
}

// Ping fails only after Close.
func (m *Memory) Ping(_ context.Context) error {
	if m.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Close drops all entries and stops the cache's background workers.
func (m *Memory) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	m.store.Close()
	return nil
}
