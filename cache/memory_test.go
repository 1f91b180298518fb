package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	a := Key("POST", "http://chp/query/", []byte(`{"a":1}`))
	assert.Len(t, a, 64)
	assert.Equal(t, a, Key("POST", "http://chp/query/", []byte(`{"a":1}`)))
	assert.NotEqual(t, a, Key("GET", "http://chp/query/", []byte(`{"a":1}`)))
	assert.NotEqual(t, a, Key("POST", "http://chp/query/", []byte(`{"a":2}`)))
}

func newTestMemory(t *testing.T, ttl time.Duration) *Memory {
	t.Helper()
	m, err := NewMemory(ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory(t, 0)

	_, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	body := []byte("hello")
	require.NoError(t, m.Set(ctx, "k", body))
	body[0] = 'j'

	got, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello", string(got), "stored body must not alias the caller's slice")

	got[0] = 'y'
	again, _, _ := m.Get(ctx, "k")
	assert.Equal(t, "hello", string(again), "returned body must not alias the stored one")

	require.NoError(t, m.Set(ctx, "k", []byte("world")))
	got, _, _ = m.Get(ctx, "k")
	assert.Equal(t, "world", string(got))

	require.NoError(t, m.Clear(ctx))
	_, ok, _ = m.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemory_TTL(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory(t, 50*time.Millisecond)

	require.NoError(t, m.Set(ctx, "k", []byte("v")))
	_, ok, _ := m.Get(ctx, "k")
	assert.True(t, ok)

	assert.Eventually(t, func() bool {
		_, ok, _ := m.Get(ctx, "k")
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNewMemoryWithLimit(t *testing.T) {
	_, err := NewMemoryWithLimit(0, 0)
	assert.Error(t, err)

	m, err := NewMemoryWithLimit(0, 1<<10)
	require.NoError(t, err)
	defer m.Close()

	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "big", make([]byte, 2<<10)))
	_, ok, _ := m.Get(ctx, "big")
	assert.False(t, ok, "a body larger than the cache is never admitted")
}

func TestMemory_Closed(t *testing.T) {
	ctx := context.Background()
	m, err := NewMemory(0)
	require.NoError(t, err)
	require.NoError(t, m.Ping(ctx))
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	_, _, err = m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, m.Set(ctx, "k", nil), ErrClosed)
	assert.ErrorIs(t, m.Clear(ctx), ErrClosed)
	assert.ErrorIs(t, m.Ping(ctx), ErrClosed)
}
