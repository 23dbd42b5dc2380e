package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// memoryKV is a KVCache with TTL semantics, enough to exercise the
// read-through and invalidation paths without a Redis instance.
type memoryKV struct {
	entries map[string]memoryEntry
	broken  bool
	sets    int
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

func newMemoryKV() *memoryKV {
	return &memoryKV{entries: make(map[string]memoryEntry)}
}

func (m *memoryKV) Get(ctx context.Context, key string) (string, error) {
	if m.broken {
		return "", errors.New("cache unavailable")
	}
	e, ok := m.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		delete(m.entries, key)
		return "", ErrCacheMiss
	}
	return e.value, nil
}

func (m *memoryKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if m.broken {
		return errors.New("cache unavailable")
	}
	m.sets++
	m.entries[key] = memoryEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (m *memoryKV) Del(ctx context.Context, key string) error {
	if m.broken {
		return errors.New("cache unavailable")
	}
	delete(m.entries, key)
	return nil
}

func TestUnreadCacheReadThrough(t *testing.T) {
	store := setupTestStore(t)
	kv := newMemoryKV()
	cache := NewUnreadCountCache(store, kv)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.NoError(t, store.CreateNotification(makeNotification(1, "order")))
	}

	count, err := cache.Get(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Equal(t, 1, kv.sets, "miss populates the cache")

	// Second read is served from cache, no new write
	count, err = cache.Get(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Equal(t, 1, kv.sets)
}

func TestUnreadCacheInvalidationGivesFreshCount(t *testing.T) {
	store := setupTestStore(t)
	kv := newMemoryKV()
	cache := NewUnreadCountCache(store, kv)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.NoError(t, store.CreateNotification(makeNotification(1, "order")))
	}
	_, err := cache.Get(ctx, 1)
	assert.NoError(t, err)

	// Mutation path: mark one read, then invalidate
	notifs, _, _ := store.ListByUser(1, ListFilter{})
	assert.NoError(t, store.MarkRead(1, notifs[0].ID))
	cache.Invalidate(ctx, 1)

	count, err := cache.Get(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), count, "no stale read after invalidation")

	fresh, err := store.CountUnread(1)
	assert.NoError(t, err)
	assert.Equal(t, fresh, count)
}

func TestUnreadCacheStaleWithoutInvalidationUntilTTL(t *testing.T) {
	store := setupTestStore(t)
	kv := newMemoryKV()
	cache := NewUnreadCountCache(store, kv)
	ctx := context.Background()

	assert.NoError(t, store.CreateNotification(makeNotification(1, "order")))
	count, _ := cache.Get(ctx, 1)
	assert.Equal(t, int64(1), count)

	// A write that skips invalidation leaves the entry stale within TTL
	assert.NoError(t, store.CreateNotification(makeNotification(1, "order")))
	count, _ = cache.Get(ctx, 1)
	assert.Equal(t, int64(1), count)

	// Expire the entry manually; the next read recomputes
	kv.entries = map[string]memoryEntry{}
	count, _ = cache.Get(ctx, 1)
	assert.Equal(t, int64(2), count)
}

func TestUnreadCacheOutageFallsBackToStore(t *testing.T) {
	store := setupTestStore(t)
	kv := newMemoryKV()
	kv.broken = true
	cache := NewUnreadCountCache(store, kv)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		assert.NoError(t, store.CreateNotification(makeNotification(1, "order")))
	}

	count, err := cache.Get(ctx, 1)
	assert.NoError(t, err, "cache outage must not fail the read path")
	assert.Equal(t, int64(2), count)

	// Invalidate on a broken cache is swallowed too
	cache.Invalidate(ctx, 1)
}

func TestUnreadCacheNilBackend(t *testing.T) {
	store := setupTestStore(t)
	cache := NewUnreadCountCache(store, nil)
	ctx := context.Background()

	assert.NoError(t, store.CreateNotification(makeNotification(1, "order")))
	count, err := cache.Get(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)
	cache.Invalidate(ctx, 1)
}
