package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewMemory(4, time.Minute)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "https://example.com")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Put(ctx, "https://example.com", []byte("<html>hi</html>")))

	body, ok, err := store.Get(ctx, "https://example.com")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("<html>hi</html>"), body)
}

func TestMemoryExpiredEntryIsAbsent(t *testing.T) {
	t.Parallel()

	store := NewMemory(4, 50*time.Millisecond)
	ctx := context.Background()

	base := time.Now()
	store.now = func() time.Time { return base }
	require.NoError(t, store.Put(ctx, "key", []byte("body")))

	store.now = func() time.Time { return base.Add(49 * time.Millisecond) }
	_, ok, err := store.Get(ctx, "key")
	require.NoError(t, err)
	require.True(t, ok)

	store.now = func() time.Time { return base.Add(50 * time.Millisecond) }
	_, ok, err = store.Get(ctx, "key")
	require.NoError(t, err)
	require.False(t, ok)
	require.Zero(t, store.Len(), "expired entry should be removed on read")
}

func TestMemoryEvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	store := NewMemory(2, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a", []byte("a")))
	require.NoError(t, store.Put(ctx, "b", []byte("b")))

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, store.Put(ctx, "c", []byte("c")))
	require.Equal(t, 2, store.Len())

	_, ok, err = store.Get(ctx, "b")
	require.NoError(t, err)
	require.False(t, ok, "least recently used entry should be evicted")

	_, ok, err = store.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestMemoryReturnsCopies(t *testing.T) {
	t.Parallel()

	store := NewMemory(4, time.Minute)
	ctx := context.Background()

	original := []byte("immutable")
	require.NoError(t, store.Put(ctx, "key", original))
	original[0] = 'X'

	body, ok, err := store.Get(ctx, "key")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("immutable"), body)

	body[0] = 'Y'
	again, ok, err := store.Get(ctx, "key")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("immutable"), again)
}

func TestMemoryConcurrentAccess(t *testing.T) {
	t.Parallel()

	store := NewMemory(64, time.Minute)
	ctx := context.Background()

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			key := string(rune('a' + n))
			for j := 0; j < 100; j++ {
				_ = store.Put(ctx, key, []byte(key))
				_, _, _ = store.Get(ctx, key)
			}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	require.LessOrEqual(t, store.Len(), 64)
}
