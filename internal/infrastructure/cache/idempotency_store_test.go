package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erp/posledger/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInMemoryIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Close()

	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	t.Run("first key is accepted, repeat is rejected", func(t *testing.T) {
		ok, err := store.MarkProcessed(ctx, "checkout-1", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.MarkProcessed(ctx, "checkout-1", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		seen, err := store.IsProcessed(ctx, "checkout-1")
		require.NoError(t, err)
		assert.True(t, seen)
	})

	t.Run("expired key can be reused", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "void-1", time.Minute)
		require.NoError(t, err)

		clock = clock.Add(2 * time.Minute)
		seen, err := store.IsProcessed(ctx, "void-1")
		require.NoError(t, err)
		assert.False(t, seen)

		ok, err := store.MarkProcessed(ctx, "void-1", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("released key can be reused", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "receipt-1", time.Hour)
		require.NoError(t, err)
		require.NoError(t, store.Release(ctx, "receipt-1"))

		ok, err := store.MarkProcessed(ctx, "receipt-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("sweep drops expired keys only", func(t *testing.T) {
		_, _ = store.MarkProcessed(ctx, "short", time.Second)
		_, _ = store.MarkProcessed(ctx, "long", time.Hour)
		before := store.Size()

		clock = clock.Add(time.Minute)
		store.sweep()

		assert.Less(t, store.Size(), before)
		seen, _ := store.IsProcessed(ctx, "long")
		assert.True(t, seen)
	})
}

func TestInMemoryIdempotencyStore_ConcurrentMark(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Close()

	var accepted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := store.MarkProcessed(context.Background(), "same", time.Hour); ok {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, accepted.Load())
}

func TestInMemoryIdempotencyStore_CloseTwice(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Millisecond)
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestIdempotencyStoreFactory(t *testing.T) {
	ctx := context.Background()
	unreachable := config.RedisConfig{Host: "127.0.0.1", Port: 1}

	t.Run("no redis host uses memory", func(t *testing.T) {
		store, err := NewIdempotencyStoreFactory(config.RedisConfig{}).CreateStore(ctx)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})

	t.Run("unreachable redis falls back with a warning", func(t *testing.T) {
		core, recorded := observer.New(zapcore.WarnLevel)
		store, err := NewIdempotencyStoreFactory(unreachable, WithLogger(zap.New(core))).CreateStore(ctx)
		require.NoError(t, err)
		defer store.Close()

		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
		assert.Equal(t, 1, recorded.Len())
	})

	t.Run("fallback disabled returns the error", func(t *testing.T) {
		_, err := NewIdempotencyStoreFactory(unreachable, WithInMemoryFallback(false)).CreateStore(ctx)
		assert.ErrorContains(t, err, "redis required")
	})
}
