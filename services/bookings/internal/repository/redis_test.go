package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/hotel-frontdesk/services/bookings/internal/domain"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestIdempotencyRepository(t *testing.T) {
	mr, client := newRedis(t)
	repo := NewIdempotencyRepository(client)
	ctx := context.Background()

	t.Run("miss is empty without error", func(t *testing.T) {
		val, err := repo.Get(ctx, "idempotency:nope")
		require.NoError(t, err)
		assert.Empty(t, val)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, repo.Set(ctx, "idempotency:k", `{"status":201}`, time.Hour))
		val, err := repo.Get(ctx, "idempotency:k")
		require.NoError(t, err)
		assert.Equal(t, `{"status":201}`, val)
	})

	t.Run("expires", func(t *testing.T) {
		require.NoError(t, repo.Set(ctx, "idempotency:short", "x", time.Minute))
		mr.FastForward(2 * time.Minute)
		val, err := repo.Get(ctx, "idempotency:short")
		require.NoError(t, err)
		assert.Empty(t, val)
	})
}

func TestStatsCache(t *testing.T) {
	mr, client := newRedis(t)
	cache := NewStatsCache(client, 30*time.Second)
	ctx := context.Background()
	day := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)

	gen, err := cache.Generation(ctx)
	require.NoError(t, err)
	assert.Zero(t, gen)

	_, ok, err := cache.Get(ctx, gen, day)
	require.NoError(t, err)
	assert.False(t, ok)

	want := &domain.RoomStats{Total: 10, Occupied: 4, Available: 6}
	require.NoError(t, cache.Set(ctx, gen, day, want))
	require.NoError(t, cache.Set(ctx, gen, day.AddDate(0, 0, 1), &domain.RoomStats{Total: 10}))

	got, ok, err := cache.Get(ctx, gen, day)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, cache.Invalidate(ctx))
	next, err := cache.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, gen+1, next)
	_, ok, err = cache.Get(ctx, next, day)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, next, day, want))
	mr.FastForward(31 * time.Second)
	_, ok, err = cache.Get(ctx, next, day)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStatsCache_SetFromBeforeInvalidateIsNotServed(t *testing.T) {
	_, client := newRedis(t)
	cache := NewStatsCache(client, 30*time.Second)
	ctx := context.Background()
	day := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)

	// reader takes the generation and loads figures
	gen, err := cache.Generation(ctx)
	require.NoError(t, err)
	stale := &domain.RoomStats{Total: 10, Occupied: 4, Available: 6}

	// a booking commits in between
	require.NoError(t, cache.Invalidate(ctx))

	// reader stores what it loaded
	require.NoError(t, cache.Set(ctx, gen, day, stale))

	current, err := cache.Generation(ctx)
	require.NoError(t, err)
	_, ok, err := cache.Get(ctx, current, day)
	require.NoError(t, err)
	assert.False(t, ok)
}
