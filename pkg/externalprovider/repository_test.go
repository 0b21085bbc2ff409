package externalprovider

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-auth/pkg/utils"
)

func runStateStoreContract(t *testing.T, store StateStore, expire func(time.Duration)) {
	ctx := context.Background()

	t.Run("save then consume once", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, &OAuth2State{State: "s1", Provider: "google", CodeVerifier: "v1"}, time.Minute))

		got, err := store.Consume(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, "google", got.Provider)
		assert.Equal(t, "v1", got.CodeVerifier)
		assert.NotZero(t, got.ExpiresAt)

		_, err = store.Consume(ctx, "s1")
		assert.ErrorIs(t, err, ErrStateNotFound)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := store.Consume(ctx, "nope")
		assert.ErrorIs(t, err, ErrStateNotFound)
	})

	t.Run("empty state rejected", func(t *testing.T) {
		assert.Error(t, store.Save(ctx, &OAuth2State{}, time.Minute))
	})

	t.Run("expired", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, &OAuth2State{State: "s2", Provider: "google"}, time.Minute))
		expire(2 * time.Minute)
		_, err := store.Consume(ctx, "s2")
		assert.ErrorIs(t, err, ErrStateNotFound)
	})

	t.Run("concurrent consume has one winner", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, &OAuth2State{State: "s3", Provider: "google"}, time.Minute))

		var wg sync.WaitGroup
		var mu sync.Mutex
		wins := 0
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := store.Consume(ctx, "s3"); err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, wins)
	})
}

func TestInMemoryStateStore(t *testing.T) {
	clock := utils.NewFixedClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	store := NewInMemoryStateStore(clock)
	runStateStoreContract(t, store, clock.Advance)
}

func TestInMemoryStateStoreCleanup(t *testing.T) {
	ctx := context.Background()
	clock := utils.NewFixedClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	store := NewInMemoryStateStore(clock)

	require.NoError(t, store.Save(ctx, &OAuth2State{State: "old"}, time.Minute))
	require.NoError(t, store.Save(ctx, &OAuth2State{State: "new"}, time.Hour))
	clock.Advance(2 * time.Minute)

	assert.Equal(t, 1, store.CleanupExpiredStates())
	_, err := store.Consume(ctx, "new")
	assert.NoError(t, err)
}

func TestInMemoryStateStoreSavePrunesAbandonedStates(t *testing.T) {
	ctx := context.Background()
	clock := utils.NewFixedClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	store := NewInMemoryStateStore(clock)

	for _, s := range []string{"a", "b", "c"} {
		require.NoError(t, store.Save(ctx, &OAuth2State{State: s, Provider: "google"}, time.Minute))
	}
	require.NoError(t, store.Save(ctx, &OAuth2State{State: "live", Provider: "google"}, time.Hour))
	assert.Len(t, store.states, 4)

	clock.Advance(2 * time.Minute)
	require.NoError(t, store.Save(ctx, &OAuth2State{State: "next", Provider: "google"}, time.Minute))

	assert.Len(t, store.states, 2)
	assert.NotContains(t, store.states, "a")
	assert.Contains(t, store.states, "live")
	assert.Contains(t, store.states, "next")
}

func TestRedisStateStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := NewRedisStateStore(rdb)
	runStateStoreContract(t, store, mr.FastForward)

	t.Run("keys carry ttl", func(t *testing.T) {
		require.NoError(t, store.Save(context.Background(), &OAuth2State{State: "ttl"}, 5*time.Minute))
		assert.Equal(t, 5*time.Minute, mr.TTL("oauth2state:ttl"))
	})

	t.Run("redis down", func(t *testing.T) {
		down := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
		t.Cleanup(func() { _ = down.Close() })

		_, err := NewRedisStateStore(down).Consume(context.Background(), "any")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrStateNotFound)
	})
}
