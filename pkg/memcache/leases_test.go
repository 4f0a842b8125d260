package mem

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestLeases_ExclusiveUntilReleased(t *testing.T) {
	ctx := context.Background()
	l := NewLeases()

	token, ok, err := l.Acquire(ctx, "client-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.Acquire(ctx, "client-1", time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	// other keys are independent
	_, ok, _ = l.Acquire(ctx, "client-2", time.Minute)
	require.True(t, ok)

	// a stale token cannot release someone else's lease
	require.NoError(t, l.Release(ctx, "client-1", "stale"))
	_, ok, _ = l.Acquire(ctx, "client-1", time.Minute)
	require.False(t, ok)

	require.NoError(t, l.Release(ctx, "client-1", token))
	_, ok, _ = l.Acquire(ctx, "client-1", time.Minute)
	require.True(t, ok)
}

func TestLeases_Expire(t *testing.T) {
	ctx := context.Background()
	l := NewLeases()
	now := time.Now()
	l.now = func() time.Time { return now }

	_, ok, _ := l.Acquire(ctx, "k", time.Second)
	require.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok, _ = l.Acquire(ctx, "k", time.Second)
	require.True(t, ok)
}

func TestLeases_ConcurrentAcquire(t *testing.T) {
	ctx := context.Background()
	l := NewLeases()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok, _ := l.Acquire(ctx, "same", time.Minute); ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, wins)
}

func TestRedisLeases_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	_, ok, err := NewRedisLeases(client).Acquire(context.Background(), "k", time.Second)
	require.Error(t, err)
	require.False(t, ok)
}
