package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// setupTestRedis creates a miniredis instance and a redis client for testing
func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return mr, client
}

func TestKey(t *testing.T) {
	assert.Equal(t, "interview:42:generation", Key(42))
	assert.NotEqual(t, Key(42), Key(43))
}

func TestLocalTryLock(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	release, err := l.TryLock(ctx, "a")
	require.NoError(t, err)

	_, err = l.TryLock(ctx, "a")
	assert.ErrorIs(t, err, ErrBusy)

	other, err := l.TryLock(ctx, "b")
	require.NoError(t, err, "different keys must not contend")
	other()

	release()
	release()

	again, err := l.TryLock(ctx, "a")
	require.NoError(t, err)
	again()
}

func TestLocalSingleWinner(t *testing.T) {
	l := NewLocal()
	var (
		wg      sync.WaitGroup
		winners int32
		start   = make(chan struct{})
	)

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := l.TryLock(context.Background(), "same"); err == nil {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), winners)
}

func TestLocalCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLocal().TryLock(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRedisTryLock(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	l := NewRedis(rdb, time.Minute, nil)
	ctx := context.Background()

	release, err := l.TryLock(ctx, "interview:1:generation")
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:interview:1:generation"))
	assert.Equal(t, time.Minute, mr.TTL("lock:interview:1:generation"))

	_, err = l.TryLock(ctx, "interview:1:generation")
	assert.ErrorIs(t, err, ErrBusy)

	release()
	assert.False(t, mr.Exists("lock:interview:1:generation"))

	again, err := l.TryLock(ctx, "interview:1:generation")
	require.NoError(t, err)
	again()
}

func TestRedisReleaseKeepsForeignHolder(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	core, logs := observer.New(zap.WarnLevel)
	l := NewRedis(rdb, time.Minute, zap.New(core))

	release, err := l.TryLock(context.Background(), "k")
	require.NoError(t, err)

	// the first holder's ttl ran out and another replica took the key
	mr.FastForward(2 * time.Minute)
	require.NoError(t, mr.Set("lock:k", "someone-else"))

	release()

	value, err := mr.Get("lock:k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", value)
	assert.Equal(t, 1, logs.FilterMessage("Generation lock expired before release").Len())
}

func TestRedisReleaseFailureIsLogged(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	core, logs := observer.New(zap.WarnLevel)
	l := NewRedis(rdb, time.Minute, zap.New(core))

	release, err := l.TryLock(context.Background(), "interview:7:generation")
	require.NoError(t, err)

	mr.Close()
	release()

	entries := logs.FilterMessage("Failed to release generation lock, it stays held until its TTL expires").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "interview:7:generation", fields["key"])
	assert.NotEmpty(t, fields["error"])

	release()
	assert.Equal(t, 1, logs.Len(), "release is idempotent")
}

func TestRedisCleanReleaseLogsNothing(t *testing.T) {
	_, rdb := setupTestRedis(t)
	core, logs := observer.New(zap.WarnLevel)

	release, err := NewRedis(rdb, time.Minute, zap.New(core)).TryLock(context.Background(), "k")
	require.NoError(t, err)
	release()

	assert.Zero(t, logs.Len())
}

func TestRedisTTLExpiry(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	l := NewRedis(rdb, 0, nil)

	_, err := l.TryLock(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, mr.TTL("lock:k"))

	mr.FastForward(DefaultTTL + time.Second)

	release, err := l.TryLock(context.Background(), "k")
	require.NoError(t, err, "an expired lock must be takeable")
	release()
}

func TestRedisUnavailable(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	mr.Close()

	_, err := NewRedis(rdb, time.Minute, nil).TryLock(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBusy)
}

func TestNoop(t *testing.T) {
	var l Locker = Noop{}

	first, err := l.TryLock(context.Background(), "k")
	require.NoError(t, err)
	second, err := l.TryLock(context.Background(), "k")
	require.NoError(t, err)
	first()
	second()
}
