package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/parley/internal/adapters/redis"
)

func TestLockerLockUnlock(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	locker := redis.NewLocker(client, "parley:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "+15550100", 5*time.Second)
	require.NoError(t, err)
	require.NotNil(t, unlock)
	assert.True(t, mr.Exists("parley:lock:+15550100"))

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("parley:lock:+15550100"))
}

func TestLockerContention(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	first := redis.NewLocker(client, "parley:")
	second := redis.NewLocker(client, "parley:")
	ctx := context.Background()

	unlock, err := first.Lock(ctx, "shared", 5*time.Second)
	require.NoError(t, err)

	// The second holder blocks until its context expires.
	short, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = second.Lock(short, "shared", 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// After release the second holder gets through.
	require.NoError(t, unlock(ctx))
	unlock2, err := second.Lock(ctx, "shared", 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestLockerUnlockIsOwnerOnly(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	locker := redis.NewLocker(client, "parley:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "owned", time.Minute)
	require.NoError(t, err)

	// A stale holder whose lock already expired and was reacquired must
	// not delete the new holder's lock.
	mr.Set("parley:lock:owned", "someone-else")
	require.NoError(t, unlock(ctx))
	assert.True(t, mr.Exists("parley:lock:owned"))
}
