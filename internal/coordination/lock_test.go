package coordination_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/harvester-service/internal/coordination"
)

func newLocker(t *testing.T) (*coordination.Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return coordination.NewLocker(rdb, "", time.Minute), mr
}

func TestAcquireIsExclusive(t *testing.T) {
	l, mr := newLocker(t)
	ctx := context.Background()

	lock, err := l.Acquire(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, lock.Token())
	assert.True(t, mr.Exists(coordination.DefaultKey))

	_, err = l.Acquire(ctx)
	assert.ErrorIs(t, err, coordination.ErrLockNotAcquired)

	require.NoError(t, lock.Release(ctx))
	assert.False(t, mr.Exists(coordination.DefaultKey))

	again, err := l.Acquire(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, lock.Token(), again.Token())
}

func TestLockExpires(t *testing.T) {
	l, mr := newLocker(t)
	ctx := context.Background()

	lock, err := l.Acquire(ctx)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	other, err := l.Acquire(ctx)
	require.NoError(t, err)

	assert.ErrorIs(t, lock.Release(ctx), coordination.ErrLockNotHeld)
	assert.True(t, mr.Exists(coordination.DefaultKey), "stale holder must not delete the new lock")
	assert.NoError(t, other.Release(ctx))
}

func TestAcquireRedisDown(t *testing.T) {
	l, mr := newLocker(t)
	mr.Close()

	_, err := l.Acquire(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, coordination.ErrLockNotAcquired)
}
