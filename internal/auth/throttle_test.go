package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestThrottle(t *testing.T, limit int) (*Throttle, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	th := NewThrottle(client, limit, time.Minute)
	require.NotNil(t, th)
	return th, mr
}

func TestThrottleDisabledWithoutClient(t *testing.T) {
	require.Nil(t, NewThrottle(nil, 5, time.Minute))
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	require.Nil(t, NewThrottle(client, 0, time.Minute))
	require.Nil(t, NewThrottle(client, 5, 0))
}

func TestThrottleBlocksAfterLimit(t *testing.T) {
	th, _ := newTestThrottle(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		blocked, err := th.Blocked(ctx, "alice", "10.0.0.1:5555")
		require.NoError(t, err)
		require.False(t, blocked)
		require.NoError(t, th.RecordFailure(ctx, "alice", "10.0.0.1:5555"))
	}

	blocked, err := th.Blocked(ctx, "alice", "10.0.0.1:5555")
	require.NoError(t, err)
	require.True(t, blocked)

	// Same username from another host is counted separately.
	blocked, err = th.Blocked(ctx, "alice", "10.0.0.2:5555")
	require.NoError(t, err)
	require.False(t, blocked)
}

func TestThrottleResetClearsCounter(t *testing.T) {
	th, _ := newTestThrottle(t, 1)
	ctx := context.Background()

	require.NoError(t, th.RecordFailure(ctx, "bob", "10.0.0.1:5555"))
	blocked, err := th.Blocked(ctx, "bob", "10.0.0.1:5555")
	require.NoError(t, err)
	require.True(t, blocked)

	require.NoError(t, th.Reset(ctx, "bob", "10.0.0.1:5555"))
	blocked, err = th.Blocked(ctx, "bob", "10.0.0.1:5555")
	require.NoError(t, err)
	require.False(t, blocked)
}

func TestThrottleWindowExpires(t *testing.T) {
	th, mr := newTestThrottle(t, 1)
	ctx := context.Background()

	require.NoError(t, th.RecordFailure(ctx, "carol", "10.0.0.1:5555"))
	mr.FastForward(2 * time.Minute)

	blocked, err := th.Blocked(ctx, "carol", "10.0.0.1:5555")
	require.NoError(t, err)
	require.False(t, blocked)
}
