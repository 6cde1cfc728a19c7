package presence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMirror(t *testing.T) (*RedisMirror, *redis.Client) {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return NewRedisMirrorFromClient(client, time.Minute), client
}

func TestRedisMirrorJoinLeave(t *testing.T) {
	m, client := newTestMirror(t)
	ctx := context.Background()
	userID := "test_" + uuid.NewString()
	t.Cleanup(func() { client.Del(ctx, userKey(userID)) })

	online, err := m.Online(ctx, userID)
	require.NoError(t, err)
	assert.False(t, online)

	require.NoError(t, m.Joined(ctx, userID, "s1"))
	require.NoError(t, m.Joined(ctx, userID, "s2"))
	online, err = m.Online(ctx, userID)
	require.NoError(t, err)
	assert.True(t, online)

	ttl, err := client.TTL(ctx, userKey(userID)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, m.Left(ctx, userID, "s1"))
	online, _ = m.Online(ctx, userID)
	assert.True(t, online)

	require.NoError(t, m.Left(ctx, userID, "s2"))
	online, _ = m.Online(ctx, userID)
	assert.False(t, online)
}

func TestRedisMirrorTouchOutlivesTTL(t *testing.T) {
	_, client := newTestMirror(t)
	m := NewRedisMirrorFromClient(client, time.Second)
	ctx := context.Background()
	userID := "test_" + uuid.NewString()
	t.Cleanup(func() { client.Del(ctx, userKey(userID)) })

	require.NoError(t, m.Joined(ctx, userID, "s1"))
	for range 3 {
		time.Sleep(600 * time.Millisecond)
		require.NoError(t, m.Touch(ctx, userID))
	}
	online, err := m.Online(ctx, userID)
	require.NoError(t, err)
	assert.True(t, online, "entry expired while being refreshed")

	time.Sleep(1500 * time.Millisecond)
	online, err = m.Online(ctx, userID)
	require.NoError(t, err)
	assert.False(t, online)
}

func TestNewRedisMirrorRejectsBadURL(t *testing.T) {
	_, err := NewRedisMirror(context.Background(), "://nope", time.Minute)
	assert.Error(t, err)
}
