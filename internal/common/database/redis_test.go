package database

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cif-onboarding/internal/common/config"
)

func TestRedisJSONHelpers(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	require.NoError(t, client.Ping(ctx))

	type entry struct {
		Overall int `json:"overall"`
	}

	var got entry
	found, err := GetJSON(ctx, client.GetClient(), "completion:c-1", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SetJSON(ctx, client.GetClient(), "completion:c-1", entry{Overall: 71}, time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("completion:c-1"))

	found, err = GetJSON(ctx, client.GetClient(), "completion:c-1", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 71, got.Overall)

	require.NoError(t, mr.Set("broken", "{"))
	_, err = GetJSON(ctx, client.GetClient(), "broken", &got)
	assert.ErrorContains(t, err, "decode broken")
}

func TestRedisPing_Unreachable(t *testing.T) {
	client := &RedisClient{Client: redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond})}
	t.Cleanup(func() { _ = client.Close() })

	assert.ErrorContains(t, client.Ping(context.Background()), "redis ping failed")
}
