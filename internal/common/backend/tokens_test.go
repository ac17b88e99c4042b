package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestTokenTTL(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Duration(0), TokenTTL("", now))
	assert.Equal(t, time.Duration(0), TokenTTL("opaque-refresh-token", now))
	assert.Equal(t, time.Duration(0), TokenTTL(signedToken(t, jwt.MapClaims{"sub": "u-1"}), now))
	assert.Equal(t, 7*24*time.Hour, TokenTTL(signedToken(t, jwt.MapClaims{"exp": now.Add(7 * 24 * time.Hour).Unix()}), now))
	assert.Negative(t, TokenTTL(signedToken(t, jwt.MapClaims{"exp": now.Add(-time.Minute).Unix()}), now))
}

func TestRedisTokenStore_RoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisTokenStore(client, "")
	ctx := context.Background()

	pair, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, pair.Empty())

	refresh := signedToken(t, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	require.NoError(t, store.Save(ctx, TokenPair{AccessToken: "a", RefreshToken: refresh}))

	assert.True(t, mr.Exists("backend:tokens"))
	ttl := mr.TTL("backend:tokens")
	assert.True(t, ttl > 58*time.Minute && ttl <= time.Hour, "ttl %s", ttl)

	pair, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", pair.AccessToken)
	assert.Equal(t, refresh, pair.RefreshToken)

	mr.FastForward(time.Hour + time.Second)
	pair, err = store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, pair.Empty())
}

func TestRedisTokenStore_ExpiredRefreshIsDropped(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store := NewRedisTokenStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "tokens")
	require.NoError(t, mr.Set("tokens", `{"access_token":"old"}`))

	expired := signedToken(t, jwt.MapClaims{"exp": time.Now().Add(-time.Hour).Unix()})
	require.NoError(t, store.Save(context.Background(), TokenPair{AccessToken: "a", RefreshToken: expired}))
	assert.False(t, mr.Exists("tokens"))
}

func TestRedisTokenStore_Errors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisTokenStore(db, "backend:tokens")
	ctx := context.Background()

	mock.ExpectGet("backend:tokens").SetErr(errors.New("connection refused"))
	_, err := store.Load(ctx)
	assert.ErrorContains(t, err, "load tokens")

	mock.ExpectGet("backend:tokens").SetVal("{not json")
	_, err = store.Load(ctx)
	assert.ErrorContains(t, err, "decode tokens")

	mock.ExpectSet("backend:tokens", []byte(`{"access_token":"a"}`), 0).SetVal("OK")
	require.NoError(t, store.Save(ctx, TokenPair{AccessToken: "a"}))

	mock.ExpectDel("backend:tokens").SetErr(errors.New("readonly"))
	assert.ErrorContains(t, store.Clear(ctx), "clear tokens")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryTokenStore(t *testing.T) {
	store := NewMemoryTokenStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, TokenPair{AccessToken: "a", RefreshToken: "r"}))
	pair, _ := store.Load(ctx)
	assert.Equal(t, "a", pair.AccessToken)

	require.NoError(t, store.Clear(ctx))
	pair, _ = store.Load(ctx)
	assert.True(t, pair.Empty())
}
