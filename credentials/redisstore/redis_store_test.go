package redisstore_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/callscreen-client/credentials"
	"github.com/jrsteele09/callscreen-client/credentials/redisstore"
)

const testKey = "callscreen:credential"

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestStore_EmptyKey(t *testing.T) {
	_, client := setupRedis(t)

	s, err := redisstore.New(context.Background(), client, testKey)
	require.NoError(t, err)
	_, ok := s.Get()
	require.False(t, ok)
}

func TestStore_SetPersistsWithTTL(t *testing.T) {
	mr, client := setupRedis(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	s, err := redisstore.New(context.Background(), client, testKey, redisstore.WithNowFunc(func() time.Time { return now }))
	require.NoError(t, err)

	require.NoError(t, s.Set(credentials.Credential{Token: "tok-1", ExpiresAt: now.Add(time.Hour)}))
	require.True(t, mr.Exists(testKey))
	require.Equal(t, time.Hour, mr.TTL(testKey))

	reloaded, err := redisstore.New(context.Background(), client, testKey)
	require.NoError(t, err)
	cred, ok := reloaded.Get()
	require.True(t, ok)
	require.Equal(t, "tok-1", cred.Token)
}

func TestStore_WriteFailureKeepsMemory(t *testing.T) {
	mr, client := setupRedis(t)

	s, err := redisstore.New(context.Background(), client, testKey, redisstore.WithOpTimeout(time.Second))
	require.NoError(t, err)

	mr.SetError("LOADING redis is loading the dataset in memory")
	err = s.Set(credentials.Credential{Token: "tok-1"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "redis set")

	cred, ok := s.Get()
	require.True(t, ok)
	require.Equal(t, "tok-1", cred.Token)

	mr.SetError("")
	require.False(t, mr.Exists(testKey))
}

func TestStore_Clear(t *testing.T) {
	mr, client := setupRedis(t)

	s, err := redisstore.New(context.Background(), client, testKey)
	require.NoError(t, err)
	require.NoError(t, s.Set(credentials.Credential{Token: "tok-1"}))
	require.True(t, mr.Exists(testKey))

	require.NoError(t, s.Clear())
	require.False(t, mr.Exists(testKey))
	_, ok := s.Get()
	require.False(t, ok)
}

func TestStore_KeyExpiresWithCredential(t *testing.T) {
	mr, client := setupRedis(t)

	s, err := redisstore.New(context.Background(), client, testKey)
	require.NoError(t, err)
	require.NoError(t, s.Set(credentials.Credential{Token: "tok-1", ExpiresAt: time.Now().Add(time.Minute)}))

	mr.FastForward(2 * time.Minute)
	reloaded, err := redisstore.New(context.Background(), client, testKey)
	require.NoError(t, err)
	_, ok := reloaded.Get()
	require.False(t, ok)
}

func TestStore_GarbageIsIgnored(t *testing.T) {
	mr, client := setupRedis(t)
	require.NoError(t, mr.Set(testKey, "garbage"))

	s, err := redisstore.New(context.Background(), client, testKey)
	require.NoError(t, err)
	_, ok := s.Get()
	require.False(t, ok)
}

func TestNewClient(t *testing.T) {
	mr, _ := setupRedis(t)

	client, err := redisstore.NewClient(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	client.Close()

	_, err = redisstore.NewClient(context.Background(), "")
	require.Error(t, err)
}
