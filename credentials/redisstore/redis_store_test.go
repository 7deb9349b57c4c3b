package redisstore_test

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/go-session-client/credentials"
	"github.com/jrsteele09/go-session-client/credentials/redisstore"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*redisstore.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s, err := redisstore.New(client, "test:")
	require.NoError(t, err)
	return s, mr
}

func TestSetGetClear(t *testing.T) {
	s, mr := setupStore(t)

	require.NoError(t, s.Set(credentials.KeyToken, "tok"))
	v, ok, err := s.Get(credentials.KeyToken)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "tok", v)
	require.True(t, mr.Exists("test:"+credentials.KeyToken))

	require.NoError(t, s.Clear(credentials.KeyToken))
	_, ok, err = s.Get(credentials.KeyToken)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestClearOnlyTouchesPrefix(t *testing.T) {
	s, mr := setupStore(t)
	require.NoError(t, mr.Set("other:key", "keep"))

	require.NoError(t, s.SetMany(map[string]string{
		credentials.KeyToken:        "tok",
		credentials.KeyRefreshToken: "ref",
	}))
	require.NoError(t, s.Clear())

	require.False(t, mr.Exists("test:"+credentials.KeyToken))
	require.False(t, mr.Exists("test:"+credentials.KeyRefreshToken))
	require.True(t, mr.Exists("other:key"))
}

func TestManagerOverRedis(t *testing.T) {
	s, _ := setupStore(t)
	m, err := credentials.NewManager(s)
	require.NoError(t, err)

	require.NoError(t, m.SaveHandshake(credentials.Handshake{Nonce: "n", Provider: "github"}))
	h, ok, err := m.ConsumeHandshake()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "github", h.Provider)

	_, ok, err = m.ConsumeHandshake()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNewRequiresClient(t *testing.T) {
	_, err := redisstore.New(nil, "")
	require.Error(t, err)
}
