package refresh_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-session-client/token/refresh"
	refreshrepofake "github.com/jrsteele09/go-session-client/token/refresh/repofake"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	manager *refresh.Manager
	repo    *refreshrepofake.FakeRefreshTokenRepo
	now     time.Time
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{
		repo: refreshrepofake.NewFakeRefreshTokenRepo(),
		now:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	m, err := refresh.NewManager(f.repo,
		refresh.WithTokenLength(16),
		refresh.WithExpiry(time.Hour),
		refresh.WithNowFunc(func() time.Time { return f.now }),
	)
	require.NoError(t, err)
	f.manager = m
	return f
}

func TestCreate(t *testing.T) {
	f := setupTestFixture(t)
	tok, err := f.manager.Create("user-1", "sess-1")
	require.NoError(t, err)
	require.Len(t, tok, 32)

	other, err := f.manager.Create("user-1", "sess-1")
	require.NoError(t, err)
	require.NotEqual(t, tok, other)
	require.Equal(t, 2, f.repo.Len())
}

func TestRotate(t *testing.T) {
	t.Run("replaces token in same session", func(t *testing.T) {
		f := setupTestFixture(t)
		tok, err := f.manager.Create("user-1", "sess-1")
		require.NoError(t, err)

		rt, next, err := f.manager.Rotate(tok)
		require.NoError(t, err)
		require.Equal(t, "user-1", rt.UserID)
		require.NotEqual(t, tok, next)

		_, _, err = f.manager.Rotate(tok)
		require.ErrorIs(t, err, refresh.ErrNotFound)

		stored, err := f.repo.Get(next)
		require.NoError(t, err)
		require.Equal(t, "sess-1", stored.SessionID)
	})

	t.Run("expired", func(t *testing.T) {
		f := setupTestFixture(t)
		tok, err := f.manager.Create("user-1", "sess-1")
		require.NoError(t, err)

		f.now = f.now.Add(2 * time.Hour)
		_, _, err = f.manager.Rotate(tok)
		require.ErrorIs(t, err, refresh.ErrExpired)
		require.Equal(t, 0, f.repo.Len())
	})

	t.Run("concurrent rotation accepts one", func(t *testing.T) {
		f := setupTestFixture(t)
		tok, err := f.manager.Create("user-1", "sess-1")
		require.NoError(t, err)

		var ok atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, _, err := f.manager.Rotate(tok); err == nil {
					ok.Add(1)
				}
			}()
		}
		wg.Wait()
		require.Equal(t, int32(1), ok.Load())
	})
}

func TestRevokeSession(t *testing.T) {
	f := setupTestFixture(t)
	_, err := f.manager.Create("user-1", "sess-1")
	require.NoError(t, err)
	_, err = f.manager.Create("user-1", "sess-1")
	require.NoError(t, err)
	keep, err := f.manager.Create("user-1", "sess-2")
	require.NoError(t, err)

	n, err := f.manager.RevokeSession("sess-1")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	_, err = f.repo.Get(keep)
	require.NoError(t, err)

	n, err = f.manager.RevokeSession("")
	require.NoError(t, err)
	require.Zero(t, n)
}
