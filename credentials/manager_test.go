package credentials_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-session-client/credentials"
	"github.com/jrsteele09/go-session-client/credentials/filestore"
	fakestore "github.com/jrsteele09/go-session-client/credentials/repofake"
	sessionerrors "github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/session"
	"github.com/stretchr/testify/require"
)

func testRecord() credentials.Record {
	return credentials.Record{
		Token:        "access-1",
		RefreshToken: "refresh-1",
		User: &session.AuthUser{
			ID:       "user-1",
			Email:    "jane@example.com",
			Username: "jane",
			Role:     "member",
			IsActive: true,
		},
	}
}

func TestNewManagerRequiresStore(t *testing.T) {
	_, err := credentials.NewManager(nil)
	require.Error(t, err)
}

func TestRecordRoundTrip(t *testing.T) {
	store := fakestore.NewFakeStore()
	m, err := credentials.NewManager(store)
	require.NoError(t, err)

	require.NoError(t, m.SaveRecord(testRecord()))
	r, err := m.LoadRecord()
	require.NoError(t, err)
	require.True(t, r.Complete())
	require.Equal(t, "access-1", r.Token)
	require.Equal(t, "refresh-1", r.RefreshToken)
	require.Equal(t, "jane@example.com", r.User.Email)

	require.NoError(t, m.ClearRecord())
	r, err = m.LoadRecord()
	require.NoError(t, err)
	require.False(t, r.Complete())
	require.Empty(t, r.Token)
	require.Empty(t, r.RefreshToken)
	require.Nil(t, r.User)
}

func TestSaveRecordRejectsIncomplete(t *testing.T) {
	m, err := credentials.NewManager(fakestore.NewFakeStore())
	require.NoError(t, err)

	r := testRecord()
	r.User = nil
	require.ErrorIs(t, m.SaveRecord(r), sessionerrors.ErrStorage)
}

func TestSaveRecordRollsBackPartialWrite(t *testing.T) {
	store := fakestore.NewFakeStore()
	m, err := credentials.NewManager(store)
	require.NoError(t, err)

	store.FailSet(credentials.KeyUser)
	err = m.SaveRecord(testRecord())
	require.ErrorIs(t, err, sessionerrors.ErrStorage)
	require.Equal(t, sessionerrors.MsgStorage, sessionerrors.UserMessage(err))

	_, ok, _ := store.Get(credentials.KeyToken)
	require.False(t, ok, "token must not survive a failed group write")
	_, ok, _ = store.Get(credentials.KeyRefreshToken)
	require.False(t, ok)
}

func TestHandshakeIsSingleUse(t *testing.T) {
	m, err := credentials.NewManager(fakestore.NewFakeStore())
	require.NoError(t, err)

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, m.SaveHandshake(credentials.Handshake{Nonce: "n-1", Provider: "github", CreatedAt: created}))

	h, ok, err := m.ConsumeHandshake()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "n-1", h.Nonce)
	require.Equal(t, "github", h.Provider)
	require.True(t, created.Equal(h.CreatedAt))

	_, ok, err = m.ConsumeHandshake()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHandshakeExpiry(t *testing.T) {
	now := time.Now()
	h := credentials.Handshake{Nonce: "n", Provider: "p", CreatedAt: now.Add(-11 * time.Minute)}
	require.True(t, h.Expired(now, 10*time.Minute))
	require.False(t, h.Expired(now, 0))

	h.CreatedAt = now.Add(-time.Minute)
	require.False(t, h.Expired(now, 10*time.Minute))
}

func TestSelectedProject(t *testing.T) {
	m, err := credentials.NewManager(fakestore.NewFakeStore())
	require.NoError(t, err)

	_, ok, err := m.SelectedProject()
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, m.SetSelectedProject("p-1"))
	id, ok, err := m.SelectedProject()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "p-1", id)

	require.NoError(t, m.SetSelectedProject(""))
	_, ok, err = m.SelectedProject()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestClearAll(t *testing.T) {
	store := fakestore.NewFakeStore()
	m, err := credentials.NewManager(store)
	require.NoError(t, err)

	require.NoError(t, m.SaveRecord(testRecord()))
	require.NoError(t, m.SetSelectedProject("p-1"))
	require.NoError(t, m.SaveHandshake(credentials.Handshake{Nonce: "n", Provider: "google"}))
	require.NoError(t, m.ClearAll())
	require.Zero(t, store.Len())
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	fs, err := filestore.New(dir)
	require.NoError(t, err)
	m, err := credentials.NewManager(fs)
	require.NoError(t, err)
	require.NoError(t, m.SaveRecord(testRecord()))
	require.NoError(t, m.SetSelectedProject("p-9"))

	reopened, err := filestore.New(dir)
	require.NoError(t, err)
	m2, err := credentials.NewManager(reopened)
	require.NoError(t, err)

	r, err := m2.LoadRecord()
	require.NoError(t, err)
	require.True(t, r.Complete())
	require.Equal(t, "user-1", r.User.ID)
	id, ok, err := m2.SelectedProject()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "p-9", id)

	require.NoError(t, m2.ClearRecord())
	again, err := filestore.New(dir)
	require.NoError(t, err)
	_, ok, err = again.Get(credentials.KeyToken)
	require.NoError(t, err)
	require.False(t, ok)
	_, ok, err = again.Get(credentials.KeySelectedProject)
	require.NoError(t, err)
	require.True(t, ok)
}
