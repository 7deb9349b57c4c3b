package session_test

import (
	"sync"
	"testing"

	"github.com/jrsteele09/go-session-client/session"
	"github.com/stretchr/testify/require"
)

func TestMachine_DispatchNotifiesInOrder(t *testing.T) {
	m := session.NewMachine()
	require.Equal(t, session.Initial(), m.Current())

	var seen []session.State
	unsubscribe := m.Subscribe(func(s session.Session) {
		seen = append(seen, s.State)
	})

	_, err := m.Dispatch(session.LoginStart{})
	require.NoError(t, err)
	_, err = m.Dispatch(session.LoginSuccess{Credentials: testCreds})
	require.NoError(t, err)

	unsubscribe()
	_, err = m.Dispatch(session.Logout{})
	require.NoError(t, err)

	require.Equal(t, []session.State{session.Authenticating, session.Authenticated}, seen)
	require.Equal(t, uint64(3), m.Current().Version)
}

func TestMachine_IllegalEventIsNotApplied(t *testing.T) {
	m := session.NewMachine()
	notified := 0
	m.Subscribe(func(session.Session) { notified++ })

	before := m.Current()
	after, err := m.Dispatch(session.TokenRefresh{Credentials: testCreds})
	require.Error(t, err)
	require.Equal(t, before, after)
	require.Equal(t, before, m.Current())
	require.Zero(t, notified)
}

func TestMachine_CurrentIsASnapshot(t *testing.T) {
	m := session.NewMachine()
	_, err := m.Dispatch(session.LoginStart{})
	require.NoError(t, err)
	_, err = m.Dispatch(session.LoginSuccess{Credentials: testCreds})
	require.NoError(t, err)

	s := m.Current()
	s.User.Email = "changed@b.com"
	require.Equal(t, "a@b.com", m.Current().User.Email)
}

func TestMachine_ConcurrentDispatchIsSerialised(t *testing.T) {
	m := session.NewMachine()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Dispatch(session.LoginStart{})
			_, _ = m.Dispatch(session.LoginSuccess{Credentials: testCreds})
		}()
	}
	wg.Wait()

	s := m.Current()
	require.Equal(t, session.Authenticated, s.State)
	require.True(t, s.IsAuthenticated())
	require.Equal(t, "tok-1", s.Token)
	require.Equal(t, "ref-1", s.RefreshToken)
}

func TestMachine_Reset(t *testing.T) {
	m := session.NewMachine()
	called := false
	m.Subscribe(func(session.Session) { called = true })
	_, err := m.Dispatch(session.LoginStart{})
	require.NoError(t, err)
	called = false

	m.Reset()
	require.Equal(t, session.Initial(), m.Current())

	_, err = m.Dispatch(session.Logout{})
	require.NoError(t, err)
	require.False(t, called)
}
