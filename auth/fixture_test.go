package auth_test

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jrsteele09/go-session-client/auth"
	"github.com/jrsteele09/go-session-client/authapi"
	"github.com/jrsteele09/go-session-client/credentials"
	fakestore "github.com/jrsteele09/go-session-client/credentials/repofake"
	"github.com/jrsteele09/go-session-client/internal/config"
	"github.com/jrsteele09/go-session-client/oauth2"
	"github.com/jrsteele09/go-session-client/session"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "a@b.com"
	testPassword = "secret1"
	testRedirect = "http://localhost:8765/callback"
)

// fakeAPI is a scripted AuthAPI. Unset funcs fail with 500.
type fakeAPI struct {
	login    func(ctx context.Context, email, password string) (*authapi.AuthResponse, error)
	exchange func(ctx context.Context, provider, code, redirectURI string) (*authapi.AuthResponse, error)
	refresh  func(ctx context.Context, refreshToken string) (*authapi.AuthResponse, error)
	logout   func(ctx context.Context, token string) error
	me       func(ctx context.Context, token string) (*session.AuthUser, error)

	loginCalls    atomic.Int32
	exchangeCalls atomic.Int32
	refreshCalls  atomic.Int32
	logoutCalls   atomic.Int32
	meCalls       atomic.Int32
}

var _ auth.AuthAPI = (*fakeAPI)(nil)

func statusErr(endpoint string, code int) error {
	return &authapi.StatusError{Endpoint: endpoint, StatusCode: code}
}

func (f *fakeAPI) Login(ctx context.Context, email, password string) (*authapi.AuthResponse, error) {
	f.loginCalls.Add(1)
	if f.login == nil {
		return nil, statusErr(authapi.LoginEndpoint, http.StatusInternalServerError)
	}
	return f.login(ctx, email, password)
}

func (f *fakeAPI) ExchangeOAuth(ctx context.Context, provider, code, redirectURI string) (*authapi.AuthResponse, error) {
	f.exchangeCalls.Add(1)
	if f.exchange == nil {
		return nil, statusErr(authapi.ExchangeEndpoint, http.StatusInternalServerError)
	}
	return f.exchange(ctx, provider, code, redirectURI)
}

func (f *fakeAPI) Refresh(ctx context.Context, refreshToken string) (*authapi.AuthResponse, error) {
	f.refreshCalls.Add(1)
	if f.refresh == nil {
		return nil, statusErr(authapi.RefreshEndpoint, http.StatusInternalServerError)
	}
	return f.refresh(ctx, refreshToken)
}

func (f *fakeAPI) Logout(ctx context.Context, token string) error {
	f.logoutCalls.Add(1)
	if f.logout == nil {
		return nil
	}
	return f.logout(ctx, token)
}

func (f *fakeAPI) Me(ctx context.Context, token string) (*session.AuthUser, error) {
	f.meCalls.Add(1)
	if f.me == nil {
		return nil, statusErr(authapi.MeEndpoint, http.StatusUnauthorized)
	}
	return f.me(ctx, token)
}

func authResponse(token, refresh, userID string) *authapi.AuthResponse {
	return &authapi.AuthResponse{
		Token:        token,
		RefreshToken: refresh,
		User:         session.AuthUser{ID: userID, Email: testEmail, IsActive: true},
	}
}

// recordingNavigator captures redirect targets.
type recordingNavigator struct {
	mu   sync.Mutex
	urls []string
}

func (n *recordingNavigator) Navigate(url string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.urls = append(n.urls, url)
	return nil
}

func (n *recordingNavigator) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.urls) == 0 {
		return ""
	}
	return n.urls[len(n.urls)-1]
}

type testFixture struct {
	api         *fakeAPI
	store       *fakestore.FakeStore
	creds       *credentials.Manager
	machine     *session.Machine
	registry    *oauth2.Registry
	navigator   *recordingNavigator
	coordinator *auth.Coordinator
}

func setupTestFixture(t *testing.T, options ...auth.Option) *testFixture {
	t.Helper()

	store := fakestore.NewFakeStore()
	creds, err := credentials.NewManager(store)
	require.NoError(t, err)

	registry, err := oauth2.NewRegistry([]config.ProviderConfig{{
		Name:     "github",
		ClientID: "gh-client",
		Scopes:   []string{"read:user"},
		AuthURL:  "https://github.com/login/oauth/authorize",
		TokenURL: "https://github.com/login/oauth/access_token",
	}}, testRedirect)
	require.NoError(t, err)

	f := &testFixture{
		api:       &fakeAPI{},
		store:     store,
		creds:     creds,
		machine:   session.NewMachine(),
		registry:  registry,
		navigator: &recordingNavigator{},
	}
	options = append([]auth.Option{auth.WithNavigator(f.navigator)}, options...)
	f.coordinator, err = auth.NewCoordinator(f.api, registry, creds, f.machine, options...)
	require.NoError(t, err)
	t.Cleanup(f.machine.Reset)
	return f
}

// persist seeds the store as a previous process would have left it.
func (f *testFixture) persist(t *testing.T, token, refresh string) {
	t.Helper()
	require.NoError(t, f.creds.SaveRecord(credentials.Record{
		Token:        token,
		RefreshToken: refresh,
		User:         &session.AuthUser{ID: "u1", Email: testEmail, IsActive: true},
	}))
}

func (f *testFixture) storedToken(t *testing.T) string {
	t.Helper()
	v, _, err := f.store.Get(credentials.KeyToken)
	require.NoError(t, err)
	return v
}
