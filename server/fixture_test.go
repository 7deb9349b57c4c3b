package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-session-client/authapi"
	"github.com/jrsteele09/go-session-client/internal/config"
	"github.com/jrsteele09/go-session-client/server"
	"github.com/jrsteele09/go-session-client/server/authcoderepo"
	"github.com/jrsteele09/go-session-client/server/clientrepo"
	"github.com/jrsteele09/go-session-client/server/projectrepo"
	refreshrepofake "github.com/jrsteele09/go-session-client/token/refresh/repofake"
	fakeuserrepo "github.com/jrsteele09/go-session-client/users/repofake"
	"github.com/stretchr/testify/require"
)

const (
	demoEmail    = "demo@example.com"
	demoPassword = "Password1"
)

type testFixture struct {
	server    *server.Server
	ts        *httptest.Server
	users     *fakeuserrepo.FakeUserRepo
	refresh   *refreshrepofake.FakeRefreshTokenRepo
	authCodes *authcoderepo.InMemoryRepo

	mu  sync.Mutex
	now time.Time
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	t.Setenv("STUB_DEMO_EMAIL", demoEmail)
	t.Setenv("STUB_DEMO_PASSWORD", demoPassword)
	t.Setenv("STUB_ISSUER", "http://stub.test")
	t.Setenv("STUB_ALLOWED_ORIGINS", "http://app.test")
	t.Setenv("STUB_CLIENT_ID", "")
	t.Setenv("STUB_REDIRECT_URIS", "")

	f := &testFixture{
		users:     fakeuserrepo.NewFakeUserRepo(),
		refresh:   refreshrepofake.NewFakeRefreshTokenRepo(),
		authCodes: authcoderepo.NewInMemoryRepo(),
		now:       time.Now().UTC(),
	}
	srv, err := server.New(config.New(), server.Repos{
		Users:         f.users,
		RefreshTokens: f.refresh,
		Projects:      projectrepo.NewInMemoryRepo(),
		AuthCodes:     f.authCodes,
		Clients:       clientrepo.NewInMemoryRepo(),
	}, server.WithNowFunc(f.clock))
	require.NoError(t, err)
	f.server = srv
	f.ts = httptest.NewServer(srv)
	t.Cleanup(f.ts.Close)
	return f
}

func (f *testFixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *testFixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// do sends a JSON request and decodes a JSON response into out when non-nil.
func (f *testFixture) do(t *testing.T, method, path, bearer string, body, out any) *http.Response {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, f.ts.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := f.ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func (f *testFixture) login(t *testing.T) authapi.AuthResponse {
	t.Helper()
	var out authapi.AuthResponse
	resp := f.do(t, http.MethodPost, server.RouteAuthLogin, "", map[string]string{"email": demoEmail, "password": demoPassword}, &out)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return out
}

// noRedirectClient stops at the first redirect so tests can read Location.
func noRedirectClient() *http.Client {
	return &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
}
