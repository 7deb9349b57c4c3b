package server_test

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-session-client/authapi"
	"github.com/jrsteele09/go-session-client/projects"
	"github.com/jrsteele09/go-session-client/server"
	"github.com/jrsteele09/go-session-client/session"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	f := setupTestFixture(t)

	t.Run("success", func(t *testing.T) {
		out := f.login(t)
		require.NotEmpty(t, out.Token)
		require.NotEmpty(t, out.RefreshToken)
		require.NotNil(t, out.ExpiresAt)
		require.Equal(t, demoEmail, out.User.Email)
		require.Equal(t, "admin", out.User.Role)
		require.True(t, out.User.IsActive)

		u, err := f.users.GetByEmail(demoEmail)
		require.NoError(t, err)
		require.False(t, u.LastLogin.IsZero())
	})

	t.Run("wrong password", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, server.RouteAuthLogin, "", map[string]string{"email": demoEmail, "password": "nope"}, nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("unknown user", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, server.RouteAuthLogin, "", map[string]string{"email": "x@example.com", "password": demoPassword}, nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("missing fields", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, server.RouteAuthLogin, "", map[string]string{"email": demoEmail}, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("blocked", func(t *testing.T) {
		require.NoError(t, f.users.SetBlocked(demoEmail, true))
		t.Cleanup(func() { _ = f.users.SetBlocked(demoEmail, false) })
		resp := f.do(t, http.MethodPost, server.RouteAuthLogin, "", map[string]string{"email": demoEmail, "password": demoPassword}, nil)
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestMe(t *testing.T) {
	f := setupTestFixture(t)
	out := f.login(t)

	var u session.AuthUser
	resp := f.do(t, http.MethodGet, server.RouteAuthMe, out.Token, nil, &u)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, out.User.ID, u.ID)

	require.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, server.RouteAuthMe, "", nil, nil).StatusCode)
	require.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, server.RouteAuthMe, "garbage", nil, nil).StatusCode)

	t.Run("expired token", func(t *testing.T) {
		f.advance(16 * time.Minute)
		require.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, server.RouteAuthMe, out.Token, nil, nil).StatusCode)
	})
}

func TestRefreshRotation(t *testing.T) {
	f := setupTestFixture(t)
	first := f.login(t)

	var second authapi.AuthResponse
	resp := f.do(t, http.MethodPost, server.RouteAuthRefresh, "", map[string]string{"refreshToken": first.RefreshToken}, &second)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)
	require.Equal(t, first.User.ID, second.User.ID)

	// The old refresh token is single use.
	resp = f.do(t, http.MethodPost, server.RouteAuthRefresh, "", map[string]string{"refreshToken": first.RefreshToken}, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, server.RouteAuthMe, second.Token, nil, nil).StatusCode)

	resp = f.do(t, http.MethodPost, server.RouteAuthRefresh, "", map[string]string{}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogout(t *testing.T) {
	f := setupTestFixture(t)
	out := f.login(t)
	other := f.login(t)

	resp := f.do(t, http.MethodPost, server.RouteAuthLogout, out.Token, nil, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	require.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, server.RouteAuthMe, out.Token, nil, nil).StatusCode)
	resp = f.do(t, http.MethodPost, server.RouteAuthRefresh, "", map[string]string{"refreshToken": out.RefreshToken}, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Another session of the same user is untouched.
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, server.RouteAuthMe, other.Token, nil, nil).StatusCode)
	require.Equal(t, 1, f.refresh.Len())

	require.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, server.RouteAuthLogout, "", nil, nil).StatusCode)
}

func authorizeURL(f *testFixture, provider string, extra url.Values) string {
	q := url.Values{
		"client_id":     {"session-client"},
		"redirect_uri":  {"http://localhost:8765/callback"},
		"response_type": {"code"},
		"state":         {"nonce-1"},
	}
	for k, v := range extra {
		q[k] = v
	}
	return f.ts.URL + "/oauth/" + provider + "/authorize?" + q.Encode()
}

func authorize(t *testing.T, f *testFixture, provider string, extra url.Values) url.Values {
	t.Helper()
	resp, err := noRedirectClient().Get(authorizeURL(f, provider, extra))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "localhost:8765", loc.Host)
	return loc.Query()
}

func exchange(t *testing.T, f *testFixture, provider, code, redirect string, out any) *http.Response {
	t.Helper()
	return f.do(t, http.MethodPost, server.RouteAuthOAuthExchange, "", map[string]string{
		"provider": provider, "code": code, "redirectUri": redirect,
	}, out)
}

func TestAuthorizeAndExchange(t *testing.T) {
	const redirect = "http://localhost:8765/callback"

	t.Run("demo user", func(t *testing.T) {
		f := setupTestFixture(t)
		q := authorize(t, f, "stub", nil)
		require.Equal(t, "nonce-1", q.Get("state"))
		require.NotEmpty(t, q.Get("code"))

		var out authapi.AuthResponse
		resp := exchange(t, f, "stub", q.Get("code"), redirect, &out)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, demoEmail, out.User.Email)

		u, err := f.users.GetByEmail(demoEmail)
		require.NoError(t, err)
		require.True(t, u.HasProvider("stub"))

		// Codes are single use.
		resp = exchange(t, f, "stub", q.Get("code"), redirect, nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("new user gets seeded projects", func(t *testing.T) {
		f := setupTestFixture(t)
		q := authorize(t, f, "github", url.Values{"login_hint": {"new@example.com"}})

		var out authapi.AuthResponse
		require.Equal(t, http.StatusOK, exchange(t, f, "github", q.Get("code"), redirect, &out).StatusCode)
		require.Equal(t, "new@example.com", out.User.Email)
		require.Equal(t, "new", out.User.Username)

		var list []projects.Project
		require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, server.RouteProjects, out.Token, nil, &list).StatusCode)
		require.Len(t, list, 2)
		require.True(t, list[0].IsDefault)
	})

	t.Run("mismatches", func(t *testing.T) {
		f := setupTestFixture(t)

		q := authorize(t, f, "stub", nil)
		require.Equal(t, http.StatusUnauthorized, exchange(t, f, "github", q.Get("code"), redirect, nil).StatusCode)

		q = authorize(t, f, "stub", nil)
		require.Equal(t, http.StatusUnauthorized, exchange(t, f, "stub", q.Get("code"), "http://evil.test/cb", nil).StatusCode)

		q = authorize(t, f, "stub", nil)
		f.advance(6 * time.Minute)
		require.Equal(t, http.StatusUnauthorized, exchange(t, f, "stub", q.Get("code"), redirect, nil).StatusCode)

		require.Equal(t, http.StatusBadRequest, exchange(t, f, "stub", "", redirect, nil).StatusCode)
		require.Zero(t, f.authCodes.Len())
	})

	t.Run("simulated error", func(t *testing.T) {
		f := setupTestFixture(t)
		q := authorize(t, f, "stub", url.Values{"simulate_error": {"access_denied"}})
		require.Equal(t, "access_denied", q.Get("error"))
		require.Equal(t, "nonce-1", q.Get("state"))
		require.Empty(t, q.Get("code"))
	})

	t.Run("unsupported response type", func(t *testing.T) {
		f := setupTestFixture(t)
		q := authorize(t, f, "stub", url.Values{"response_type": {"token"}})
		require.Equal(t, "unsupported_response_type", q.Get("error"))
	})

	t.Run("scope outside the client registration", func(t *testing.T) {
		f := setupTestFixture(t)
		q := authorize(t, f, "stub", url.Values{"scope": {"openid admin"}})
		require.Equal(t, "invalid_scope", q.Get("error"))
		require.Zero(t, f.authCodes.Len())
	})

	t.Run("form post", func(t *testing.T) {
		f := setupTestFixture(t)
		resp, err := noRedirectClient().Get(authorizeURL(f, "stub", url.Values{"response_mode": {"form_post"}}))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Contains(t, string(body), `action="http://localhost:8765/callback"`)
		require.Contains(t, string(body), `name="state" value="nonce-1"`)
		require.Contains(t, string(body), `name="code"`)
	})

	t.Run("bad requests", func(t *testing.T) {
		f := setupTestFixture(t)
		for _, extra := range []url.Values{
			{"redirect_uri": {"/relative"}},
			{"client_id": {""}},
			{"client_id": {"unregistered"}},
			{"redirect_uri": {"https://evil.test/callback"}},
			{"redirect_uri": {"http://127.0.0.1:9999/elsewhere"}},
			{"response_mode": {"fragment"}},
		} {
			resp, err := noRedirectClient().Get(authorizeURL(f, "stub", extra))
			require.NoError(t, err)
			resp.Body.Close()
			require.Equal(t, http.StatusBadRequest, resp.StatusCode, extra)
		}
	})
}

func TestProjects(t *testing.T) {
	f := setupTestFixture(t)
	tok := f.login(t).Token

	var list []projects.Project
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, server.RouteProjects, tok, nil, &list).StatusCode)
	require.Len(t, list, 2)
	require.Equal(t, "Personal", list[0].Name)

	var def projects.Project
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, server.RouteProjectDefault, tok, nil, &def).StatusCode)
	require.Equal(t, "Personal", def.Name)

	t.Run("create", func(t *testing.T) {
		var p projects.Project
		resp := f.do(t, http.MethodPost, server.RouteProjects, tok, projects.Input{Name: " Research ", Tags: []string{"ml"}}, &p)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		require.Equal(t, "Research", p.Name)
		require.False(t, p.IsDefault)

		resp = f.do(t, http.MethodPost, server.RouteProjects, tok, projects.Input{Name: "  "}, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("update moves default", func(t *testing.T) {
		sandbox := list[1]
		var p projects.Project
		resp := f.do(t, http.MethodPut, "/projects/"+sandbox.ID, tok, projects.Input{Name: "Sandbox 2", IsDefault: true}, &p)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.True(t, p.IsDefault)

		require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, server.RouteProjectDefault, tok, nil, &def).StatusCode)
		require.Equal(t, sandbox.ID, def.ID)

		resp = f.do(t, http.MethodPut, "/projects/missing", tok, projects.Input{Name: "x"}, nil)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("delete", func(t *testing.T) {
		id := list[0].ID
		require.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/projects/"+id, tok, nil, nil).StatusCode)
		require.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/projects/"+id, tok, nil, nil).StatusCode)
	})

	t.Run("projects are per user", func(t *testing.T) {
		q := authorize(t, f, "stub", url.Values{"login_hint": {"other@example.com"}})
		var other authapi.AuthResponse
		require.Equal(t, http.StatusOK, exchange(t, f, "stub", q.Get("code"), "http://localhost:8765/callback", &other).StatusCode)

		resp := f.do(t, http.MethodDelete, "/projects/"+list[1].ID, other.Token, nil, nil)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("requires bearer", func(t *testing.T) {
		require.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, server.RouteProjects, "", nil, nil).StatusCode)
	})
}

func TestMiddleware(t *testing.T) {
	f := setupTestFixture(t)

	t.Run("preflight", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodOptions, f.ts.URL+server.RouteAuthLogin, nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://app.test")
		resp, err := f.ts.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusNoContent, resp.StatusCode)
		require.Equal(t, "http://app.test", resp.Header.Get("Access-Control-Allow-Origin"))
		require.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Authorization")
	})

	t.Run("unknown origin gets no cors headers", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodOptions, f.ts.URL+server.RouteAuthLogin, nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://evil.test")
		resp, err := f.ts.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("request id", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, f.ts.URL+server.RouteAuthLogin, strings.NewReader(`{}`))
		require.NoError(t, err)
		req.Header.Set(authapi.RequestIDHeader, "req-1")
		resp, err := f.ts.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, "req-1", resp.Header.Get(authapi.RequestIDHeader))

		resp2 := f.do(t, http.MethodGet, server.RouteHealth, "", nil, nil)
		require.Equal(t, http.StatusOK, resp2.StatusCode)
	})

	t.Run("wrong method", func(t *testing.T) {
		require.Equal(t, http.StatusMethodNotAllowed, f.do(t, http.MethodGet, server.RouteAuthLogin, "", nil, nil).StatusCode)
	})
}
