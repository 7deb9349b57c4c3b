package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-session-client/internal/config"
	"github.com/stretchr/testify/require"
)

func TestParseProviders(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		providers, err := config.ParseProviders([]byte(`
providers:
  - name: github
    client_id: gh-client
    scopes: [read:user]
    auth_url: https://github.com/login/oauth/authorize
    token_url: https://github.com/login/oauth/access_token
  - name: google
    client_id: g-client
    issuer: https://accounts.google.com
`))
		require.NoError(t, err)
		require.Len(t, providers, 2)
		require.Equal(t, "github", providers[0].Name)
		require.Equal(t, []string{"read:user"}, providers[0].Scopes)
		require.Equal(t, "https://accounts.google.com", providers[1].Issuer)
	})

	t.Run("missing client id", func(t *testing.T) {
		_, err := config.ParseProviders([]byte("providers:\n  - name: github\n"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "client_id")
	})

	t.Run("missing endpoints", func(t *testing.T) {
		_, err := config.ParseProviders([]byte("providers:\n  - name: x\n    client_id: c\n"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "issuer or auth_url")
	})
}

func TestRequestTimeout(t *testing.T) {
	c := config.New()

	t.Run("default", func(t *testing.T) {
		t.Setenv("REQUEST_TIMEOUT", "")
		require.Equal(t, 5*time.Second, c.GetRequestTimeout())
	})

	t.Run("override", func(t *testing.T) {
		t.Setenv("REQUEST_TIMEOUT", "2s")
		require.Equal(t, 2*time.Second, c.GetRequestTimeout())
	})

	t.Run("invalid falls back", func(t *testing.T) {
		t.Setenv("REQUEST_TIMEOUT", "soon")
		require.Equal(t, 5*time.Second, c.GetRequestTimeout())
	})
}

func TestGetProvidersFromEnv(t *testing.T) {
	t.Setenv("PROVIDERS_FILE", "")
	t.Setenv("GITHUB_CLIENT_ID", "gh")
	t.Setenv("GOOGLE_CLIENT_ID", "")
	t.Setenv("STUB_PROVIDER_URL", "")

	providers, err := config.New().GetProviders()
	require.NoError(t, err)
	require.Len(t, providers, 1)
	require.Equal(t, "github", providers[0].Name)
	require.Equal(t, "gh", providers[0].ClientID)
}

func TestStubDefaults(t *testing.T) {
	c := config.New()
	t.Setenv("STUB_ACCESS_TOKEN_EXPIRY", "")
	t.Setenv("STUB_REFRESH_TOKEN_LENGTH", "")
	require.Equal(t, 15*time.Minute, c.GetAccessTokenExpiry())
	require.Equal(t, 32, c.GetRefreshTokenLength())

	t.Setenv("STUB_REFRESH_TOKEN_LENGTH", "abc")
	require.Equal(t, 32, c.GetRefreshTokenLength())
}

func TestStubClientRedirectURIs(t *testing.T) {
	c := config.New()
	t.Setenv("STUB_REDIRECT_URIS", "")
	require.Equal(t, []string{"http://localhost:8765/callback"}, c.GetClientRedirectURIs())

	t.Setenv("STUB_REDIRECT_URIS", "http://localhost:8765/callback, https://app.example.com/auth/callback,")
	require.Equal(t, []string{"http://localhost:8765/callback", "https://app.example.com/auth/callback"}, c.GetClientRedirectURIs())
}

func TestStubProviderFromEnv(t *testing.T) {
	t.Setenv("PROVIDERS_FILE", "")
	t.Setenv("GITHUB_CLIENT_ID", "gh")
	t.Setenv("GOOGLE_CLIENT_ID", "")
	t.Setenv("STUB_PROVIDER_URL", "http://localhost:8081")

	providers, err := config.New().GetProviders()
	require.NoError(t, err)
	require.Len(t, providers, 2)
	require.Equal(t, "github", providers[0].Name)
	require.Equal(t, "stub", providers[1].Name)
	require.Equal(t, "http://localhost:8081/oauth/stub/authorize", providers[1].AuthURL)
}
