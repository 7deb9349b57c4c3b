package config

import (
	"strings"
	"time"
)

const (
	stubAddrVar           = "STUB_ADDR"
	stubSigningSecretVar  = "STUB_SIGNING_SECRET"
	stubIssuerVar         = "STUB_ISSUER"
	stubAccessExpiryVar   = "STUB_ACCESS_TOKEN_EXPIRY"
	stubRefreshExpiryVar  = "STUB_REFRESH_TOKEN_EXPIRY"
	stubRefreshLengthVar  = "STUB_REFRESH_TOKEN_LENGTH"
	stubDemoEmailVar      = "STUB_DEMO_EMAIL"
	stubDemoPasswordVar   = "STUB_DEMO_PASSWORD"
	stubAllowedOriginsVar = "STUB_ALLOWED_ORIGINS"
	stubClientIDVar       = "STUB_CLIENT_ID"
	stubRedirectURIsVar   = "STUB_REDIRECT_URIS"
)

// StubConfig configures the local Auth/Project API stub.
type StubConfig interface {
	GetStubAddr() string
	GetSigningSecret() string
	GetIssuer() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetRefreshTokenLength() int
	GetDemoEmail() string
	GetDemoPassword() string
	GetAllowedOrigins() string
	GetClientID() string
	GetClientRedirectURIs() []string
}

type Stub struct{}

var _ StubConfig = Stub{}

func (Stub) GetStubAddr() string {
	return GetEnv(stubAddrVar, ":8081")
}

// GetSigningSecret is the HS256 secret for stub access tokens. The default
// is only fit for local development.
func (Stub) GetSigningSecret() string {
	return GetEnv(stubSigningSecretVar, "dev-only-signing-secret")
}

func (Stub) GetIssuer() string {
	return GetEnv(stubIssuerVar, "http://localhost:8081")
}

func (Stub) GetAccessTokenExpiry() time.Duration {
	return GetEnvDuration(stubAccessExpiryVar, 15*time.Minute)
}

func (Stub) GetRefreshTokenExpiry() time.Duration {
	return GetEnvDuration(stubRefreshExpiryVar, 7*24*time.Hour)
}

// GetRefreshTokenLength is in random bytes before hex encoding.
func (Stub) GetRefreshTokenLength() int {
	return GetEnvInt(stubRefreshLengthVar, 32)
}

func (Stub) GetDemoEmail() string {
	return GetEnv(stubDemoEmailVar, "demo@example.com")
}

func (Stub) GetDemoPassword() string {
	return GetEnv(stubDemoPasswordVar, "Password1")
}

// GetAllowedOrigins is a comma separated list; "*" allows any origin.
func (Stub) GetAllowedOrigins() string {
	return GetEnv(stubAllowedOriginsVar, "*")
}

// GetClientID is the client the development provider registers at startup.
func (Stub) GetClientID() string {
	return GetEnv(stubClientIDVar, "session-client")
}

// GetClientRedirectURIs is a comma separated list. Loopback URIs match on
// any port.
func (Stub) GetClientRedirectURIs() []string {
	var uris []string
	for _, u := range strings.Split(GetEnv(stubRedirectURIsVar, "http://localhost:8765/callback"), ",") {
		if u = strings.TrimSpace(u); u != "" {
			uris = append(uris, u)
		}
	}
	return uris
}
