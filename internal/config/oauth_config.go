package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type OAuthConfig interface {
	GetRedirectURI() string
	GetCallbackListenAddr() string
	GetHandshakeTimeout() time.Duration
	GetNonceLength() int
	GetLandingPath() string
	GetProviders() ([]ProviderConfig, error)
}

// ProviderConfig describes one federated login provider. Either Issuer (OIDC
// discovery) or both AuthURL and TokenURL must be set.
type ProviderConfig struct {
	Name     string   `yaml:"name"`
	ClientID string   `yaml:"client_id"`
	Scopes   []string `yaml:"scopes"`
	Issuer   string   `yaml:"issuer,omitempty"`
	AuthURL  string   `yaml:"auth_url,omitempty"`
	TokenURL string   `yaml:"token_url,omitempty"`

	// ResponseMode is "query" (default) or "form_post".
	ResponseMode string `yaml:"response_mode,omitempty"`
}

type providersFile struct {
	Providers []ProviderConfig `yaml:"providers"`
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

func (OAuth) GetRedirectURI() string {
	return GetEnv("OAUTH_REDIRECT_URI", "http://localhost:8765/callback")
}

func (OAuth) GetCallbackListenAddr() string {
	return GetEnv("OAUTH_CALLBACK_ADDR", "localhost:8765")
}

func (OAuth) GetHandshakeTimeout() time.Duration {
	return GetEnvDuration("OAUTH_HANDSHAKE_TIMEOUT", 10*time.Minute)
}

func (OAuth) GetNonceLength() int {
	return 32 // 32 bytes = 256 bits
}

func (OAuth) GetLandingPath() string {
	return GetEnv("LANDING_PATH", "/")
}

// GetProviders reads PROVIDERS_FILE when set, otherwise builds GitHub and
// Google from their *_CLIENT_ID env vars, plus the local stub when
// STUB_PROVIDER_URL is set. Providers without a client id are skipped.
func (OAuth) GetProviders() ([]ProviderConfig, error) {
	if path := os.Getenv("PROVIDERS_FILE"); path != "" {
		return LoadProviders(path)
	}
	var providers []ProviderConfig
	if id := os.Getenv("GITHUB_CLIENT_ID"); id != "" {
		providers = append(providers, ProviderConfig{
			Name:     "github",
			ClientID: id,
			Scopes:   []string{"read:user", "user:email"},
			AuthURL:  "https://github.com/login/oauth/authorize",
			TokenURL: "https://github.com/login/oauth/access_token",
		})
	}
	if id := os.Getenv("GOOGLE_CLIENT_ID"); id != "" {
		providers = append(providers, ProviderConfig{
			Name:     "google",
			ClientID: id,
			Scopes:   []string{"openid", "email", "profile"},
			Issuer:   "https://accounts.google.com",
		})
	}
	// The local auth stub doubles as a provider for development.
	if base := os.Getenv("STUB_PROVIDER_URL"); base != "" {
		providers = append(providers, ProviderConfig{
			Name:     "stub",
			ClientID: "session-client",
			Scopes:   []string{"openid", "email"},
			AuthURL:  base + "/oauth/stub/authorize",
			TokenURL: base + "/oauth/stub/token",
		})
	}
	return providers, nil
}

// LoadProviders parses a YAML providers file.
func LoadProviders(path string) ([]ProviderConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "[LoadProviders] read")
	}
	return ParseProviders(b)
}

func ParseProviders(b []byte) ([]ProviderConfig, error) {
	var f providersFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, errors.Wrap(err, "[ParseProviders] yaml")
	}
	for _, p := range f.Providers {
		if p.Name == "" || p.ClientID == "" {
			return nil, errors.New("[ParseProviders] provider requires name and client_id")
		}
		if p.Issuer == "" && (p.AuthURL == "" || p.TokenURL == "") {
			return nil, errors.Errorf("[ParseProviders] provider %q needs issuer or auth_url/token_url", p.Name)
		}
	}
	return f.Providers, nil
}
