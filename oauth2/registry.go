package oauth2

import (
	"context"
	"sort"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-session-client/internal/config"
	sessionerrors "github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/pkg/errors"
	xoauth2 "golang.org/x/oauth2"
)

// Registry builds authorization URLs for the configured federated providers.
// Providers declared with an issuer have their endpoints discovered on first
// use and cached.
type Registry struct {
	redirectURI string
	providers   map[string]config.ProviderConfig

	endpointsLock sync.RWMutex
	endpoints     map[string]*xoauth2.Config
}

func NewRegistry(providers []config.ProviderConfig, redirectURI string) (*Registry, error) {
	if redirectURI == "" {
		return nil, errors.New("[NewRegistry] redirect URI is required")
	}
	r := &Registry{
		redirectURI: redirectURI,
		providers:   make(map[string]config.ProviderConfig, len(providers)),
		endpoints:   make(map[string]*xoauth2.Config),
	}
	for _, p := range providers {
		if p.Name == "" || p.ClientID == "" {
			return nil, errors.New("[NewRegistry] provider requires name and client id")
		}
		if !ResponseModeType(p.ResponseMode).Valid() {
			return nil, errors.Errorf("[NewRegistry] provider %q has unsupported response mode %q", p.Name, p.ResponseMode)
		}
		r.providers[p.Name] = p
	}
	return r, nil
}

// Names lists the configured providers, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) RedirectURI() string {
	return r.redirectURI
}

// AuthURL returns the provider's authorization URL carrying state.
func (r *Registry) AuthURL(ctx context.Context, provider, state string) (string, error) {
	cfg, err := r.oauthConfig(ctx, provider)
	if err != nil {
		return "", err
	}
	var opts []xoauth2.AuthCodeOption
	if mode := r.providers[provider].ResponseMode; mode != "" {
		opts = append(opts, xoauth2.SetAuthURLParam("response_mode", mode))
	}
	return cfg.AuthCodeURL(state, opts...), nil
}

func (r *Registry) oauthConfig(ctx context.Context, name string) (*xoauth2.Config, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, sessionerrors.New(sessionerrors.ErrUnknownProvider, sessionerrors.MsgOAuthFailed, errors.Errorf("provider %q", name))
	}

	r.endpointsLock.RLock()
	cfg, exists := r.endpoints[name]
	r.endpointsLock.RUnlock()
	if exists {
		return cfg, nil
	}

	endpoint := xoauth2.Endpoint{AuthURL: p.AuthURL, TokenURL: p.TokenURL}
	if p.Issuer != "" {
		provider, err := oidc.NewProvider(ctx, p.Issuer)
		if err != nil {
			return nil, sessionerrors.New(sessionerrors.ErrConnectivity, sessionerrors.MsgOAuthFailed,
				errors.Wrapf(err, "discover %s", p.Issuer))
		}
		endpoint = provider.Endpoint()
	}

	cfg = &xoauth2.Config{
		ClientID:    p.ClientID,
		Endpoint:    endpoint,
		RedirectURL: r.redirectURI,
		Scopes:      p.Scopes,
	}
	r.endpointsLock.Lock()
	r.endpoints[name] = cfg
	r.endpointsLock.Unlock()
	return cfg, nil
}
