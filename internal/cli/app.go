package cli

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/jrsteele09/go-session-client/auth"
	"github.com/jrsteele09/go-session-client/authapi"
	"github.com/jrsteele09/go-session-client/credentials"
	"github.com/jrsteele09/go-session-client/credentials/filestore"
	"github.com/jrsteele09/go-session-client/credentials/redisstore"
	fakestore "github.com/jrsteele09/go-session-client/credentials/repofake"
	"github.com/jrsteele09/go-session-client/internal/config"
	"github.com/jrsteele09/go-session-client/internal/metrics"
	"github.com/jrsteele09/go-session-client/oauth2"
	"github.com/jrsteele09/go-session-client/projects"
	"github.com/jrsteele09/go-session-client/session"
	pkgerrors "github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// app is one client process: the credential store, the session machine and
// the coordinators built around them.
type app struct {
	cfg      config.Config
	out      io.Writer
	creds    *credentials.Manager
	machine  *session.Machine
	registry *oauth2.Registry
	auth     *auth.Coordinator
	projects *projects.Coordinator
	metrics  *metrics.Metrics

	closers []func()
}

type appOptions struct {
	navigator auth.Navigator
	store     credentials.Store // overrides the configured backend
}

func newApp(cfg config.Config, out io.Writer, opts appOptions) (*app, error) {
	a := &app{cfg: cfg, out: out, machine: session.NewMachine()}

	store := opts.store
	if store == nil {
		var err error
		if store, err = a.openStore(); err != nil {
			return nil, err
		}
	}
	creds, err := credentials.NewManager(store)
	if err != nil {
		return nil, err
	}
	a.creds = creds

	registry, m := metrics.NewRegistry()
	a.metrics = m
	if addr := cfg.GetMetricsAddr(); addr != "" {
		a.serveMetrics(addr, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	providers, err := cfg.GetProviders()
	if err != nil {
		return nil, err
	}
	if a.registry, err = oauth2.NewRegistry(providers, cfg.GetRedirectURI()); err != nil {
		return nil, err
	}

	api, err := authapi.New(cfg.GetAuthAPIURL(), authapi.WithMetrics(m))
	if err != nil {
		return nil, err
	}
	authOptions := []auth.Option{
		auth.WithMetrics(m),
		auth.WithRequestTimeout(cfg.GetRequestTimeout()),
		auth.WithLogoutTimeout(cfg.GetLogoutTimeout()),
		auth.WithNonceLength(cfg.GetNonceLength()),
		auth.WithValidator(auth.NewValidator(cfg.GetMinPasswordLength())),
	}
	if opts.navigator != nil {
		authOptions = append(authOptions, auth.WithNavigator(opts.navigator))
	}
	if a.auth, err = auth.NewCoordinator(api, a.registry, creds, a.machine, authOptions...); err != nil {
		return nil, err
	}

	projectAPI, err := projects.NewAPIClient(cfg.GetProjectAPIURL(), projects.WithClientMetrics(m))
	if err != nil {
		return nil, err
	}
	if a.projects, err = projects.NewCoordinator(projectAPI, creds, a.machine,
		projects.WithUnauthorizedHandler(a.auth.RefreshToken),
		projects.WithMetrics(m),
		projects.WithRequestTimeout(cfg.GetRequestTimeout()),
	); err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.projects.Close)
	return a, nil
}

func (a *app) openStore() (credentials.Store, error) {
	switch backend := a.cfg.GetStorageBackend(); backend {
	case "file":
		return filestore.New(a.cfg.GetDataFolder())
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     a.cfg.GetRedisAddr(),
			Password: a.cfg.GetRedisPassword(),
			DB:       a.cfg.GetRedisDB(),
		})
		a.closers = append(a.closers, func() { _ = client.Close() })
		return redisstore.New(client, a.cfg.GetRedisPrefix())
	case "memory":
		return fakestore.NewFakeStore(), nil
	default:
		return nil, pkgerrors.Errorf("unknown credential store %q", backend)
	}
}

func (a *app) serveMetrics(addr string, h http.Handler) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Str("addr", addr).Msg("Metrics endpoint stopped")
		}
	}()
	a.closers = append(a.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
