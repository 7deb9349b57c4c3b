package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-session-client/internal/config"
	"github.com/jrsteele09/go-session-client/server/authcoderepo"
	"github.com/jrsteele09/go-session-client/server/clientrepo"
	"github.com/jrsteele09/go-session-client/server/projectrepo"
	"github.com/jrsteele09/go-session-client/token"
	"github.com/jrsteele09/go-session-client/token/refresh"
	"github.com/jrsteele09/go-session-client/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Config is the part of the application config the stub reads.
type Config interface {
	config.EnvConfig
	config.StubConfig
}

// Repos are the stores behind the stub Auth and Project APIs.
type Repos struct {
	Users         users.UserRepo
	RefreshTokens refresh.Repo
	Projects      projectrepo.Repo
	AuthCodes     authcoderepo.Repo
	Clients       clientrepo.Repo
}

// Server is a development stand-in for the Auth API and the Project API.
type Server struct {
	env            string // Environment (e.g., "DEV", "production")
	mux            *http.ServeMux
	routes         []string
	config         Config
	repos          Repos
	tokens         *token.Manager
	refreshTokens  *refresh.Manager
	allowedOrigins []string
	authCodeTTL    time.Duration
	nowFunc        func() time.Time
}

type Option func(*Server)

func WithNowFunc(now func() time.Time) Option {
	return func(s *Server) {
		s.nowFunc = now
	}
}

// WithAuthCodeTTL bounds how long an issued authorization code can be exchanged.
func WithAuthCodeTTL(d time.Duration) Option {
	return func(s *Server) {
		s.authCodeTTL = d
	}
}

func New(cfg Config, repos Repos, options ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("[Server New] config is required")
	}
	if repos.Users == nil || repos.RefreshTokens == nil || repos.Projects == nil || repos.AuthCodes == nil || repos.Clients == nil {
		return nil, errors.New("[Server New] all repos are required")
	}

	s := &Server{
		env:         cfg.GetEnv(),
		mux:         http.NewServeMux(),
		config:      cfg,
		repos:       repos,
		authCodeTTL: 5 * time.Minute,
		nowFunc:     time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	s.allowedOrigins = splitOrigins(cfg.GetAllowedOrigins())

	var err error
	s.tokens, err = token.New(token.NewHMACSigner(cfg.GetSigningSecret()),
		token.WithIssuer(cfg.GetIssuer()),
		token.WithTokenExpiry(cfg.GetAccessTokenExpiry()),
		token.WithNowFunc(s.nowFunc),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[Server New] token manager")
	}
	s.refreshTokens, err = refresh.NewManager(repos.RefreshTokens,
		refresh.WithTokenLength(cfg.GetRefreshTokenLength()),
		refresh.WithExpiry(cfg.GetRefreshTokenExpiry()),
		refresh.WithNowFunc(s.nowFunc),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[Server New] refresh manager")
	}

	if err := s.InitialiseSystem(context.Background()); err != nil {
		return nil, fmt.Errorf("[Server New] Failed to initialise the system: %w", err)
	}

	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Tokens exposes the access token manager, mainly for tests and tooling.
func (s *Server) Tokens() *token.Manager {
	return s.tokens
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	log.Debug().Msgf("[%-19s] %s", color+paddedMethod+ResetColor, path)
}

func splitOrigins(v string) []string {
	var origins []string
	for _, o := range strings.Split(v, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
