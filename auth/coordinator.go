package auth

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-session-client/authapi"
	"github.com/jrsteele09/go-session-client/credentials"
	"github.com/jrsteele09/go-session-client/internal/metrics"
	"github.com/jrsteele09/go-session-client/oauth2"
	"github.com/jrsteele09/go-session-client/session"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

const (
	defaultRequestTimeout = 5 * time.Second
	defaultLogoutTimeout  = 3 * time.Second
	refreshKey            = "refresh"
)

// AuthAPI is the part of the Auth API the coordinator consumes.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*authapi.AuthResponse, error)
	ExchangeOAuth(ctx context.Context, provider, code, redirectURI string) (*authapi.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*authapi.AuthResponse, error)
	Logout(ctx context.Context, token string) error
	Me(ctx context.Context, token string) (*session.AuthUser, error)
}

// AuthURLBuilder builds federated provider authorization URLs.
type AuthURLBuilder interface {
	AuthURL(ctx context.Context, provider, state string) (string, error)
	RedirectURI() string
}

// Navigator performs the full redirect to a provider's authorization page.
type Navigator interface {
	Navigate(url string) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(url string) error

func (f NavigatorFunc) Navigate(url string) error {
	return f(url)
}

// Coordinator owns every session mutation: it talks to the Auth API, keeps
// the credential store in step and dispatches the resulting events.
type Coordinator struct {
	api       AuthAPI
	urls      AuthURLBuilder
	creds     *credentials.Manager
	machine   *session.Machine
	validator *Validator
	navigator Navigator
	metrics   metrics.Recorder
	nowTime   func() time.Time

	requestTimeout time.Duration
	logoutTimeout  time.Duration
	nonceLength    int

	// applyMu makes "persist + dispatch" one critical section. attempt is
	// bumped by every new login, refresh and logout; a response is applied
	// only while its attempt is still the latest.
	applyMu sync.Mutex
	attempt uint64

	refreshGroup  singleflight.Group
	bootstrapOnce sync.Once
	bootstrapErr  error
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(c *Coordinator) {
		c.nowTime = nowFunc
	}
}

func WithNavigator(n Navigator) Option {
	return func(c *Coordinator) {
		c.navigator = n
	}
}

func WithMetrics(m metrics.Recorder) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// WithRequestTimeout bounds login, exchange, refresh and validation calls.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.requestTimeout = d
	}
}

// WithLogoutTimeout bounds the best-effort remote logout.
func WithLogoutTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.logoutTimeout = d
	}
}

func WithNonceLength(n int) Option {
	return func(c *Coordinator) {
		c.nonceLength = n
	}
}

func WithValidator(v *Validator) Option {
	return func(c *Coordinator) {
		c.validator = v
	}
}

// NewCoordinator wires a coordinator around an explicitly constructed machine
// and credential manager.
func NewCoordinator(
	api AuthAPI,
	urls AuthURLBuilder,
	creds *credentials.Manager,
	machine *session.Machine,
	options ...Option,
) (*Coordinator, error) {
	if api == nil {
		return nil, errors.New("[NewCoordinator] api is required")
	}
	if urls == nil {
		return nil, errors.New("[NewCoordinator] auth URL builder is required")
	}
	if creds == nil {
		return nil, errors.New("[NewCoordinator] credentials manager is required")
	}
	if machine == nil {
		return nil, errors.New("[NewCoordinator] session machine is required")
	}

	c := &Coordinator{
		api:            api,
		urls:           urls,
		creds:          creds,
		machine:        machine,
		validator:      NewValidator(1),
		metrics:        metrics.Nop{},
		nowTime:        time.Now,
		requestTimeout: defaultRequestTimeout,
		logoutTimeout:  defaultLogoutTimeout,
		nonceLength:    oauth2.DefaultNonceLength,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Current returns the session snapshot.
func (c *Coordinator) Current() session.Session {
	return c.machine.Current()
}

// Machine exposes the state machine for subscribers.
func (c *Coordinator) Machine() *session.Machine {
	return c.machine
}

// begin dispatches the event that opens an attempt and returns its generation.
func (c *Coordinator) begin(ev session.Event) (uint64, error) {
	c.applyMu.Lock()
	defer c.applyMu.Unlock()
	if _, err := c.machine.Dispatch(ev); err != nil {
		return 0, err
	}
	c.attempt++
	return c.attempt, nil
}

// commit runs apply under the apply lock if gen is still the latest attempt.
func (c *Coordinator) commit(gen uint64, apply func() error) error {
	c.applyMu.Lock()
	defer c.applyMu.Unlock()
	if gen != c.attempt {
		return errStale
	}
	return apply()
}

func (c *Coordinator) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
