package projects

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/jrsteele09/go-session-client/authapi"
	"github.com/jrsteele09/go-session-client/credentials"
	sessionerrors "github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/internal/metrics"
	"github.com/jrsteele09/go-session-client/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const defaultRequestTimeout = 5 * time.Second

// State is the load status of the project set.
type State int

const (
	Idle State = iota
	Loading
	Ready
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	}
	return "unknown"
}

// UnauthorizedHandler is called once when the Project API rejects the token.
type UnauthorizedHandler func(ctx context.Context) error

// Coordinator loads the project set once the session is ready and keeps the
// selected project consistent with it.
type Coordinator struct {
	api            API
	creds          *credentials.Manager
	machine        *session.Machine
	onUnauthorized UnauthorizedHandler
	metrics        metrics.Recorder
	requestTimeout time.Duration

	mu         sync.RWMutex
	state      State
	projects   []Project
	selectedID string
	lastErr    error

	// gen is bumped whenever an outstanding load must be discarded.
	gen    uint64
	cancel context.CancelFunc

	token       string
	userID      string
	lastSession session.State
	seen        bool
	retried     bool
	closed      bool

	unsubscribe func()
	wg          sync.WaitGroup
}

type Option func(*Coordinator)

// WithUnauthorizedHandler is typically wired to the auth coordinator's
// RefreshToken.
func WithUnauthorizedHandler(h UnauthorizedHandler) Option {
	return func(c *Coordinator) {
		c.onUnauthorized = h
	}
}

func WithMetrics(m metrics.Recorder) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

func WithRequestTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.requestTimeout = d
	}
}

// NewCoordinator subscribes to machine and reacts to the current session
// straight away.
func NewCoordinator(api API, creds *credentials.Manager, machine *session.Machine, options ...Option) (*Coordinator, error) {
	if api == nil {
		return nil, errors.New("[projects.NewCoordinator] api is required")
	}
	if creds == nil {
		return nil, errors.New("[projects.NewCoordinator] credentials manager is required")
	}
	if machine == nil {
		return nil, errors.New("[projects.NewCoordinator] session machine is required")
	}
	c := &Coordinator{
		api:            api,
		creds:          creds,
		machine:        machine,
		metrics:        metrics.Nop{},
		requestTimeout: defaultRequestTimeout,
	}
	for _, opt := range options {
		opt(c)
	}

	c.unsubscribe = machine.Subscribe(c.onSession)
	c.onSession(machine.Current())
	return c, nil
}

func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Projects returns a copy of the most recently loaded set.
func (c *Coordinator) Projects() []Project {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Project, len(c.projects))
	copy(out, c.projects)
	return out
}

// Selected returns the selected project, if any.
func (c *Coordinator) Selected() (Project, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := indexOf(c.projects, c.selectedID); i >= 0 {
		return c.projects[i], true
	}
	return Project{}, false
}

// Err is the failure of the last load, if it failed.
func (c *Coordinator) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Select changes and persists the selection. id must be in the loaded set.
func (c *Coordinator) Select(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Ready {
		return sessionerrors.ErrNotReady
	}
	if indexOf(c.projects, id) < 0 {
		return errors.Wrapf(sessionerrors.ErrProjectNotFound, "[Select] %s", id)
	}
	if err := c.creds.SetSelectedProject(id); err != nil {
		return err
	}
	c.selectedID = id
	return nil
}

// Reload fetches the project set again and waits for the result.
func (c *Coordinator) Reload(ctx context.Context) error {
	c.mu.Lock()
	if c.closed || !c.machine.Current().Ready() {
		c.mu.Unlock()
		return sessionerrors.ErrNotReady
	}
	gen, loadCtx, token := c.beginLoadLocked(ctx)
	c.wg.Add(1)
	c.mu.Unlock()

	defer c.wg.Done()
	return c.load(loadCtx, gen, token)
}

func (c *Coordinator) Create(ctx context.Context, in Input) (*Project, error) {
	var p *Project
	err := c.mutate(ctx, func(ctx context.Context, token string) error {
		var err error
		p, err = c.api.Create(ctx, token, in)
		return err
	})
	return p, err
}

func (c *Coordinator) Update(ctx context.Context, id string, in Input) (*Project, error) {
	var p *Project
	err := c.mutate(ctx, func(ctx context.Context, token string) error {
		var err error
		p, err = c.api.Update(ctx, token, id, in)
		return err
	})
	return p, err
}

// Delete removes a project. Deleting the selected project moves the
// selection by the usual precedence on the following reload.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	return c.mutate(ctx, func(ctx context.Context, token string) error {
		return c.api.Delete(ctx, token, id)
	})
}

// mutate runs a write against the Project API and reloads the set.
func (c *Coordinator) mutate(ctx context.Context, call func(ctx context.Context, token string) error) error {
	s := c.machine.Current()
	if !s.Ready() {
		return sessionerrors.ErrNotReady
	}
	callCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	err := call(callCtx, s.Token)
	cancel()
	if err != nil {
		if authapi.StatusCode(err) == http.StatusUnauthorized {
			c.unauthorized(ctx)
		}
		return err
	}
	return c.Reload(ctx)
}

// Wait blocks until loads started so far have finished.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Close unsubscribes from the session and discards any outstanding load.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.cancelLoadLocked()
	c.unsubscribe()
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Coordinator) onSession(s session.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	prev, seen := c.lastSession, c.seen
	c.lastSession, c.seen = s.State, true

	switch {
	case s.Ready():
		c.token = s.Token
		sameUser := c.userID == s.User.ID
		if sameUser && (c.state == Ready || c.state == Loading) {
			return
		}
		c.userID = s.User.ID
		gen, ctx, token := c.beginLoadLocked(context.Background())
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			if err := c.load(ctx, gen, token); err != nil && !errors.Is(err, sessionerrors.ErrStaleResponse) {
				log.Warn().Err(err).Msg("Project load failed")
			}
		}()

	case s.State == session.Unauthenticated || !s.IsAuthenticated():
		// No credentials held: logout, or a failed login.
		c.cancelLoadLocked()
		c.state = Idle
		c.projects = nil
		c.selectedID = ""
		c.lastErr = nil
		c.token, c.userID = "", ""
		c.retried = false
		if seen && prev != session.Unauthenticated {
			if err := c.creds.ClearSelectedProject(); err != nil {
				log.Err(err).Msg("Failed to clear selected project")
			}
		}

	default:
		// Authenticating, Refreshing or an auth error over a held session.
		c.token = s.Token
		if c.state == Loading {
			c.cancelLoadLocked()
			c.state = Idle
		}
	}
}

// beginLoadLocked discards any outstanding load and starts a new generation.
func (c *Coordinator) beginLoadLocked(parent context.Context) (uint64, context.Context, string) {
	c.cancelLoadLocked()
	ctx, cancel := context.WithCancel(parent)
	c.cancel = cancel
	c.state = Loading
	return c.gen, ctx, c.token
}

func (c *Coordinator) cancelLoadLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
}

func (c *Coordinator) load(ctx context.Context, gen uint64, token string) error {
	callCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	list, err := c.api.List(callCtx, token)
	var fallback *Project
	if err == nil && len(list) > 0 && !hasDefault(list) {
		d, derr := c.api.Default(callCtx, token)
		switch {
		case derr == nil:
			fallback = d
		case authapi.StatusCode(derr) != http.StatusNotFound:
			log.Debug().Err(derr).Msg("Default project lookup failed")
		}
	}
	cancel()

	if err != nil {
		return c.loadFailed(ctx, gen, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.metrics.ProjectLoad("stale")
		return sessionerrors.ErrStaleResponse
	}
	persisted, _, perr := c.creds.SelectedProject()
	if perr != nil {
		log.Err(perr).Msg("Failed to read selected project")
	}
	selected := ResolveSelection(list, persisted, fallback)
	if selected != persisted {
		if err := c.creds.SetSelectedProject(selected); err != nil {
			log.Err(err).Msg("Failed to persist selected project")
		}
	}
	c.projects = list
	c.selectedID = selected
	c.state = Ready
	c.lastErr = nil
	c.retried = false
	c.cancel = nil
	c.metrics.ProjectLoad("success")
	log.Debug().Int("count", len(list)).Str("selected", selected).Msg("Projects loaded")
	return nil
}

func (c *Coordinator) loadFailed(ctx context.Context, gen uint64, err error) error {
	unauthorized := authapi.StatusCode(err) == http.StatusUnauthorized

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.metrics.ProjectLoad("stale")
		return sessionerrors.ErrStaleResponse
	}
	c.state = Idle
	c.lastErr = err
	c.cancel = nil
	retry := unauthorized && !c.retried
	if retry {
		c.retried = true
	}
	c.mu.Unlock()

	if unauthorized {
		c.metrics.ProjectLoad("unauthorized")
	} else {
		c.metrics.ProjectLoad("failed")
	}
	if retry {
		c.unauthorized(context.WithoutCancel(ctx))
	}
	return errors.Wrap(err, "[projects] load")
}

// unauthorized calls the handler; a successful refresh reloads through the
// session subscription.
func (c *Coordinator) unauthorized(ctx context.Context) {
	if c.onUnauthorized == nil {
		return
	}
	if err := c.onUnauthorized(ctx); err != nil {
		log.Warn().Err(err).Msg("Unauthorized handler failed")
	}
}
