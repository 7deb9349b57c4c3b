package callback

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/jrsteele09/go-session-client/credentials"
	sessionerrors "github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/internal/metrics"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	defaultHandshakeTimeout = 10 * time.Minute
	providerAccessDenied    = "access_denied"
)

// Rejection reasons, used as metric labels.
const (
	reasonProviderError = "provider_error"
	reasonMissing       = "missing_parameters"
	reasonExpired       = "expired"
	reasonCSRF          = "csrf"
	reasonStorage       = "storage"
)

// Completer is the part of the auth coordinator the callback drives.
type Completer interface {
	ConsumeHandshake() (credentials.Handshake, bool, error)
	CompleteOAuth(ctx context.Context, provider, code string) error
	ReportOAuthFailure(err error)
}

// Params are the values a provider sends to the redirect target.
type Params struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// ParamsFromRequest reads the callback values from the query string or, for
// form_post responses, the POST body.
func ParamsFromRequest(r *http.Request) Params {
	return Params{
		Code:             r.FormValue("code"),
		State:            r.FormValue("state"),
		Error:            r.FormValue("error"),
		ErrorDescription: r.FormValue("error_description"),
	}
}

// Handler completes federated logins arriving at the redirect target.
type Handler struct {
	auth         Completer
	handshakeTTL time.Duration
	landingPath  string
	onSuccess    func()
	nowTime      func() time.Time
	metrics      metrics.Recorder
}

type Option func(*Handler)

// WithHandshakeTimeout sets how long an issued handshake stays usable.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(h *Handler) {
		h.handshakeTTL = d
	}
}

// WithLandingPath sets where ServeHTTP redirects after a successful login.
func WithLandingPath(p string) Option {
	return func(h *Handler) {
		h.landingPath = p
	}
}

// WithOnSuccess registers a hook run after a successful exchange.
func WithOnSuccess(fn func()) Option {
	return func(h *Handler) {
		h.onSuccess = fn
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(h *Handler) {
		h.nowTime = nowFunc
	}
}

func WithMetrics(m metrics.Recorder) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

func NewHandler(auth Completer, options ...Option) (*Handler, error) {
	if auth == nil {
		return nil, errors.New("[callback.NewHandler] completer is required")
	}
	h := &Handler{
		auth:         auth,
		handshakeTTL: defaultHandshakeTimeout,
		landingPath:  "/",
		nowTime:      time.Now,
		metrics:      metrics.Nop{},
	}
	for _, opt := range options {
		opt(h)
	}
	return h, nil
}

// Handle runs the callback checks in order: provider error, consume the
// handshake, required values present, state matches the nonce. Only then is
// the code exchanged. Failures before the exchange are surfaced on the
// session as an auth error.
func (h *Handler) Handle(ctx context.Context, p Params) error {
	if p.Error != "" {
		// Consumed so a later callback cannot reuse it.
		if _, _, err := h.auth.ConsumeHandshake(); err != nil {
			log.Err(err).Msg("Failed to consume OAuth handshake")
		}
		log.Warn().Str("error", p.Error).Str("description", p.ErrorDescription).Msg("OAuth provider returned an error")
		msg := sessionerrors.MsgOAuthFailed
		if p.Error == providerAccessDenied {
			msg = sessionerrors.MsgOAuthCancelled
		}
		return h.reject(reasonProviderError, sessionerrors.New(sessionerrors.ErrProviderDenied, msg, nil))
	}

	hs, ok, err := h.auth.ConsumeHandshake()
	if err != nil {
		return h.reject(reasonStorage, err)
	}

	if p.Code == "" || p.State == "" || !ok {
		return h.reject(reasonMissing, sessionerrors.New(sessionerrors.ErrMissingParameters, sessionerrors.MsgMissingParameters, nil))
	}
	if hs.Expired(h.nowTime(), h.handshakeTTL) {
		return h.reject(reasonExpired, sessionerrors.New(sessionerrors.ErrMissingParameters, sessionerrors.MsgMissingParameters,
			errors.New("handshake expired")))
	}
	if subtle.ConstantTimeCompare([]byte(p.State), []byte(hs.Nonce)) != 1 {
		return h.reject(reasonCSRF, sessionerrors.New(sessionerrors.ErrCSRF, sessionerrors.MsgCSRF, nil))
	}

	if err := h.auth.CompleteOAuth(ctx, hs.Provider, p.Code); err != nil {
		return err
	}
	if h.onSuccess != nil {
		h.onSuccess()
	}
	return nil
}

func (h *Handler) reject(reason string, err error) error {
	h.metrics.CallbackRejected(reason)
	log.Warn().Str("reason", reason).Msg("OAuth callback rejected")
	h.auth.ReportOAuthFailure(err)
	return err
}

// ServeHTTP is the loopback redirect target. It accepts GET (query) and POST
// (form_post) callbacks.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid callback request", http.StatusBadRequest)
		return
	}

	if err := h.Handle(r.Context(), ParamsFromRequest(r)); err != nil {
		w.Header().Set("Cache-Control", "no-store")
		http.Error(w, sessionerrors.UserMessage(err), statusFor(err))
		return
	}
	http.Redirect(w, r, h.landingPath, http.StatusFound)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, sessionerrors.ErrConnectivity):
		return http.StatusBadGateway
	case errors.Is(err, sessionerrors.ErrStorage):
		return http.StatusInternalServerError
	case errors.Is(err, sessionerrors.ErrAuthentication):
		return http.StatusUnauthorized
	}
	return http.StatusBadRequest
}
