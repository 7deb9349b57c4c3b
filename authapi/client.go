package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-session-client/internal/metrics"
	"github.com/jrsteele09/go-session-client/session"
	"github.com/pkg/errors"
)

// Auth API endpoints, relative to the base URL.
const (
	LoginEndpoint    = "/login"
	ExchangeEndpoint = "/oauth/exchange"
	RefreshEndpoint  = "/refresh"
	LogoutEndpoint   = "/logout"
	MeEndpoint       = "/me"
)

const RequestIDHeader = "X-Request-ID"

const maxErrorBody = 4 << 10

// StatusError is a non-2xx response.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d", e.Endpoint, e.StatusCode)
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not a
// StatusError (transport failure, timeout, decode error).
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// AuthResponse is the body returned by /login, /oauth/exchange and /refresh.
type AuthResponse struct {
	Token        string           `json:"token"`
	RefreshToken string           `json:"refreshToken"`
	ExpiresAt    *time.Time       `json:"expiresAt,omitempty"`
	User         session.AuthUser `json:"user"`
}

// Credentials converts the response into the machine's event payload. When
// the body carries no expiry it is read from the token's exp claim.
func (r AuthResponse) Credentials() session.Credentials {
	c := session.Credentials{
		User:         r.User,
		Token:        r.Token,
		RefreshToken: r.RefreshToken,
	}
	if r.ExpiresAt != nil {
		c.ExpiresAt = *r.ExpiresAt
	} else if exp, ok := ExpiryFromToken(r.Token); ok {
		c.ExpiresAt = exp
	}
	return c
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type exchangeRequest struct {
	Provider    string `json:"provider"`
	Code        string `json:"code"`
	RedirectURI string `json:"redirectUri"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Client talks to the Auth API over HTTP. It applies no timeout of its own;
// callers bound each call through ctx.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    metrics.Recorder
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithMetrics(m metrics.Recorder) Option {
	return func(cl *Client) {
		cl.metrics = m
	}
}

func New(baseURL string, options ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("[authapi.New] base URL is required")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		metrics:    metrics.Nop{},
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, LoginEndpoint, "", loginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ExchangeOAuth(ctx context.Context, provider, code, redirectURI string) (*AuthResponse, error) {
	var resp AuthResponse
	req := exchangeRequest{Provider: provider, Code: code, RedirectURI: redirectURI}
	if err := c.do(ctx, http.MethodPost, ExchangeEndpoint, "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, RefreshEndpoint, "", refreshRequest{RefreshToken: refreshToken}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, LogoutEndpoint, token, nil, nil)
}

// Me returns the user owning token.
func (c *Client) Me(ctx context.Context, token string) (*session.AuthUser, error) {
	var u session.AuthUser
	if err := c.do(ctx, http.MethodGet, MeEndpoint, token, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) do(ctx context.Context, method, endpoint, bearer string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrapf(err, "[authapi] encode %s", endpoint)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return errors.Wrapf(err, "[authapi] build %s", endpoint)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.APIRequest(endpoint, 0, time.Since(start).Seconds())
		return errors.Wrapf(err, "[authapi] %s %s", method, endpoint)
	}
	defer resp.Body.Close()
	c.metrics.APIRequest(endpoint, resp.StatusCode, time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "[authapi] decode %s", endpoint)
	}
	return nil
}
