package projects

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-session-client/authapi"
	"github.com/jrsteele09/go-session-client/internal/metrics"
	"github.com/pkg/errors"
)

// Project API endpoints, relative to the base URL.
const (
	ProjectsEndpoint       = "/projects"
	DefaultProjectEndpoint = "/projects/default"
)

// API is the Project API as consumed by the coordinator. Every call carries
// the session's bearer token.
type API interface {
	List(ctx context.Context, token string) ([]Project, error)
	Default(ctx context.Context, token string) (*Project, error)
	Create(ctx context.Context, token string, in Input) (*Project, error)
	Update(ctx context.Context, token, id string, in Input) (*Project, error)
	Delete(ctx context.Context, token, id string) error
}

// APIClient is the HTTP implementation of API. Non-2xx responses are
// returned as *authapi.StatusError.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
	metrics    metrics.Recorder
}

var _ API = (*APIClient)(nil)

type ClientOption func(*APIClient)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *APIClient) {
		cl.httpClient = c
	}
}

func WithClientMetrics(m metrics.Recorder) ClientOption {
	return func(cl *APIClient) {
		cl.metrics = m
	}
}

func NewAPIClient(baseURL string, options ...ClientOption) (*APIClient, error) {
	if baseURL == "" {
		return nil, errors.New("[NewAPIClient] base URL is required")
	}
	c := &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		metrics:    metrics.Nop{},
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

func (c *APIClient) List(ctx context.Context, token string) ([]Project, error) {
	var out []Project
	if err := c.do(ctx, http.MethodGet, ProjectsEndpoint, token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Default returns the project the API flags as default.
func (c *APIClient) Default(ctx context.Context, token string) (*Project, error) {
	var p Project
	if err := c.do(ctx, http.MethodGet, DefaultProjectEndpoint, token, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *APIClient) Create(ctx context.Context, token string, in Input) (*Project, error) {
	var p Project
	if err := c.do(ctx, http.MethodPost, ProjectsEndpoint, token, in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *APIClient) Update(ctx context.Context, token, id string, in Input) (*Project, error) {
	var p Project
	if err := c.do(ctx, http.MethodPut, projectPath(id), token, in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *APIClient) Delete(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, projectPath(id), token, nil, nil)
}

func projectPath(id string) string {
	return ProjectsEndpoint + "/" + url.PathEscape(id)
}

// endpointLabel collapses per-project paths for metric labels.
func endpointLabel(path string) string {
	if path != DefaultProjectEndpoint && strings.HasPrefix(path, ProjectsEndpoint+"/") {
		return ProjectsEndpoint + "/{id}"
	}
	return path
}

func (c *APIClient) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrapf(err, "[projects] encode %s", path)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrapf(err, "[projects] build %s", path)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(authapi.RequestIDHeader, uuid.NewString())
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.APIRequest(endpointLabel(path), 0, time.Since(start).Seconds())
		return errors.Wrapf(err, "[projects] %s %s", method, path)
	}
	defer resp.Body.Close()
	c.metrics.APIRequest(endpointLabel(path), resp.StatusCode, time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &authapi.StatusError{Endpoint: path, StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "[projects] decode %s", path)
	}
	return nil
}
