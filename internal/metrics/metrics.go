package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder receives session lifecycle observations.
type Recorder interface {
	LoginAttempt(method, outcome string)
	Refresh(outcome string)
	Logout(remoteOK bool)
	CallbackRejected(reason string)
	ProjectLoad(outcome string)
	APIRequest(endpoint string, status int, seconds float64)
}

// Metrics holds the Prometheus collectors for the session client.
type Metrics struct {
	LoginAttempts     *prometheus.CounterVec
	Refreshes         *prometheus.CounterVec
	Logouts           *prometheus.CounterVec
	CallbackRejects   *prometheus.CounterVec
	ProjectLoads      *prometheus.CounterVec
	APIRequestLatency *prometheus.HistogramVec
}

var _ Recorder = (*Metrics)(nil)

// New registers the collectors with registry.
func New(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		LoginAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "session_client_login_attempts_total",
				Help: "Login attempts by method and outcome",
			},
			[]string{"method", "outcome"},
		),
		Refreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "session_client_refreshes_total",
				Help: "Token refreshes by outcome",
			},
			[]string{"outcome"},
		),
		Logouts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "session_client_logouts_total",
				Help: "Logouts, labelled by whether the remote revoke succeeded",
			},
			[]string{"remote"},
		),
		CallbackRejects: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "session_client_oauth_callback_rejections_total",
				Help: "OAuth callbacks rejected before the code exchange",
			},
			[]string{"reason"},
		),
		ProjectLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "session_client_project_loads_total",
				Help: "Project list loads by outcome",
			},
			[]string{"outcome"},
		),
		APIRequestLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "session_client_api_request_duration_seconds",
				Help:    "Latency of Auth and Project API calls",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"endpoint", "status"},
		),
	}
}

// NewRegistry returns a private registry and the metrics registered on it.
func NewRegistry() (*prometheus.Registry, *Metrics) {
	reg := prometheus.NewRegistry()
	return reg, New(reg)
}

func (m *Metrics) LoginAttempt(method, outcome string) {
	m.LoginAttempts.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) Refresh(outcome string) {
	m.Refreshes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Logout(remoteOK bool) {
	remote := "failed"
	if remoteOK {
		remote = "ok"
	}
	m.Logouts.WithLabelValues(remote).Inc()
}

func (m *Metrics) CallbackRejected(reason string) {
	m.CallbackRejects.WithLabelValues(reason).Inc()
}

func (m *Metrics) ProjectLoad(outcome string) {
	m.ProjectLoads.WithLabelValues(outcome).Inc()
}

func (m *Metrics) APIRequest(endpoint string, status int, seconds float64) {
	m.APIRequestLatency.WithLabelValues(endpoint, statusLabel(status)).Observe(seconds)
}

func statusLabel(status int) string {
	switch {
	case status == 0:
		return "error"
	case status < 300:
		return "2xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// Nop discards observations.
type Nop struct{}

func (Nop) LoginAttempt(string, string)     {}
func (Nop) Refresh(string)                  {}
func (Nop) Logout(bool)                     {}
func (Nop) CallbackRejected(string)         {}
func (Nop) ProjectLoad(string)              {}
func (Nop) APIRequest(string, int, float64) {}
