package config

import "time"

type APIConfig interface {
	GetAuthAPIURL() string
	GetProjectAPIURL() string
	GetRequestTimeout() time.Duration
	GetLogoutTimeout() time.Duration
}

type API struct{}

var _ APIConfig = API{}

// GetAuthAPIURL returns the base URL of the Auth API (e.g., "https://api.example.com/auth")
func (API) GetAuthAPIURL() string {
	return GetEnv("AUTH_API_URL", "http://localhost:8081/auth")
}

func (API) GetProjectAPIURL() string {
	return GetEnv("PROJECT_API_URL", "http://localhost:8081")
}

// GetRequestTimeout bounds login, refresh, validate and exchange calls.
// A timeout is reported as a connectivity failure.
func (API) GetRequestTimeout() time.Duration {
	return GetEnvDuration("REQUEST_TIMEOUT", 5*time.Second)
}

func (API) GetLogoutTimeout() time.Duration {
	return GetEnvDuration("LOGOUT_TIMEOUT", 3*time.Second)
}
