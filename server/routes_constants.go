package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth API
	RouteAuthLogin         = "/auth/login"
	RouteAuthOAuthExchange = "/auth/oauth/exchange"
	RouteAuthRefresh       = "/auth/refresh"
	RouteAuthLogout        = "/auth/logout"
	RouteAuthMe            = "/auth/me"

	// Development OAuth provider
	RouteOAuthAuthorize = "/oauth/{provider}/authorize"

	// Project API
	RouteProjects       = "/projects"
	RouteProjectDefault = "/projects/default"
	RouteProject        = "/projects/{id}"

	RouteHealth = "/healthz"
)
