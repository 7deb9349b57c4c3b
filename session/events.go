package session

import "time"

// Event is the closed set of inputs to the machine. The unexported method
// keeps implementations inside this package.
type Event interface {
	Kind() EventKind
	event()
}

// EventKind names an event in logs and tests.
type EventKind string

const (
	KindLoginStart       EventKind = "LOGIN_START"
	KindLoginSuccess     EventKind = "LOGIN_SUCCESS"
	KindLoginError       EventKind = "LOGIN_ERROR"
	KindLogout           EventKind = "LOGOUT"
	KindTokenRefresh     EventKind = "TOKEN_REFRESH"
	KindAuthError        EventKind = "AUTH_ERROR"
	KindSessionRestored  EventKind = "SESSION_RESTORED"
	KindSessionValidated EventKind = "SESSION_VALIDATED"
	KindRefreshStart     EventKind = "REFRESH_START"
)

// EventKinds lists every EventKind the machine accepts.
var EventKinds = []EventKind{
	KindLoginStart, KindLoginSuccess, KindLoginError, KindLogout, KindTokenRefresh,
	KindAuthError, KindSessionRestored, KindSessionValidated, KindRefreshStart,
}

// Credentials is the token pair plus identity carried by success events.
type Credentials struct {
	User         AuthUser
	Token        string
	RefreshToken string
	ExpiresAt    time.Time
}

// LoginStart begins a password or OAuth login.
type LoginStart struct{}

// LoginSuccess carries the credentials of a completed login.
type LoginSuccess struct{ Credentials }

// LoginError ends a login attempt and drops any held credentials.
type LoginError struct{ Message string }

// Logout returns the machine to its empty Unauthenticated session.
type Logout struct{}

// TokenRefresh completes a refresh with a rotated token pair.
type TokenRefresh struct{ Credentials }

// AuthError surfaces a failure while keeping held credentials.
type AuthError struct{ Message string }

// SessionRestored is the optimistic bootstrap from persisted credentials.
type SessionRestored struct{ Credentials }

// SessionValidated ends bootstrap after the Auth API confirmed the user.
type SessionValidated struct{ User AuthUser }

// RefreshStart marks a token refresh in flight.
type RefreshStart struct{}

func (LoginStart) Kind() EventKind       { return KindLoginStart }
func (LoginSuccess) Kind() EventKind     { return KindLoginSuccess }
func (LoginError) Kind() EventKind       { return KindLoginError }
func (Logout) Kind() EventKind           { return KindLogout }
func (TokenRefresh) Kind() EventKind     { return KindTokenRefresh }
func (AuthError) Kind() EventKind        { return KindAuthError }
func (SessionRestored) Kind() EventKind  { return KindSessionRestored }
func (SessionValidated) Kind() EventKind { return KindSessionValidated }
func (RefreshStart) Kind() EventKind     { return KindRefreshStart }

func (LoginStart) event()       {}
func (LoginSuccess) event()     {}
func (LoginError) event()       {}
func (Logout) event()           {}
func (TokenRefresh) event()     {}
func (AuthError) event()        {}
func (SessionRestored) event()  {}
func (SessionValidated) event() {}
func (RefreshStart) event()     {}
