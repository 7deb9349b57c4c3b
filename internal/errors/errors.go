package errors

import (
	"errors"
	"fmt"
)

// Session error taxonomy. Every failure that crosses the coordinator boundary
// wraps exactly one of these.
var (
	// ErrValidation is malformed input, rejected before any network call.
	ErrValidation = errors.New("validation error")
	// ErrAuthentication is credentials rejected by the Auth API.
	ErrAuthentication = errors.New("authentication error")
	// ErrConnectivity is an unreachable service, a 5xx or a timeout.
	ErrConnectivity = errors.New("connectivity error")
	// ErrCSRF is an OAuth state that does not match the issued nonce.
	ErrCSRF = errors.New("csrf state mismatch")
	// ErrSessionExpired is a refresh that failed; the session has been logged out.
	ErrSessionExpired = errors.New("session expired")

	// OAuth callback errors
	ErrMissingParameters = errors.New("missing parameters")
	ErrProviderDenied    = errors.New("provider returned an error")
	ErrUnknownProvider   = errors.New("unknown oauth provider")

	// Session errors
	ErrNoRefreshToken    = errors.New("no refresh token")
	ErrIllegalTransition = errors.New("illegal session transition")
	ErrStaleResponse     = errors.New("stale response discarded")

	// Storage errors
	ErrStorage = errors.New("credential storage error")

	// Project errors
	ErrProjectNotFound = errors.New("project not found")
	ErrNotReady        = errors.New("projects not loaded")
)

// User facing messages surfaced through Session.Error.
const (
	MsgInvalidCredentials = "Invalid email or password. Please try again."
	MsgServiceUnavailable = "Unable to reach the authentication service. Please try again later."
	MsgLoginFailed        = "Sign in failed. Please try again."
	MsgSessionExpired     = "Your session has expired. Please sign in again."
	MsgOAuthCancelled     = "Sign in was cancelled."
	MsgOAuthFailed        = "Sign in with the provider failed."
	MsgMissingParameters  = "Sign in could not be completed: missing parameters."
	MsgCSRF               = "Sign in could not be verified. Please try again."
	MsgStorage            = "Your session could not be saved on this device."
)

// UserError pairs a taxonomy sentinel with the message shown to the user.
type UserError struct {
	Kind    error
	Message string
	Cause   error
}

func (e *UserError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes both the sentinel and the cause to errors.Is.
func (e *UserError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// New builds a UserError.
func New(kind error, message string, cause error) error {
	return &UserError{Kind: kind, Message: message, Cause: cause}
}

// UserMessage returns the message to show for err, or a generic fallback.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ue *UserError
	if errors.As(err, &ue) {
		return ue.Message
	}
	switch {
	case errors.Is(err, ErrConnectivity):
		return MsgServiceUnavailable
	case errors.Is(err, ErrCSRF):
		return MsgCSRF
	case errors.Is(err, ErrSessionExpired):
		return MsgSessionExpired
	}
	return MsgLoginFailed
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
