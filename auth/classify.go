package auth

import (
	"context"
	"net"
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-session-client/authapi"
	sessionerrors "github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/pkg/errors"
)

var errStale = sessionerrors.ErrStaleResponse

// Metric outcomes.
const (
	outcomeSuccess     = "success"
	outcomeRejected    = "invalid_credentials"
	outcomeUnavailable = "unavailable"
	outcomeFailed      = "failed"
	outcomeStale       = "stale"
)

// classify maps an Auth API failure to the session error taxonomy.
// rejectedMsg is shown for a 401.
func classify(err error, rejectedMsg string) error {
	status := authapi.StatusCode(err)
	switch {
	case status == http.StatusUnauthorized:
		return sessionerrors.New(sessionerrors.ErrAuthentication, rejectedMsg, err)
	case status >= http.StatusInternalServerError, status == 0 && isConnectivity(err):
		return sessionerrors.New(sessionerrors.ErrConnectivity, sessionerrors.MsgServiceUnavailable, err)
	}
	return sessionerrors.New(sessionerrors.ErrAuthentication, sessionerrors.MsgLoginFailed, err)
}

// isConnectivity reports transport failures and timeouts.
func isConnectivity(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.Is(err, sessionerrors.ErrStaleResponse):
		return outcomeStale
	case errors.Is(err, sessionerrors.ErrConnectivity):
		return outcomeUnavailable
	case errors.Is(err, sessionerrors.ErrAuthentication):
		return outcomeRejected
	}
	return outcomeFailed
}

// checkResponse rejects 2xx bodies that cannot form a session.
func checkResponse(resp *authapi.AuthResponse, requireUser bool) error {
	if resp == nil || resp.Token == "" || resp.RefreshToken == "" {
		return errors.New("auth response is missing the token pair")
	}
	if requireUser && resp.User.ID == "" {
		return errors.New("auth response is missing the user")
	}
	return nil
}
