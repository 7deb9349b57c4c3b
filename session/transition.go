package session

import (
	"fmt"
	"time"

	sessionerrors "github.com/jrsteele09/go-session-client/internal/errors"
)

// Transition is the machine's pure transition function. Every (state, event)
// pair resolves: a legal pair returns the next session, any other pair returns
// the current session unchanged together with ErrIllegalTransition.
func Transition(current Session, ev Event) (Session, error) {
	next := current.clone()

	switch e := ev.(type) {
	case LoginStart:
		next.State = Authenticating
		next.Error = ""
		next.IsLoading = true
		return next, nil

	case LoginSuccess:
		if current.State != Authenticating && current.State != Refreshing {
			return current, illegal(current, ev)
		}
		next = withCredentials(next, e.Credentials)
		next.State = Authenticated
		next.IsLoading = false
		next.Error = ""
		return next, nil

	case LoginError:
		if current.State != Authenticating {
			return current, illegal(current, ev)
		}
		next = withoutCredentials(next)
		next.State = Error
		next.Error = e.Message
		next.IsLoading = false
		return next, nil

	case Logout:
		return Session{State: Unauthenticated}, nil

	case TokenRefresh:
		if current.State != Refreshing {
			return current, illegal(current, ev)
		}
		creds := e.Credentials
		if creds.User.ID == "" && current.User != nil {
			creds.User = *current.User
		}
		next = withCredentials(next, creds)
		next.State = Authenticated
		next.IsLoading = false
		next.Error = ""
		return next, nil

	case AuthError:
		next.State = Error
		next.Error = e.Message
		next.IsLoading = false
		return next, nil

	case SessionRestored:
		if current.State != Unauthenticated {
			return current, illegal(current, ev)
		}
		next = withCredentials(next, e.Credentials)
		next.State = Authenticated
		next.IsLoading = true
		next.Error = ""
		return next, nil

	case SessionValidated:
		if current.State != Authenticated || !current.IsAuthenticated() {
			return current, illegal(current, ev)
		}
		u := e.User
		next.User = &u
		next.IsLoading = false
		return next, nil

	case RefreshStart:
		if (current.State != Authenticated && current.State != Error) || current.RefreshToken == "" {
			return current, illegal(current, ev)
		}
		next.State = Refreshing
		next.IsLoading = true
		return next, nil
	}

	return current, fmt.Errorf("%w: unknown event %T", sessionerrors.ErrIllegalTransition, ev)
}

func illegal(current Session, ev Event) error {
	return fmt.Errorf("%w: %s in state %s", sessionerrors.ErrIllegalTransition, ev.Kind(), current.State)
}

func withCredentials(s Session, c Credentials) Session {
	u := c.User
	s.User = &u
	s.Token = c.Token
	s.RefreshToken = c.RefreshToken
	s.ExpiresAt = c.ExpiresAt
	return s
}

func withoutCredentials(s Session) Session {
	s.User = nil
	s.Token = ""
	s.RefreshToken = ""
	s.ExpiresAt = time.Time{}
	return s
}
