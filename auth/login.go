package auth

import (
	"context"

	"github.com/jrsteele09/go-session-client/authapi"
	"github.com/jrsteele09/go-session-client/credentials"
	sessionerrors "github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/oauth2"
	"github.com/jrsteele09/go-session-client/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	methodPassword = "password"
	methodOAuth    = "oauth"
)

// Login authenticates with email and password. Malformed input fails with
// ErrValidation before any state change. Every other failure moves the
// session to Error with a user-facing message and is returned classified.
func (c *Coordinator) Login(ctx context.Context, creds Credentials) error {
	if err := c.validator.ValidateCredentials(creds); err != nil {
		return err
	}

	gen, err := c.begin(session.LoginStart{})
	if err != nil {
		return errors.Wrap(err, "[Login]")
	}

	callCtx, cancel := c.withTimeout(ctx, c.requestTimeout)
	defer cancel()
	resp, err := c.api.Login(callCtx, creds.Email, creds.Password)
	return c.finishLogin(gen, methodPassword, resp, err, sessionerrors.MsgInvalidCredentials)
}

// LoginWithOAuth starts a federated login: it stores a fresh handshake and
// redirects to the provider. The session resolves later through the callback.
func (c *Coordinator) LoginWithOAuth(ctx context.Context, provider string) (string, error) {
	if err := c.validator.ValidateProvider(provider); err != nil {
		return "", err
	}
	nonce, err := oauth2.NewNonce(c.nonceLength)
	if err != nil {
		return "", errors.Wrap(err, "[LoginWithOAuth]")
	}
	authURL, err := c.urls.AuthURL(ctx, provider, nonce)
	if err != nil {
		return "", err
	}
	if err := c.creds.SaveHandshake(credentials.Handshake{
		Nonce:     nonce,
		Provider:  provider,
		CreatedAt: c.nowTime(),
	}); err != nil {
		return "", err
	}

	log.Info().Str("provider", provider).Msg("Redirecting to OAuth provider")
	if c.navigator != nil {
		if err := c.navigator.Navigate(authURL); err != nil {
			return authURL, errors.Wrap(err, "[LoginWithOAuth] navigate")
		}
	}
	return authURL, nil
}

// ConsumeHandshake reads and deletes the pending OAuth handshake.
func (c *Coordinator) ConsumeHandshake() (credentials.Handshake, bool, error) {
	return c.creds.ConsumeHandshake()
}

// CompleteOAuth exchanges an authorization code through the Auth API.
func (c *Coordinator) CompleteOAuth(ctx context.Context, provider, code string) error {
	gen, err := c.begin(session.LoginStart{})
	if err != nil {
		return errors.Wrap(err, "[CompleteOAuth]")
	}

	callCtx, cancel := c.withTimeout(ctx, c.requestTimeout)
	defer cancel()
	resp, err := c.api.ExchangeOAuth(callCtx, provider, code, c.urls.RedirectURI())
	return c.finishLogin(gen, methodOAuth, resp, err, sessionerrors.MsgOAuthFailed)
}

// ReportOAuthFailure surfaces a callback rejected before the exchange.
// Credentials already held are kept.
func (c *Coordinator) ReportOAuthFailure(err error) {
	if err == nil {
		return
	}
	c.applyMu.Lock()
	defer c.applyMu.Unlock()
	_, _ = c.machine.Dispatch(session.AuthError{Message: sessionerrors.UserMessage(err)})
}

func (c *Coordinator) finishLogin(gen uint64, method string, resp *authapi.AuthResponse, callErr error, rejectedMsg string) error {
	if callErr == nil {
		if err := checkResponse(resp, true); err != nil {
			callErr = sessionerrors.New(sessionerrors.ErrAuthentication, sessionerrors.MsgLoginFailed, err)
		}
	}

	if callErr != nil {
		classified := callErr
		var ue *sessionerrors.UserError
		if !errors.As(callErr, &ue) {
			classified = classify(callErr, rejectedMsg)
		}
		err := c.commit(gen, func() error {
			c.loginFailedLocked(classified)
			return classified
		})
		c.metrics.LoginAttempt(method, outcome(err))
		log.Warn().Err(err).Str("method", method).Msg("Login failed")
		return err
	}

	creds := resp.Credentials()
	err := c.commit(gen, func() error {
		if err := c.creds.SaveRecord(credentials.Record{
			Token:        creds.Token,
			RefreshToken: creds.RefreshToken,
			User:         &creds.User,
		}); err != nil {
			c.loginFailedLocked(err)
			return err
		}
		_, err := c.machine.Dispatch(session.LoginSuccess{Credentials: creds})
		return err
	})
	c.metrics.LoginAttempt(method, outcome(err))
	if err != nil {
		log.Warn().Err(err).Str("method", method).Msg("Login response not applied")
		return err
	}
	log.Info().Str("method", method).Str("user_id", creds.User.ID).Msg("Login succeeded")
	return nil
}

// loginFailedLocked must be called with applyMu held. LOGIN_ERROR drops the
// session's credentials, so the persisted record goes with them.
func (c *Coordinator) loginFailedLocked(err error) {
	if clearErr := c.creds.ClearRecord(); clearErr != nil {
		log.Err(clearErr).Msg("Failed to clear credentials after failed login")
	}
	_, _ = c.machine.Dispatch(session.LoginError{Message: sessionerrors.UserMessage(err)})
}
