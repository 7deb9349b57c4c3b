package auth

import (
	"context"

	"github.com/jrsteele09/go-session-client/credentials"
	sessionerrors "github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// RefreshToken rotates the token pair. Concurrent callers share one
// in-flight refresh. Any failure ends in a full logout and ErrSessionExpired;
// there is no retry.
func (c *Coordinator) RefreshToken(ctx context.Context) error {
	_, err, shared := c.refreshGroup.Do(refreshKey, func() (any, error) {
		return nil, c.refresh(context.WithoutCancel(ctx))
	})
	if shared {
		log.Debug().Msg("Joined in-flight token refresh")
	}
	return err
}

func (c *Coordinator) refresh(ctx context.Context) error {
	rec, err := c.creds.LoadRecord()
	if err != nil {
		c.metrics.Refresh(outcomeFailed)
		c.expire(ctx, "", 0)
		return sessionerrors.New(sessionerrors.ErrSessionExpired, sessionerrors.MsgSessionExpired, err)
	}
	if rec.RefreshToken == "" {
		c.metrics.Refresh(outcomeFailed)
		c.expire(ctx, rec.Token, 0)
		return sessionerrors.New(sessionerrors.ErrSessionExpired, sessionerrors.MsgSessionExpired, sessionerrors.ErrNoRefreshToken)
	}

	gen, err := c.begin(session.RefreshStart{})
	if err != nil {
		// Not in a refreshable state, e.g. a login is in flight.
		return errors.Wrap(err, "[RefreshToken]")
	}

	callCtx, cancel := c.withTimeout(ctx, c.requestTimeout)
	defer cancel()
	resp, err := c.api.Refresh(callCtx, rec.RefreshToken)
	if err == nil {
		err = checkResponse(resp, false)
	}
	if err != nil {
		c.metrics.Refresh(outcomeFailed)
		log.Warn().Err(err).Msg("Token refresh failed, logging out")
		if !c.expire(ctx, rec.Token, gen) {
			return errStale
		}
		return sessionerrors.New(sessionerrors.ErrSessionExpired, sessionerrors.MsgSessionExpired, err)
	}

	creds := resp.Credentials()
	if creds.User.ID == "" && rec.User != nil {
		creds.User = *rec.User
	}
	err = c.commit(gen, func() error {
		if err := c.creds.SaveRecord(credentials.Record{
			Token:        creds.Token,
			RefreshToken: creds.RefreshToken,
			User:         &creds.User,
		}); err != nil {
			c.attempt++
			c.clearLocked()
			return sessionerrors.New(sessionerrors.ErrSessionExpired, sessionerrors.MsgSessionExpired, err)
		}
		_, err := c.machine.Dispatch(session.TokenRefresh{Credentials: creds})
		return err
	})
	c.metrics.Refresh(outcome(err))
	if err != nil {
		return err
	}
	log.Info().Str("user_id", creds.User.ID).Msg("Token refreshed")
	return nil
}
