package auth

import (
	"context"

	"github.com/jrsteele09/go-session-client/authapi"
	"github.com/jrsteele09/go-session-client/credentials"
	"github.com/jrsteele09/go-session-client/session"
	"github.com/rs/zerolog/log"
)

// Bootstrap restores the persisted session once per coordinator. A persisted
// token and user are restored optimistically and validated with the Auth
// API; a failed validation gets exactly one refresh, and a failed refresh
// logs out. With nothing persisted the session settles Unauthenticated.
// Later calls return the first call's result.
func (c *Coordinator) Bootstrap(ctx context.Context) error {
	c.bootstrapOnce.Do(func() {
		c.bootstrapErr = c.bootstrap(ctx)
	})
	return c.bootstrapErr
}

func (c *Coordinator) bootstrap(ctx context.Context) error {
	rec, err := c.creds.LoadRecord()
	if err != nil {
		log.Err(err).Msg("Unreadable persisted session, clearing")
		c.expire(ctx, "", 0)
		return err
	}
	if !rec.Complete() {
		if rec.Token != "" || rec.RefreshToken != "" || rec.User != nil {
			log.Warn().Msg("Incomplete persisted session, clearing")
			if err := c.creds.ClearRecord(); err != nil {
				log.Err(err).Msg("Failed to clear incomplete session")
			}
		}
		c.settleUnauthenticated()
		return nil
	}

	creds := session.Credentials{
		User:         *rec.User,
		Token:        rec.Token,
		RefreshToken: rec.RefreshToken,
	}
	if exp, ok := authapi.ExpiryFromToken(rec.Token); ok {
		creds.ExpiresAt = exp
	}
	gen, err := c.begin(session.SessionRestored{Credentials: creds})
	if err != nil {
		return err
	}

	callCtx, cancel := c.withTimeout(ctx, c.requestTimeout)
	user, err := c.api.Me(callCtx, rec.Token)
	cancel()
	if err == nil && user != nil && user.ID != "" {
		return c.commit(gen, func() error {
			if err := c.creds.SaveRecord(credentials.Record{
				Token:        rec.Token,
				RefreshToken: rec.RefreshToken,
				User:         user,
			}); err != nil {
				log.Err(err).Msg("Failed to update cached user")
			}
			_, err := c.machine.Dispatch(session.SessionValidated{User: *user})
			return err
		})
	}

	log.Warn().Err(err).Msg("Persisted session failed validation")
	if rec.RefreshToken == "" {
		c.expire(ctx, rec.Token, gen)
		return nil
	}
	return c.RefreshToken(ctx)
}

func (c *Coordinator) settleUnauthenticated() {
	c.applyMu.Lock()
	defer c.applyMu.Unlock()
	c.attempt++
	_, _ = c.machine.Dispatch(session.Logout{})
}
