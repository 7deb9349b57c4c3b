package auth

import (
	"context"

	"github.com/jrsteele09/go-session-client/session"
	"github.com/rs/zerolog/log"
)

// Logout revokes the session remotely on a best-effort basis, then always
// clears the credential store and dispatches LOGOUT. Only a local storage
// failure is returned.
func (c *Coordinator) Logout(ctx context.Context) error {
	token := c.machine.Current().Token
	if token == "" {
		if rec, err := c.creds.LoadRecord(); err == nil {
			token = rec.Token
		}
	}
	remoteOK := c.revoke(ctx, token)
	c.metrics.Logout(remoteOK)

	c.applyMu.Lock()
	defer c.applyMu.Unlock()
	c.attempt++
	return c.clearLocked()
}

// revoke calls the remote logout under the logout timeout.
func (c *Coordinator) revoke(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	callCtx, cancel := c.withTimeout(ctx, c.logoutTimeout)
	defer cancel()
	if err := c.api.Logout(callCtx, token); err != nil {
		log.Warn().Err(err).Msg("Remote logout failed, clearing local session anyway")
		return false
	}
	return true
}

// expire performs a full logout for a failed attempt gen. A zero gen is not
// checked. It reports false when a newer attempt superseded gen.
func (c *Coordinator) expire(ctx context.Context, token string, gen uint64) bool {
	c.revoke(ctx, token)

	c.applyMu.Lock()
	defer c.applyMu.Unlock()
	if gen != 0 && gen != c.attempt {
		return false
	}
	c.attempt++
	if err := c.clearLocked(); err != nil {
		log.Err(err).Msg("Failed to clear credentials after session expiry")
	}
	return true
}

// clearLocked must be called with applyMu held.
func (c *Coordinator) clearLocked() error {
	err := c.creds.ClearAll()
	if err != nil {
		log.Err(err).Msg("Failed to clear credential store")
	}
	_, _ = c.machine.Dispatch(session.Logout{})
	return err
}
