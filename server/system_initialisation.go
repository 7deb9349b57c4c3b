package server

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-session-client/server/clientrepo"
	"github.com/jrsteele09/go-session-client/server/projectrepo"
	"github.com/jrsteele09/go-session-client/users"
	"github.com/rs/zerolog/log"
)

// InitialiseSystem registers the configured client and creates the demo
// user and its projects when they do not exist yet.
func (s *Server) InitialiseSystem(ctx context.Context) error {
	if err := s.registerClient(); err != nil {
		return fmt.Errorf("[Server InitialiseSystem] register client: %w", err)
	}

	email := s.config.GetDemoEmail()
	if _, err := s.repos.Users.GetByEmail(email); err == nil {
		return nil
	}

	hash, err := users.HashPassword(s.config.GetDemoPassword())
	if err != nil {
		return fmt.Errorf("[Server InitialiseSystem] hash demo password: %w", err)
	}
	demo := &users.User{
		Email:        email,
		Username:     "demo",
		PasswordHash: hash,
		Role:         users.RoleAdmin,
		DateJoined:   s.nowFunc(),
	}
	if err := s.repos.Users.Upsert(demo); err != nil {
		return fmt.Errorf("[Server InitialiseSystem] create demo user: %w", err)
	}
	if err := s.seedProjects(demo.ID); err != nil {
		return fmt.Errorf("[Server InitialiseSystem] seed projects: %w", err)
	}

	log.Info().Str("email", email).Str("issuer", s.config.GetIssuer()).Msg("Demo user created")
	return nil
}

// seedProjects gives a new user a default project and one other.
func (s *Server) seedProjects(ownerID string) error {
	now := s.nowFunc()
	for i, name := range []string{"Personal", "Sandbox"} {
		if err := s.repos.Projects.Upsert(&projectrepo.Project{
			ID:        uuid.New().String(),
			OwnerID:   ownerID,
			Name:      name,
			IsDefault: i == 0,
			CreatedAt: now.Add(-time.Duration(2-i) * time.Second),
			UpdatedAt: now,
		}); err != nil {
			return err
		}
	}
	return nil
}

// registerClient registers the public client the session client signs in
// through.
func (s *Server) registerClient() error {
	id := s.config.GetClientID()
	if _, err := s.repos.Clients.Get(id); err == nil {
		return nil
	}
	return s.repos.Clients.Upsert(&clientrepo.Client{
		ID:           id,
		Type:         clientrepo.ClientTypePublic,
		Description:  "Session client",
		RedirectURIs: s.config.GetClientRedirectURIs(),
		Scopes:       []string{"openid", "email", "profile"},
	})
}
