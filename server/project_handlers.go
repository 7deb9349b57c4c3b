package server

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-session-client/projects"
	"github.com/jrsteele09/go-session-client/server/projectrepo"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

func (s *Server) ListProjectsHandler() http.HandlerFunc {
	return s.withOwner(func(w http.ResponseWriter, r *http.Request, ownerID string) {
		list, err := s.repos.Projects.List(ownerID)
		if err != nil {
			s.projectError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	})
}

func (s *Server) DefaultProjectHandler() http.HandlerFunc {
	return s.withOwner(func(w http.ResponseWriter, r *http.Request, ownerID string) {
		list, err := s.repos.Projects.List(ownerID)
		if err != nil {
			s.projectError(w, err)
			return
		}
		for _, p := range list {
			if p.IsDefault {
				writeJSON(w, http.StatusOK, p)
				return
			}
		}
		writeJSONError(w, "not_found", "no default project", http.StatusNotFound)
	})
}

// CreateProjectHandler creates a project. An owner's first project becomes
// the default.
func (s *Server) CreateProjectHandler() http.HandlerFunc {
	return s.withOwner(func(w http.ResponseWriter, r *http.Request, ownerID string) {
		in, ok := decodeProjectInput(w, r)
		if !ok {
			return
		}
		existing, err := s.repos.Projects.List(ownerID)
		if err != nil {
			s.projectError(w, err)
			return
		}

		now := s.nowFunc()
		p := &projectrepo.Project{
			ID:          uuid.New().String(),
			OwnerID:     ownerID,
			Name:        in.Name,
			Description: in.Description,
			Tags:        in.Tags,
			IsDefault:   in.IsDefault || len(existing) == 0,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.repos.Projects.Upsert(p); err != nil {
			s.projectError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	})
}

func (s *Server) UpdateProjectHandler() http.HandlerFunc {
	return s.withOwner(func(w http.ResponseWriter, r *http.Request, ownerID string) {
		p, err := s.repos.Projects.Get(ownerID, r.PathValue("id"))
		if err != nil {
			s.projectError(w, err)
			return
		}
		in, ok := decodeProjectInput(w, r)
		if !ok {
			return
		}

		p.Name = in.Name
		p.Description = in.Description
		p.Tags = in.Tags
		if in.IsDefault {
			p.IsDefault = true
		}
		p.UpdatedAt = s.nowFunc()
		if err := s.repos.Projects.Upsert(p); err != nil {
			s.projectError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	})
}

func (s *Server) DeleteProjectHandler() http.HandlerFunc {
	return s.withOwner(func(w http.ResponseWriter, r *http.Request, ownerID string) {
		if err := s.repos.Projects.Delete(ownerID, r.PathValue("id")); err != nil {
			s.projectError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func (s *Server) withOwner(fn func(w http.ResponseWriter, r *http.Request, ownerID string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(r.Context())
		if !ok || claims.Subject == "" {
			writeJSONError(w, "unauthorized", "Invalid token", http.StatusUnauthorized)
			return
		}
		fn(w, r, claims.Subject)
	}
}

func decodeProjectInput(w http.ResponseWriter, r *http.Request) (projects.Input, bool) {
	var in projects.Input
	if err := decodeJSON(w, r, &in); err != nil {
		writeJSONError(w, "invalid_request", "invalid project body", http.StatusBadRequest)
		return in, false
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		writeJSONError(w, "invalid_request", "name is required", http.StatusBadRequest)
		return in, false
	}
	return in, true
}

func (s *Server) projectError(w http.ResponseWriter, err error) {
	if errors.Is(err, projectrepo.ErrNotFound) {
		writeJSONError(w, "not_found", "project not found", http.StatusNotFound)
		return
	}
	log.Err(err).Msg("Project store failure")
	writeJSONError(w, "server_error", "project store failure", http.StatusInternalServerError)
}
