package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/telemetry-core/internal/audit"
)

type changeRoleRequest struct {
	Role string `json:"role"`
}

// handleListUsers returns all user accounts. Owner only.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.auth.ListUsers(r.Context(), currentUser(r).Role)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"users": users,
		"count": len(users),
	})
}

// handleGetUser returns one account. Manager or above.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.auth.GetUser(r.Context(), currentUser(r).Role, chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleChangeRole moves a user on the role ladder. Owner only; the change
// applies to the target's very next request.
func (s *Server) handleChangeRole(w http.ResponseWriter, r *http.Request) {
	var req changeRoleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	actor := currentUser(r)
	updated, err := s.auth.ChangeRole(r.Context(), actor.Role, chi.URLParam(r, "id"), req.Role)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.audit.Record(r.Context(), audit.Entry{
		Action:     audit.ActionRoleChange,
		EntityType: audit.EntityUser,
		EntityID:   updated.ID,
		UserID:     actor.ID,
		Details:    map[string]any{"role": string(updated.Role)},
	})
	writeJSON(w, http.StatusOK, updated)
}

// handleDeleteUser removes an account together with its devices and data.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	actor := currentUser(r)
	if err := s.auth.DeleteUser(r.Context(), actor.Role, id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.audit.Record(r.Context(), audit.Entry{
		Action:     audit.ActionDelete,
		EntityType: audit.EntityUser,
		EntityID:   id,
		UserID:     actor.ID,
	})
	w.WriteHeader(http.StatusNoContent)
}
