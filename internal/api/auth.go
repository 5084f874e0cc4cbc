package api

import (
	"net/http"

	"github.com/nerrad567/telemetry-core/internal/audit"
	"github.com/nerrad567/telemetry-core/internal/auth"
)

// credentialsRequest is the body of POST /auth/register and /auth/login.
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// handleRegister creates an operator account and opens a session for it.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	session, err := s.auth.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.audit.Record(r.Context(), audit.Entry{
		Action:     audit.ActionRegister,
		EntityType: audit.EntityUser,
		EntityID:   session.User.ID,
		UserID:     session.User.ID,
		Details:    map[string]any{"username": session.User.Username},
	})
	writeJSON(w, http.StatusCreated, session)
}

// handleLogin checks credentials and returns a session token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	session, err := s.auth.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		s.logger.Info("login failed", "username", req.Username, "kind", auth.KindOf(err).String())
		s.writeServiceError(w, r, err)
		return
	}

	s.audit.Record(r.Context(), audit.Entry{
		Action:     audit.ActionLogin,
		EntityType: audit.EntityUser,
		EntityID:   session.User.ID,
		UserID:     session.User.ID,
	})
	writeJSON(w, http.StatusOK, session)
}

// handleLogout revokes the presented token.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if err := s.auth.Logout(r.Context(), currentToken(r)); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.audit.Record(r.Context(), audit.Entry{
		Action:     audit.ActionLogout,
		EntityType: audit.EntityUser,
		EntityID:   user.ID,
		UserID:     user.ID,
	})
	w.WriteHeader(http.StatusNoContent)
}

// handleMe returns the caller's current user row.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}

// handleChangePassword replaces the caller's password after checking the current one.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user := currentUser(r)
	if err := s.auth.ChangePassword(r.Context(), user.ID, req.OldPassword, req.NewPassword); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.audit.Record(r.Context(), audit.Entry{
		Action:     audit.ActionPasswordChange,
		EntityType: audit.EntityUser,
		EntityID:   user.ID,
		UserID:     user.ID,
	})
	w.WriteHeader(http.StatusNoContent)
}
