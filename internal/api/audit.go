package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/telemetry-core/internal/audit"
)

// handleListAudit returns paginated audit log entries with optional filters.
//
// Query parameters:
//   - action: filter by action (register, login, role_change, create, ...)
//   - entity_type: user or device
//   - entity_id, user_id: filter by subject or actor
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset (default 0)
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternal, "audit trail not configured")
		return
	}

	q := r.URL.Query()
	f := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
		UserID:     q.Get("user_id"),
	}

	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"limit", &f.Limit},
		{"offset", &f.Offset},
	} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, p.name+" must be an integer")
			return
		}
		*p.dst = n
	}

	page, err := s.audit.List(r.Context(), currentUser(r).Role, f)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
