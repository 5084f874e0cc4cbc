package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/telemetry-core/internal/telemetry"
)

// handleSubmitData appends a reading to the device named in the path.
func (s *Server) handleSubmitData(w http.ResponseWriter, r *http.Request) {
	var in telemetry.SubmitInput
	if !decodeBody(w, r, &in) {
		return
	}
	in.DeviceID = chi.URLParam(r, "id")

	point, err := s.telemetry.SubmitData(r.Context(), currentUser(r).Actor(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, point)
}

// handleListData returns a device's readings in time order.
//
// Query parameters:
//   - from, to: RFC 3339 bounds, both inclusive and optional
//   - limit: max results (default 100, max 1000)
func (s *Server) handleListData(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var rng telemetry.Range
	var err error
	if rng.From, err = parseTimeParam(q.Get("from")); err != nil {
		writeBadRequest(w, "from must be an RFC 3339 timestamp")
		return
	}
	if rng.To, err = parseTimeParam(q.Get("to")); err != nil {
		writeBadRequest(w, "to must be an RFC 3339 timestamp")
		return
	}
	if v := q.Get("limit"); v != "" {
		if rng.Limit, err = strconv.Atoi(v); err != nil {
			writeBadRequest(w, "limit must be an integer")
			return
		}
	}

	points, err := s.telemetry.ListData(r.Context(), currentUser(r).Actor(), chi.URLParam(r, "id"), rng)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"points": points,
		"count":  len(points),
	})
}

func parseTimeParam(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, v)
}
