package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/telemetry-core/internal/audit"
	"github.com/nerrad567/telemetry-core/internal/device"
)

// handleListOwnDevices returns the devices owned by the caller.
func (s *Server) handleListOwnDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.devices.ListOwnDevices(r.Context(), currentUser(r).Actor())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleListAllDevices returns every device. Manager or above.
func (s *Server) handleListAllDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.devices.ListAllDevices(r.Context(), currentUser(r).Role)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleAddDevice registers a device for the caller or a named owner.
func (s *Server) handleAddDevice(w http.ResponseWriter, r *http.Request) {
	var in device.AddInput
	if !decodeBody(w, r, &in) {
		return
	}

	user := currentUser(r)
	d, err := s.devices.AddDevice(r.Context(), user.Actor(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.audit.Record(r.Context(), audit.Entry{
		Action:     audit.ActionCreate,
		EntityType: audit.EntityDevice,
		EntityID:   d.ID,
		UserID:     user.ID,
		Details:    map[string]any{"name": d.Name, "owner_id": d.OwnerID},
	})
	writeJSON(w, http.StatusCreated, d)
}

// handleUpdateDevice applies the owner or admin update path.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	var in device.UpdateInput
	if !decodeBody(w, r, &in) {
		return
	}

	user := currentUser(r)
	d, err := s.devices.UpdateDevice(r.Context(), user.Actor(), chi.URLParam(r, "id"), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.audit.Record(r.Context(), audit.Entry{
		Action:     audit.ActionUpdate,
		EntityType: audit.EntityDevice,
		EntityID:   d.ID,
		UserID:     user.ID,
		Details:    map[string]any{"name": d.Name, "location": d.Location, "owner_id": d.OwnerID},
	})
	writeJSON(w, http.StatusOK, d)
}

// handleDeleteDevice removes a device and its data. Manager or above.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user := currentUser(r)
	if err := s.devices.DeleteDevice(r.Context(), user.Role, id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.audit.Record(r.Context(), audit.Entry{
		Action:     audit.ActionDelete,
		EntityType: audit.EntityDevice,
		EntityID:   id,
		UserID:     user.ID,
	})
	w.WriteHeader(http.StatusNoContent)
}
