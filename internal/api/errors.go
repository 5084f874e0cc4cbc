package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/telemetry-core/internal/auth"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest      = "bad_request"
	ErrCodeNotFound        = "not_found"
	ErrCodeUnauthorized    = "unauthorised"
	ErrCodeForbidden       = "forbidden"
	ErrCodeConflict        = "conflict"
	ErrCodeInternal        = "internal_error"
	ErrCodeValidation      = "validation_error"
	ErrCodePayloadTooLarge = "payload_too_large"
)

// kindResponses maps each error kind to its HTTP status and code.
var kindResponses = map[auth.Kind]struct {
	status int
	code   string
}{
	auth.KindInvalidInput:      {http.StatusBadRequest, ErrCodeValidation},
	auth.KindDuplicateUsername: {http.StatusConflict, ErrCodeConflict},
	auth.KindNotFound:          {http.StatusNotFound, ErrCodeNotFound},
	auth.KindInvalidCredential: {http.StatusUnauthorized, ErrCodeUnauthorized},
	auth.KindForbidden:         {http.StatusForbidden, ErrCodeForbidden},
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeServiceError renders a domain error. Internal failures are logged
// and reported without detail; denials are counted.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := auth.KindOf(err)

	resp, ok := kindResponses[kind]
	if !ok {
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", r.Context().Value(ctxKeyRequestID),
			"error", err,
		)
		writeInternalError(w, "internal server error")
		return
	}

	if kind == auth.KindForbidden || kind == auth.KindInvalidCredential {
		s.metrics.denied(routePattern(r), kind)
	}
	writeError(w, resp.status, resp.code, err.Error())
}

// decodeBody decodes a JSON request body into v, writing the 4xx response
// itself when decoding fails.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, "request body too large")
		return false
	}
	writeBadRequest(w, "invalid JSON body")
	return false
}
