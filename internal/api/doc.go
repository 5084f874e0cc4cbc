// Package api implements the HTTP REST API for the telemetry core.
//
// This package provides:
//   - Account endpoints: register, login, logout, current user, password change
//   - Device endpoints under the role ladder (own, all, add, update, delete)
//   - Telemetry ingestion and listing per device
//   - User administration and the audit trail for the owner
//   - Health and Prometheus metrics endpoints
//
// # Architecture
//
// Handlers are thin: they decode the request, take the acting user from the
// request context and call the domain services, which make every
// authorization decision. Errors are classified with auth.KindOf and
// rendered as structured JSON bodies.
//
//	HTTP ─► middleware (request id, log, recover, CORS, body limit, bearer)
//	     ─► handler ─► auth.Service / device.Registry / telemetry.Service
//
// # Security
//
// Bearer tokens carry only the user id. The auth middleware reloads the
// user on every request, so role changes and deletions apply immediately.
package api
