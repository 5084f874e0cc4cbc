// Package auth holds the identity store and the access-control model of the
// telemetry core.
//
// Roles form a ladder (operator < engineer < manager < owner). Every
// operation elsewhere in the core asks the pure decision functions in
// policy.go before it touches storage, and passes the acting user in
// explicitly rather than reading it from request context.
//
// Sessions are HS256 JWTs carrying only the user id and a token id. The
// user row, and therefore the role, is loaded fresh on every request by
// Service.Resolve, so a demotion takes effect on the next call. Logout
// places the token id on a revocation list (Redis or in-process) until the
// token would have expired anyway.
//
// Passwords are stored as Argon2id PHC strings. Legacy bcrypt hashes still
// verify and are rewritten as Argon2id on the next successful login.
package auth
