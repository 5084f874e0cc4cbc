// Package logging provides the structured logger used across the telemetry
// core: log/slog with JSON or text output, service and version attributes on
// every record, and optional size-rotated file output via lumberjack.
//
// Attributes named password, token, secret or authorization are replaced
// with [REDACTED] before they are written.
package logging
