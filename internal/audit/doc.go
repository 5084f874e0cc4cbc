// Package audit records and lists security-relevant activity: logins,
// registrations, role changes, account deletion and device lifecycle.
//
// Entries are written to the audit_logs table. Recording never fails the
// operation being audited; a failed write is logged and dropped. Reading
// the trail is an owner-only operation.
package audit
