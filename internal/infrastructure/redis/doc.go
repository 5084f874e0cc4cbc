// Package redis connects the telemetry core to Redis, which holds the
// session revocation list shared by every API instance.
package redis
