// Package telemetry accepts and serves time-stamped device readings.
//
// A reading is accepted only from the device's owner, and only while that
// owner currently holds manager or above. Accepted points are appended to
// SQLite, then mirrored to InfluxDB and announced on MQTT when those are
// configured. Mirror and announce failures are logged and never fail the
// submission.
package telemetry
