package telemetry

import (
	"encoding/json"
	"time"
)

// DataPoint is one reading submitted for a device.
type DataPoint struct {
	ID        string          `json:"id"`
	DeviceID  string          `json:"device_id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"data"`
}

// SubmitInput is a reading to append. A nil Timestamp means "now".
type SubmitInput struct {
	DeviceID  string          `json:"device_id"`
	Payload   json.RawMessage `json:"data"`
	Timestamp *time.Time      `json:"timestamp,omitempty"`
}

// Range bounds a data listing. Zero From or To leaves that side open.
type Range struct {
	From  time.Time
	To    time.Time
	Limit int
}

// Announcement is published on MQTT after a point is stored.
type Announcement struct {
	DeviceID  string          `json:"device_id"`
	PointID   string          `json:"point_id"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}
