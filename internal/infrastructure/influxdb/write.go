package influxdb

import (
	"encoding/json"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// measurementReading is the measurement every mirrored data point lands in.
const measurementReading = "device_reading"

// WriteReading queues one accepted data point. Tags are the device and its
// owner; fields are derived from the payload by ReadingFields. The write is
// asynchronous and failures arrive through SetOnError.
func (c *Client) WriteReading(deviceID, ownerID string, payload json.RawMessage, at time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		measurementReading,
		map[string]string{
			"device_id": deviceID,
			"owner_id":  ownerID,
		},
		ReadingFields(payload),
		at,
	)
	c.writeAPI.WritePoint(point)
}

// ReadingFields flattens a JSON payload into InfluxDB fields.
//
// A scalar payload becomes "value". An object contributes each top-level
// number, bool or string under its own key. The raw payload is always kept
// in "payload" so nothing is lost for nested shapes.
func ReadingFields(payload json.RawMessage) map[string]any {
	fields := map[string]any{"payload": string(payload)}

	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return fields
	}

	switch v := decoded.(type) {
	case map[string]any:
		for key, val := range v {
			if key == "payload" {
				continue
			}
			if scalar, ok := fieldValue(val); ok {
				fields[key] = scalar
			}
		}
	default:
		if scalar, ok := fieldValue(v); ok {
			fields["value"] = scalar
		}
	}
	return fields
}

func fieldValue(v any) (any, bool) {
	switch t := v.(type) {
	case float64, bool, string:
		return t, true
	default:
		return nil, false
	}
}
