package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is used when mqtt.topic_prefix is empty.
const DefaultTopicPrefix = "telemetry"

// Topics builds topic names under a configurable root.
//
//	t := mqtt.NewTopics("telemetry")
//	t.DeviceData("dev-1")   // telemetry/devices/dev-1/data
type Topics struct {
	prefix string
}

// NewTopics trims surrounding slashes from prefix and falls back to
// DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the topic root.
func (t Topics) Prefix() string {
	return t.prefix
}

// DeviceData carries accepted data points for one device.
func (t Topics) DeviceData(deviceID string) string {
	return fmt.Sprintf("%s/devices/%s/data", t.prefix, deviceID)
}

// DeviceEvents carries created/updated/deleted notices for one device.
func (t Topics) DeviceEvents(deviceID string) string {
	return fmt.Sprintf("%s/devices/%s/events", t.prefix, deviceID)
}

// SystemStatus is the retained online/offline topic.
func (t Topics) SystemStatus() string {
	return t.prefix + "/system/status"
}

// AllDeviceData matches every device's data topic.
func (t Topics) AllDeviceData() string {
	return t.prefix + "/devices/+/data"
}

// AllDeviceEvents matches every device's events topic.
func (t Topics) AllDeviceEvents() string {
	return t.prefix + "/devices/+/events"
}
