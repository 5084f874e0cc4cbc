package device

import "time"

// Device is a registered telemetry source.
type Device struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AddInput describes a device to register. An OwnerUsername that does not
// resolve to a user leaves the device with the acting user.
type AddInput struct {
	Name          string `json:"name"`
	Location      string `json:"location"`
	OwnerUsername string `json:"owner,omitempty"`
}

// UpdateInput carries the fields of an update. Nil means absent.
// OwnerUsername is only honoured on the admin path.
type UpdateInput struct {
	Name          *string `json:"name"`
	Location      *string `json:"location"`
	OwnerUsername *string `json:"owner"`
}

// EventType names a device lifecycle change.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// Event is announced on the message bus after a lifecycle change.
type Event struct {
	Type      EventType `json:"type"`
	DeviceID  string    `json:"device_id"`
	OwnerID   string    `json:"owner_id,omitempty"`
	ActorID   string    `json:"actor_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
