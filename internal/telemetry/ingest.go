package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/telemetry-core/internal/auth"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000

	maxPayloadBytes = 64 << 10
)

// Logger is the logging surface the service needs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Mirror receives a copy of each stored point. The InfluxDB client
// satisfies it; writes are asynchronous.
type Mirror interface {
	WriteReading(deviceID, ownerID string, payload json.RawMessage, at time.Time)
}

// Publisher announces stored points. The MQTT client satisfies it.
type Publisher interface {
	PublishDeviceData(deviceID string, v any) error
}

// Service is the ingest path for device readings.
type Service struct {
	repo      Repository
	mirror    Mirror
	publisher Publisher
	logger    Logger
	now       func() time.Time
}

// NewService creates an ingest service over repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, logger: noopLogger{}, now: time.Now}
}

// SetLogger sets the logger.
func (s *Service) SetLogger(l Logger) {
	if l != nil {
		s.logger = l
	}
}

// SetMirror enables time-series mirroring.
func (s *Service) SetMirror(m Mirror) { s.mirror = m }

// SetPublisher enables MQTT announcements.
func (s *Service) SetPublisher(p Publisher) { s.publisher = p }

// SubmitData appends a reading. The actor must own the device and the
// owner's role, as stored right now, must be manager or above.
func (s *Service) SubmitData(ctx context.Context, actor auth.Actor, in SubmitInput) (*DataPoint, error) {
	if in.DeviceID == "" {
		return nil, ErrMissingDevice
	}
	payload, err := normalizePayload(in.Payload)
	if err != nil {
		return nil, err
	}

	ownerID, ownerRole, err := s.repo.DeviceOwner(ctx, in.DeviceID)
	if err != nil {
		return nil, err
	}
	if !auth.CanSubmitData(actor, ownerID, ownerRole) {
		return nil, fmt.Errorf("%w: only a manager-or-above owner may submit data for this device", auth.ErrForbidden)
	}

	ts := s.now().UTC()
	if in.Timestamp != nil && !in.Timestamp.IsZero() {
		ts = in.Timestamp.UTC()
	}
	if !storable(ts) {
		return nil, ErrInvalidTimestamp
	}

	p := &DataPoint{DeviceID: in.DeviceID, Timestamp: ts, Payload: payload}
	if err := s.repo.Append(ctx, p, ownerID); err != nil {
		return nil, err
	}

	s.fanOut(p, ownerID)
	return p, nil
}

func (s *Service) fanOut(p *DataPoint, ownerID string) {
	if s.mirror != nil {
		s.mirror.WriteReading(p.DeviceID, ownerID, p.Payload, p.Timestamp)
	}
	if s.publisher != nil {
		msg := Announcement{DeviceID: p.DeviceID, PointID: p.ID, Timestamp: p.Timestamp, Data: p.Payload}
		if err := s.publisher.PublishDeviceData(p.DeviceID, msg); err != nil {
			s.logger.Warn("announcing data point failed", "device_id", p.DeviceID, "error", err)
		}
	}
}

// ListData returns a device's readings in timestamp order. The device's
// owner may read at any role; anyone else needs manager or above.
func (s *Service) ListData(ctx context.Context, actor auth.Actor, deviceID string, r Range) ([]DataPoint, error) {
	if deviceID == "" {
		return nil, ErrMissingDevice
	}
	if !r.From.IsZero() && !r.To.IsZero() && r.From.After(r.To) {
		return nil, ErrInvalidRange
	}
	switch {
	case r.Limit <= 0:
		r.Limit = DefaultListLimit
	case r.Limit > MaxListLimit:
		r.Limit = MaxListLimit
	}

	ownerID, _, err := s.repo.DeviceOwner(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if !auth.CanReadData(actor, ownerID) {
		return nil, fmt.Errorf("%w: not permitted to read this device's data", auth.ErrForbidden)
	}
	return s.repo.List(ctx, deviceID, r)
}

// normalizePayload rejects absent, null, malformed and oversized payloads
// and compacts the rest.
func normalizePayload(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("%w: required", ErrInvalidPayload)
	}
	if len(trimmed) > maxPayloadBytes {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrInvalidPayload, maxPayloadBytes)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, fmt.Errorf("%w: not valid JSON", ErrInvalidPayload)
	}
	return buf.Bytes(), nil
}
