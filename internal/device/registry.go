package device

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/telemetry-core/internal/auth"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// UserDirectory resolves owner usernames. auth.Service satisfies it.
type UserDirectory interface {
	LookupUsername(ctx context.Context, username string) (*auth.User, error)
}

// Publisher announces lifecycle events. The MQTT client satisfies it.
type Publisher interface {
	PublishDeviceEvent(deviceID string, v any) error
}

// Registry enforces the device permission rules on top of a Repository.
// All public methods are safe for concurrent use.
type Registry struct {
	repo      Repository
	users     UserDirectory
	publisher Publisher
	logger    Logger
	now       func() time.Time
}

// NewRegistry creates a new device registry.
func NewRegistry(repo Repository, users UserDirectory) *Registry {
	return &Registry{
		repo:   repo,
		users:  users,
		logger: noopLogger{},
		now:    time.Now,
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// SetPublisher enables lifecycle announcements.
func (r *Registry) SetPublisher(p Publisher) {
	r.publisher = p
}

// AddDevice registers a device. Engineer or above. When in.OwnerUsername
// names an existing user that user owns the device; otherwise the actor does.
func (r *Registry) AddDevice(ctx context.Context, actor auth.Actor, in AddInput) (*Device, error) {
	if !auth.CanRegisterDevice(actor.Role) {
		return nil, fmt.Errorf("%w: registering devices requires engineer or above", auth.ErrForbidden)
	}
	if err := ValidateName(in.Name); err != nil {
		return nil, err
	}
	if err := ValidateLocation(in.Location); err != nil {
		return nil, err
	}

	ownerID := actor.ID
	if in.OwnerUsername != "" {
		owner, err := r.users.LookupUsername(ctx, in.OwnerUsername)
		switch {
		case err == nil:
			ownerID = owner.ID
		case errors.Is(err, auth.ErrNotFound):
			r.logger.Debug("owner username not found, assigning to actor",
				"owner_username", in.OwnerUsername, "actor_id", actor.ID)
		default:
			return nil, fmt.Errorf("resolving owner: %w", err)
		}
	}

	device := &Device{
		OwnerID:  ownerID,
		Name:     strings.TrimSpace(in.Name),
		Location: strings.TrimSpace(in.Location),
	}
	if err := r.repo.Create(ctx, device); err != nil {
		return nil, err
	}

	r.logger.Info("device created", "id", device.ID, "owner_id", device.OwnerID, "actor_id", actor.ID)
	r.announce(EventCreated, device, actor.ID)
	return device, nil
}

// ListOwnDevices returns the actor's devices.
func (r *Registry) ListOwnDevices(ctx context.Context, actor auth.Actor) ([]Device, error) {
	if !auth.CanListOwnDevices(actor.Role) {
		return nil, fmt.Errorf("%w: unknown role", auth.ErrForbidden)
	}
	return r.repo.ListByOwner(ctx, actor.ID)
}

// ListAllDevices returns every device. Manager or above.
func (r *Registry) ListAllDevices(ctx context.Context, actorRole auth.Role) ([]Device, error) {
	if !auth.CanListAllDevices(actorRole) {
		return nil, fmt.Errorf("%w: listing all devices requires manager or above", auth.ErrForbidden)
	}
	return r.repo.List(ctx)
}

// UpdateDevice edits a device along one of two paths. A manager who owns
// the device may rename and relocate it. An owner-role actor must also name
// the new owner, and always takes that path. Existence is checked before
// permission.
func (r *Registry) UpdateDevice(ctx context.Context, actor auth.Actor, id string, in UpdateInput) (*Device, error) {
	current, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	path := auth.DecideDeviceUpdate(actor, current.OwnerID)
	if path == auth.UpdateDenied {
		return nil, fmt.Errorf("%w: not permitted to update this device", auth.ErrForbidden)
	}

	name, err := requireField(in.Name, ValidateName)
	if err != nil {
		return nil, err
	}
	location, err := requireField(in.Location, ValidateLocation)
	if err != nil {
		return nil, err
	}

	updated := *current
	updated.Name = name
	updated.Location = location

	if path == auth.UpdateAdminPath {
		if in.OwnerUsername == nil || strings.TrimSpace(*in.OwnerUsername) == "" {
			return nil, ErrOwnerRequired
		}
		owner, err := r.users.LookupUsername(ctx, strings.TrimSpace(*in.OwnerUsername))
		if err != nil {
			if errors.Is(err, auth.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrUnknownOwner, *in.OwnerUsername)
			}
			return nil, fmt.Errorf("resolving owner: %w", err)
		}
		updated.OwnerID = owner.ID
	}

	if err := r.repo.UpdateIfOwner(ctx, &updated, current.OwnerID); err != nil {
		return nil, err
	}

	r.logger.Info("device updated",
		"id", updated.ID, "path", path.String(), "owner_id", updated.OwnerID, "actor_id", actor.ID)
	r.announce(EventUpdated, &updated, actor.ID)
	return &updated, nil
}

// DeleteDevice removes a device and its data. Manager or above, regardless
// of ownership.
func (r *Registry) DeleteDevice(ctx context.Context, actorRole auth.Role, id string) error {
	if !auth.CanDeleteDevice(actorRole) {
		return fmt.Errorf("%w: deleting devices requires manager or above", auth.ErrForbidden)
	}
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.logger.Info("device deleted", "id", id)
	r.announce(EventDeleted, &Device{ID: id}, "")
	return nil
}

func (r *Registry) announce(t EventType, d *Device, actorID string) {
	if r.publisher == nil {
		return
	}
	ev := Event{Type: t, DeviceID: d.ID, OwnerID: d.OwnerID, ActorID: actorID, Timestamp: r.now().UTC()}
	if err := r.publisher.PublishDeviceEvent(d.ID, ev); err != nil {
		r.logger.Warn("publishing device event failed", "id", d.ID, "event", string(t), "error", err)
	}
}
