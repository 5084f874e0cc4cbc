package device

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/telemetry-core/internal/auth"
)

// directory resolves usernames straight from the users table.
type directory struct {
	repo *auth.SQLiteUserRepository
}

func (d directory) LookupUsername(ctx context.Context, username string) (*auth.User, error) {
	return d.repo.GetByUsername(ctx, username)
}

// recordingPublisher captures announced events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (p *recordingPublisher) PublishDeviceEvent(_ string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ev, ok := v.(Event); ok {
		p.events = append(p.events, ev)
	}
	return p.err
}

func setupRegistry(t *testing.T) (*Registry, *sql.DB) {
	t.Helper()
	db := setupTestDB(t)
	return NewRegistry(NewSQLiteRepository(db), directory{auth.NewUserRepository(db)}), db
}

func ptr(s string) *string { return &s }

func TestRegistry_AddDevice_RoleGate(t *testing.T) {
	registry, db := setupRegistry(t)
	ctx := context.Background()

	for _, role := range auth.Roles {
		u := seedUser(t, db, "user-"+string(role), role)
		_, err := registry.AddDevice(ctx, u.Actor(), AddInput{Name: "d", Location: "l"})
		want := role != auth.RoleOperator
		if (err == nil) != want {
			t.Errorf("AddDevice as %s error = %v, want allowed=%v", role, err, want)
		}
		if !want && !errors.Is(err, auth.ErrForbidden) {
			t.Errorf("AddDevice as %s error = %v, want ErrForbidden", role, err)
		}
	}
}

func TestRegistry_AddDevice_Ownership(t *testing.T) {
	registry, db := setupRegistry(t)
	ctx := context.Background()
	eng := seedUser(t, db, "eng", auth.RoleEngineer)
	other := seedUser(t, db, "other", auth.RoleOperator)

	tests := []struct {
		name      string
		owner     string
		wantOwner string
	}{
		{"no owner", "", eng.ID},
		{"existing owner", "other", other.ID},
		{"unknown owner falls back", "nobody", eng.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := registry.AddDevice(ctx, eng.Actor(), AddInput{Name: "d", Location: "l", OwnerUsername: tt.owner})
			if err != nil {
				t.Fatalf("AddDevice() error = %v", err)
			}
			if d.OwnerID != tt.wantOwner {
				t.Errorf("OwnerID = %q, want %q", d.OwnerID, tt.wantOwner)
			}
		})
	}

	if _, err := registry.AddDevice(ctx, eng.Actor(), AddInput{Name: "", Location: "l"}); !errors.Is(err, auth.ErrInvalidInput) {
		t.Errorf("empty name error = %v", err)
	}
	if _, err := registry.AddDevice(ctx, eng.Actor(), AddInput{Name: "d", Location: " "}); !errors.Is(err, auth.ErrInvalidInput) {
		t.Errorf("empty location error = %v", err)
	}
}

func TestRegistry_ListDevices(t *testing.T) {
	registry, db := setupRegistry(t)
	ctx := context.Background()
	eng := seedUser(t, db, "eng", auth.RoleEngineer)
	op := seedUser(t, db, "op", auth.RoleOperator)
	mgr := seedUser(t, db, "mgr", auth.RoleManager)

	if _, err := registry.AddDevice(ctx, eng.Actor(), AddInput{Name: "a", Location: "l"}); err != nil {
		t.Fatal(err)
	}
	if _, err := registry.AddDevice(ctx, eng.Actor(), AddInput{Name: "b", Location: "l", OwnerUsername: "op"}); err != nil {
		t.Fatal(err)
	}

	own, err := registry.ListOwnDevices(ctx, op.Actor())
	if err != nil || len(own) != 1 || own[0].Name != "b" {
		t.Errorf("ListOwnDevices(op) = %v, %v", own, err)
	}

	if _, err := registry.ListAllDevices(ctx, eng.Role); !errors.Is(err, auth.ErrForbidden) {
		t.Errorf("ListAllDevices(engineer) error = %v", err)
	}
	all, err := registry.ListAllDevices(ctx, mgr.Role)
	if err != nil || len(all) != 2 || all[0].Name != "a" {
		t.Errorf("ListAllDevices(manager) = %v, %v", all, err)
	}
}

func TestRegistry_UpdateDevice_OwnerPath(t *testing.T) {
	registry, db := setupRegistry(t)
	ctx := context.Background()
	mgr := seedUser(t, db, "mgr", auth.RoleManager)
	other := seedUser(t, db, "other", auth.RoleManager)

	d, err := registry.AddDevice(ctx, mgr.Actor(), AddInput{Name: "d", Location: "l"})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := registry.UpdateDevice(ctx, mgr.Actor(), d.ID, UpdateInput{
		Name: ptr("new"), Location: ptr("attic"), OwnerUsername: ptr("other"),
	})
	if err != nil {
		t.Fatalf("UpdateDevice() error = %v", err)
	}
	if updated.Name != "new" || updated.Location != "attic" {
		t.Errorf("updated = %+v", updated)
	}
	if updated.OwnerID != mgr.ID {
		t.Error("owner path must not reassign the device")
	}

	if _, err := registry.UpdateDevice(ctx, other.Actor(), d.ID, UpdateInput{Name: ptr("x"), Location: ptr("y")}); !errors.Is(err, auth.ErrForbidden) {
		t.Errorf("non-owner manager error = %v, want ErrForbidden", err)
	}
	if _, err := registry.UpdateDevice(ctx, mgr.Actor(), d.ID, UpdateInput{Name: ptr("x")}); !errors.Is(err, auth.ErrInvalidInput) {
		t.Errorf("missing location error = %v, want ErrInvalidInput", err)
	}
}

func TestRegistry_UpdateDevice_EngineerOwnerDenied(t *testing.T) {
	registry, db := setupRegistry(t)
	ctx := context.Background()
	eng := seedUser(t, db, "eng", auth.RoleEngineer)

	d, err := registry.AddDevice(ctx, eng.Actor(), AddInput{Name: "d", Location: "l"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := registry.UpdateDevice(ctx, eng.Actor(), d.ID, UpdateInput{Name: ptr("x"), Location: ptr("y")}); !errors.Is(err, auth.ErrForbidden) {
		t.Errorf("engineer owner error = %v, want ErrForbidden", err)
	}
}

func TestRegistry_UpdateDevice_AdminPath(t *testing.T) {
	registry, db := setupRegistry(t)
	ctx := context.Background()
	boss := seedUser(t, db, "boss", auth.RoleOwner)
	mgr := seedUser(t, db, "mgr", auth.RoleManager)
	op := seedUser(t, db, "op", auth.RoleOperator)

	d, err := registry.AddDevice(ctx, mgr.Actor(), AddInput{Name: "d", Location: "l"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := registry.UpdateDevice(ctx, boss.Actor(), d.ID, UpdateInput{Name: ptr("x"), Location: ptr("y")}); !errors.Is(err, ErrOwnerRequired) {
		t.Errorf("admin path without owner error = %v, want ErrOwnerRequired", err)
	}
	if _, err := registry.UpdateDevice(ctx, boss.Actor(), d.ID, UpdateInput{Name: ptr("x"), Location: ptr("y"), OwnerUsername: ptr("ghost")}); !errors.Is(err, auth.ErrInvalidInput) {
		t.Errorf("unknown owner error = %v, want ErrInvalidInput", err)
	}

	updated, err := registry.UpdateDevice(ctx, boss.Actor(), d.ID, UpdateInput{Name: ptr("x"), Location: ptr("y"), OwnerUsername: ptr("op")})
	if err != nil {
		t.Fatalf("UpdateDevice() error = %v", err)
	}
	if updated.OwnerID != op.ID {
		t.Errorf("OwnerID = %q, want %q", updated.OwnerID, op.ID)
	}

	// An owner-role actor editing their own device still needs an owner.
	own, err := registry.AddDevice(ctx, boss.Actor(), AddInput{Name: "mine", Location: "l"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := registry.UpdateDevice(ctx, boss.Actor(), own.ID, UpdateInput{Name: ptr("x"), Location: ptr("y")}); !errors.Is(err, ErrOwnerRequired) {
		t.Errorf("owner role on own device error = %v, want ErrOwnerRequired", err)
	}
}

func TestRegistry_UpdateDevice_NotFoundBeforeForbidden(t *testing.T) {
	registry, db := setupRegistry(t)
	op := seedUser(t, db, "op", auth.RoleOperator)

	_, err := registry.UpdateDevice(context.Background(), op.Actor(), "dev-missing", UpdateInput{})
	if !errors.Is(err, auth.ErrNotFound) {
		t.Errorf("UpdateDevice(missing) error = %v, want ErrNotFound", err)
	}
}

// casRepository wraps a Repository and moves the device to another owner
// between the read and the write.
type casRepository struct {
	Repository
	db      *sql.DB
	thiefID string
}

func (c casRepository) UpdateIfOwner(ctx context.Context, d *Device, expected string) error {
	if _, err := c.db.ExecContext(ctx, "UPDATE devices SET owner_id = ? WHERE id = ?", c.thiefID, d.ID); err != nil {
		return err
	}
	return c.Repository.UpdateIfOwner(ctx, d, expected)
}

func TestRegistry_UpdateDevice_ConcurrentReassignment(t *testing.T) {
	db := setupTestDB(t)
	mgr := seedUser(t, db, "mgr", auth.RoleManager)
	thief := seedUser(t, db, "thief", auth.RoleManager)
	base := NewSQLiteRepository(db)
	ctx := context.Background()

	d := &Device{OwnerID: mgr.ID, Name: "d", Location: "l"}
	if err := base.Create(ctx, d); err != nil {
		t.Fatal(err)
	}

	registry := NewRegistry(casRepository{Repository: base, db: db, thiefID: thief.ID}, directory{auth.NewUserRepository(db)})
	_, err := registry.UpdateDevice(ctx, mgr.Actor(), d.ID, UpdateInput{Name: ptr("mine"), Location: ptr("still")})
	if !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("UpdateDevice() error = %v, want ErrForbidden", err)
	}

	got, _ := base.GetByID(ctx, d.ID) //nolint:errcheck // asserted below
	if got == nil || got.Name != "d" || got.OwnerID != thief.ID {
		t.Errorf("device = %+v, stale write must not land", got)
	}
}

func TestRegistry_DeleteDevice(t *testing.T) {
	registry, db := setupRegistry(t)
	ctx := context.Background()
	eng := seedUser(t, db, "eng", auth.RoleEngineer)
	mgr := seedUser(t, db, "mgr", auth.RoleManager)

	d, err := registry.AddDevice(ctx, eng.Actor(), AddInput{Name: "d", Location: "l"})
	if err != nil {
		t.Fatal(err)
	}

	if err := registry.DeleteDevice(ctx, eng.Role, d.ID); !errors.Is(err, auth.ErrForbidden) {
		t.Errorf("DeleteDevice(engineer) error = %v", err)
	}
	// Not ownership-gated: a manager may delete someone else's device.
	if err := registry.DeleteDevice(ctx, mgr.Role, d.ID); err != nil {
		t.Errorf("DeleteDevice(manager) error = %v", err)
	}
	if err := registry.DeleteDevice(ctx, mgr.Role, d.ID); !errors.Is(err, auth.ErrNotFound) {
		t.Errorf("second DeleteDevice error = %v, want ErrNotFound", err)
	}
}

func TestRegistry_PublishesEvents(t *testing.T) {
	registry, db := setupRegistry(t)
	ctx := context.Background()
	mgr := seedUser(t, db, "mgr", auth.RoleManager)

	pub := &recordingPublisher{err: errors.New("broker down")}
	registry.SetPublisher(pub)
	registry.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	d, err := registry.AddDevice(ctx, mgr.Actor(), AddInput{Name: "d", Location: "l"})
	if err != nil {
		t.Fatalf("AddDevice() should not fail on publish error: %v", err)
	}
	if _, err := registry.UpdateDevice(ctx, mgr.Actor(), d.ID, UpdateInput{Name: ptr("n"), Location: ptr("l")}); err != nil {
		t.Fatal(err)
	}
	if err := registry.DeleteDevice(ctx, mgr.Role, d.ID); err != nil {
		t.Fatal(err)
	}

	want := []EventType{EventCreated, EventUpdated, EventDeleted}
	if len(pub.events) != len(want) {
		t.Fatalf("events = %+v", pub.events)
	}
	for i, ev := range pub.events {
		if ev.Type != want[i] || ev.DeviceID != d.ID {
			t.Errorf("event[%d] = %+v, want %s for %s", i, ev, want[i], d.ID)
		}
	}
}
