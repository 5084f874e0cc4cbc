package telemetry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/telemetry-core/internal/auth"
	"github.com/nerrad567/telemetry-core/internal/device"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/database"
	"github.com/nerrad567/telemetry-core/migrations"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "telemetry-test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db.DB
}

func seedUser(t *testing.T, db *sql.DB, username string, role auth.Role) *auth.User {
	t.Helper()
	u := &auth.User{Username: username, PasswordHash: "x", Role: role}
	if err := auth.NewUserRepository(db).Create(context.Background(), u); err != nil {
		t.Fatalf("creating user %s: %v", username, err)
	}
	return u
}

func seedDevice(t *testing.T, db *sql.DB, ownerID string) *device.Device {
	t.Helper()
	d := &device.Device{OwnerID: ownerID, Name: "sensor", Location: "lab"}
	if err := device.NewSQLiteRepository(db).Create(context.Background(), d); err != nil {
		t.Fatalf("creating device: %v", err)
	}
	return d
}

type recordingMirror struct {
	mu     sync.Mutex
	writes []string
}

func (m *recordingMirror) WriteReading(deviceID, ownerID string, _ json.RawMessage, _ time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, deviceID+"/"+ownerID)
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []Announcement
	err  error
}

func (p *recordingPublisher) PublishDeviceData(_ string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if a, ok := v.(Announcement); ok {
		p.sent = append(p.sent, a)
	}
	return p.err
}

func TestSubmitData_Matrix(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(NewSQLiteRepository(db))
	ctx := context.Background()

	// Owner role x ownership: only an owning manager-or-above may submit.
	for _, role := range auth.Roles {
		owner := seedUser(t, db, "owner-"+string(role), role)
		stranger := seedUser(t, db, "stranger-"+string(role), auth.RoleOwner)
		d := seedDevice(t, db, owner.ID)

		_, err := svc.SubmitData(ctx, owner.Actor(), SubmitInput{DeviceID: d.ID, Payload: json.RawMessage(`{"t":1}`)})
		wantOK := auth.RoleAtLeast(role, auth.RoleManager)
		if (err == nil) != wantOK {
			t.Errorf("owner %s: SubmitData() error = %v, want ok=%v", role, err, wantOK)
		}
		if !wantOK && !errors.Is(err, auth.ErrForbidden) {
			t.Errorf("owner %s: error = %v, want ErrForbidden", role, err)
		}

		if _, err := svc.SubmitData(ctx, stranger.Actor(), SubmitInput{DeviceID: d.ID, Payload: json.RawMessage(`1`)}); !errors.Is(err, auth.ErrForbidden) {
			t.Errorf("non-owner on %s device: error = %v, want ErrForbidden", role, err)
		}
	}
}

func TestSubmitData_Validation(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(NewSQLiteRepository(db))
	ctx := context.Background()
	mgr := seedUser(t, db, "mgr", auth.RoleManager)
	d := seedDevice(t, db, mgr.ID)

	tests := []struct {
		name string
		in   SubmitInput
		want error
	}{
		{"no device", SubmitInput{Payload: json.RawMessage(`1`)}, auth.ErrInvalidInput},
		{"no payload", SubmitInput{DeviceID: d.ID}, auth.ErrInvalidInput},
		{"null payload", SubmitInput{DeviceID: d.ID, Payload: json.RawMessage(` null `)}, auth.ErrInvalidInput},
		{"malformed", SubmitInput{DeviceID: d.ID, Payload: json.RawMessage(`{"a":`)}, auth.ErrInvalidInput},
		{"missing device", SubmitInput{DeviceID: "dev-missing", Payload: json.RawMessage(`1`)}, auth.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.SubmitData(ctx, mgr.Actor(), tt.in); !errors.Is(err, tt.want) {
				t.Errorf("SubmitData() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSubmitData_TimestampAndFanOut(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(NewSQLiteRepository(db))
	ctx := context.Background()
	mgr := seedUser(t, db, "mgr", auth.RoleManager)
	d := seedDevice(t, db, mgr.ID)

	fixed := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	mirror := &recordingMirror{}
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc.SetMirror(mirror)
	svc.SetPublisher(pub)

	p, err := svc.SubmitData(ctx, mgr.Actor(), SubmitInput{DeviceID: d.ID, Payload: json.RawMessage(`{ "temp" : 21.5 }`)})
	if err != nil {
		t.Fatalf("SubmitData() should not fail on publish error: %v", err)
	}
	if !p.Timestamp.Equal(fixed) {
		t.Errorf("Timestamp = %v, want server time %v", p.Timestamp, fixed)
	}
	if string(p.Payload) != `{"temp":21.5}` {
		t.Errorf("Payload = %s, want compacted JSON", p.Payload)
	}
	if len(mirror.writes) != 1 || mirror.writes[0] != d.ID+"/"+mgr.ID {
		t.Errorf("mirror writes = %v", mirror.writes)
	}
	if len(pub.sent) != 1 || pub.sent[0].PointID != p.ID {
		t.Errorf("announcements = %+v", pub.sent)
	}

	explicit := time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC)
	p2, err := svc.SubmitData(ctx, mgr.Actor(), SubmitInput{DeviceID: d.ID, Payload: json.RawMessage(`2`), Timestamp: &explicit})
	if err != nil {
		t.Fatal(err)
	}
	if !p2.Timestamp.Equal(explicit) {
		t.Errorf("Timestamp = %v, want %v", p2.Timestamp, explicit)
	}
}

func TestSubmitData_TimestampOutsideStorableWindow(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(NewSQLiteRepository(db))
	ctx := context.Background()
	mgr := seedUser(t, db, "mgr", auth.RoleManager)
	d := seedDevice(t, db, mgr.ID)

	for _, ts := range []time.Time{
		time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(1500, 1, 1, 0, 0, 0, 0, time.UTC),
	} {
		_, err := svc.SubmitData(ctx, mgr.Actor(), SubmitInput{DeviceID: d.ID, Payload: json.RawMessage(`1`), Timestamp: &ts})
		if !errors.Is(err, auth.ErrInvalidInput) {
			t.Errorf("SubmitData(%s) error = %v, want ErrInvalidInput", ts.Format(time.RFC3339), err)
		}
	}

	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM data_points").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("%d data points stored for out-of-range timestamps", n)
	}

	edge := time.Date(2262, 4, 11, 0, 0, 0, 0, time.UTC)
	p, err := svc.SubmitData(ctx, mgr.Actor(), SubmitInput{DeviceID: d.ID, Payload: json.RawMessage(`1`), Timestamp: &edge})
	if err != nil {
		t.Fatalf("SubmitData(2262-04-11) error = %v", err)
	}
	points, err := svc.ListData(ctx, mgr.Actor(), d.ID, Range{})
	if err != nil || len(points) != 1 || !points[0].Timestamp.Equal(p.Timestamp) {
		t.Errorf("ListData() = %v, %v, want the 2262 reading back unchanged", points, err)
	}
}

func TestSubmitData_DemotionTakesEffect(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(NewSQLiteRepository(db))
	users := auth.NewUserRepository(db)
	ctx := context.Background()
	mgr := seedUser(t, db, "mgr", auth.RoleManager)
	d := seedDevice(t, db, mgr.ID)

	if _, err := svc.SubmitData(ctx, mgr.Actor(), SubmitInput{DeviceID: d.ID, Payload: json.RawMessage(`1`)}); err != nil {
		t.Fatal(err)
	}
	if _, err := users.UpdateRole(ctx, mgr.ID, auth.RoleOperator); err != nil {
		t.Fatal(err)
	}
	// The stale actor still says manager; the owner's stored role decides.
	if _, err := svc.SubmitData(ctx, mgr.Actor(), SubmitInput{DeviceID: d.ID, Payload: json.RawMessage(`2`)}); !errors.Is(err, auth.ErrForbidden) {
		t.Errorf("SubmitData() after demotion error = %v, want ErrForbidden", err)
	}
}

func TestListData(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(NewSQLiteRepository(db))
	ctx := context.Background()
	mgr := seedUser(t, db, "mgr", auth.RoleManager)
	op := seedUser(t, db, "op", auth.RoleOperator)
	eng := seedUser(t, db, "eng", auth.RoleEngineer)
	d := seedDevice(t, db, mgr.ID)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	// Submit out of order; listing must come back in timestamp order.
	for _, offset := range []int{3, 1, 2} {
		ts := base.Add(time.Duration(offset) * time.Hour)
		if _, err := svc.SubmitData(ctx, mgr.Actor(), SubmitInput{DeviceID: d.ID, Payload: json.RawMessage(`1`), Timestamp: &ts}); err != nil {
			t.Fatal(err)
		}
	}

	points, err := svc.ListData(ctx, mgr.Actor(), d.ID, Range{})
	if err != nil {
		t.Fatalf("ListData() error = %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("ListData() returned %d points", len(points))
	}
	for i := 1; i < len(points); i++ {
		if points[i].Timestamp.Before(points[i-1].Timestamp) {
			t.Errorf("points out of order at %d", i)
		}
	}

	ranged, err := svc.ListData(ctx, mgr.Actor(), d.ID, Range{From: base.Add(90 * time.Minute), Limit: 1})
	if err != nil || len(ranged) != 1 || !ranged[0].Timestamp.Equal(base.Add(2*time.Hour)) {
		t.Errorf("ranged ListData() = %v, %v", ranged, err)
	}

	if _, err := svc.ListData(ctx, eng.Actor(), d.ID, Range{}); !errors.Is(err, auth.ErrForbidden) {
		t.Errorf("engineer non-owner error = %v, want ErrForbidden", err)
	}
	if _, err := svc.ListData(ctx, op.Actor(), "dev-missing", Range{}); !errors.Is(err, auth.ErrNotFound) {
		t.Errorf("missing device error = %v, want ErrNotFound", err)
	}
	if _, err := svc.ListData(ctx, mgr.Actor(), d.ID, Range{From: base.Add(time.Hour), To: base}); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("inverted range error = %v", err)
	}

	// Bounds beyond the storable window saturate rather than wrap.
	wide := Range{
		From: time.Date(1500, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	all, err := svc.ListData(ctx, mgr.Actor(), d.ID, wide)
	if err != nil || len(all) != 3 {
		t.Errorf("ListData(1500..2300) = %d points, %v, want 3", len(all), err)
	}
	future := Range{From: time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC)}
	if none, err := svc.ListData(ctx, mgr.Actor(), d.ID, future); err != nil || len(none) != 0 {
		t.Errorf("ListData(from 2300) = %d points, %v, want 0", len(none), err)
	}
}

func TestCascadeOnDeviceDelete(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(NewSQLiteRepository(db))
	ctx := context.Background()
	mgr := seedUser(t, db, "mgr", auth.RoleManager)
	d := seedDevice(t, db, mgr.ID)
	kept := seedDevice(t, db, mgr.ID)

	for _, id := range []string{d.ID, d.ID, kept.ID} {
		if _, err := svc.SubmitData(ctx, mgr.Actor(), SubmitInput{DeviceID: id, Payload: json.RawMessage(`1`)}); err != nil {
			t.Fatal(err)
		}
	}

	if err := device.NewSQLiteRepository(db).Delete(ctx, d.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM data_points WHERE device_id = ?", d.ID).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("%d data points survived device deletion", n)
	}
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM data_points WHERE device_id = ?", kept.ID).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("other device's data points = %d, want 1", n)
	}
	if _, err := svc.ListData(ctx, mgr.Actor(), d.ID, Range{}); !errors.Is(err, auth.ErrNotFound) {
		t.Errorf("ListData() on deleted device error = %v, want ErrNotFound", err)
	}
}

func TestCascadeOnUserDelete(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(NewSQLiteRepository(db))
	ctx := context.Background()
	mgr := seedUser(t, db, "mgr", auth.RoleManager)
	keep := seedUser(t, db, "keep", auth.RoleManager)
	d1 := seedDevice(t, db, mgr.ID)
	d2 := seedDevice(t, db, mgr.ID)
	other := seedDevice(t, db, keep.ID)

	for _, pair := range []struct {
		actor *auth.User
		dev   string
	}{{mgr, d1.ID}, {mgr, d2.ID}, {keep, other.ID}} {
		if _, err := svc.SubmitData(ctx, pair.actor.Actor(), SubmitInput{DeviceID: pair.dev, Payload: json.RawMessage(`1`)}); err != nil {
			t.Fatal(err)
		}
	}

	if err := auth.NewUserRepository(db).Delete(ctx, mgr.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	count := func(query string, args ...any) int {
		var n int
		if err := db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
			t.Fatalf("count: %v", err)
		}
		return n
	}
	if n := count("SELECT COUNT(*) FROM devices WHERE owner_id = ?", mgr.ID); n != 0 {
		t.Errorf("%d devices survived owner deletion", n)
	}
	if n := count("SELECT COUNT(*) FROM data_points WHERE device_id IN (?, ?)", d1.ID, d2.ID); n != 0 {
		t.Errorf("%d data points survived owner deletion", n)
	}
	if n := count("SELECT COUNT(*) FROM data_points WHERE device_id = ?", other.ID); n != 1 {
		t.Errorf("unrelated data points = %d, want 1", n)
	}
}

func TestNormalizePayload(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"scalar", "42", "42", false},
		{"string", `"on"`, `"on"`, false},
		{"array", "[1, 2]", "[1,2]", false},
		{"empty", "", "", true},
		{"null", "null", "", true},
		{"broken", "{", "", true},
		{"oversized", `"` + strings.Repeat("a", maxPayloadBytes) + `"`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizePayload(json.RawMessage(tt.in))
			if (err != nil) != tt.wantErr {
				t.Fatalf("normalizePayload(%q) error = %v", tt.in, err)
			}
			if !tt.wantErr && string(got) != tt.want {
				t.Errorf("normalizePayload(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}
