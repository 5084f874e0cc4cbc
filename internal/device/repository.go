package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/telemetry-core/internal/infrastructure/database"
)

// Repository defines the persistence operations for devices.
type Repository interface {
	Create(ctx context.Context, device *Device) error
	GetByID(ctx context.Context, id string) (*Device, error)
	List(ctx context.Context) ([]Device, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Device, error)

	// UpdateIfOwner writes the device's name, location and owner only while the
	// stored owner is still expectedOwnerID. It returns ErrOwnershipChanged
	// when the owner moved and ErrDeviceNotFound when the row is gone.
	UpdateIfOwner(ctx context.Context, device *Device, expectedOwnerID string) error

	Delete(ctx context.Context, id string) error
}

const deviceColumns = "id, owner_id, name, location, created_at, updated_at"

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed device repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves a device by ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	return scanDevice(r.db.QueryRowContext(ctx, "SELECT "+deviceColumns+" FROM devices WHERE id = ?", id))
}

// List retrieves every device in registration order.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	return r.queryDevices(ctx, "SELECT "+deviceColumns+" FROM devices ORDER BY rowid")
}

// ListByOwner retrieves the devices owned by ownerID in registration order.
func (r *SQLiteRepository) ListByOwner(ctx context.Context, ownerID string) ([]Device, error) {
	return r.queryDevices(ctx, "SELECT "+deviceColumns+" FROM devices WHERE owner_id = ? ORDER BY rowid", ownerID)
}

// Create inserts a new device. A missing owner row is reported as
// ErrUnknownOwner.
func (r *SQLiteRepository) Create(ctx context.Context, device *Device) error {
	if device.ID == "" {
		device.ID = GenerateID()
	}
	now := time.Now().UTC().Truncate(time.Second)
	device.CreatedAt = now
	device.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO devices (id, owner_id, name, location, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		device.ID, device.OwnerID, device.Name, device.Location,
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrUnknownOwner
		}
		return fmt.Errorf("inserting device: %w", err)
	}
	return nil
}

// UpdateIfOwner applies the update as a compare-and-set on owner_id.
func (r *SQLiteRepository) UpdateIfOwner(ctx context.Context, device *Device, expectedOwnerID string) error {
	now := time.Now().UTC().Truncate(time.Second)

	result, err := r.db.ExecContext(ctx,
		`UPDATE devices SET name = ?, location = ?, owner_id = ?, updated_at = ?
		 WHERE id = ? AND owner_id = ?`,
		device.Name, device.Location, device.OwnerID, now.Format(time.RFC3339),
		device.ID, expectedOwnerID,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrUnknownOwner
		}
		return fmt.Errorf("updating device: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		if _, err := r.GetByID(ctx, device.ID); err != nil {
			return err
		}
		return ErrOwnershipChanged
	}

	device.UpdatedAt = now
	return nil
}

// Delete removes a device by ID. Its data points go with it.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM devices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

func (r *SQLiteRepository) queryDevices(ctx context.Context, query string, args ...any) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	devices := []Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*Device, error) {
	var d Device
	var createdAt, updatedAt string

	err := row.Scan(&d.ID, &d.OwnerID, &d.Name, &d.Location, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("scanning device: %w", err)
	}

	d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	d.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled
	return &d, nil
}
