package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/telemetry-core/internal/auth"
	"github.com/nerrad567/telemetry-core/internal/device"
)

// Repository persists data points.
type Repository interface {
	// DeviceOwner returns the device's owner and that owner's current role.
	DeviceOwner(ctx context.Context, deviceID string) (ownerID string, ownerRole auth.Role, err error)

	// Append inserts p only while the device is still owned by
	// expectedOwnerID.
	Append(ctx context.Context, p *DataPoint, expectedOwnerID string) error

	List(ctx context.Context, deviceID string, r Range) ([]DataPoint, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed data point repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// DeviceOwner joins the device to its owner's row so the role is current.
func (r *SQLiteRepository) DeviceOwner(ctx context.Context, deviceID string) (string, auth.Role, error) {
	var ownerID, role string
	err := r.db.QueryRowContext(ctx,
		`SELECT d.owner_id, u.role FROM devices d JOIN users u ON u.id = d.owner_id WHERE d.id = ?`,
		deviceID,
	).Scan(&ownerID, &role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", device.ErrDeviceNotFound
		}
		return "", "", fmt.Errorf("loading device owner: %w", err)
	}
	return ownerID, auth.Role(role), nil
}

// Append uses INSERT ... SELECT ... WHERE EXISTS so the ownership check and
// the write are one statement.
func (r *SQLiteRepository) Append(ctx context.Context, p *DataPoint, expectedOwnerID string) error {
	if !storable(p.Timestamp) {
		return ErrInvalidTimestamp
	}
	if p.ID == "" {
		p.ID = "dp-" + uuid.NewString()
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO data_points (id, device_id, recorded_at, payload)
		 SELECT ?, ?, ?, ?
		 WHERE EXISTS (SELECT 1 FROM devices WHERE id = ? AND owner_id = ?)`,
		p.ID, p.DeviceID, p.Timestamp.UTC().UnixNano(), string(p.Payload),
		p.DeviceID, expectedOwnerID,
	)
	if err != nil {
		return fmt.Errorf("inserting data point: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		if _, _, err := r.DeviceOwner(ctx, p.DeviceID); err != nil {
			return err
		}
		return device.ErrOwnershipChanged
	}
	return nil
}

// List returns the device's points in timestamp order, ties broken by
// insertion order.
func (r *SQLiteRepository) List(ctx context.Context, deviceID string, rg Range) ([]DataPoint, error) {
	from := int64(math.MinInt64)
	if !rg.From.IsZero() {
		from = clampNanos(rg.From)
	}
	to := int64(math.MaxInt64)
	if !rg.To.IsZero() {
		to = clampNanos(rg.To)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, device_id, recorded_at, payload FROM data_points
		 WHERE device_id = ? AND recorded_at >= ? AND recorded_at <= ?
		 ORDER BY recorded_at, rowid
		 LIMIT ?`,
		deviceID, from, to, rg.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing data points: %w", err)
	}
	defer rows.Close()

	points := []DataPoint{}
	for rows.Next() {
		var p DataPoint
		var recordedAt int64
		var payload string
		if err := rows.Scan(&p.ID, &p.DeviceID, &recordedAt, &payload); err != nil {
			return nil, fmt.Errorf("scanning data point: %w", err)
		}
		p.Timestamp = time.Unix(0, recordedAt).UTC()
		p.Payload = []byte(payload)
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating data points: %w", err)
	}
	return points, nil
}

// recorded_at holds unix nanoseconds, which covers 1677-09-21 to 2262-04-11.
var (
	earliestStorable = time.Unix(0, math.MinInt64).UTC()
	latestStorable   = time.Unix(0, math.MaxInt64).UTC()
)

func storable(t time.Time) bool {
	return !t.Before(earliestStorable) && !t.After(latestStorable)
}

// clampNanos converts a range bound, saturating outside the storable window
// instead of wrapping.
func clampNanos(t time.Time) int64 {
	switch {
	case t.Before(earliestStorable):
		return math.MinInt64
	case t.After(latestStorable):
		return math.MaxInt64
	}
	return t.UnixNano()
}
