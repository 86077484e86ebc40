package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sensors "qorsense-cloud/internal/sensors/domain"
)

const defaultSensorsTable = "sensors"

// DBTX abstracts *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SensorRepository is a Postgres implementation for sensors.
type SensorRepository struct {
	db    DBTX
	table string
}

// NewSensorRepository constructs a repository.
func NewSensorRepository(db DBTX, opts ...SensorOption) *SensorRepository {
	repo := &SensorRepository{db: db, table: defaultSensorsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// SensorOption configures the repository.
type SensorOption func(*SensorRepository)

// WithSensorTable overrides the default table name.
func WithSensorTable(table string) SensorOption {
	return func(repo *SensorRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Get loads a sensor by id.
func (r *SensorRepository) Get(ctx context.Context, id string) (*sensors.Sensor, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("sensor repo: nil db")
	}
	if id == "" {
		return nil, errors.New("sensor repo: empty id")
	}

	query := fmt.Sprintf(`
SELECT id, tenant_id, name, kind, unit, location, created_at, updated_at
FROM %s
WHERE id = $1
LIMIT 1`, r.table)

	var sensor sensors.Sensor
	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&sensor.ID,
		&sensor.TenantID,
		&sensor.Name,
		&sensor.Kind,
		&sensor.Unit,
		&sensor.Location,
		&sensor.CreatedAt,
		&sensor.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	sensor.CreatedAt = sensor.CreatedAt.UTC()
	sensor.UpdatedAt = sensor.UpdatedAt.UTC()
	return &sensor, nil
}

// Save upserts a sensor.
func (r *SensorRepository) Save(ctx context.Context, sensor *sensors.Sensor) error {
	if r == nil || r.db == nil {
		return errors.New("sensor repo: nil db")
	}
	if sensor == nil {
		return errors.New("sensor repo: nil sensor")
	}
	if err := sensor.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	tenant_id,
	name,
	kind,
	unit,
	location
) VALUES (
	$1, $2, $3, $4, $5, $6
)
ON CONFLICT (id)
DO UPDATE SET
	tenant_id = EXCLUDED.tenant_id,
	name = EXCLUDED.name,
	kind = EXCLUDED.kind,
	unit = EXCLUDED.unit,
	location = EXCLUDED.location,
	updated_at = NOW()`, r.table)

	_, err := r.db.ExecContext(
		ctx,
		query,
		sensor.ID,
		sensor.TenantID,
		sensor.Name,
		sensor.Kind,
		sensor.Unit,
		sensor.Location,
	)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if sensor.CreatedAt.IsZero() {
		sensor.CreatedAt = now
	}
	sensor.UpdatedAt = now
	return nil
}

// List returns all sensors owned by a tenant, newest first.
func (r *SensorRepository) List(ctx context.Context, tenantID string) ([]sensors.Sensor, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("sensor repo: nil db")
	}
	if tenantID == "" {
		return nil, errors.New("sensor repo: empty tenant id")
	}

	query := fmt.Sprintf(`
SELECT id, tenant_id, name, kind, unit, location, created_at, updated_at
FROM %s
WHERE tenant_id = $1
ORDER BY created_at DESC`, r.table)

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []sensors.Sensor
	for rows.Next() {
		var sensor sensors.Sensor
		if err := rows.Scan(
			&sensor.ID,
			&sensor.TenantID,
			&sensor.Name,
			&sensor.Kind,
			&sensor.Unit,
			&sensor.Location,
			&sensor.CreatedAt,
			&sensor.UpdatedAt,
		); err != nil {
			return nil, err
		}
		sensor.CreatedAt = sensor.CreatedAt.UTC()
		sensor.UpdatedAt = sensor.UpdatedAt.UTC()
		list = append(list, sensor)
	}
	return list, rows.Err()
}

// Delete removes a sensor by id.
func (r *SensorRepository) Delete(ctx context.Context, id string) error {
	if r == nil || r.db == nil {
		return errors.New("sensor repo: nil db")
	}
	if id == "" {
		return errors.New("sensor repo: empty id")
	}
	_, err := r.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", r.table), id)
	return err
}
