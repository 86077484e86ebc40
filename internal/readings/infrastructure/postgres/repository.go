package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	readings "qorsense-cloud/internal/readings/domain"
)

const defaultReadingsTable = "sensor_readings"

// ReadingRepository is a Postgres implementation for raw readings.
type ReadingRepository struct {
	db    *sql.DB
	table string
}

// NewReadingRepository constructs a repository with default table name.
func NewReadingRepository(db *sql.DB, opts ...RepositoryOption) *ReadingRepository {
	repo := &ReadingRepository{db: db, table: defaultReadingsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// RepositoryOption configures the repository.
type RepositoryOption func(*ReadingRepository)

// WithTable overrides the default table name.
func WithTable(table string) RepositoryOption {
	return func(repo *ReadingRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// InsertReadings upserts raw readings in one transaction.
func (r *ReadingRepository) InsertReadings(ctx context.Context, batch []readings.Reading) error {
	if r == nil || r.db == nil {
		return errors.New("readings repo: nil db")
	}
	if len(batch) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	tenant_id,
	sensor_id,
	ts,
	value,
	quality
) VALUES (
	$1, $2, $3, $4, $5
)
ON CONFLICT (tenant_id, sensor_id, ts)
DO UPDATE SET
	value = EXCLUDED.value,
	quality = EXCLUDED.quality,
	updated_at = NOW()`, r.table)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, reading := range batch {
		if reading.TenantID == "" || reading.SensorID == "" || reading.TS.IsZero() {
			_ = tx.Rollback()
			return errors.New("readings repo: invalid reading")
		}
		if _, err := stmt.ExecContext(
			ctx,
			reading.TenantID,
			reading.SensorID,
			reading.TS,
			reading.Value,
			reading.Quality,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}
