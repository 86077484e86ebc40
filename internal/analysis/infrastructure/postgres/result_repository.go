package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	analysis "qorsense-cloud/internal/analysis/domain"
)

const defaultAssessmentsTable = "health_assessments"

// ResultRepository is a Postgres implementation for assessment records.
// Descriptor bundles and flags are stored as JSONB.
type ResultRepository struct {
	db    *sql.DB
	table string
}

// NewResultRepository constructs a repository with default table name.
func NewResultRepository(db *sql.DB, opts ...ResultOption) *ResultRepository {
	repo := &ResultRepository{db: db, table: defaultAssessmentsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// ResultOption configures the repository.
type ResultOption func(*ResultRepository)

// WithResultTable overrides the default table name.
func WithResultTable(table string) ResultOption {
	return func(repo *ResultRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Save inserts an assessment record.
func (r *ResultRepository) Save(ctx context.Context, record *analysis.AssessmentRecord) error {
	if r == nil || r.db == nil {
		return errors.New("result repo: nil db")
	}
	if record == nil {
		return errors.New("result repo: nil record")
	}
	if record.SensorID == "" || record.Timestamp.IsZero() {
		return errors.New("result repo: missing sensor id or timestamp")
	}

	metricsJSON, err := json.Marshal(record.Metrics)
	if err != nil {
		return err
	}
	flags := record.Flags
	if flags == nil {
		flags = []string{}
	}
	flagsJSON, err := json.Marshal(flags)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	sensor_id,
	ts,
	health_score,
	status,
	metrics,
	diagnosis,
	flags,
	recommendation,
	prediction
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9
)
ON CONFLICT (sensor_id, ts)
DO UPDATE SET
	health_score = EXCLUDED.health_score,
	status = EXCLUDED.status,
	metrics = EXCLUDED.metrics,
	diagnosis = EXCLUDED.diagnosis,
	flags = EXCLUDED.flags,
	recommendation = EXCLUDED.recommendation,
	prediction = EXCLUDED.prediction`, r.table)

	_, err = r.db.ExecContext(
		ctx,
		query,
		record.SensorID,
		record.Timestamp,
		record.HealthScore,
		string(record.Status),
		metricsJSON,
		record.Diagnosis,
		flagsJSON,
		record.Recommendation,
		record.Prediction,
	)
	return err
}

// Latest returns the most recent assessment for a sensor, or nil.
func (r *ResultRepository) Latest(ctx context.Context, sensorID string) (*analysis.AssessmentRecord, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("result repo: nil db")
	}
	if sensorID == "" {
		return nil, errors.New("result repo: empty sensor id")
	}

	query := fmt.Sprintf(`
SELECT sensor_id, ts, health_score, status, metrics, diagnosis, flags, recommendation, prediction
FROM %s
WHERE sensor_id = $1
ORDER BY ts DESC
LIMIT 1`, r.table)

	record, err := scanRecord(r.db.QueryRowContext(ctx, query, sensorID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return record, err
}

// ListBySensor returns assessments for a sensor, newest first.
func (r *ResultRepository) ListBySensor(ctx context.Context, sensorID string, limit int) ([]*analysis.AssessmentRecord, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("result repo: nil db")
	}
	if sensorID == "" {
		return nil, errors.New("result repo: empty sensor id")
	}
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`
SELECT sensor_id, ts, health_score, status, metrics, diagnosis, flags, recommendation, prediction
FROM %s
WHERE sensor_id = $1
ORDER BY ts DESC
LIMIT $2`, r.table)

	rows, err := r.db.QueryContext(ctx, query, sensorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*analysis.AssessmentRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*analysis.AssessmentRecord, error) {
	var record analysis.AssessmentRecord
	var status string
	var metricsJSON, flagsJSON []byte
	if err := row.Scan(
		&record.SensorID,
		&record.Timestamp,
		&record.HealthScore,
		&status,
		&metricsJSON,
		&record.Diagnosis,
		&flagsJSON,
		&record.Recommendation,
		&record.Prediction,
	); err != nil {
		return nil, err
	}
	record.Status = analysis.Status(status)
	record.Timestamp = record.Timestamp.UTC()
	if err := json.Unmarshal(metricsJSON, &record.Metrics); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(flagsJSON, &record.Flags); err != nil {
		return nil, err
	}
	return &record, nil
}
