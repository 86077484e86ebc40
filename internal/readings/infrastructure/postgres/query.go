package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	readings "qorsense-cloud/internal/readings/domain"
)

// ReadingQuery is a Postgres series reader.
type ReadingQuery struct {
	db    *sql.DB
	table string
}

// NewReadingQuery constructs a query with default table name.
func NewReadingQuery(db *sql.DB, opts ...QueryOption) *ReadingQuery {
	query := &ReadingQuery{db: db, table: defaultReadingsTable}
	for _, opt := range opts {
		opt(query)
	}
	return query
}

// QueryOption configures the reading query.
type QueryOption func(*ReadingQuery)

// WithQueryTable overrides the default table name for queries.
func WithQueryTable(table string) QueryOption {
	return func(query *ReadingQuery) {
		if query != nil && table != "" {
			query.table = table
		}
	}
}

// Series returns sensor values in chronological order. A windowed query
// scans [From, To) ascending; otherwise the most recent Limit readings are
// fetched and reversed so the caller always sees oldest-first.
func (q *ReadingQuery) Series(ctx context.Context, tenantID, sensorID string, query readings.SeriesQuery) ([]float64, error) {
	if q == nil || q.db == nil {
		return nil, errors.New("readings query: nil db")
	}
	if tenantID == "" || sensorID == "" {
		return nil, errors.New("readings query: invalid arguments")
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}
	query = query.Normalize()

	if query.Windowed() {
		return q.seriesWindow(ctx, tenantID, sensorID, query)
	}
	return q.seriesLatest(ctx, tenantID, sensorID, query.Limit)
}

func (q *ReadingQuery) seriesWindow(ctx context.Context, tenantID, sensorID string, query readings.SeriesQuery) ([]float64, error) {
	stmt := fmt.Sprintf(`
SELECT value
FROM %s
WHERE tenant_id = $1
	AND sensor_id = $2
	AND ts >= $3
	AND ts < $4
ORDER BY ts ASC
LIMIT $5`, q.table)

	rows, err := q.db.QueryContext(ctx, stmt, tenantID, sensorID, query.From, query.To, query.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanValues(rows)
}

func (q *ReadingQuery) seriesLatest(ctx context.Context, tenantID, sensorID string, limit int) ([]float64, error) {
	stmt := fmt.Sprintf(`
SELECT value
FROM %s
WHERE tenant_id = $1
	AND sensor_id = $2
ORDER BY ts DESC
LIMIT $3`, q.table)

	rows, err := q.db.QueryContext(ctx, stmt, tenantID, sensorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values, err := scanValues(rows)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(values)-1; i < j; i, j = i+1, j-1 {
		values[i], values[j] = values[j], values[i]
	}
	return values, nil
}

func scanValues(rows *sql.Rows) ([]float64, error) {
	values := make([]float64, 0)
	for rows.Next() {
		var value sql.NullFloat64
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		if !value.Valid {
			continue
		}
		values = append(values, value.Float64)
	}
	return values, rows.Err()
}
