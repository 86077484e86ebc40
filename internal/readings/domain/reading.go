package readings

import (
	"context"
	"errors"
	"time"
)

const (
	// DefaultWindowSize is the series length fetched when a request names no
	// explicit window.
	DefaultWindowSize = 1000

	// MaxSeriesPoints caps a single series fetch.
	MaxSeriesPoints = 10000
)

// Reading is one raw sensor value written to storage.
type Reading struct {
	TenantID string
	SensorID string
	TS       time.Time
	Value    float64
	Quality  string
}

// SeriesQuery selects a slice of a sensor's history. A zero From/To pair
// means "the most recent Limit readings".
type SeriesQuery struct {
	From  time.Time
	To    time.Time
	Limit int
}

// Normalize applies defaults and caps to the query.
func (q SeriesQuery) Normalize() SeriesQuery {
	if q.Limit <= 0 {
		q.Limit = DefaultWindowSize
	}
	if q.Limit > MaxSeriesPoints {
		q.Limit = MaxSeriesPoints
	}
	return q
}

// Windowed reports whether the query names an explicit time range.
func (q SeriesQuery) Windowed() bool {
	return !q.From.IsZero() && !q.To.IsZero()
}

// Validate checks query invariants.
func (q SeriesQuery) Validate() error {
	if q.Windowed() && !q.To.After(q.From) {
		return errors.New("readings: to must be after from")
	}
	return nil
}

// Repository persists raw readings.
type Repository interface {
	InsertReadings(ctx context.Context, readings []Reading) error
}

// SeriesReader loads a sensor's values in chronological order.
type SeriesReader interface {
	Series(ctx context.Context, tenantID, sensorID string, query SeriesQuery) ([]float64, error)
}
