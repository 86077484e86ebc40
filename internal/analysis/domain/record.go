package analysis

import (
	"context"
	"time"
)

// AssessmentRecord is the persisted form of one analysis outcome, keyed by
// sensor and timestamp. It is a plain structured record suitable for direct
// serialization; the engine itself never persists anything.
type AssessmentRecord struct {
	SensorID       string    `json:"sensor_id"`
	Timestamp      time.Time `json:"timestamp"`
	HealthScore    float64   `json:"health_score"`
	Status         Status    `json:"status"`
	Metrics        Metrics   `json:"metrics"`
	Diagnosis      string    `json:"diagnosis"`
	Flags          []string  `json:"flags"`
	Recommendation string    `json:"recommendation"`
	Prediction     string    `json:"prediction"`
}

// ResultRepository persists and serves computed assessments.
type ResultRepository interface {
	Save(ctx context.Context, record *AssessmentRecord) error
	Latest(ctx context.Context, sensorID string) (*AssessmentRecord, error)
	ListBySensor(ctx context.Context, sensorID string, limit int) ([]*AssessmentRecord, error)
}
