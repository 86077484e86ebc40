package sensors

import (
	"context"
	"errors"
	"time"
)

// Sensor represents a registered measurement channel.
type Sensor struct {
	ID        string
	TenantID  string
	Name      string
	Kind      string
	Unit      string
	Location  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks sensor invariants.
func (s Sensor) Validate() error {
	if s.ID == "" {
		return errors.New("sensor: empty id")
	}
	if s.TenantID == "" {
		return errors.New("sensor: empty tenant id")
	}
	if s.Name == "" {
		return errors.New("sensor: empty name")
	}
	if s.Kind == "" {
		return errors.New("sensor: empty kind")
	}
	return nil
}

// Repository manages sensor persistence.
type Repository interface {
	Get(ctx context.Context, id string) (*Sensor, error)
	Save(ctx context.Context, sensor *Sensor) error
	List(ctx context.Context, tenantID string) ([]Sensor, error)
	Delete(ctx context.Context, id string) error
}
