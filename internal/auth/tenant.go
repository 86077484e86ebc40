package auth

import (
	"context"
	"database/sql"
	"errors"

	sensorsrepo "qorsense-cloud/internal/sensors/infrastructure/postgres"
)

var (
	// ErrTenantMismatch indicates resource belongs to a different tenant.
	ErrTenantMismatch = errors.New("tenant mismatch")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("resource not found")
)

// SensorTenantChecker validates sensor tenant ownership.
type SensorTenantChecker interface {
	EnsureSensorTenant(ctx context.Context, tenantID, sensorID string) error
}

// SensorChecker checks sensor ownership against the registry.
type SensorChecker struct {
	repo *sensorsrepo.SensorRepository
}

// NewSensorChecker constructs a SensorChecker.
func NewSensorChecker(db *sql.DB) *SensorChecker {
	if db == nil {
		return nil
	}
	return &SensorChecker{repo: sensorsrepo.NewSensorRepository(db)}
}

// EnsureSensorTenant verifies sensor belongs to tenant.
func (c *SensorChecker) EnsureSensorTenant(ctx context.Context, tenantID, sensorID string) error {
	if c == nil || c.repo == nil {
		return nil
	}
	if tenantID == "" || sensorID == "" {
		return nil
	}
	sensor, err := c.repo.Get(ctx, sensorID)
	if err != nil {
		return err
	}
	if sensor == nil {
		return ErrNotFound
	}
	if sensor.TenantID != tenantID {
		return ErrTenantMismatch
	}
	return nil
}
