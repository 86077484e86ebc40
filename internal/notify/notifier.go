package notify

import "context"

// AlertMessage carries a degraded-health notification payload.
type AlertMessage struct {
	TenantID       string            `json:"tenant_id"`
	SensorID       string            `json:"sensor_id"`
	Status         string            `json:"status"`
	HealthScore    float64           `json:"health_score"`
	Diagnosis      string            `json:"diagnosis"`
	Recommendation string            `json:"recommendation"`
	Flags          []string          `json:"flags"`
	Meta           map[string]string `json:"meta,omitempty"`
}

// Notifier sends notifications.
type Notifier interface {
	Notify(ctx context.Context, msg AlertMessage) error
}
