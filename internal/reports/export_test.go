package reports

import (
	"bytes"
	"testing"
	"time"

	analysis "qorsense-cloud/internal/analysis/domain"
	sensors "qorsense-cloud/internal/sensors/domain"
)

func sampleSensor() *sensors.Sensor {
	return &sensors.Sensor{
		ID:       "sensor-1",
		TenantID: "tenant-a",
		Name:     "Inlet Pressure",
		Kind:     "pressure",
		Unit:     "bar",
		Location: "pump-room",
	}
}

func sampleHistory() []*analysis.AssessmentRecord {
	return []*analysis.AssessmentRecord{
		{
			SensorID:       "sensor-1",
			Timestamp:      time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC),
			HealthScore:    70,
			Status:         analysis.StatusWarning,
			Diagnosis:      "Signal drift is approaching the critical threshold",
			Flags:          []string{"DRIFT_WARNING"},
			Recommendation: "Schedule a recalibration",
			Prediction:     "N/A",
		},
		{
			SensorID:    "sensor-1",
			Timestamp:   time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
			HealthScore: 100,
			Status:      analysis.StatusNormal,
			Diagnosis:   "All health indicators within normal limits",
			Flags:       []string{},
			Prediction:  "N/A",
		},
	}
}

func TestBuildHealthPDF(t *testing.T) {
	payload, err := BuildHealthPDF(sampleSensor(), sampleHistory())
	if err != nil {
		t.Fatalf("BuildHealthPDF: %v", err)
	}
	if len(payload) == 0 {
		t.Fatalf("empty pdf payload")
	}
	if !bytes.HasPrefix(payload, []byte("%PDF")) {
		t.Fatalf("payload is not a pdf: %q", payload[:8])
	}
}

func TestBuildHealthPDFNilSensor(t *testing.T) {
	if _, err := BuildHealthPDF(nil, nil); err == nil {
		t.Fatalf("expected error for nil sensor")
	}
}

func TestBuildHealthXLSX(t *testing.T) {
	payload, err := BuildHealthXLSX(sampleSensor(), sampleHistory())
	if err != nil {
		t.Fatalf("BuildHealthXLSX: %v", err)
	}
	if len(payload) == 0 {
		t.Fatalf("empty xlsx payload")
	}
	// XLSX is a zip container.
	if !bytes.HasPrefix(payload, []byte("PK")) {
		t.Fatalf("payload is not a zip container: %q", payload[:4])
	}
}

func TestBuildHealthXLSXEmptyHistory(t *testing.T) {
	payload, err := BuildHealthXLSX(sampleSensor(), nil)
	if err != nil {
		t.Fatalf("BuildHealthXLSX: %v", err)
	}
	if len(payload) == 0 {
		t.Fatalf("empty xlsx payload")
	}
}
