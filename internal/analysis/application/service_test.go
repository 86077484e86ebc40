package application

import (
	"context"
	"errors"
	"testing"
	"time"

	analysis "qorsense-cloud/internal/analysis/domain"
	"qorsense-cloud/internal/notify"
	readings "qorsense-cloud/internal/readings/domain"
)

type stubSeriesReader struct {
	series map[string][]float64
	err    error
}

func (s *stubSeriesReader) Series(_ context.Context, _, sensorID string, _ readings.SeriesQuery) ([]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.series[sensorID], nil
}

type stubResultRepo struct {
	saved []*analysis.AssessmentRecord
	err   error
}

func (s *stubResultRepo) Save(_ context.Context, record *analysis.AssessmentRecord) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, record)
	return nil
}

func (s *stubResultRepo) Latest(_ context.Context, sensorID string) (*analysis.AssessmentRecord, error) {
	for i := len(s.saved) - 1; i >= 0; i-- {
		if s.saved[i].SensorID == sensorID {
			return s.saved[i], nil
		}
	}
	return nil, nil
}

func (s *stubResultRepo) ListBySensor(_ context.Context, sensorID string, limit int) ([]*analysis.AssessmentRecord, error) {
	var out []*analysis.AssessmentRecord
	for i := len(s.saved) - 1; i >= 0 && len(out) < limit; i-- {
		if s.saved[i].SensorID == sensorID {
			out = append(out, s.saved[i])
		}
	}
	return out, nil
}

type stubNotifier struct {
	messages []notify.AlertMessage
}

func (s *stubNotifier) Notify(_ context.Context, msg notify.AlertMessage) error {
	s.messages = append(s.messages, msg)
	return nil
}

func driftSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * float64(i)
	}
	return out
}

func steadySeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5
	}
	return out
}

func newTestService(t *testing.T, reader readings.SeriesReader, repo analysis.ResultRepository, opts ...Option) *Service {
	t.Helper()
	settings := EngineSettings{Defaults: analysis.DefaultConfig()}
	svc, err := NewService(settings, reader, repo, nil, opts...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestAnalyzeSensorPersistsAssessment(t *testing.T) {
	reader := &stubSeriesReader{series: map[string][]float64{"sensor-1": steadySeries(100)}}
	repo := &stubResultRepo{}
	fixed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, reader, repo, WithClock(func() time.Time { return fixed }))

	record, err := svc.AnalyzeSensor(context.Background(), AnalyzeRequest{TenantID: "tenant-a", SensorID: "sensor-1"})
	if err != nil {
		t.Fatalf("AnalyzeSensor: %v", err)
	}
	if len(repo.saved) != 1 {
		t.Fatalf("expected one saved record, got %d", len(repo.saved))
	}
	if record.SensorID != "sensor-1" || !record.Timestamp.Equal(fixed) {
		t.Fatalf("unexpected record identity: %+v", record)
	}
	if record.Status != analysis.StatusNormal {
		t.Fatalf("steady series should be Normal, got %q", record.Status)
	}
}

func TestAnalyzeSensorEmptySensorID(t *testing.T) {
	svc := newTestService(t, &stubSeriesReader{}, &stubResultRepo{})

	_, err := svc.AnalyzeSensor(context.Background(), AnalyzeRequest{TenantID: "tenant-a"})
	if !errors.Is(err, analysis.ErrBadInput) {
		t.Fatalf("expected ErrBadInput, got %v", err)
	}
}

func TestAnalyzeSensorNoDataStillPersists(t *testing.T) {
	reader := &stubSeriesReader{series: map[string][]float64{"sensor-1": {1, 2}}}
	repo := &stubResultRepo{}
	svc := newTestService(t, reader, repo)

	record, err := svc.AnalyzeSensor(context.Background(), AnalyzeRequest{TenantID: "tenant-a", SensorID: "sensor-1"})
	if err != nil {
		t.Fatalf("AnalyzeSensor: %v", err)
	}
	if record.Status != analysis.StatusNoData {
		t.Fatalf("expected No Data, got %q", record.Status)
	}
	if record.Prediction != analysis.RULNotAvailable {
		t.Fatalf("expected %q, got %q", analysis.RULNotAvailable, record.Prediction)
	}
}

func TestAnalyzeSensorNotifiesOnCritical(t *testing.T) {
	reader := &stubSeriesReader{series: map[string][]float64{"sensor-1": driftSeries(100)}}
	repo := &stubResultRepo{}
	notifier := &stubNotifier{}
	svc := newTestService(t, reader, repo, WithNotifier(notifier))

	record, err := svc.AnalyzeSensor(context.Background(), AnalyzeRequest{TenantID: "tenant-a", SensorID: "sensor-1"})
	if err != nil {
		t.Fatalf("AnalyzeSensor: %v", err)
	}
	if record.Status != analysis.StatusCritical {
		t.Fatalf("ramp should score Critical, got %q (score %v, flags %v)", record.Status, record.HealthScore, record.Flags)
	}
	if len(notifier.messages) != 1 {
		t.Fatalf("expected one alert, got %d", len(notifier.messages))
	}
	msg := notifier.messages[0]
	if msg.SensorID != "sensor-1" || msg.Status != string(analysis.StatusCritical) {
		t.Fatalf("unexpected alert: %+v", msg)
	}
}

func TestAnalyzeSensorNoAlertWhenHealthy(t *testing.T) {
	reader := &stubSeriesReader{series: map[string][]float64{"sensor-1": steadySeries(100)}}
	notifier := &stubNotifier{}
	svc := newTestService(t, reader, &stubResultRepo{}, WithNotifier(notifier))

	if _, err := svc.AnalyzeSensor(context.Background(), AnalyzeRequest{TenantID: "tenant-a", SensorID: "sensor-1"}); err != nil {
		t.Fatalf("AnalyzeSensor: %v", err)
	}
	if len(notifier.messages) != 0 {
		t.Fatalf("no alert expected for a healthy sensor, got %d", len(notifier.messages))
	}
}

func TestAnalyzeSensorOverrideConfig(t *testing.T) {
	reader := &stubSeriesReader{series: map[string][]float64{"sensor-1": steadySeries(100)}}
	repo := &stubResultRepo{}
	svc := newTestService(t, reader, repo)

	// Bias 0.5 crosses a lowered critical threshold.
	override := analysis.DefaultConfig()
	override.BiasCritical = 0.4
	override.BiasWarning = 0.2

	record, err := svc.AnalyzeSensor(context.Background(), AnalyzeRequest{
		TenantID: "tenant-a",
		SensorID: "sensor-1",
		Override: &override,
	})
	if err != nil {
		t.Fatalf("AnalyzeSensor: %v", err)
	}
	var flagged bool
	for _, f := range record.Flags {
		if f == "HIGH_BIAS" {
			flagged = true
		}
	}
	if !flagged {
		t.Fatalf("override thresholds not applied: %+v", record.Flags)
	}
}

func TestAnalyzeBatchContinuesOnFailure(t *testing.T) {
	reader := &stubSeriesReader{series: map[string][]float64{
		"sensor-1": steadySeries(100),
		"sensor-3": steadySeries(100),
	}}
	repo := &stubResultRepo{}
	svc := newTestService(t, reader, repo)

	var calls []string
	progress := func(done, total int, sensorID string, err error) {
		calls = append(calls, sensorID)
		if total != 3 {
			t.Fatalf("expected total 3, got %d", total)
		}
	}

	result, err := svc.AnalyzeBatch(context.Background(), "tenant-a", []string{"sensor-1", "", "sensor-3"}, readings.SeriesQuery{}, progress)
	if err != nil {
		t.Fatalf("AnalyzeBatch: %v", err)
	}
	if result.Succeeded != 2 || result.Failed != 1 {
		t.Fatalf("expected 2 ok / 1 failed, got %+v", result)
	}
	if len(calls) != 3 {
		t.Fatalf("expected 3 progress calls, got %d", len(calls))
	}
	if _, ok := result.Errors[""]; !ok {
		t.Fatalf("expected error entry for empty sensor id, got %v", result.Errors)
	}
}

func TestAnalyzeBatchStopsOnCancelledContext(t *testing.T) {
	svc := newTestService(t, &stubSeriesReader{}, &stubResultRepo{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.AnalyzeBatch(ctx, "tenant-a", []string{"sensor-1"}, readings.SeriesQuery{}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
