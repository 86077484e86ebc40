package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	analysis "qorsense-cloud/internal/analysis/domain"
	"qorsense-cloud/internal/notify"
	"qorsense-cloud/internal/observability/metrics"
	readings "qorsense-cloud/internal/readings/domain"
)

// Service runs health analyses end to end: fetch the series, score it,
// persist the assessment and fan out alerts for critical sensors.
type Service struct {
	settings EngineSettings
	series   readings.SeriesReader
	results  analysis.ResultRepository
	notifier notify.Notifier
	logger   *log.Logger
	now      func() time.Time
}

// Option configures the service.
type Option func(*Service)

// WithNotifier attaches a degraded-health notifier.
func WithNotifier(notifier notify.Notifier) Option {
	return func(s *Service) { s.notifier = notifier }
}

// WithClock overrides the assessment timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs a Service.
func NewService(settings EngineSettings, series readings.SeriesReader, results analysis.ResultRepository, logger *log.Logger, opts ...Option) (*Service, error) {
	if series == nil {
		return nil, errors.New("analysis service: nil series reader")
	}
	if results == nil {
		return nil, errors.New("analysis service: nil result repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	svc := &Service{
		settings: settings,
		series:   series,
		results:  results,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// AnalyzeRequest names the sensor and series slice to assess. Override, when
// set, replaces the configured thresholds for this run only.
type AnalyzeRequest struct {
	TenantID string
	SensorID string
	Query    readings.SeriesQuery
	Override *analysis.Config
}

// AnalyzeSensor runs one analysis pass and persists the outcome.
func (s *Service) AnalyzeSensor(ctx context.Context, req AnalyzeRequest) (*analysis.AssessmentRecord, error) {
	start := time.Now()
	record, err := s.analyze(ctx, req)
	if err != nil {
		metrics.ObserveAnalyze(metrics.ResultError, time.Since(start))
		return nil, err
	}
	metrics.ObserveAnalyze(metrics.ResultSuccess, time.Since(start))
	metrics.SetHealthScore(record.SensorID, record.HealthScore)
	metrics.IncHealthStatus(string(record.Status))

	if record.Status == analysis.StatusCritical && s.notifier != nil {
		if err := s.notifier.Notify(ctx, notify.AlertMessage{
			TenantID:       req.TenantID,
			SensorID:       record.SensorID,
			Status:         string(record.Status),
			HealthScore:    record.HealthScore,
			Diagnosis:      record.Diagnosis,
			Recommendation: record.Recommendation,
			Flags:          record.Flags,
		}); err != nil {
			s.logger.Printf("analysis notify error: sensor=%s err=%v", record.SensorID, err)
		} else {
			metrics.IncAlert()
		}
	}
	return record, nil
}

func (s *Service) analyze(ctx context.Context, req AnalyzeRequest) (*analysis.AssessmentRecord, error) {
	if req.SensorID == "" {
		return nil, fmt.Errorf("%w: empty sensor id", analysis.ErrBadInput)
	}

	cfg := s.settings.ForSensor(req.SensorID)
	if req.Override != nil {
		cfg = *req.Override
	}
	analyzer, err := analysis.NewAnalyzer(cfg)
	if err != nil {
		return nil, err
	}

	series, err := s.series.Series(ctx, req.TenantID, req.SensorID, req.Query)
	if err != nil {
		return nil, fmt.Errorf("analysis service: load series: %w", err)
	}

	result, err := analyzer.Analyze(series)
	if err != nil {
		return nil, err
	}

	record := &analysis.AssessmentRecord{
		SensorID:       req.SensorID,
		Timestamp:      s.now(),
		HealthScore:    result.Health.Score,
		Status:         result.Health.Status,
		Metrics:        result.Metrics,
		Diagnosis:      result.Health.Diagnosis,
		Flags:          result.Health.Flags,
		Recommendation: result.Health.Recommendation,
		Prediction:     result.Prediction,
	}
	if err := s.results.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("analysis service: save assessment: %w", err)
	}
	return record, nil
}

// Latest returns the most recent stored assessment for a sensor.
func (s *Service) Latest(ctx context.Context, sensorID string) (*analysis.AssessmentRecord, error) {
	if sensorID == "" {
		return nil, fmt.Errorf("%w: empty sensor id", analysis.ErrBadInput)
	}
	return s.results.Latest(ctx, sensorID)
}

// History returns stored assessments for a sensor, newest first.
func (s *Service) History(ctx context.Context, sensorID string, limit int) ([]*analysis.AssessmentRecord, error) {
	if sensorID == "" {
		return nil, fmt.Errorf("%w: empty sensor id", analysis.ErrBadInput)
	}
	return s.results.ListBySensor(ctx, sensorID, limit)
}
