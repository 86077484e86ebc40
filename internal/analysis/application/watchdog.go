package application

import (
	"context"
	"log"
	"time"

	"qorsense-cloud/internal/observability/metrics"
	readings "qorsense-cloud/internal/readings/domain"
	sensors "qorsense-cloud/internal/sensors/domain"
)

const defaultWatchdogInterval = 15 * time.Minute

// Watchdog sweeps registered sensors on an interval and re-assesses each
// one, so degraded sensors surface without an explicit API call.
type Watchdog struct {
	service  *Service
	registry sensors.Repository
	tenantID string
	interval time.Duration
	only     map[string]struct{}
	logger   *log.Logger
}

// NewWatchdog constructs a Watchdog. An empty sensor filter means "all
// registered sensors of the tenant".
func NewWatchdog(service *Service, registry sensors.Repository, tenantID string, settings WatchdogSettings, logger *log.Logger) *Watchdog {
	interval := defaultWatchdogInterval
	if settings.Interval != "" {
		if parsed, err := time.ParseDuration(settings.Interval); err == nil && parsed > 0 {
			interval = parsed
		}
	}
	var only map[string]struct{}
	if len(settings.Sensors) > 0 {
		only = make(map[string]struct{}, len(settings.Sensors))
		for _, id := range settings.Sensors {
			if id != "" {
				only[id] = struct{}{}
			}
		}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Watchdog{
		service:  service,
		registry: registry,
		tenantID: tenantID,
		interval: interval,
		only:     only,
		logger:   logger,
	}
}

// Start begins the watchdog loop. It returns when ctx is cancelled.
func (w *Watchdog) Start(ctx context.Context) {
	if w == nil || w.service == nil || w.registry == nil {
		return
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Watchdog) runOnce(ctx context.Context) {
	list, err := w.registry.List(ctx, w.tenantID)
	if err != nil {
		w.logger.Printf("watchdog: list sensors: %v", err)
		metrics.IncWatchdogRun(metrics.ResultError)
		return
	}

	passResult := metrics.ResultSuccess
	for _, sensor := range list {
		if w.only != nil {
			if _, ok := w.only[sensor.ID]; !ok {
				continue
			}
		}
		if ctx.Err() != nil {
			return
		}
		record, err := w.service.AnalyzeSensor(ctx, AnalyzeRequest{
			TenantID: w.tenantID,
			SensorID: sensor.ID,
			Query:    readings.SeriesQuery{},
		})
		if err != nil {
			w.logger.Printf("watchdog: sensor=%s err=%v", sensor.ID, err)
			passResult = metrics.ResultError
			continue
		}
		w.logger.Printf("watchdog: sensor=%s status=%s score=%.1f", sensor.ID, record.Status, record.HealthScore)
	}
	metrics.IncWatchdogRun(passResult)
}
