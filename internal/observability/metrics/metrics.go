package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "qorsense_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	ingestRequests *prometheus.CounterVec
	ingestErrors   *prometheus.CounterVec
	ingestLatency  *prometheus.HistogramVec
	ingestReadings prometheus.Counter

	analyzeTotal   *prometheus.CounterVec
	analyzeLatency *prometheus.HistogramVec
	healthScore    *prometheus.GaugeVec
	healthStatus   *prometheus.CounterVec

	tasksTotal   *prometheus.CounterVec
	taskDuration prometheus.Histogram

	reportExportTotal   *prometheus.CounterVec
	reportExportLatency *prometheus.HistogramVec

	watchdogRuns *prometheus.CounterVec

	alertsTotal prometheus.Counter
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		ingestRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_requests_total",
				Help: "Total ingest requests by result",
			},
			[]string{"result"},
		)
		ingestErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_errors_total",
				Help: "Total ingest errors by reason",
			},
			[]string{"reason"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Ingest latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		ingestReadings = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_readings_total",
				Help: "Total raw readings accepted",
			},
		)

		analyzeTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "analyze_total",
				Help: "Total analysis runs by result",
			},
			[]string{"result"},
		)
		analyzeLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "analyze_latency_seconds",
				Help:    "Analysis latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		healthScore = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "sensor_health_score",
				Help: "Latest health score per sensor",
			},
			[]string{"sensor_id"},
		)
		healthStatus = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "health_status_total",
				Help: "Total assessments by status",
			},
			[]string{"status"},
		)

		tasksTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "tasks_total",
				Help: "Total background tasks by terminal status",
			},
			[]string{"status"},
		)
		taskDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    metricPrefix + "task_duration_seconds",
			Help:    "Background task duration in seconds",
			Buckets: prometheus.DefBuckets,
		})

		reportExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_export_total",
				Help: "Total report exports by format and result",
			},
			[]string{"format", "result"},
		)
		reportExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_export_latency_seconds",
				Help:    "Report export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		watchdogRuns = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "watchdog_runs_total",
				Help: "Total watchdog passes by result",
			},
			[]string{"result"},
		)

		alertsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "alerts_total",
			Help: "Total degraded-health alerts sent",
		})

		prometheus.MustRegister(
			ingestRequests,
			ingestErrors,
			ingestLatency,
			ingestReadings,
			analyzeTotal,
			analyzeLatency,
			healthScore,
			healthStatus,
			tasksTotal,
			taskDuration,
			reportExportTotal,
			reportExportLatency,
			watchdogRuns,
			alertsTotal,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveIngest records ingest request duration and result.
func ObserveIngest(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if ingestRequests != nil {
		ingestRequests.WithLabelValues(result).Inc()
	}
	if ingestLatency != nil {
		ingestLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncIngestError increments ingest error counter.
func IncIngestError(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if ingestErrors != nil {
		ingestErrors.WithLabelValues(reason).Inc()
	}
}

// AddReadingsIngested increments accepted-readings counter by count.
func AddReadingsIngested(count int) {
	if count <= 0 {
		return
	}
	if ingestReadings != nil {
		ingestReadings.Add(float64(count))
	}
}

// ObserveAnalyze records analysis latency and result.
func ObserveAnalyze(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if analyzeTotal != nil {
		analyzeTotal.WithLabelValues(result).Inc()
	}
	if analyzeLatency != nil {
		analyzeLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// SetHealthScore publishes the latest score for a sensor.
func SetHealthScore(sensorID string, score float64) {
	if sensorID == "" {
		return
	}
	if healthScore != nil {
		healthScore.WithLabelValues(sensorID).Set(score)
	}
}

// IncHealthStatus counts an assessment outcome.
func IncHealthStatus(status string) {
	if status == "" {
		status = "unknown"
	}
	if healthStatus != nil {
		healthStatus.WithLabelValues(status).Inc()
	}
}

// ObserveTask records a finished task's status and duration.
func ObserveTask(status string, duration time.Duration) {
	if status == "" {
		status = "unknown"
	}
	if tasksTotal != nil {
		tasksTotal.WithLabelValues(status).Inc()
	}
	if taskDuration != nil {
		taskDuration.Observe(duration.Seconds())
	}
}

// ObserveReportExport records export latency and result.
func ObserveReportExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if reportExportTotal != nil {
		reportExportTotal.WithLabelValues(format, result).Inc()
	}
	if reportExportLatency != nil {
		reportExportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncWatchdogRun counts a watchdog pass.
func IncWatchdogRun(result string) {
	if result == "" {
		result = resultSuccess
	}
	if watchdogRuns != nil {
		watchdogRuns.WithLabelValues(result).Inc()
	}
}

// IncAlert counts a sent alert.
func IncAlert() {
	if alertsTotal != nil {
		alertsTotal.Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
