package reports

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	analysis "qorsense-cloud/internal/analysis/domain"
	"qorsense-cloud/internal/auth"
	"qorsense-cloud/internal/observability/metrics"
	sensors "qorsense-cloud/internal/sensors/domain"
)

const defaultHistoryLimit = 30

// Handler serves rendered health reports.
type Handler struct {
	sensorRepo sensors.Repository
	results    analysis.ResultRepository
}

// NewHandler constructs a handler.
func NewHandler(sensorRepo sensors.Repository, results analysis.ResultRepository) (*Handler, error) {
	if sensorRepo == nil || results == nil {
		return nil, errors.New("reports handler: nil repository")
	}
	return &Handler{sensorRepo: sensorRepo, results: results}, nil
}

// ServeHTTP handles GET /api/v1/reports/health.{pdf,xlsx}.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	format := ""
	switch {
	case strings.HasSuffix(r.URL.Path, ".pdf"):
		format = "pdf"
	case strings.HasSuffix(r.URL.Path, ".xlsx"):
		format = "xlsx"
	default:
		http.Error(w, "unsupported format", http.StatusNotFound)
		return
	}

	sensorID := r.URL.Query().Get("sensor_id")
	if sensorID == "" {
		http.Error(w, "sensor_id required", http.StatusBadRequest)
		return
	}
	if !auth.ScopeAllows(r.Context(), sensorID) {
		http.Error(w, "sensor outside token scope", http.StatusForbidden)
		return
	}
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	start := time.Now()
	sensor, err := h.sensorRepo.Get(r.Context(), sensorID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		metrics.ObserveReportExport(format, metrics.ResultError, time.Since(start))
		return
	}
	if sensor == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	tenantID := auth.TenantIDFromContext(r.Context())
	if tenantID != "" && sensor.TenantID != tenantID {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	history, err := h.results.ListBySensor(r.Context(), sensorID, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		metrics.ObserveReportExport(format, metrics.ResultError, time.Since(start))
		return
	}

	var payload []byte
	var contentType string
	switch format {
	case "pdf":
		payload, err = BuildHealthPDF(sensor, history)
		contentType = "application/pdf"
	case "xlsx":
		payload, err = BuildHealthXLSX(sensor, history)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		metrics.ObserveReportExport(format, metrics.ResultError, time.Since(start))
		return
	}

	metrics.ObserveReportExport(format, metrics.ResultSuccess, time.Since(start))
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="health-%s.%s"`, sensorID, format))
	_, _ = w.Write(payload)
}
