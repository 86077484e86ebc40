package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"qorsense-cloud/internal/analysis/application"
	analysis "qorsense-cloud/internal/analysis/domain"
	"qorsense-cloud/internal/audit"
	"qorsense-cloud/internal/auth"
	readings "qorsense-cloud/internal/readings/domain"
)

// Handler provides analysis HTTP endpoints.
type Handler struct {
	service       *application.Service
	sensorChecker auth.SensorTenantChecker
	auditLogger   audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(service *application.Service, sensorChecker auth.SensorTenantChecker, auditLogger audit.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("analysis handler: nil service")
	}
	return &Handler{service: service, sensorChecker: sensorChecker, auditLogger: auditLogger}, nil
}

type analyzeRequest struct {
	SensorID string          `json:"sensor_id"`
	From     string          `json:"from,omitempty"`
	To       string          `json:"to,omitempty"`
	Limit    int             `json:"limit,omitempty"`
	Config   json.RawMessage `json:"config,omitempty"`
}

// ServeHTTP handles POST /api/v1/analyze.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req analyzeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.SensorID == "" {
		http.Error(w, "sensor_id required", http.StatusBadRequest)
		return
	}

	query, err := parseQuery(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var override *analysis.Config
	if len(req.Config) > 0 {
		cfg, err := analysis.ParseConfigJSON(req.Config)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		override = &cfg
	}

	if !auth.ScopeAllows(r.Context(), req.SensorID) {
		http.Error(w, "sensor outside token scope", http.StatusForbidden)
		return
	}
	tenantID := auth.TenantIDFromContext(r.Context())
	if tenantID != "" && h.sensorChecker != nil {
		if err := h.sensorChecker.EnsureSensorTenant(r.Context(), tenantID, req.SensorID); err != nil {
			respondTenantError(w, err)
			return
		}
	}

	record, err := h.service.AnalyzeSensor(r.Context(), application.AnalyzeRequest{
		TenantID: tenantID,
		SensorID: req.SensorID,
		Query:    query,
		Override: override,
	})
	if err != nil {
		if errors.Is(err, analysis.ErrBadInput) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(record)

	h.logAudit(r, tenantID, req.SensorID, body)
}

func parseQuery(req analyzeRequest) (readings.SeriesQuery, error) {
	query := readings.SeriesQuery{Limit: req.Limit}
	if req.From != "" {
		from, err := time.Parse(time.RFC3339, req.From)
		if err != nil {
			return query, errors.New("from must be RFC3339")
		}
		query.From = from
	}
	if req.To != "" {
		to, err := time.Parse(time.RFC3339, req.To)
		if err != nil {
			return query, errors.New("to must be RFC3339")
		}
		query.To = to
	}
	if (req.From == "") != (req.To == "") {
		return query, errors.New("from and to must be set together")
	}
	return query, query.Validate()
}

func (h *Handler) logAudit(r *http.Request, tenantID, sensorID string, payload []byte) {
	if h.auditLogger == nil || tenantID == "" {
		return
	}
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		TenantID:     tenantID,
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       "analysis.run",
		ResourceType: "assessment",
		ResourceID:   sensorID,
		SensorID:     sensorID,
		Metadata:     payload,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}

// HistoryHandler serves stored assessments.
type HistoryHandler struct {
	service       *application.Service
	sensorChecker auth.SensorTenantChecker
}

// NewHistoryHandler constructs a history handler.
func NewHistoryHandler(service *application.Service, sensorChecker auth.SensorTenantChecker) (*HistoryHandler, error) {
	if service == nil {
		return nil, errors.New("analysis history handler: nil service")
	}
	return &HistoryHandler{service: service, sensorChecker: sensorChecker}, nil
}

// ServeHTTP handles GET /api/v1/assessments.
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
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
	tenantID := auth.TenantIDFromContext(r.Context())
	if tenantID != "" && h.sensorChecker != nil {
		if err := h.sensorChecker.EnsureSensorTenant(r.Context(), tenantID, sensorID); err != nil {
			respondTenantError(w, err)
			return
		}
	}

	if r.URL.Query().Get("latest") == "true" {
		record, err := h.service.Latest(r.Context(), sensorID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if record == nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(record)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	records, err := h.service.History(r.Context(), sensorID, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []*analysis.AssessmentRecord{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(records)
}

func respondTenantError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, auth.ErrTenantMismatch) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if errors.Is(err, auth.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	http.Error(w, "tenant check failed", http.StatusInternalServerError)
}
