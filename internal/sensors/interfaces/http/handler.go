package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"qorsense-cloud/internal/audit"
	"qorsense-cloud/internal/auth"
	sensors "qorsense-cloud/internal/sensors/domain"
)

// Handler provides sensor registry HTTP endpoints.
type Handler struct {
	repo        sensors.Repository
	auditLogger audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(repo sensors.Repository, auditLogger audit.Logger) (*Handler, error) {
	if repo == nil {
		return nil, errors.New("sensors handler: nil repository")
	}
	return &Handler{repo: repo, auditLogger: auditLogger}, nil
}

type sensorPayload struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Unit     string `json:"unit"`
	Location string `json:"location"`
}

type sensorResponse struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Unit      string    `json:"unit"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ServeHTTP handles /api/v1/sensors and /api/v1/sensors/{id}.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/sensors")
	id = strings.Trim(id, "/")

	switch {
	case r.Method == http.MethodGet && id == "":
		h.handleList(w, r)
	case r.Method == http.MethodPost && id == "":
		h.handleSave(w, r)
	case r.Method == http.MethodGet:
		h.handleGet(w, r, id)
	case r.Method == http.MethodDelete:
		h.handleDelete(w, r, id)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	tenantID := auth.TenantIDFromContext(r.Context())
	if tenantID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	list, err := h.repo.List(r.Context(), tenantID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]sensorResponse, 0, len(list))
	for _, s := range list {
		out = append(out, toResponse(s))
	}
	writeJSON(w, out)
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req sensorPayload
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	tenantID := auth.TenantIDFromContext(r.Context())
	if tenantID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	existing, err := h.repo.Get(r.Context(), req.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if existing != nil && existing.TenantID != tenantID {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	sensor := sensors.Sensor{
		ID:       req.ID,
		TenantID: tenantID,
		Name:     req.Name,
		Kind:     req.Kind,
		Unit:     req.Unit,
		Location: req.Location,
	}
	if err := h.repo.Save(r.Context(), &sensor); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, toResponse(sensor))

	h.logAudit(r, tenantID, "sensor.save", sensor.ID, body)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	sensor, err := h.repo.Get(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
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
	writeJSON(w, toResponse(*sensor))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	sensor, err := h.repo.Get(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
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
	if err := h.repo.Delete(r.Context(), id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)

	h.logAudit(r, tenantID, "sensor.delete", id, nil)
}

func (h *Handler) logAudit(r *http.Request, tenantID, action, sensorID string, payload []byte) {
	if h.auditLogger == nil || tenantID == "" {
		return
	}
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		TenantID:     tenantID,
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: "sensor",
		ResourceID:   sensorID,
		SensorID:     sensorID,
		Metadata:     payload,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}

func toResponse(s sensors.Sensor) sensorResponse {
	return sensorResponse{
		ID:        s.ID,
		TenantID:  s.TenantID,
		Name:      s.Name,
		Kind:      s.Kind,
		Unit:      s.Unit,
		Location:  s.Location,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(value)
}
