package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"qorsense-cloud/internal/analysis/application"
	"qorsense-cloud/internal/auth"
	readings "qorsense-cloud/internal/readings/domain"
)

// Handler exposes batch analysis as tracked background tasks.
type Handler struct {
	dispatcher *Dispatcher
	store      *Store
	service    *application.Service
}

// NewHandler constructs a handler.
func NewHandler(dispatcher *Dispatcher, store *Store, service *application.Service) (*Handler, error) {
	if dispatcher == nil || store == nil {
		return nil, errors.New("tasks handler: nil dispatcher or store")
	}
	if service == nil {
		return nil, errors.New("tasks handler: nil analysis service")
	}
	return &Handler{dispatcher: dispatcher, store: store, service: service}, nil
}

type submitRequest struct {
	SensorIDs []string `json:"sensor_ids"`
	Limit     int      `json:"limit,omitempty"`
}

// ServeHTTP handles /api/v1/tasks and /api/v1/tasks/{id}.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/tasks")
	id = strings.Trim(id, "/")

	switch {
	case r.Method == http.MethodPost && id == "":
		h.handleSubmit(w, r)
	case r.Method == http.MethodGet && id == "":
		h.handleList(w)
	case r.Method == http.MethodGet:
		h.handleGet(w, id)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req submitRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if len(req.SensorIDs) == 0 {
		http.Error(w, "sensor_ids required", http.StatusBadRequest)
		return
	}

	tenantID := auth.TenantIDFromContext(r.Context())
	query := readings.SeriesQuery{Limit: req.Limit}
	sensorIDs := req.SensorIDs

	task, err := h.dispatcher.Submit("analyze_batch", func(ctx context.Context, report func(done, total int)) (any, error) {
		result, err := h.service.AnalyzeBatch(ctx, tenantID, sensorIDs, query, func(done, total int, _ string, _ error) {
			report(done, total)
		})
		if err != nil {
			return nil, err
		}
		return result, nil
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(task)
}

func (h *Handler) handleList(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.store.List())
}

func (h *Handler) handleGet(w http.ResponseWriter, id string) {
	task, ok := h.store.Get(id)
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(task)
}
