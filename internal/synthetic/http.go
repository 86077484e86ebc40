package synthetic

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"qorsense-cloud/internal/auth"
	readings "qorsense-cloud/internal/readings/domain"
)

// Handler seeds a sensor with a generated series so the analysis
// pipeline can be exercised without live telemetry.
type Handler struct {
	repo   readings.Repository
	logger *log.Logger
	now    func() time.Time
}

// NewHandler constructs a handler.
func NewHandler(repo readings.Repository, logger *log.Logger) (*Handler, error) {
	if repo == nil {
		return nil, errors.New("synthetic handler: nil readings repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{repo: repo, logger: logger, now: time.Now}, nil
}

type generateRequest struct {
	SensorID string `json:"sensor_id"`
	Kind     string `json:"kind,omitempty"`
	Length   int    `json:"length,omitempty"`
	Seed     int64  `json:"seed,omitempty"`
	StepSec  int    `json:"step_seconds,omitempty"`
}

type generateResponse struct {
	SensorID string `json:"sensor_id"`
	Kind     string `json:"kind"`
	Inserted int    `json:"inserted"`
}

// ServeHTTP handles POST /api/v1/synthetic.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.SensorID == "" {
		http.Error(w, "sensor_id required", http.StatusBadRequest)
		return
	}
	tenantID := auth.TenantIDFromContext(r.Context())
	if tenantID == "" {
		http.Error(w, "missing tenant", http.StatusUnauthorized)
		return
	}

	kind, err := ParseKind(req.Kind)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	series, err := Generate(kind, req.Length, req.Seed)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	step := time.Duration(req.StepSec) * time.Second
	if step <= 0 {
		step = time.Minute
	}
	start := h.now().UTC().Add(-time.Duration(len(series)-1) * step)
	rows := make([]readings.Reading, len(series))
	for i, value := range series {
		rows[i] = readings.Reading{
			TenantID: tenantID,
			SensorID: req.SensorID,
			TS:       start.Add(time.Duration(i) * step),
			Value:    value,
			Quality:  "synthetic",
		}
	}
	if err := h.repo.InsertReadings(r.Context(), rows); err != nil {
		h.logger.Printf("synthetic insert failed sensor=%s: %v", req.SensorID, err)
		http.Error(w, "insert failed", http.StatusInternalServerError)
		return
	}

	h.logger.Printf("synthetic series seeded sensor=%s kind=%s points=%d", req.SensorID, kind, len(rows))
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(generateResponse{SensorID: req.SensorID, Kind: string(kind), Inserted: len(rows)})
}
