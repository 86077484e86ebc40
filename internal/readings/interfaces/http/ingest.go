package http

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"qorsense-cloud/internal/observability/metrics"
	readings "qorsense-cloud/internal/readings/domain"
)

// IngestHandler accepts raw reading batches in JSON or CSV.
type IngestHandler struct {
	repo   readings.Repository
	logger *log.Logger
}

// NewIngestHandler constructs an ingest handler.
func NewIngestHandler(repo readings.Repository, logger *log.Logger) (*IngestHandler, error) {
	if repo == nil {
		return nil, errors.New("readings ingest: nil repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &IngestHandler{repo: repo, logger: logger}, nil
}

// ServeHTTP ingests reading batches.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	start := time.Now()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Printf("readings ingest: read body error: %v", err)
		http.Error(w, "read body error", http.StatusBadRequest)
		metrics.ObserveIngest(metrics.ResultError, time.Since(start))
		return
	}
	defer r.Body.Close()

	var batch []readings.Reading
	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "text/csv"):
		batch, err = parseCSV(body, r.URL.Query().Get("tenant_id"), r.URL.Query().Get("sensor_id"))
	default:
		batch, err = parseJSON(body)
	}
	if err != nil {
		h.logger.Printf("readings ingest: invalid payload: %v", err)
		http.Error(w, "invalid payload", http.StatusBadRequest)
		metrics.IncIngestError("payload")
		metrics.ObserveIngest(metrics.ResultError, time.Since(start))
		return
	}

	if err := h.repo.InsertReadings(r.Context(), batch); err != nil {
		h.logger.Printf("readings ingest: insert error: %v", err)
		http.Error(w, "insert error", http.StatusInternalServerError)
		metrics.IncIngestError("storage")
		metrics.ObserveIngest(metrics.ResultError, time.Since(start))
		return
	}

	metrics.ObserveIngest(metrics.ResultSuccess, time.Since(start))
	metrics.AddReadingsIngested(len(batch))
	resp := map[string]any{"inserted": len(batch)}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

type ingestRequest struct {
	TenantID string        `json:"tenantId"`
	SensorID string        `json:"sensorId"`
	Points   []ingestPoint `json:"points"`
}

type ingestPoint struct {
	TS      int64   `json:"ts"`
	Value   float64 `json:"value"`
	Quality string  `json:"quality"`
}

func parseJSON(body []byte) ([]readings.Reading, error) {
	var req ingestRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, err
	}
	if req.TenantID == "" || req.SensorID == "" {
		return nil, errors.New("missing tenantId/sensorId")
	}
	if len(req.Points) == 0 {
		return nil, errors.New("no reading points")
	}

	batch := make([]readings.Reading, 0, len(req.Points))
	for _, point := range req.Points {
		ts, err := parseTimestamp(point.TS)
		if err != nil {
			return nil, err
		}
		batch = append(batch, readings.Reading{
			TenantID: req.TenantID,
			SensorID: req.SensorID,
			TS:       ts,
			Value:    point.Value,
			Quality:  point.Quality,
		})
	}
	return batch, nil
}

// parseCSV reads "ts,value[,quality]" rows. A header row is skipped when the
// first field is not numeric.
func parseCSV(body []byte, tenantID, sensorID string) ([]readings.Reading, error) {
	if tenantID == "" || sensorID == "" {
		return nil, errors.New("missing tenant_id/sensor_id query parameters")
	}

	reader := csv.NewReader(strings.NewReader(string(body)))
	reader.FieldsPerRecord = -1

	var batch []readings.Reading
	for lineNo := 0; ; lineNo++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) < 2 {
			return nil, errors.New("csv row needs at least ts,value")
		}

		tsRaw, err := strconv.ParseInt(strings.TrimSpace(record[0]), 10, 64)
		if err != nil {
			if lineNo == 0 {
				continue
			}
			return nil, err
		}
		ts, err := parseTimestamp(tsRaw)
		if err != nil {
			return nil, err
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			return nil, err
		}
		quality := ""
		if len(record) > 2 {
			quality = strings.TrimSpace(record[2])
		}
		batch = append(batch, readings.Reading{
			TenantID: tenantID,
			SensorID: sensorID,
			TS:       ts,
			Value:    value,
			Quality:  quality,
		})
	}
	if len(batch) == 0 {
		return nil, errors.New("no reading points")
	}
	return batch, nil
}

func parseTimestamp(value int64) (time.Time, error) {
	if value <= 0 {
		return time.Time{}, errors.New("invalid ts")
	}
	// Accept milliseconds or seconds.
	if value > 1_000_000_000_000 {
		return time.UnixMilli(value).UTC(), nil
	}
	return time.Unix(value, 0).UTC(), nil
}
