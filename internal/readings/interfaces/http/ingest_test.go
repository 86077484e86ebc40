package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	readings "qorsense-cloud/internal/readings/domain"
)

type stubRepo struct {
	batches [][]readings.Reading
	err     error
}

func (s *stubRepo) InsertReadings(_ context.Context, batch []readings.Reading) error {
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, batch)
	return nil
}

func TestIngestJSON(t *testing.T) {
	repo := &stubRepo{}
	handler, err := NewIngestHandler(repo, nil)
	if err != nil {
		t.Fatalf("NewIngestHandler: %v", err)
	}

	payload := `{"tenantId":"tenant-a","sensorId":"sensor-1","points":[
		{"ts":1700000000,"value":1.5,"quality":"good"},
		{"ts":1700000060,"value":1.6}
	]}`
	req := httptest.NewRequest(http.MethodPost, "/ingest/readings", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if len(repo.batches) != 1 || len(repo.batches[0]) != 2 {
		t.Fatalf("expected one batch of 2, got %+v", repo.batches)
	}
	first := repo.batches[0][0]
	if first.SensorID != "sensor-1" || first.Value != 1.5 || first.Quality != "good" {
		t.Fatalf("unexpected reading: %+v", first)
	}
	if first.TS.Unix() != 1700000000 {
		t.Fatalf("unexpected ts: %v", first.TS)
	}
}

func TestIngestCSVWithHeader(t *testing.T) {
	repo := &stubRepo{}
	handler, err := NewIngestHandler(repo, nil)
	if err != nil {
		t.Fatalf("NewIngestHandler: %v", err)
	}

	body := "ts,value,quality\n1700000000,2.25,good\n1700000060,2.50\n"
	req := httptest.NewRequest(http.MethodPost, "/ingest/readings?tenant_id=tenant-a&sensor_id=sensor-1", strings.NewReader(body))
	req.Header.Set("Content-Type", "text/csv")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if len(repo.batches) != 1 || len(repo.batches[0]) != 2 {
		t.Fatalf("expected one batch of 2, got %+v", repo.batches)
	}
	if repo.batches[0][1].Value != 2.50 {
		t.Fatalf("unexpected value: %v", repo.batches[0][1].Value)
	}
}

func TestIngestCSVRequiresIdentifiers(t *testing.T) {
	repo := &stubRepo{}
	handler, _ := NewIngestHandler(repo, nil)

	req := httptest.NewRequest(http.MethodPost, "/ingest/readings", strings.NewReader("1700000000,2.25\n"))
	req.Header.Set("Content-Type", "text/csv")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestIngestRejectsEmptyBatch(t *testing.T) {
	repo := &stubRepo{}
	handler, _ := NewIngestHandler(repo, nil)

	req := httptest.NewRequest(http.MethodPost, "/ingest/readings", strings.NewReader(`{"tenantId":"t","sensorId":"s","points":[]}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestIngestMethodNotAllowed(t *testing.T) {
	repo := &stubRepo{}
	handler, _ := NewIngestHandler(repo, nil)

	req := httptest.NewRequest(http.MethodGet, "/ingest/readings", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
}
