package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"qorsense-cloud/internal/analysis/application"
	analysis "qorsense-cloud/internal/analysis/domain"
	"qorsense-cloud/internal/auth"
	readings "qorsense-cloud/internal/readings/domain"
)

type stubSeriesReader struct {
	series map[string][]float64
}

func (s *stubSeriesReader) Series(_ context.Context, _, sensorID string, _ readings.SeriesQuery) ([]float64, error) {
	values, ok := s.series[sensorID]
	if !ok {
		return nil, fmt.Errorf("no series for %s", sensorID)
	}
	return values, nil
}

type stubResultRepo struct {
	saved []*analysis.AssessmentRecord
}

func (s *stubResultRepo) Save(_ context.Context, record *analysis.AssessmentRecord) error {
	s.saved = append(s.saved, record)
	return nil
}

func (s *stubResultRepo) Latest(_ context.Context, sensorID string) (*analysis.AssessmentRecord, error) {
	for i := len(s.saved) - 1; i >= 0; i-- {
		if s.saved[i].SensorID == sensorID {
			return s.saved[i], nil
		}
	}
	return nil, nil
}

func (s *stubResultRepo) ListBySensor(_ context.Context, sensorID string, limit int) ([]*analysis.AssessmentRecord, error) {
	out := []*analysis.AssessmentRecord{}
	for i := len(s.saved) - 1; i >= 0 && len(out) < limit; i-- {
		if s.saved[i].SensorID == sensorID {
			out = append(out, s.saved[i])
		}
	}
	return out, nil
}

type stubChecker struct {
	err error
}

func (s *stubChecker) EnsureSensorTenant(_ context.Context, _, _ string) error {
	return s.err
}

func steadySeries(n int) []float64 {
	series := make([]float64, n)
	for i := range series {
		series[i] = 0.5
	}
	return series
}

func newTestService(t *testing.T, repo *stubResultRepo) *application.Service {
	t.Helper()
	settings := application.EngineSettings{Defaults: analysis.DefaultConfig()}
	reader := &stubSeriesReader{series: map[string][]float64{"sensor-1": steadySeries(100)}}
	svc, err := application.NewService(settings, reader, repo, log.New(bytes.NewBuffer(nil), "", 0))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func postAnalyze(h *Handler, body, tenantID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", bytes.NewBufferString(body))
	if tenantID != "" {
		req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{TenantID: tenantID, Role: auth.RoleOperator, Subject: "tester"}))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeReturnsAssessment(t *testing.T) {
	repo := &stubResultRepo{}
	h, err := NewHandler(newTestService(t, repo), &stubChecker{}, nil)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	rec := postAnalyze(h, `{"sensor_id":"sensor-1"}`, "tenant-a")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var record analysis.AssessmentRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record.SensorID != "sensor-1" || record.Status != analysis.StatusNormal {
		t.Fatalf("unexpected record: %+v", record)
	}
	if len(repo.saved) != 1 {
		t.Fatalf("assessment not persisted")
	}
}

func TestAnalyzeValidation(t *testing.T) {
	h, _ := NewHandler(newTestService(t, &stubResultRepo{}), &stubChecker{}, nil)

	cases := []struct {
		name string
		body string
	}{
		{"missing sensor", `{}`},
		{"bad json", `{`},
		{"from without to", `{"sensor_id":"sensor-1","from":"2026-08-01T00:00:00Z"}`},
		{"bad timestamp", `{"sensor_id":"sensor-1","from":"yesterday","to":"2026-08-02T00:00:00Z"}`},
		{"unknown config key", `{"sensor_id":"sensor-1","config":{"slope_criticall":0.2}}`},
		{"invalid threshold", `{"sensor_id":"sensor-1","config":{"noise_critical":-1}}`},
	}
	for _, tc := range cases {
		rec := postAnalyze(h, tc.body, "tenant-a")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", tc.name, rec.Code)
		}
	}
}

func TestAnalyzeTenantMismatch(t *testing.T) {
	h, _ := NewHandler(newTestService(t, &stubResultRepo{}), &stubChecker{err: auth.ErrTenantMismatch}, nil)
	rec := postAnalyze(h, `{"sensor_id":"sensor-1"}`, "tenant-a")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestAnalyzeUnknownSensorNotFound(t *testing.T) {
	h, _ := NewHandler(newTestService(t, &stubResultRepo{}), &stubChecker{err: auth.ErrNotFound}, nil)
	rec := postAnalyze(h, `{"sensor_id":"ghost"}`, "tenant-a")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAnalyzeSensorScope(t *testing.T) {
	h, _ := NewHandler(newTestService(t, &stubResultRepo{}), &stubChecker{}, nil)

	scoped := auth.Identity{TenantID: "tenant-a", Role: auth.RoleOperator, Subject: "tester", Sensors: []string{"sensor-2"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", bytes.NewBufferString(`{"sensor_id":"sensor-1"}`))
	req = req.WithContext(auth.WithIdentity(req.Context(), scoped))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("out-of-scope sensor: expected 403, got %d", rec.Code)
	}

	scoped.Sensors = []string{"sensor-1"}
	req = httptest.NewRequest(http.MethodPost, "/api/v1/analyze", bytes.NewBufferString(`{"sensor_id":"sensor-1"}`))
	req = req.WithContext(auth.WithIdentity(req.Context(), scoped))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("in-scope sensor: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHistorySensorScope(t *testing.T) {
	h, _ := NewHistoryHandler(newTestService(t, &stubResultRepo{}), &stubChecker{})

	scoped := auth.Identity{TenantID: "tenant-a", Role: auth.RoleViewer, Subject: "tester", Sensors: []string{"sensor-2"}}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/assessments?sensor_id=sensor-1", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), scoped))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("out-of-scope sensor: expected 403, got %d", rec.Code)
	}
}

func TestAnalyzeMethodNotAllowed(t *testing.T) {
	h, _ := NewHandler(newTestService(t, &stubResultRepo{}), &stubChecker{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyze", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func getAssessments(h *HistoryHandler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{TenantID: "tenant-a", Role: auth.RoleViewer, Subject: "tester"}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHistoryLatestAndList(t *testing.T) {
	repo := &stubResultRepo{}
	svc := newTestService(t, repo)
	analyzeHandler, _ := NewHandler(svc, &stubChecker{}, nil)
	historyHandler, _ := NewHistoryHandler(svc, &stubChecker{})

	rec := getAssessments(historyHandler, "/api/v1/assessments?sensor_id=sensor-1&latest=true")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before any analysis, got %d", rec.Code)
	}

	rec = getAssessments(historyHandler, "/api/v1/assessments?sensor_id=sensor-1")
	if rec.Code != http.StatusOK || rec.Body.String() != "[]\n" {
		t.Fatalf("expected empty list, got %d %q", rec.Code, rec.Body.String())
	}

	if rec := postAnalyze(analyzeHandler, `{"sensor_id":"sensor-1"}`, "tenant-a"); rec.Code != http.StatusOK {
		t.Fatalf("analyze failed: %d", rec.Code)
	}
	if rec := postAnalyze(analyzeHandler, `{"sensor_id":"sensor-1"}`, "tenant-a"); rec.Code != http.StatusOK {
		t.Fatalf("analyze failed: %d", rec.Code)
	}

	rec = getAssessments(historyHandler, "/api/v1/assessments?sensor_id=sensor-1&latest=true")
	if rec.Code != http.StatusOK {
		t.Fatalf("latest status %d", rec.Code)
	}
	var latest analysis.AssessmentRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &latest); err != nil {
		t.Fatalf("decode latest: %v", err)
	}
	if latest.SensorID != "sensor-1" {
		t.Fatalf("unexpected latest: %+v", latest)
	}

	rec = getAssessments(historyHandler, "/api/v1/assessments?sensor_id=sensor-1&limit=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("history status %d", rec.Code)
	}
	var records []analysis.AssessmentRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
}

func TestHistoryValidation(t *testing.T) {
	historyHandler, _ := NewHistoryHandler(newTestService(t, &stubResultRepo{}), &stubChecker{})

	rec := getAssessments(historyHandler, "/api/v1/assessments")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing sensor_id: expected 400, got %d", rec.Code)
	}
	rec = getAssessments(historyHandler, "/api/v1/assessments?sensor_id=sensor-1&limit=zero")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit: expected 400, got %d", rec.Code)
	}
}
