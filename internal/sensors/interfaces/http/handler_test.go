package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"qorsense-cloud/internal/audit"
	"qorsense-cloud/internal/auth"
	sensors "qorsense-cloud/internal/sensors/domain"
)

type stubSensorRepo struct {
	store map[string]sensors.Sensor
}

func newStubSensorRepo() *stubSensorRepo {
	return &stubSensorRepo{store: map[string]sensors.Sensor{}}
}

func (s *stubSensorRepo) Get(_ context.Context, id string) (*sensors.Sensor, error) {
	sensor, ok := s.store[id]
	if !ok {
		return nil, nil
	}
	return &sensor, nil
}

func (s *stubSensorRepo) Save(_ context.Context, sensor *sensors.Sensor) error {
	if err := sensor.Validate(); err != nil {
		return err
	}
	s.store[sensor.ID] = *sensor
	return nil
}

func (s *stubSensorRepo) List(_ context.Context, tenantID string) ([]sensors.Sensor, error) {
	out := []sensors.Sensor{}
	for _, sensor := range s.store {
		if sensor.TenantID == tenantID {
			out = append(out, sensor)
		}
	}
	return out, nil
}

func (s *stubSensorRepo) Delete(_ context.Context, id string) error {
	delete(s.store, id)
	return nil
}

type stubAudit struct {
	entries []audit.Entry
}

func (s *stubAudit) Log(_ context.Context, entry audit.Entry) error {
	s.entries = append(s.entries, entry)
	return nil
}

func authedRequest(method, path, body, tenantID string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	return req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{TenantID: tenantID, Role: auth.RoleOperator, Subject: "tester"}))
}

func TestSensorSaveAndGet(t *testing.T) {
	repo := newStubSensorRepo()
	auditLog := &stubAudit{}
	h, err := NewHandler(repo, auditLog)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/sensors",
		`{"id":"sensor-1","name":"Inlet Pressure","kind":"pressure","unit":"bar"}`, "tenant-a"))
	if rec.Code != http.StatusOK {
		t.Fatalf("save status %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/sensors/sensor-1", "", "tenant-a"))
	if rec.Code != http.StatusOK {
		t.Fatalf("get status %d: %s", rec.Code, rec.Body.String())
	}
	var resp sensorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID != "sensor-1" || resp.TenantID != "tenant-a" || resp.Kind != "pressure" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(auditLog.entries) != 1 || auditLog.entries[0].Action != "sensor.save" {
		t.Fatalf("audit entry missing: %+v", auditLog.entries)
	}
}

func TestSensorListFiltersByTenant(t *testing.T) {
	repo := newStubSensorRepo()
	repo.store["sensor-1"] = sensors.Sensor{ID: "sensor-1", TenantID: "tenant-a", Name: "a", Kind: "pressure"}
	repo.store["sensor-2"] = sensors.Sensor{ID: "sensor-2", TenantID: "tenant-b", Name: "b", Kind: "flow"}
	h, _ := NewHandler(repo, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/sensors", "", "tenant-a"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var out []sensorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0].ID != "sensor-1" {
		t.Fatalf("unexpected list: %+v", out)
	}
}

func TestSensorCrossTenantAccessForbidden(t *testing.T) {
	repo := newStubSensorRepo()
	repo.store["sensor-1"] = sensors.Sensor{ID: "sensor-1", TenantID: "tenant-b", Name: "b", Kind: "flow"}
	h, _ := NewHandler(repo, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/sensors/sensor-1", "", "tenant-a"))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("get expected 403, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, authedRequest(http.MethodDelete, "/api/v1/sensors/sensor-1", "", "tenant-a"))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("delete expected 403, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/sensors",
		`{"id":"sensor-1","name":"hijack","kind":"flow"}`, "tenant-a"))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("save expected 403, got %d", rec.Code)
	}
}

func TestSensorDelete(t *testing.T) {
	repo := newStubSensorRepo()
	repo.store["sensor-1"] = sensors.Sensor{ID: "sensor-1", TenantID: "tenant-a", Name: "a", Kind: "pressure"}
	auditLog := &stubAudit{}
	h, _ := NewHandler(repo, auditLog)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authedRequest(http.MethodDelete, "/api/v1/sensors/sensor-1", "", "tenant-a"))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status %d", rec.Code)
	}
	if _, ok := repo.store["sensor-1"]; ok {
		t.Fatalf("sensor not deleted")
	}
	if len(auditLog.entries) != 1 || auditLog.entries[0].Action != "sensor.delete" {
		t.Fatalf("audit entry missing: %+v", auditLog.entries)
	}
}

func TestSensorGetUnknownNotFound(t *testing.T) {
	h, _ := NewHandler(newStubSensorRepo(), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/sensors/missing", "", "tenant-a"))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSensorSaveWithoutTenantUnauthorized(t *testing.T) {
	h, _ := NewHandler(newStubSensorRepo(), nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sensors",
		bytes.NewBufferString(`{"id":"sensor-1","name":"a","kind":"pressure"}`))
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
