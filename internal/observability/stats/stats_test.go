package stats

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/samparkhq/sampark/internal/observability/metrics"
)

func TestSnapshotSummarizesCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewTemplateMetrics(reg)

	m.ObserveValidate("valid")
	m.ObserveValidate("valid")
	m.ObserveValidate("invalid")
	m.ObserveRender("stored", "ok")
	m.ObserveRender("inline", "ok")
	m.ObserveRender("broadcast", "error")
	m.ObserveCache(true)
	m.ObserveCache(true)
	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveBroadcast("sms", "completed")
	m.ObserveRenderLatency("stored", 0.002)
	m.ObserveRenderLatency("stored", 0.004)

	handler := NewHandler(reg, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var snap Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if snap.Validations["valid"] != 2 || snap.Validations["invalid"] != 1 {
		t.Errorf("validations = %v", snap.Validations)
	}
	if snap.Renders["ok"] != 2 || snap.Renders["error"] != 1 {
		t.Errorf("renders = %v", snap.Renders)
	}
	if snap.CacheHits != 3 || snap.CacheMisses != 1 {
		t.Errorf("cache = %d/%d", snap.CacheHits, snap.CacheMisses)
	}
	if snap.CacheHitRate != 0.75 {
		t.Errorf("hit rate = %v", snap.CacheHitRate)
	}
	if snap.Broadcasts["completed"] != 1 {
		t.Errorf("broadcasts = %v", snap.Broadcasts)
	}
	if snap.RenderLatencyP95 <= 0 {
		t.Errorf("latency p95 = %v, want positive estimate", snap.RenderLatencyP95)
	}
}

func TestSnapshotEmptyRegistry(t *testing.T) {
	handler := NewHandler(prometheus.NewRegistry(), nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	var snap Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.CacheHitRate != 0 || len(snap.Renders) != 0 {
		t.Errorf("expected zero snapshot, got %+v", snap)
	}
}
