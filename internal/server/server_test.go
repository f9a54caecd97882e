package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/woozymasta/farpoint/internal/geo"
	"github.com/woozymasta/farpoint/internal/metrics"
	"github.com/woozymasta/farpoint/internal/search"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestStatus(t *testing.T) {
	ctx := NewServerContext(2)
	srv := httptest.NewServer(ctx.Handler())
	defer srv.Close()

	first := search.Result{Best: geo.GeoPoint{Lat: -45, Lon: -125}, DistanceKm: 2600, Step: 5, Found: true}
	ctx.RecordPass(first, first)

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var status Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode status: %v", err)
	}
	if len(status.Passes) != 1 || status.Total != 2 || status.Finished {
		t.Errorf("Unexpected status %+v", status)
	}
	if status.Best != first {
		t.Errorf("Expected best %+v, got %+v", first, status.Best)
	}

	ctx.Finish(first)
	resp2, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status failed: %v", err)
	}
	defer resp2.Body.Close()
	if err := json.NewDecoder(resp2.Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode status: %v", err)
	}
	if !status.Finished {
		t.Error("Expected finished run")
	}
}

func TestStatusMethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	NewServerContext(1).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	h := NewServerContext(1).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok\n" {
		t.Errorf("Unexpected health response %d %q", rec.Code, rec.Body.String())
	}

	metrics.CellsEvaluated.WithLabelValues("5").Add(3)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 from /metrics, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "farpoint_") {
		t.Errorf("Expected farpoint metrics in output")
	}
}

func TestRequestLogIncludesProgress(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	ctx := NewServerContext(3)
	ctx.RecordPass(search.Result{Step: 5}, search.Result{Step: 5})

	rec := httptest.NewRecorder()
	ctx.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected one JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["path"] != "/status" || entry["passes_done"] != float64(1) || entry["passes_total"] != float64(3) {
		t.Errorf("Unexpected log entry %v", entry)
	}
	if entry["level"] != "debug" {
		t.Errorf("Expected debug level, got %v", entry["level"])
	}
}
