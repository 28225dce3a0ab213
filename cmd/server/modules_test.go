package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JaimeStill/arbiter/internal/api"
	"github.com/JaimeStill/arbiter/internal/infrastructure"
	"github.com/JaimeStill/arbiter/pkg/lifecycle"
)

func TestProbes(t *testing.T) {
	lc := lifecycle.New()
	infra := &infrastructure.Infrastructure{Lifecycle: lc}
	router := buildRouter(infra, &api.Runtime{Registry: prometheus.NewRegistry()})

	var dbReady bool
	lc.AddReadiness("database", lifecycle.ReadinessFunc(func() bool { return dbReady }))

	get := func(path string) (int, probe) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		var body probe
		json.Unmarshal(rec.Body.Bytes(), &body)
		return rec.Code, body
	}

	if code, body := get("/healthz"); code != http.StatusOK || body.Status != "ok" {
		t.Errorf("healthz = %d %+v", code, body)
	}

	code, body := get("/readyz")
	if code != http.StatusServiceUnavailable {
		t.Errorf("readyz before startup = %d, want 503", code)
	}
	if len(body.Pending) != 2 || body.Pending[0] != lifecycle.StartupPending || body.Pending[1] != "database" {
		t.Errorf("pending = %v", body.Pending)
	}

	lc.WaitForStartup()
	dbReady = true
	if code, body := get("/readyz"); code != http.StatusOK || body.Status != "ready" || body.Pending != nil {
		t.Errorf("readyz after startup = %d %+v", code, body)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("metrics = %d, want 200", rec.Code)
	}
}
