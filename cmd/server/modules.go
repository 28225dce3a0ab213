package main

import (
	"encoding/json"
	"net/http"

	"github.com/JaimeStill/arbiter/internal/api"
	"github.com/JaimeStill/arbiter/internal/config"
	"github.com/JaimeStill/arbiter/internal/infrastructure"
	"github.com/JaimeStill/arbiter/internal/metrics"
	"github.com/JaimeStill/arbiter/pkg/module"
)

// Modules holds the mounted HTTP modules and the runtime behind them.
type Modules struct {
	Runtime *api.Runtime
	API     *module.Module
}

func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	rt, err := api.NewRuntime(cfg, infra)
	if err != nil {
		return nil, err
	}

	m, err := api.NewModule(cfg, rt)
	if err != nil {
		return nil, err
	}
	return &Modules{Runtime: rt, API: m}, nil
}

func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.API)
}

// buildRouter registers the unauthenticated probe and scrape endpoints.
// /readyz reports 503 with the pending check names until startup completes
// and every check passes, including the engine halt state.
func buildRouter(infra *infrastructure.Infrastructure, rt *api.Runtime) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeProbe(w, http.StatusOK, probe{Status: "ok"})
	})
	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if pending := infra.Lifecycle.Pending(); len(pending) > 0 {
			writeProbe(w, http.StatusServiceUnavailable, probe{Status: "not ready", Pending: pending})
			return
		}
		writeProbe(w, http.StatusOK, probe{Status: "ready"})
	})
	router.HandleNative("GET /metrics", metrics.Handler(rt.Registry).ServeHTTP)

	return router
}

type probe struct {
	Status  string   `json:"status"`
	Pending []string `json:"pending,omitempty"`
}

func writeProbe(w http.ResponseWriter, code int, body probe) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
