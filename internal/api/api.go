// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/arbiter/internal/config"
	"github.com/JaimeStill/arbiter/pkg/middleware"
	"github.com/JaimeStill/arbiter/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
// Bearer authentication is applied when auth is enabled.
func NewModule(cfg *config.Config, runtime *Runtime) (*module.Module, error) {
	domain := NewDomain(runtime)

	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg, runtime)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))

	if cfg.Auth.Enabled {
		verifier, err := middleware.NewVerifier(runtime.Lifecycle.Context(), &cfg.Auth)
		if err != nil {
			return nil, fmt.Errorf("auth init failed: %w", err)
		}
		m.Use(middleware.Auth(verifier, cfg.Auth.PublicPaths, runtime.Logger))
	}

	return m, nil
}
