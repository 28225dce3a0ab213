package api

import (
	"net/http"

	"github.com/JaimeStill/arbiter/internal/config"
	"github.com/JaimeStill/arbiter/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) {
	groups := []routes.Group{
		domain.Documents.Handler(cfg.API.MaxUploadSizeBytes()).Routes(),
		domain.Decisions.Handler().Routes(),
		domain.Accuracy.Routes(),
		newStorageHandler(runtime.Storage, runtime.Logger).routes(),
	}

	routes.Register(mux, groups...)

	for _, g := range groups {
		for _, pattern := range g.Patterns() {
			runtime.Logger.Debug("route registered", "pattern", pattern)
		}
	}
}
