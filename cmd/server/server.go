package main

import (
	"time"

	"github.com/JaimeStill/arbiter/internal/config"
	"github.com/JaimeStill/arbiter/internal/infrastructure"
)

// Server wires infrastructure, modules, and the HTTP listener into one
// lifecycle.
type Server struct {
	infra   *infrastructure.Infrastructure
	modules *Modules
	http    *httpServer
}

func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	modules, err := NewModules(infra, cfg)
	if err != nil {
		return nil, err
	}

	router := buildRouter(infra, modules.Runtime)
	modules.Mount(router)

	infra.Logger.Info("server initialized", "addr", cfg.Server.Addr(), "version", cfg.Version)

	return &Server{
		infra:   infra,
		modules: modules,
		http:    newHTTPServer(&cfg.Server, router, infra.Logger),
	}, nil
}

// Start brings subsystems up in dependency order: infrastructure, the
// decision runtime, then the listener. It returns once the listener is
// bound; startup hooks keep running in the background.
func (s *Server) Start() error {
	lc := s.infra.Lifecycle

	if err := s.infra.Start(); err != nil {
		return err
	}
	if err := s.modules.Runtime.Start(lc); err != nil {
		return err
	}
	lc.AddReadiness("engine", s.modules.Runtime)

	if err := s.http.Start(lc); err != nil {
		return err
	}

	go func() {
		lc.WaitForStartup()
		s.infra.Logger.Info("startup complete", "ready", lc.Ready())
	}()
	return nil
}

func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown")
	return s.infra.Lifecycle.Shutdown(timeout)
}
