// Package api exposes the engine's HTTP surface: telephony callbacks, the
// call-script endpoint, and a small admin/ops surface. Nothing here is
// end-user facing.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/lumenlearn/engage/internal/config"
	"github.com/lumenlearn/engage/internal/pkg/logger"
)

// Server wraps the HTTP server for the engine's callback and admin routes.
type Server struct {
	cfg      config.ServerConfig
	handlers *Handlers
	server   *http.Server
}

// NewServer builds the router and wires the handlers.
func NewServer(cfg config.ServerConfig, handlers *Handlers) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", handlers.Health)

	// Telephony provider callbacks. Form-encoded, per provider convention.
	r.Post("/callbacks/call-status", handlers.CallStatus)
	r.Post("/callbacks/call-response", handlers.CallResponse)
	r.Get("/twiml/{callLogID}", handlers.CallScript)

	r.Route("/admin", func(r chi.Router) {
		r.Post("/test-call", handlers.TestCall)
		r.Post("/jobs/{name}/run", handlers.RunJob)
		r.Post("/content/published", handlers.ContentPublished)
	})

	return &Server{
		cfg:      cfg,
		handlers: handlers,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
}

// Start begins serving. Blocks until the server stops.
func (s *Server) Start() error {
	logger.Info("http server listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
