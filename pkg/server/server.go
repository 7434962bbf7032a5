// Package server provides the public entry point for initializing the
// trex server: registry, upstream client, artifact directory, and the
// HTTP router, composed from environment configuration.
//
// Usage:
//
//	srv, err := server.New(ctx)
//	http.ListenAndServe(":5000", srv.Handler)
package server

import (
	"context"

	"github.com/trexlab/trex/internal/api"
	"github.com/trexlab/trex/internal/api/handlers"
	"github.com/trexlab/trex/internal/artifacts"
	"github.com/trexlab/trex/internal/config"
	"github.com/trexlab/trex/internal/store"
	"github.com/trexlab/trex/internal/telemetry"
	"github.com/trexlab/trex/internal/upstream"

	"net/http"

	"github.com/rs/zerolog/log"
)

// Server holds the initialized trex server.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Store is the run registry. The single instance created here is the
	// only owner of run and message state for the process lifetime.
	Store store.Store

	// Config is the loaded configuration.
	Config *config.Config

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown to flush telemetry.
	ShutdownFunc func(context.Context) error
}

// New initializes all components from environment configuration.
func New(ctx context.Context) (*Server, error) {
	return NewWithConfig(ctx, config.Load())
}

// NewWithConfig initializes the server with an explicit configuration.
func NewWithConfig(_ context.Context, cfg *config.Config) (*Server, error) {
	shutdown, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		return nil, err
	}

	registry := store.NewMemoryStore()
	log.Info().Msg("In-memory run registry initialized")

	up := upstream.New(cfg.Upstream.BaseURL, cfg.Upstream.Timeout)
	art := artifacts.NewDir(cfg.Artifacts.Dir)

	h := handlers.New(registry, up, art)
	router := api.NewRouter(cfg, h)

	return &Server{
		Handler:      router,
		Store:        registry,
		Config:       cfg,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}
