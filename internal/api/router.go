package api

import (
	"encoding/json"
	"net/http"

	"github.com/trexlab/trex/internal/api/handlers"
	"github.com/trexlab/trex/internal/api/middleware"
	"github.com/trexlab/trex/internal/config"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates the HTTP router with all API routes.
func NewRouter(cfg *config.Config, h *handlers.Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.Logger)
	r.Use(middleware.Telemetry)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	// Health & info
	r.Get("/health", healthHandler)
	r.Get("/version", versionHandler(cfg))

	// API — flat, unversioned paths; the chat UI depends on these exact routes.
	r.Route("/api", func(r chi.Router) {
		r.Get("/runs", h.ListRuns)
		r.Post("/run-job", h.CreateRuns)
		r.Post("/run_experiments", h.RunExperiments)
		r.Get("/messages", h.ListMessages)
		r.Post("/messages", h.AddMessage)

		r.Route("/run/{runID}", func(r chi.Router) {
			r.Get("/", h.GetRun)
			r.Get("/image", h.RunImage)
			r.Get("/images", h.RunImages)
			r.Get("/plot", h.RunPlot)
		})
	})

	// Raw artifact files, addressed by the urls returned from /images.
	fs := http.StripPrefix("/artifacts/", http.FileServer(http.Dir(cfg.Artifacts.Dir)))
	r.Get("/artifacts/*", fs.ServeHTTP)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "trex-server",
	})
}

func versionHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"version": cfg.Version,
			"service": "trex-server",
		})
	}
}
