package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// Health check (no auth required)
	r.Get("/health", h.health.HandleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/sync", func(r chi.Router) {
			r.Get("/runs", h.HandleSyncRuns)
			r.Route("/{source}", func(r chi.Router) {
				r.Post("/trigger", h.HandleSyncTrigger)
				r.Get("/progress", h.HandleSyncProgress)
			})
		})

		r.Route("/rollup", func(r chi.Router) {
			r.Get("/tenants", h.HandleTenantRollup)
			r.Get("/tenants/{tenantID}/campaigns", h.HandleCampaignRollup)
			r.Get("/records", h.HandleRecords)
		})
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	})

	return r
}
