package api

import (
	"encoding/json"
	"net/http"

	"github.com/agentrig/agentrig/control-plane/internal/api/handlers"
	"github.com/agentrig/agentrig/control-plane/internal/api/middleware"
	"github.com/agentrig/agentrig/control-plane/internal/config"

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
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "X-Trace-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.NewAPIKeyAuth().Middleware)

	// Health & info
	r.Get("/healthz", healthHandler(h))
	r.Get("/version", versionHandler(cfg))

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Agents and their versioned configurations
		r.Route("/agents", func(r chi.Router) {
			r.Get("/", h.ListAgents)
			r.Post("/", h.CreateAgent)
			r.Route("/{agentName}", func(r chi.Router) {
				r.Get("/", h.GetAgent)
				r.Delete("/", h.DeleteAgent)
				r.Get("/config", h.GetAgentConfig)
				r.Get("/instances", h.ListAgentInstances)

				r.Route("/versions", func(r chi.Router) {
					r.Get("/", h.ListVersions)
					r.Post("/", h.CreateVersion)
				})
			})
		})

		// Version-scoped operations address versions by ID: version IDs
		// are global, agent names are not part of the key.
		r.Route("/versions/{versionID}", func(r chi.Router) {
			r.Get("/", h.GetVersion)
			r.Post("/activate", h.ActivateVersion)
			r.Get("/tools", h.ListVersionTools)
			r.Post("/tools", h.AttachVersionTool)
			r.Get("/middlewares", h.ListVersionMiddlewares)
			r.Post("/middlewares", h.AttachVersionMiddleware)
		})

		// Tool definitions
		r.Route("/mcp-servers", func(r chi.Router) {
			r.Get("/", h.ListMCPServers)
			r.Post("/", h.CreateMCPServer)
			r.Get("/{serverID}", h.GetMCPServer)
			r.Put("/{serverID}", h.UpdateMCPServer)
		})

		// Middleware registry
		r.Route("/middleware-types", func(r chi.Router) {
			r.Get("/", h.ListMiddlewareTypes)
			r.Post("/", h.CreateMiddlewareType)
		})

		// Derived tool catalog
		r.Get("/tool-catalog", h.ListToolCatalog)

		// Instance registry
		r.Route("/instances", func(r chi.Router) {
			r.Post("/", h.RegisterInstance)
			r.Route("/{instanceID}", func(r chi.Router) {
				r.Get("/", h.GetInstance)
				r.Post("/heartbeat", h.InstanceHeartbeat)
				r.Post("/stop", h.StopInstance)
			})
		})
	})

	return r
}

func healthHandler(h *handlers.Handlers) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := h.Store.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{
				"status":  "degraded",
				"service": "agentrig-control-plane",
				"error":   err.Error(),
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"service": "agentrig-control-plane",
		})
	}
}

func versionHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"version": cfg.Version,
			"service": "agentrig-control-plane",
		})
	}
}
