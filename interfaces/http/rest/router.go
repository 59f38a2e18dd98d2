// Package rest wires the HTTP surface: routes, middleware, and handlers.
package rest

import (
	"net/http"
	"time"

	"chatbackend/infrastructure/cache"
	"chatbackend/infrastructure/config"
	"chatbackend/interfaces/http/rest/handlers"
	"chatbackend/interfaces/http/rest/middleware"
	"chatbackend/pkg/common"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Router creates and configures the HTTP router
type Router struct {
	cfg         *config.Config
	users       *handlers.UserHandler
	cache       *handlers.CacheHandler
	cacheHealth *cache.HealthChecker
	logger      *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	cfg *config.Config,
	userHandler *handlers.UserHandler,
	cacheHandler *handlers.CacheHandler,
	cacheHealth *cache.HealthChecker,
	logger *zap.Logger,
) *Router {
	return &Router{
		cfg:         cfg,
		users:       userHandler,
		cache:       cacheHandler,
		cacheHealth: cacheHealth,
		logger:      logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.RequestLogger(rt.logger))

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000"},
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Liveness check
	router.Get("/health", rt.healthCheck)

	// User endpoints
	router.Route("/users", func(r chi.Router) {
		r.Post("/", rt.users.Create)
		r.Get("/", rt.users.List)
		r.Get("/count", rt.users.Count)
		r.Get("/email/{email}", rt.users.GetByEmail)
		r.Get("/username/{username}", rt.users.GetByUsername)
		r.Get("/{id}", rt.users.GetByID)
		r.Get("/{id}/exists", rt.users.Exists)
		r.Patch("/{id}", rt.users.Update)
		r.Delete("/{id}", rt.users.Delete)
	})

	// Cache endpoints
	router.Route("/cache", func(r chi.Router) {
		r.Get("/health", rt.cache.DetailedHealth)
		r.Get("/health/simple", rt.cache.SimpleHealth)
		r.Get("/health/connection", rt.cache.ConnectionHealth)
		r.Get("/keys/generate", rt.cache.GenerateKey)
		r.Get("/test/bulk", rt.cache.BulkTest)
		r.Post("/set", rt.cache.SetValue)
		r.Post("/wrap", rt.cache.Wrap)
		r.Get("/{key}", rt.cache.GetValue)
		r.Delete("/{key}", rt.cache.DeleteValue)
		r.Delete("/", rt.cache.Clear)
	})

	return router
}

// healthCheck reports process liveness plus a cache connectivity summary
func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"cache":     rt.cacheHealth.ConnectionStatus(r.Context()),
	})
}
