/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address from X-Forwarded-For / X-Real-IP
  3. Logger:     slog request logging (method, path, status, duration)
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests from the configured client

ROUTE GROUPS (relative to the base path, default /api):
  /transactions/*     Ledger reads and mutations
  /cards/*            Card CRUD
  /userCategories/*   Category list CRUD
  /users/{userId}     Provisioning
  /health             Liveness

Unknown routes get a JSON 404, unsupported methods a JSON 405.

SECURITY NOTE:
  No authentication middleware. The user id in the URL is trusted; an
  upstream gateway is expected to authenticate it.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"log/slog"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	BasePath       string
	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	routes := func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/{userId}", h.GetLedger)
			r.Post("/{userId}", h.CreateTransaction)
			r.Delete("/{userId}", h.DeleteTransaction)
			r.Post("/update/{userId}", h.UpdateTransaction)
		})

		r.Route("/cards", func(r chi.Router) {
			r.Get("/{userId}", h.ListCards)
			r.Post("/{userId}", h.CreateCard)
			r.Delete("/{userId}", h.DeleteCard)
			r.Post("/update/{userId}", h.UpdateCard)
		})

		r.Route("/userCategories", func(r chi.Router) {
			r.Get("/{userId}", h.GetCategories)
			r.Post("/{userId}", h.AddCategory)
			r.Delete("/{userId}", h.DeleteCategory)
		})

		r.Post("/users/{userId}", h.ProvisionUser)
	}

	base := strings.TrimRight(cfg.BasePath, "/")
	if base == "" {
		routes(r)
	} else {
		r.Route(base, func(r chi.Router) {
			r.NotFound(notFound)
			r.MethodNotAllowed(methodNotAllowed)
			routes(r)
		})
	}

	return r
}
