package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rdGxd/todo-list/internal/auth"
	"github.com/rdGxd/todo-list/internal/domain"
	"github.com/rdGxd/todo-list/pkg/health"
	"github.com/rdGxd/todo-list/pkg/middleware"
)

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	ServiceName string
	CORS        middleware.CORSConfig
	RateLimit   middleware.RateLimitConfig
}

// RoutePolicies returns the role requirements of the protected routes.
// Protected routes missing from the table are open to any authenticated
// caller.
func RoutePolicies() *auth.PolicyTable {
	return auth.NewPolicyTable().
		Require(http.MethodGet, "/users", domain.RoleAdmin).
		Require(http.MethodGet, "/users/{id}", domain.RoleUser, domain.RoleAdmin).
		Require(http.MethodPatch, "/users/{id}", domain.RoleUser, domain.RoleAdmin).
		Require(http.MethodDelete, "/users/{id}", domain.RoleUser, domain.RoleAdmin).
		Require(http.MethodPut, "/users/{id}/roles", domain.RoleAdmin)
}

// NewRouter creates a chi router with all todo API routes registered. ctx
// bounds background work started by middleware.
func NewRouter(
	ctx context.Context,
	authService AuthService,
	accountService AccountService,
	gate *auth.Gate,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	authHandler := NewAuthHandler(authService, logger)
	accountHandler := NewAccountHandler(accountService, logger)

	// Public endpoints, rate limited per client
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(ctx, cfg.RateLimit, logger))
		r.Use(ContentTypeJSON)

		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.Refresh)
		r.Post("/users", accountHandler.Register)
	})

	// Protected endpoints. Registered on the top-level router so the gate
	// sees the full route pattern.
	r.Group(func(r chi.Router) {
		r.Use(gate.Protect)
		r.Use(ContentTypeJSON)

		r.Get("/users/me", accountHandler.Me)
		r.Get("/users", accountHandler.List)
		r.Get("/users/{id}", accountHandler.Get)
		r.Patch("/users/{id}", accountHandler.Update)
		r.Delete("/users/{id}", accountHandler.Delete)
		r.Put("/users/{id}/roles", accountHandler.SetRoles)
	})

	return r
}
