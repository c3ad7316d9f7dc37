package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/taskguard/taskguard/internal/metrics"
	"github.com/taskguard/taskguard/internal/middleware"
	"github.com/taskguard/taskguard/internal/service"
	"github.com/taskguard/taskguard/internal/session"
	"github.com/taskguard/taskguard/internal/web"
)

// RouterDeps holds everything the router wires together.
type RouterDeps struct {
	Logger   *slog.Logger
	Auth     *service.AuthService
	Tasks    *service.TaskService
	Sessions *session.Manager
	Renderer *web.Renderer
	Health   *HealthHandler
	// Metrics serves /metrics when set.
	Metrics  http.Handler
	Recorder metrics.Recorder
	// LoginLimiter is nil when login throttling is disabled.
	LoginLimiter       middleware.LoginLimiter
	LoginRatePerMinute int
	Security           middleware.SecurityConfig
	// TrustProxyHeaders takes the client address from X-Forwarded-For and
	// X-Real-IP. Enable only behind a proxy that overwrites them.
	TrustProxyHeaders bool
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(deps RouterDeps) *chi.Mux {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Recorder == nil {
		deps.Recorder = metrics.NewNoop()
	}
	if deps.Security.MaxRequestBodySize <= 0 {
		deps.Security.MaxRequestBodySize = middleware.DefaultSecurityConfig().MaxRequestBodySize
	}

	h := New()
	api := NewAPIHandler(deps.Auth, deps.Tasks, logger)
	pages := NewWebHandler(deps.Auth, deps.Tasks, deps.Sessions, deps.Renderer, logger)

	r := chi.NewRouter()

	// Global middleware
	if deps.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(deps.Security))
	r.Use(middleware.MaxBodySize(deps.Security.MaxRequestBodySize))

	// Operational endpoints
	if deps.Health != nil {
		r.Get("/healthz", deps.Health.Healthz)
		r.Get("/readyz", deps.Health.Readyz)
	}
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}
	r.Handle("/static/*", http.StripPrefix("/static/", web.StaticHandler()))

	r.Get("/", h.Root)

	apiLimit := middleware.LoginRateLimit(middleware.LoginRateLimitConfig{
		Logger:    logger,
		Limiter:   deps.LoginLimiter,
		PerMinute: deps.LoginRatePerMinute,
		Recorder:  deps.Recorder,
	})
	webLimit := middleware.LoginRateLimit(middleware.LoginRateLimitConfig{
		Logger:    logger,
		Limiter:   deps.LoginLimiter,
		PerMinute: deps.LoginRatePerMinute,
		Recorder:  deps.Recorder,
		OnLimited: pages.LoginLimited,
	})

	// JSON API
	r.Route("/api", func(r chi.Router) {
		r.With(apiLimit).Post("/login", api.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.BearerAuth(middleware.BearerAuthConfig{
				Logger:   logger,
				Resolver: deps.Auth,
			}))

			r.Get("/tasks", api.ListTasks)
			r.Post("/tasks", api.CreateTask)
			r.Put("/tasks/{id}", api.UpdateTask)
			r.Delete("/tasks/{id}", api.DeleteTask)
		})
	})

	// HTML pages
	r.Get("/register", pages.RegisterForm)
	r.Post("/register", pages.Register)
	r.Get("/login", pages.LoginForm)
	r.With(webLimit).Post("/login", pages.Login)
	r.Get("/logout", pages.Logout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionAuth(middleware.SessionAuthConfig{
			Logger:    logger,
			Sessions:  deps.Sessions,
			Resolver:  deps.Auth,
			LoginPath: "/login",
		}))

		r.Get("/dashboard", pages.Dashboard)
		r.Get("/tasks/add", pages.AddTaskForm)
		r.Post("/tasks/add", pages.AddTask)
		r.Get("/tasks/edit/{id}", pages.EditTaskForm)
		r.Post("/tasks/edit/{id}", pages.EditTask)
		r.Get("/tasks/delete/{id}", pages.DeleteTask)
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
