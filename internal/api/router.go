package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/moviebox/ragchat/internal/database"
	mw "github.com/moviebox/ragchat/internal/middleware"
	inats "github.com/moviebox/ragchat/internal/nats"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	Chat    http.HandlerFunc
	Profile http.HandlerFunc

	// Widget serves the static chat page at "/".
	Widget http.Handler
}

// Dependencies are the optional backing services probed by /health/ready.
// A nil field is reported as "not configured".
type Dependencies struct {
	Pool  *pgxpool.Pool
	Redis *redis.Client
	NATS  *inats.Client
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	ChatRateLimiter    func(http.Handler) http.Handler
}

func NewRouter(deps Dependencies, cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(chimw.Recoverer)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		HandleError(w, ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		HandleError(w, ErrMethodNotAllowed)
	})

	// Liveness probe: always 200, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{
			"status":   "healthy",
			"database": "not configured",
			"redis":    "not configured",
			"nats":     "not configured",
		}
		status := http.StatusOK

		if deps.Pool != nil {
			health["database"] = "healthy"
			if err := database.HealthCheck(r.Context(), deps.Pool); err != nil {
				health["database"] = "unhealthy"
				health["status"] = "degraded"
				status = http.StatusServiceUnavailable
			}
		}

		// The rate limiter fails open, so Redis only degrades the report.
		if deps.Redis != nil {
			health["redis"] = "healthy"
			if err := deps.Redis.Ping(r.Context()).Err(); err != nil {
				health["redis"] = "unhealthy"
				health["status"] = "degraded"
			}
		}

		if deps.NATS != nil {
			health["nats"] = "healthy"
			if !deps.NATS.Healthy() {
				health["nats"] = "unhealthy"
				health["status"] = "degraded"
			}
		}

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/profile", h.Profile)

		r.Group(func(r chi.Router) {
			if cfg.ChatRateLimiter != nil {
				r.Use(cfg.ChatRateLimiter)
			}
			r.Post("/chat", h.Chat)
		})
	})

	if h.Widget != nil {
		r.Handle("/*", h.Widget)
	}

	return r
}
