package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"clinic-booking-api/internal/auth"
	"clinic-booking-api/internal/metrics"
	"clinic-booking-api/internal/middleware"
)

type RouterConfig struct {
	Gate        *auth.Gate
	Guard       *auth.Guard
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	Limiter     *middleware.RateLimiter
	CORSOrigins []string
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Only set it behind a proxy that rewrites those headers.
	TrustProxy  bool
	Log         zerolog.Logger
}

func (h *Handler) Routes(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if cfg.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestLogger(cfg.Log, cfg.Metrics))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(chimw.Timeout(30 * time.Second))

	limit := func(next http.Handler) http.Handler { return next }
	if cfg.Limiter != nil {
		limit = middleware.RateLimit(cfg.Limiter)
	}
	authn := middleware.Authenticate(cfg.Gate, cfg.Metrics)
	admin := middleware.RequireAdmin(cfg.Guard, cfg.Metrics)

	r.Get("/healthz", h.Healthz)
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/services", h.ListServices)
	r.Get("/available", h.Available)
	r.With(limit).Post("/service", h.CreateBooking)
	r.With(limit).Put("/user/{email}", h.UpsertUser)
	r.Get("/admin/{email}", h.IsAdmin)

	r.Group(func(r chi.Router) {
		r.Use(authn)
		r.Get("/booking", h.PatientBookings)

		r.Group(func(r chi.Router) {
			r.Use(admin)
			r.Get("/user", h.ListUsers)
			r.Put("/user/admin/{email}", h.GrantAdmin)
			r.Post("/doctor", h.CreateDoctor)
			r.Get("/doctors", h.ListDoctors)
			r.Delete("/doctors/{email}", h.DeleteDoctor)
		})
	})

	return r
}
