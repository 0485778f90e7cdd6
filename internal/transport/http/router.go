package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	Handler *Handler
	Logger  *slog.Logger
	// Ready backs /readyz; nil means always ready.
	Ready func(ctx context.Context) error
	// RateLimiter guards the public routes and the slots route when set.
	RateLimiter    *RateLimiter
	MetricsHandler http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(AccessLog(cfg.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readyHandler(cfg.Ready))

	metrics := cfg.MetricsHandler
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metrics)

	limited := func(r chi.Router) chi.Router {
		if cfg.RateLimiter == nil {
			return r
		}
		return r.With(cfg.RateLimiter.Middleware)
	}

	h := cfg.Handler
	r.Route("/v1", func(r chi.Router) {
		limited(r).Get("/public/businesses/{slug}", h.PublicBusiness)

		r.Post("/businesses", h.ProvisionBusiness)
		r.Route("/businesses/{businessID}", func(r chi.Router) {
			r.Get("/", h.GetBusiness)
			r.Put("/working-hours", h.UpdateWorkingHours)
			r.Put("/time-zone", h.UpdateTimeZone)
			r.Put("/profile", h.UpdateProfile)

			r.Post("/services", h.CreateService)
			r.Get("/services", h.ListServices)
			r.Put("/services/{serviceID}", h.UpdateService)
			r.Delete("/services/{serviceID}", h.DeleteService)
			limited(r).Get("/services/{serviceID}/slots", h.ListSlots)

			r.Post("/appointments", h.CreateAppointment)
			r.Get("/appointments", h.ListAppointments)
			r.Patch("/appointments/{appointmentID}", h.UpdateAppointmentStatus)

			r.Post("/blockages", h.CreateBlockage)
			r.Get("/blockages", h.ListBlockages)
			r.Delete("/blockages/{blockageID}", h.DeleteBlockage)
		})
	})

	return otelhttp.NewHandler(r, "agenda.http")
}

func readyHandler(ready func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready == nil {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := ready(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
