package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ignite/email-delivery/internal/auth"
	"github.com/ignite/email-delivery/internal/ratelimit"
)

// RouterOptions carries what the router needs besides the handlers.
type RouterOptions struct {
	AllowedOrigins []string
	Auth           *auth.Manager
	Health         *HealthChecker
}

// NewRouter mounts the email endpoints. Routes whose service is missing
// from Handlers are not registered. Campaign, analytics, queue and order
// routes are internal and take the API key; preference routes take a
// session.
func NewRouter(h *Handlers, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if opts.Health != nil {
		r.Get("/health", opts.Health.HandleHealth)
		r.Get("/health/live", opts.Health.HandleLiveness)
		r.Get("/health/ready", opts.Health.HandleReadiness)
	} else {
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"healthy"}`))
		})
	}

	requireAuth := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"error":"authentication required"}`))
		})
	}
	if opts.Auth != nil {
		requireAuth = opts.Auth.RequireAuth
	}

	throttle := func(next http.Handler) http.Handler { return next }
	if h.limiter != nil && h.settings.RateLimit > 0 {
		throttle = ratelimit.Middleware(h.limiter, h.settings.RateLimit, h.settings.RateWindow, ratelimit.ClientIP)
	}

	r.Route("/email", func(r chi.Router) {
		if h.queue != nil {
			r.Post("/queue/process", h.ProcessQueue)
			r.Get("/queue/process", h.QueueStats)
		}

		if h.campaigns != nil {
			r.Route("/campaigns", func(r chi.Router) {
				r.Use(h.requireAPIKey)
				r.Post("/", h.CreateCampaign)
				r.Get("/", h.ListCampaigns)
				r.Post("/{id}/schedule", h.ScheduleCampaign)
				r.Post("/{id}/launch", h.LaunchCampaign)
				r.Post("/{id}/cancel", h.CancelCampaign)
			})
		}

		if h.analytics != nil {
			r.With(h.requireAPIKey).Get("/analytics", h.Analytics)
		}

		if h.prefs != nil {
			r.Group(func(r chi.Router) {
				r.Use(throttle, requireAuth)
				r.Get("/preferences", h.GetPreferences)
				r.Put("/preferences", h.UpdatePreferences)
			})
		}

		if h.unsubscribe != nil {
			r.Group(func(r chi.Router) {
				r.Use(throttle)
				r.Get("/unsubscribe/{tokenType}/{token}", h.Unsubscribe)
				r.With(requireAuth).Post("/unsubscribe/{tokenType}/{token}", h.IssueUnsubscribeToken)
			})
		}

		if h.webhooks != nil {
			r.Post("/webhooks", h.HandleWebhook)
		}

		if h.orders != nil {
			r.With(h.requireAPIKey).Post("/orders/{orderId}/confirmation", h.SendOrderConfirmation)
		}
	})

	return r
}
