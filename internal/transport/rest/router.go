package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/metrics"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/security"
)

type RouterDeps struct {
	Handler  *Handler
	Verifier security.AccessTokenVerifier

	// Limiter may be nil; the rate limits then fall back to in-process counters.
	Limiter         RateLimiter
	RLEnabled       bool
	RLLimit         int
	RLWindow        time.Duration
	RLRegisterLimit int
}

func NewRouter(d RouterDeps) http.Handler {
	if d.Handler == nil {
		panic("rest.NewRouter: nil handler")
	}
	if d.Verifier == nil {
		panic("rest.NewRouter: nil verifier")
	}

	r := chi.NewRouter()

	// Request ID + structured access log
	r.Use(RequestID)
	r.Use(middleware.RealIP)
	r.Use(HTTPLogger)

	// Panic recovery
	r.Use(middleware.Recoverer)

	// Cross-cutting
	r.Use(SecurityHeaders)
	r.Use(metrics.Middleware)
	if d.RLEnabled {
		r.Use(RateLimitMiddleware(d.Limiter, "global", d.RLLimit, d.RLWindow))
	}

	r.Get("/healthz", d.Handler.Healthz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// public
		r.Get("/events", d.Handler.ListEvents)
		r.Route("/events/{eventID}", func(r chi.Router) {
			r.Get("/", d.Handler.GetEvent)
			r.Get("/availability", d.Handler.Availability)

			r.Group(func(r chi.Router) {
				if d.RLEnabled {
					r.Use(RateLimitMiddleware(d.Limiter, "register", d.RLRegisterLimit, d.RLWindow))
				}
				r.Post("/registrations", d.Handler.Register)
			})
			r.Delete("/registrations/{email}", d.Handler.CancelRegistration)
		})

		// admin
		r.Route("/admin/events", func(r chi.Router) {
			r.Use(AuthMiddleware(d.Verifier))
			r.Use(RequireAdmin)

			r.Post("/", d.Handler.CreateEvent)
			r.Route("/{eventID}", func(r chi.Router) {
				r.Patch("/", d.Handler.UpdateEvent)
				r.Delete("/", d.Handler.DeleteEvent)

				r.Get("/registrations", d.Handler.ListRegistrations)
				r.Delete("/registrations/{email}", d.Handler.CancelRegistration)
				r.Get("/participants", d.Handler.ParticipantsOnDate)
				r.Get("/stats", d.Handler.Stats)
				r.Get("/roster", d.Handler.Roster)
			})
		})
	})

	return r
}
