package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/advisor-match/internal/appointments"
	"github.com/wolfman30/advisor-match/internal/availability"
	"github.com/wolfman30/advisor-match/internal/booking"
	"github.com/wolfman30/advisor-match/internal/chat"
	"github.com/wolfman30/advisor-match/internal/dashboard"
	httpmiddleware "github.com/wolfman30/advisor-match/internal/http/middleware"
	"github.com/wolfman30/advisor-match/internal/http/respond"
	"github.com/wolfman30/advisor-match/internal/leads"
	"github.com/wolfman30/advisor-match/internal/profiles"
	"github.com/wolfman30/advisor-match/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	AuthSecret         string
	CORSAllowedOrigins []string
	RateLimiter        *httpmiddleware.RateLimiter
	MetricsHandler     http.Handler
	Realtime           http.Handler

	Profiles     *profiles.Handler
	Availability *availability.Handler
	Appointments *appointments.Handler
	Booking      *booking.Handler
	Chat         *chat.Handler
	Leads        *leads.Handler
	Dashboard    *dashboard.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Group(func(api chi.Router) {
		api.Use(httpmiddleware.Authenticate(cfg.AuthSecret, cfg.Logger))
		if cfg.RateLimiter != nil {
			api.Use(httpmiddleware.RateLimit(cfg.RateLimiter))
		}

		// Websocket upgrades must not be compressed.
		if cfg.Realtime != nil {
			api.Handle("/realtime", cfg.Realtime)
		}

		api.Group(func(r chi.Router) {
			r.Use(middleware.Compress(5))

			if cfg.Profiles != nil {
				r.Get("/advisors", cfg.Profiles.ListAdvisors)
				r.With(httpmiddleware.RequireIdentity).Get("/me/profile", cfg.Profiles.GetMe)
				r.With(httpmiddleware.RequireIdentity).Put("/me/profile", cfg.Profiles.PutMe)
			}

			r.Route("/advisors/{advisorID}", func(adv chi.Router) {
				if cfg.Availability != nil {
					adv.Route("/availability", cfg.Availability.Routes)
				}
				if cfg.Appointments != nil {
					adv.Route("/categories", cfg.Appointments.CategoryRoutes)
				}
				if cfg.Booking != nil {
					adv.Post("/bookings", cfg.Booking.Book)
					adv.Post("/chat", cfg.Booking.MessageAdvisor)
				}
			})

			if cfg.Appointments != nil {
				r.Route("/appointments", cfg.Appointments.Routes)
			}
			if cfg.Chat != nil {
				r.Route("/chats", cfg.Chat.Routes)
			}
			if cfg.Leads != nil {
				r.Route("/leads", func(l chi.Router) {
					l.Use(httpmiddleware.RequireIdentity)
					l.Get("/", cfg.Leads.ListLeads)
					l.Patch("/{leadID}", cfg.Leads.UpdateLead)
				})
			}
			if cfg.Dashboard != nil {
				r.With(httpmiddleware.RequireIdentity).Get("/dashboard", cfg.Dashboard.Get)
			}
		})
	})

	return r
}
