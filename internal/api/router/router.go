package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/clinic-booking-assistant/internal/bookings"
	"github.com/wolfman30/clinic-booking-assistant/internal/clinic"
	"github.com/wolfman30/clinic-booking-assistant/internal/conversation"
	httpmiddleware "github.com/wolfman30/clinic-booking-assistant/internal/http/middleware"
	"github.com/wolfman30/clinic-booking-assistant/internal/ingest"
	"github.com/wolfman30/clinic-booking-assistant/internal/webchat"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	ConversationHandler *conversation.Handler
	ClinicHandler       *clinic.Handler
	DocumentsHandler    *ingest.Handler
	BookingsHandler     *bookings.Handler
	WebChatHandler      *webchat.Handler
	HealthChecks        []HealthCheck
	MetricsHandler      http.Handler
	AdminAuthSecret     string
	CORSAllowedOrigins  []string
	RateLimiter         *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthHandler(cfg.HealthChecks, cfg.Logger))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.ClinicHandler != nil {
			public.Get("/clinics", cfg.ClinicHandler.List)
		}
	})

	// Chat and document endpoints, rate limited per client
	r.Group(func(api chi.Router) {
		if cfg.RateLimiter != nil {
			api.Use(httpmiddleware.RateLimit(cfg.RateLimiter, cfg.Logger))
		}
		if cfg.ConversationHandler != nil {
			api.Route("/conversations/{conversationID}/messages", func(r chi.Router) {
				r.Post("/", cfg.ConversationHandler.PostMessage)
				r.Get("/", cfg.ConversationHandler.History)
				r.Delete("/", cfg.ConversationHandler.Clear)
			})
		}
		if cfg.DocumentsHandler != nil {
			api.Route("/documents", func(r chi.Router) {
				r.Get("/", cfg.DocumentsHandler.List)
				r.Post("/", cfg.DocumentsHandler.Upload)
				r.Delete("/{name}", cfg.DocumentsHandler.Remove)
			})
		}
		if cfg.WebChatHandler != nil {
			api.Route("/chat", func(r chi.Router) {
				r.Get("/ws", cfg.WebChatHandler.HandleWebSocket)
				r.Post("/message", cfg.WebChatHandler.HandleMessage)
				r.Get("/history", cfg.WebChatHandler.HandleHistory)
			})
		}
	})

	// Admin routes (protected by JWT)
	if cfg.AdminAuthSecret != "" && cfg.BookingsHandler != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret, cfg.Logger))
			admin.Get("/bookings", cfg.BookingsHandler.List)
			admin.Get("/bookings.csv", cfg.BookingsHandler.ExportCSV)
		})
	}

	return r
}
