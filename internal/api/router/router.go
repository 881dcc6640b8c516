package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wolfman30/botpe-relay/internal/config"
	"github.com/wolfman30/botpe-relay/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/botpe-relay/internal/http/middleware"
	"github.com/wolfman30/botpe-relay/pkg/logging"
)

// DefaultWebhookRoutes binds each delivery path to the account it serves.
var DefaultWebhookRoutes = map[string]string{
	"/webhook":  config.PrimaryAccountID,
	"/webhook2": config.SecondaryAccountID,
}

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	Webhooks       *handlers.WebhookHandler
	Introspection  *handlers.IntrospectionHandler
	LiveFeed       http.HandlerFunc
	MetricsHandler http.Handler

	// WebhookRoutes maps path to account id; nil uses DefaultWebhookRoutes.
	WebhookRoutes map[string]string

	// AdminRateLimit applies to the introspection routes only.
	AdminRateLimit     float64
	AdminAuthSecret    string
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	} else {
		r.Use(middleware.RequestID)
		r.Use(middleware.Logger)
	}
	r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))

	// Public endpoints (webhooks, health checks)
	r.Group(func(public chi.Router) {
		if cfg.Webhooks != nil {
			routes := cfg.WebhookRoutes
			if routes == nil {
				routes = DefaultWebhookRoutes
			}
			for path, account := range routes {
				public.Get(path, cfg.Webhooks.Verify)
				public.Post(path, cfg.Webhooks.Receive(account))
			}
		}
		if cfg.Introspection != nil {
			public.Get("/health", cfg.Introspection.Health)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Introspection endpoints, behind admin JWT when a secret is configured.
	r.Group(func(admin chi.Router) {
		admin.Use(httpmiddleware.RateLimit(cfg.AdminRateLimit, 0))
		if cfg.AdminAuthSecret != "" {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
		}
		if h := cfg.Introspection; h != nil {
			admin.With(middleware.Compress(5)).Group(func(read chi.Router) {
				read.Get("/stats", h.Stats)
				read.Get("/messages", h.Messages)
				read.Get("/messages/{phone}", h.MessageHistory)
				read.Get("/statuses/{queueID}", h.StatusHistory)
				read.Get("/interactions/{phone}", h.Interactions)
				read.Get("/appointments", h.Appointments)
			})
			// Replay injects traffic, so it is only exposed with auth.
			if cfg.AdminAuthSecret != "" {
				admin.Post("/replay", h.Replay)
			}
		}
		if cfg.LiveFeed != nil {
			admin.Get("/events/ws", cfg.LiveFeed)
		}
	})

	return r
}
