package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/wolfman30/leadrelay/internal/http/middleware"
	"github.com/wolfman30/leadrelay/internal/relay"
	"github.com/wolfman30/leadrelay/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	RelayHandler   *relay.Handler
	MetricsHandler http.Handler
	CORS           httpmiddleware.CORSOptions
	// RateLimiter guards /api; nil disables rate limiting.
	RateLimiter httpmiddleware.Limiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.RelayHandler != nil {
		r.Route("/api", func(api chi.Router) {
			api.Use(httpmiddleware.CORS(cfg.CORS))
			if cfg.RateLimiter != nil {
				api.Use(httpmiddleware.RateLimit(cfg.RateLimiter, cfg.Logger))
			}
			api.Mount("/", cfg.RelayHandler.Routes())
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
