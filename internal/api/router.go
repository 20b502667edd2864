package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterOptions struct {
	CORSOrigins []string
	// RequestTimeout bounds one request, render included.
	RequestTimeout time.Duration
	// RatePerMinute is the per-client budget; 0 disables limiting.
	RatePerMinute int
	RateBurst     int
}

func NewRouter(h *Handlers, opts RouterOptions, logger *slog.Logger) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 90 * time.Second
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(opts.RequestTimeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-RateLimit-Limit", "Retry-After"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)

	r.Group(func(r chi.Router) {
		if opts.RatePerMinute > 0 {
			limiter := NewIPRateLimiter(opts.RatePerMinute, opts.RateBurst, logger)
			r.Use(limiter.Middleware)
		}

		r.Get("/search-suggestions", h.SearchSuggestions)
		r.Post("/card-price", h.CardPrice)

		r.Route("/api", func(r chi.Router) {
			r.Get("/suggestions", h.SearchSuggestions)
			r.Post("/price", h.CardPrice)
		})
	})

	return r
}
