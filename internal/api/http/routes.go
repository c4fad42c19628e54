package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"passindexer/internal/api/http/handlers"
	"passindexer/internal/api/http/mw"
)

// Middlewares are optional; a nil one is skipped
type Middlewares struct {
	Logging   *mw.LoggingMiddleware
	Gzip      *mw.GzipMiddleware
	CORS      *mw.CORSMiddleware
	RateLimit *mw.RateLimitMiddleware
	JWT       *mw.JWTMiddleware
}

func BuildRouter(h *handlers.Handler, metricsHandler http.Handler, m Middlewares) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	if m.Logging != nil {
		r.Use(m.Logging.Handler)
	}
	if m.CORS != nil {
		r.Use(m.CORS.Handler)
	}

	// tech endpoints, no auth
	r.Get("/healthz", h.Healthz)
	r.Get("/readiness", h.Readiness)
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		if m.Gzip != nil {
			api.Use(m.Gzip.Handler)
		}
		if m.JWT != nil {
			api.Use(m.JWT.Handler)
		}
		if m.RateLimit != nil {
			api.Use(m.RateLimit.Handler)
		}

		api.Get("/protocol", h.Protocol)
		api.Get("/protocol/daily/{day}", h.ProtocolDaily)
		api.Get("/accounts/{address}", h.Account)
		api.Get("/accounts/{address}/daily/{day}", h.AccountDaily)
		api.Get("/holdings/{holder}/{subject}", h.Holding)
		api.Get("/trades/{id}", h.Trade)
		api.Get("/tips/{id}", h.Tip)
	})

	return r
}
