// Package api implements the HTTP layer of the card service: the sender's
// form, the card page, the widget-session JSON API the card page talks to,
// and the send-sms notification endpoint.
// Handlers are methods on *Server. Each handler file is responsible for one
// resource group and only imports the dependencies it actually uses.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nyashahama/valentine-card/internal/card"
	"github.com/nyashahama/valentine-card/internal/web"
)

// Config holds values read from environment variables at startup.
type Config struct {
	// BaseURL is the public origin used to build share links.
	// e.g. "https://valentine.example.com"
	BaseURL string

	// Env is "production", "staging", or "development".
	Env string

	// PlacementPadding keeps the evading button this many CSS pixels from
	// the viewport edges.
	PlacementPadding float64

	// CardRatePerMinute and CardRateBurst bound card and widget creation per
	// client IP.
	CardRatePerMinute int
	CardRateBurst     int

	// SMSRatePerMinute and SMSRateBurst bound send-sms calls per client IP.
	SMSRatePerMinute int
	SMSRateBurst     int

	// RequestTimeout caps every route except send-sms. Default: 30s.
	RequestTimeout time.Duration

	// SendTimeout caps send-sms, which waits for every delivery attempt. It
	// should exceed the worker's retry budget. Default: 60s.
	SendTimeout time.Duration
}

// Server holds all shared dependencies. Each handler file attaches methods to
// this type and uses only the fields it needs.
type Server struct {
	// widgets holds the live card sessions.
	widgets *card.Registry

	// dispatcher delivers acceptance notifications (the worker pool).
	dispatcher card.Dispatcher

	pages *web.Pages

	cardLimiter *RateLimiter
	smsLimiter  *RateLimiter

	cfg    Config
	logger *slog.Logger
}

// NewServer constructs the Server and wires the chi router. The returned
// http.Handler is ready to pass to http.ListenAndServe.
func NewServer(
	widgets *card.Registry,
	dispatcher card.Dispatcher,
	pages *web.Pages,
	cfg Config,
	logger *slog.Logger,
) http.Handler {
	if cfg.PlacementPadding < 0 {
		cfg.PlacementPadding = card.DefaultPadding
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 60 * time.Second
	}
	s := &Server{
		widgets:    widgets,
		dispatcher: dispatcher,
		pages:      pages,
		cfg:        cfg,
		logger:     logger,

		cardLimiter: NewRateLimiter(cfg.CardRatePerMinute, cfg.CardRateBurst),
		smsLimiter:  NewRateLimiter(cfg.SMSRatePerMinute, cfg.SMSRateBurst),
	}

	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// ── Global middleware ─────────────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))

		// ── Health ────────────────────────────────────────────────────────────
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		// ── Pages ─────────────────────────────────────────────────────────────
		// Opening a card creates a widget session, so it shares the card
		// limiter with the create endpoints.
		r.Get("/", s.handleIndex)
		r.With(s.cardLimiter.Middleware).Post("/cards", s.handleCreateCard)
		r.With(s.cardLimiter.Middleware).Get("/card", s.handleCard)
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(web.Static())))
	})

	// ── API ───────────────────────────────────────────────────────────────────
	r.Route("/api", func(r chi.Router) {

		// Widget sessions. Anonymous: the id is the capability.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.cfg.RequestTimeout))

			r.With(s.cardLimiter.Middleware).Post("/widgets", s.handleCreateWidget)
			r.Route("/widgets/{widgetID}", func(r chi.Router) {
				r.Get("/", s.handleGetWidget)
				r.Post("/engage", s.handleEngage)
				r.Post("/accept", s.handleAccept)
			})
		})

		// Notification endpoint. It blocks until the worker has finished
		// retrying, so it runs under its own longer deadline.
		r.With(s.smsLimiter.Middleware, middleware.Timeout(s.cfg.SendTimeout)).
			Post("/send-sms", s.handleSendSMS)
	})

	return r
}
