// Package server exposes the engine over HTTP with chi and pushes match
// updates to websocket clients.
//
// Routes:
//
//	GET    /healthz
//	POST   /matches                 create a match from a config body
//	GET    /matches                 list stored matches
//	GET    /matches/{id}            current scoreboard
//	DELETE /matches/{id}
//	POST   /matches/{id}/points     {"player": 1, "type": "ace"}
//	POST   /matches/{id}/undo
//	POST   /matches/{id}/retire     {"player": 2}
//	POST   /matches/{id}/suspend
//	GET    /matches/{id}/ws         websocket stream of notices and state
//
// All writes go through engine.Submit, so the engine's Run loop must be
// running while the server is serving.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/roach88/matchpoint/internal/engine"
	"github.com/roach88/matchpoint/internal/store"
)

// Server holds the HTTP handlers and their collaborators.
type Server struct {
	engine   *engine.Engine
	store    *store.Store
	hub      *Hub
	limiter  *rate.Limiter
	origins  []string
	timeout  time.Duration
	ctx      context.Context
	upgrader websocket.Upgrader
	router   chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithAllowedOrigins sets the CORS and websocket origin allow-list.
//
// Default: all origins.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// WithRateLimit limits mutating requests (POST and DELETE) across all
// clients to r per second with the given burst. Excess requests get 429.
//
// Default: unlimited.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(s *Server) {
		s.limiter = rate.NewLimiter(r, burst)
	}
}

// WithRequestTimeout bounds how long a handler waits for the engine.
//
// Default: 10 seconds.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.timeout = d
	}
}

// New builds a Server. ctx bounds the lifetime of websocket connections.
func New(ctx context.Context, e *engine.Engine, st *store.Store, hub *Hub, opts ...Option) *Server {
	s := &Server{
		engine:  e,
		store:   st,
		hub:     hub,
		limiter: rate.NewLimiter(rate.Inf, 0),
		origins: []string{"*"},
		timeout: 10 * time.Second,
		ctx:     ctx,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)

	r.Route("/matches", func(r chi.Router) {
		r.With(s.rateLimit).Post("/", s.handleCreate)
		r.Get("/", s.handleList)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleShow)
			r.Get("/ws", s.handleWebSocket)

			r.Group(func(r chi.Router) {
				r.Use(s.rateLimit)
				r.Delete("/", s.handleDelete)
				r.Post("/points", s.handlePoint)
				r.Post("/undo", s.handleUndo)
				r.Post("/retire", s.handleRetire)
				r.Post("/suspend", s.handleSuspend)
			})
		})
	})
	return r
}

// rateLimit rejects requests once the shared limiter is exhausted.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			respondError(w, http.StatusTooManyRequests, codeRateLimited, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.origins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// requestLogger logs one line per request with slog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", chimiddleware.GetReqID(r.Context()),
		)
	})
}
