// Package server exposes the memory engine over a local HTTP API. The
// intended callers are keepsake's own hook commands and CLI; nothing
// here is hardened for the open internet.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/lazypower/keepsake/internal/engine"
	"github.com/lazypower/keepsake/internal/store"
)

// Server is the keepsake HTTP API server.
type Server struct {
	db      *store.DB
	engine  *engine.Engine
	logger  *zap.Logger
	router  chi.Router
	version string
	started time.Time
}

// New creates a Server over an open store and engine.
func New(db *store.DB, eng *engine.Engine, logger *zap.Logger, version string) *Server {
	s := &Server{
		db:      db,
		engine:  eng,
		logger:  logger,
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requestLogger records every request at debug level. The API is
// chatty (hooks poll it on every session), so info would drown the log.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)
		r.Get("/search", s.handleSearch)
		r.Get("/brief", s.handleBrief)
		r.Get("/context", s.handleContext)

		r.Post("/memories", s.handleAddMemory)
		r.Get("/memories/{id}", s.handleGetMemory)
		r.Delete("/memories/{id}", s.handleDeleteMemory)

		r.Post("/decay", s.handleDecay)
		r.Post("/prune", s.handlePrune)

		r.Get("/sessions", s.handleListSessions)
		r.Post("/sessions", s.handleSaveSession)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.db.Path,
	})
}
