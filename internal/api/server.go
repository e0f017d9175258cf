// Package api implements the Allie HTTP API: chat action dispatch,
// event collection replies, learning statistics, workload analytics and
// the notification stream.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/backendwatch"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/buildinfo"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/config"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/dispatch"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/docstore"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/eventcollect"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/events"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/ledger"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/tasks"
)

// writeJSON encodes v as JSON to w, logging any errors at debug level.
// Errors here typically mean the client disconnected mid-response.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

// Options wires the server to its collaborators. Dispatcher is
// required; endpoints whose collaborator is nil answer 503.
type Options struct {
	Dispatcher *dispatch.Dispatcher
	Collector  *eventcollect.Collector
	Ledger     *ledger.Store
	Board      *tasks.Board
	Docs       docstore.Documents
	Bus        *events.Bus

	// Health reports completion backend reachability on /health.
	Health *backendwatch.Monitor

	// JWTSecret enables bearer authentication on /v1 routes.
	JWTSecret string
	RateLimit config.RateLimitConfig
}

// Server is the HTTP API server.
type Server struct {
	address string
	port    int

	dispatcher *dispatch.Dispatcher
	collector  *eventcollect.Collector
	ledger     *ledger.Store
	board      *tasks.Board
	docs       docstore.Documents
	bus        *events.Bus
	health     *backendwatch.Monitor

	jwtSecret []byte
	limiter   *familyLimiter
	closing   chan struct{}

	logger *slog.Logger

	mu     sync.Mutex
	server *http.Server
}

// NewServer creates a new API server.
func NewServer(address string, port int, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		address:    address,
		port:       port,
		dispatcher: opts.Dispatcher,
		collector:  opts.Collector,
		ledger:     opts.Ledger,
		board:      opts.Board,
		docs:       opts.Docs,
		bus:        opts.Bus,
		health:     opts.Health,
		limiter:    newFamilyLimiter(opts.RateLimit),
		closing:    make(chan struct{}),
		logger:     logger.With("component", "api"),
	}
	if opts.JWTSecret != "" {
		s.jwtSecret = []byte(opts.JWTSecret)
	}
	return s
}

// Handler returns the routing tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.withLogging)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/version", s.handleVersion)

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.authenticate)

		r.Post("/actions", s.handleAction)
		r.Post("/actions/classify", s.handleClassify)

		r.Get("/events/stream", s.handleStream)
		r.Get("/events/sessions/{id}", s.handleSessionPrompt)
		r.Post("/events/sessions/{id}/reply", s.handleSessionReply)

		r.Post("/feedback", s.handleFeedback)
		r.Get("/feedback/stats", s.handleFeedbackStats)

		r.Get("/stats", s.handleStats)
		r.Post("/stats/reset", s.handleStatsReset)
		r.Get("/stats/{kind}", s.handleKindStats)
		r.Get("/stats/{kind}/patterns", s.handleKindPatterns)

		r.Get("/audit", s.handleAudit)
		r.Get("/audit/{requestId}", s.handleExplain)
		r.Get("/diagnostics", s.handleDiagnostics)

		r.Route("/families/{familyId}", func(r chi.Router) {
			r.Use(s.familyScope)
			r.Get("/providers.vcf", s.handleProvidersVCard)
			r.Get("/balance", s.handleBalance)
			r.Get("/priorities", s.handlePriorities)
			r.Get("/completion", s.handleCompletion)
		})
	})
	return r
}

// Start begins serving HTTP requests. It blocks until the server stops.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.address, s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	s.mu.Lock()
	select {
	case <-s.closing:
		s.mu.Unlock()
		return nil
	default:
	}
	s.server = srv
	s.mu.Unlock()

	addr := s.address
	if addr == "" {
		addr = "0.0.0.0"
	}
	s.logger.Info("starting API server", "address", addr, "port", s.port)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server and ends open streams.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	select {
	case <-s.closing:
	default:
		close(s.closing)
	}
	srv := s.server
	s.mu.Unlock()

	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
			"duration", time.Since(start),
		)
	})
}

func (s *Server) errorResponse(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	writeJSON(w, map[string]any{
		"error": map[string]any{
			"message": message,
			"code":    code,
		},
	}, s.logger)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, buildinfo.Info(), s.logger)
}

// healthResponse is the /health body. The status code is always 200;
// Status is "degraded" while any watched backend is unreachable.
type healthResponse struct {
	Status   string                `json:"status"`
	Backends []backendwatch.Status `json:"backends,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "healthy", Backends: s.health.Status()}
	if !s.health.Healthy() {
		resp.Status = "degraded"
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, resp, s.logger)
}

// queryLimit reads a positive ?limit=, or def.
func queryLimit(r *http.Request, def int) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			return parsed
		}
	}
	return def
}
