// Package http implements the HTTP API server for lanterm.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/brianly1003/lanterm/internal/archive"
	"github.com/brianly1003/lanterm/internal/audit"
	"github.com/brianly1003/lanterm/internal/domain/ports"
	"github.com/brianly1003/lanterm/internal/files"
	"github.com/brianly1003/lanterm/internal/pairing"
	"github.com/brianly1003/lanterm/internal/security"
	"github.com/brianly1003/lanterm/internal/server/http/middleware"
	"github.com/brianly1003/lanterm/internal/session"
	"github.com/brianly1003/lanterm/internal/terminal"
)

// DefaultMaxUploadSize applies when no upload limit is configured.
const DefaultMaxUploadSize = 100 * 1024 * 1024

// Deps are the components the API exposes. Journal, QR, Publisher and
// ExecLimiter are optional.
type Deps struct {
	Files       *files.Store
	Archives    *archive.Inspector
	Sessions    *session.Manager
	Git         ports.GitWorkflow
	Runner      *terminal.Runner
	Journal     *audit.Journal
	QR          *pairing.QRGenerator
	Publisher   ports.EventPublisher
	Origins     *security.OriginChecker
	ExecLimiter *middleware.RateLimiter
}

// Server is the HTTP API server.
type Server struct {
	addr   string
	deps   Deps
	router *mux.Router

	uploadLimit atomic.Int64
	streamLimit atomic.Int64

	mu        sync.Mutex
	server    *http.Server
	listener  net.Listener
	served    chan error
	wsHandler http.Handler
}

// New creates a new HTTP server.
func New(host string, port int, deps Deps) *Server {
	if deps.Origins == nil {
		deps.Origins = security.NewOriginChecker(nil)
	}
	s := &Server{
		addr: net.JoinHostPort(host, fmt.Sprint(port)),
		deps: deps,
	}
	s.uploadLimit.Store(DefaultMaxUploadSize)
	s.setupRoutes()
	return s
}

// setupRoutes configures the HTTP routes.
func (s *Server) setupRoutes() {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.handleHealth).Methods("GET")
	router.HandleFunc("/ws", s.handleWebSocket).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()

	// Files
	api.HandleFunc("/files", s.handleListFiles).Methods("GET")
	api.HandleFunc("/files", s.handleDeleteFile).Methods("DELETE")
	api.HandleFunc("/files/content", s.handleReadFile).Methods("GET")
	api.HandleFunc("/files/content", s.handleWriteFile).Methods("PUT")
	api.HandleFunc("/files/upload", s.handleUpload).Methods("POST")
	api.HandleFunc("/files/stream", s.handleStreamUpload).Methods("PUT")
	api.HandleFunc("/files/mkdir", s.handleMkdir).Methods("POST")
	api.HandleFunc("/files/rename", s.handleRename).Methods("POST")
	api.HandleFunc("/files/copy", s.handleCopy).Methods("POST")
	api.HandleFunc("/files/move", s.handleMove).Methods("POST")

	// Archives
	api.HandleFunc("/archive/entries", s.handleArchiveEntries).Methods("GET")
	api.HandleFunc("/archive/extract", s.handleArchiveExtract).Methods("POST")

	// Terminal sessions
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions", s.handleTerminateSessions).Methods("DELETE")
	api.HandleFunc("/sessions/{id}", s.handleTerminateSession).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/history", s.handleSessionHistory).Methods("GET")

	// Git
	api.HandleFunc("/git/info", s.handleGitInfo).Methods("GET")
	api.HandleFunc("/git/status", s.handleGitStatus).Methods("GET")
	api.HandleFunc("/git/commits", s.handleGitCommits).Methods("GET")
	api.HandleFunc("/git/init", s.handleGitInit).Methods("POST")
	api.HandleFunc("/git/reset", s.handleGitReset).Methods("POST")
	api.HandleFunc("/git/revert", s.handleGitRevert).Methods("POST")

	// Commands
	var execHandler http.Handler = http.HandlerFunc(s.handleExec)
	if s.deps.ExecLimiter != nil {
		execHandler = middleware.RateLimitMiddleware(s.deps.ExecLimiter, middleware.IPKeyExtractor)(execHandler)
	}
	api.Handle("/exec", execHandler).Methods("POST")

	api.HandleFunc("/audit", s.handleAudit).Methods("GET")
	api.HandleFunc("/qr", s.handleQR).Methods("GET")

	// Swagger UI endpoint (REST API docs)
	router.PathPrefix("/swagger/").Handler(httpSwagger.Handler(
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("none"),
		httpSwagger.DomID("swagger-ui"),
	))

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "route not found", Code: "NOT_FOUND"})
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed", Code: "METHOD_NOT_ALLOWED"})
	})

	s.router = router
}

// SetWebSocketHandler sets the handler for terminal WebSocket connections.
func (s *Server) SetWebSocketHandler(handler http.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wsHandler = handler
}

// SetUploadLimit changes the upload size limit. Non-positive values select
// DefaultMaxUploadSize.
func (s *Server) SetUploadLimit(n int64) {
	if n <= 0 {
		n = DefaultMaxUploadSize
	}
	s.uploadLimit.Store(n)
}

// UploadLimit returns the current upload size limit.
func (s *Server) UploadLimit() int64 {
	return s.uploadLimit.Load()
}

// SetStreamUploadLimit changes the limit for raw stream uploads.
// Non-positive values mean unbounded.
func (s *Server) SetStreamUploadLimit(n int64) {
	if n < 0 {
		n = 0
	}
	s.streamLimit.Store(n)
}

// StreamUploadLimit returns the raw stream upload limit; 0 is unbounded.
func (s *Server) StreamUploadLimit() int64 {
	return s.streamLimit.Load()
}

// Handler returns the router wrapped in the middleware chain:
// request -> logging -> cors -> router.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.router
	handler = s.corsMiddleware(handler)
	handler = requestLoggingMiddleware(handler)
	return handler
}

// Start binds the listen address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		// No ReadTimeout/WriteTimeout: uploads, command output and
		// WebSocket connections are long-lived.
	}

	served := make(chan error, 1)

	s.mu.Lock()
	s.server = srv
	s.listener = ln
	s.served = served
	s.mu.Unlock()

	log.Info().Str("addr", ln.Addr().String()).Msg("HTTP server starting")

	go func() {
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		if err != nil {
			log.Error().Err(err).Msg("HTTP server error")
		}
		served <- err
		close(served)
	}()
	return nil
}

// Wait blocks until the server stops serving. It returns nil after a
// graceful Stop and the serve error otherwise.
func (s *Server) Wait() error {
	s.mu.Lock()
	served := s.served
	s.mu.Unlock()
	if served == nil {
		return nil
	}
	return <-served
}

// Addr returns the bound address once started, otherwise the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	log.Info().Msg("HTTP server stopping")
	return srv.Shutdown(ctx)
}

// handleWebSocket forwards /ws to the terminal transport.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	handler := s.wsHandler
	s.mu.Unlock()
	if handler == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "terminal transport not configured", Code: "UNAVAILABLE"})
		return
	}
	log.Debug().
		Str("remote_addr", r.RemoteAddr).
		Str("origin", r.Header.Get("Origin")).
		Msg("WebSocket upgrade request received at /ws")
	handler.ServeHTTP(w, r)
}

// handleHealth handles GET /health
//
//	@Summary		Health check
//	@Description	Returns the health status of the daemon
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Router			/health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	}
	if s.deps.Sessions != nil {
		resp.Sessions = s.deps.Sessions.Count()
	}
	writeJSON(w, http.StatusOK, resp)
}

// requestLoggingMiddleware logs all incoming requests.
func requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Str("user_agent", r.UserAgent()).
			Msg("incoming request")

		next.ServeHTTP(w, r)

		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("request completed")
	})
}

// corsMiddleware rejects cross-origin requests from origins the checker does
// not allow and answers preflight requests.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			if !s.deps.Origins.CheckOrigin(r) {
				log.Warn().
					Str("origin", origin).
					Str("remote", r.RemoteAddr).
					Msg("CORS request rejected - origin not allowed")
				writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "origin not allowed", Code: "ORIGIN_FORBIDDEN"})
				return
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Expose-Headers", "X-Exit-Code, Retry-After")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
