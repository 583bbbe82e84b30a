package http

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"fibtrivia/internal/app"
	"fibtrivia/internal/config"
	"fibtrivia/internal/transport/ws"
)

// Server represents the HTTP server
type Server struct {
	server *http.Server
	hub    *app.GameHub
	config *config.Config
	logger *slog.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, hub *app.GameHub, logger *slog.Logger) *Server {
	s := &Server{
		hub:    hub,
		config: cfg,
		logger: logger,
	}

	// Set up routes
	router := httprouter.New()
	s.setupRoutes(router)

	s.server = &http.Server{
		Addr:              cfg.GetAddr(),
		Handler:           s.middleware(router),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Handler returns the routed handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(router *httprouter.Router) {
	// API routes
	router.GET("/api/health", s.handleHealth)
	router.GET("/api/stats", s.handleStats)
	router.GET("/api/rooms/:roomCode", s.handleGetRoom)
	router.GET("/api/rooms/:roomCode/qr", s.handleRoomQR)

	// WebSocket
	router.Handler(http.MethodGet, "/ws", ws.NewHandler(s.hub, s.logger))

	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v interface{}) {
		s.logger.Error("handler panic", "path", r.URL.Path, "panic", v)
		s.sendError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

// middleware wraps the handler with logging and other middleware
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Add CORS headers
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		// Handle preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		// Wrap response writer to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		level := slog.LevelDebug
		if s.config.IsDevelopment() || wrapped.statusCode >= http.StatusInternalServerError {
			level = slog.LevelInfo
		}
		s.logger.Log(r.Context(), level, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", time.Since(start),
		)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("server starting", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	return s.server.Shutdown(ctx)
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack implements http.Hijacker for WebSocket support
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

// Flush implements http.Flusher
func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
