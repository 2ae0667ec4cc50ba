package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/jonny/kube-actions/internal/adapter/inbound/api/middleware"
	"github.com/jonny/kube-actions/pkg/apierror"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int
	BasePath        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	// AuthToken enables bearer authentication when non-empty.
	AuthToken    string
	MaxBodyBytes int64
	RateLimit    *middleware.RateLimitConfig
}

// Server wraps an HTTP server with graceful shutdown support.
type Server struct {
	cfg     ServerConfig
	handler *Handler
	logger  *slog.Logger
	srv     *http.Server
}

// NewServer creates a new Server with the given config and handler.
func NewServer(cfg ServerConfig, handler *Handler, logger *slog.Logger) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
	}
}

// SetupRoutes builds and returns an http.Handler with all middleware applied.
// Route layout, relative to BasePath:
//
//	GET  /health            - Liveness, never authenticated
//	POST /execute           - Run a named action
//	POST /apply             - Apply a manifest
//	GET  /resources/{type}  - List resource names
//	GET  /executions        - Audit trail
//	GET  /executions/{id}   - Single audit record
func (s *Server) SetupRoutes() http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Metrics)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		apierror.Write(w, apierror.NotFound("route"))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		apierror.Write(w, apierror.New(http.StatusMethodNotAllowed, "method not allowed"))
	})

	// Full paths on the root router: routes on a PathPrefix subrouter drop
	// the method mismatch and answer 404 where 405 is due.
	route := func(path string) string { return s.cfg.BasePath + path }

	var protect []func(http.Handler) http.Handler
	if s.cfg.RateLimit != nil {
		protect = append(protect, middleware.NewRateLimiter(*s.cfg.RateLimit))
	}
	if s.cfg.AuthToken != "" {
		protect = append(protect, middleware.BearerAuth(s.cfg.AuthToken))
	}
	protect = append(protect, middleware.MaxBodyBytes(s.cfg.MaxBodyBytes))
	guarded := func(h http.HandlerFunc) http.Handler {
		var out http.Handler = h
		for i := len(protect) - 1; i >= 0; i-- {
			out = protect[i](out)
		}
		return out
	}

	r.Handle(route("/health"), http.HandlerFunc(s.handler.Health)).Methods(http.MethodGet)
	r.Handle(route("/execute"), guarded(s.handler.Execute)).Methods(http.MethodPost)
	r.Handle(route("/apply"), guarded(s.handler.Apply)).Methods(http.MethodPost)
	r.Handle(route("/resources/{type}"), guarded(s.handler.ListResources)).Methods(http.MethodGet)
	r.Handle(route("/executions"), guarded(s.handler.ListExecutions)).Methods(http.MethodGet)
	r.Handle(route("/executions/{id}"), guarded(s.handler.GetExecution)).Methods(http.MethodGet)

	// Middleware stack (outermost = first to execute):
	//   CORS -> RequestID -> Logging -> router
	var h http.Handler = r
	h = middleware.NewLoggingMiddleware(s.logger)(h)
	h = middleware.RequestID(h)
	h = cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}).Handler(h)

	return h
}

// Start starts the HTTP server and blocks until ctx is cancelled, then performs
// a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.SetupRoutes(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api server listening", "port", s.cfg.Port, "base_path", s.cfg.BasePath)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api server shutdown error: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
