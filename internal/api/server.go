package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gaming-advisor/internal/common/config"
	"gaming-advisor/internal/common/logger"
	"gaming-advisor/internal/common/observability"
)

// Server is the HTTP front of the service.
type Server struct {
	httpServer *http.Server
	log        logger.Logger
}

// NewServer builds the router and wraps it with request-id, logging and
// observability middleware.
func NewServer(cfg config.ServerConfig, handler *Handler, obs *observability.Observability, log logger.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /recommendations/{userId}", handler.GetRecommendations)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	var root http.Handler = mux
	root = requestLogging(root, obs, log)
	root = requestID(root)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      root,
			ReadTimeout:  config.GetDuration(cfg.ReadTimeout),
			WriteTimeout: config.GetDuration(cfg.WriteTimeout),
		},
		log: log,
	}
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("http server listening", map[string]interface{}{
		"addr": s.httpServer.Addr,
	})

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the fully wrapped router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

type requestIDKey struct{}

// requestID tags every request with a uuid, honoring an inbound header.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFromContext returns the request id, or "" outside a request.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// requestLogging logs each request and records it on the OTel meter.
func requestLogging(next http.Handler, obs *observability.Observability, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		duration := time.Since(start)
		if obs != nil {
			obs.RecordRequest(r.Context(), r.URL.Path, fmt.Sprintf("%d", recorder.status))
			obs.RecordRequestDuration(r.Context(), r.URL.Path, duration)
		}

		log.Info("request handled", map[string]interface{}{
			"request_id": RequestIDFromContext(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     recorder.status,
			"duration":   duration.String(),
		})
	})
}
