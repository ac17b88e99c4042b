// Package api serves the operational HTTP endpoints of the worker manager:
// liveness and readiness checks, Prometheus metrics and read-only completion tooling.
package api

import (
	"context"
	"net/http"
	"time"

	"cif-onboarding/internal/common/logger"
	"cif-onboarding/internal/completion"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	requestTimeout = 30 * time.Second
	checkTimeout   = 2 * time.Second
	maxBodyBytes   = 1 << 20
)

// Check is a named readiness check.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

type Deps struct {
	Calculator *completion.Calculator
	Checks     []Check
	Logger     logger.Logger
	// Metrics defaults to the Prometheus default registry handler.
	Metrics http.Handler
}

type Server struct {
	calculator *completion.Calculator
	checks     []Check
	logger     logger.Logger
}

// NewRouter builds the chi router with every route mounted.
func NewRouter(deps Deps) http.Handler {
	s := &Server{
		calculator: deps.Calculator,
		checks:     deps.Checks,
		logger:     deps.Logger,
	}
	if s.calculator == nil {
		s.calculator = completion.NewCalculator(nil)
	}
	if s.logger == nil {
		s.logger = logger.NewNoOpLogger()
	}
	metricsHandler := deps.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/registry", s.handleRegistry)
		r.Post("/completion", s.handleCompletion)
		r.Post("/flatten", s.handleFlatten)
	})

	return r
}

// requestLogger logs one line per request through the structured logger.
func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			fields := map[string]interface{}{
				"requestId":  middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"durationMs": time.Since(start).Milliseconds(),
			}
			if ww.Status() >= http.StatusInternalServerError {
				log.Warn("http request", fields)
				return
			}
			log.Debug("http request", fields)
		})
	}
}
