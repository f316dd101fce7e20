// Package api exposes the funnel wizard and the admin dashboard over HTTP.
package api

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tulipai-funnel/internal/admin"
	"tulipai-funnel/internal/common/logger"
	"tulipai-funnel/internal/common/metrics"
	"tulipai-funnel/internal/models"
	"tulipai-funnel/internal/submission"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AdminService is implemented by admin.Service.
type AdminService interface {
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error)
	Get(ctx context.Context, id string) (*models.Submission, error)
	UpdateStatus(ctx context.Context, id string, status models.SubmissionStatus) (*models.Submission, error)
	SaveQuote(ctx context.Context, id, quote string) (*models.Submission, error)
	SaveNotes(ctx context.Context, id, notes string) (*models.Submission, error)
	GenerateQuote(ctx context.Context, id string, force bool) (*models.Submission, error)
	RegenerateProposal(ctx context.Context, id, brief string) (*models.Submission, error)
	SendQuote(ctx context.Context, id string, req admin.SendQuoteRequest) (*models.Submission, error)
	Delete(ctx context.Context, id string) error
	Pipeline(ctx context.Context) (*admin.Pipeline, error)
	Analytics(ctx context.Context, filter submission.AnalyticsFilter) (*submission.Analytics, error)
}

// ReadinessCheck reports whether a backing service is reachable.
type ReadinessCheck func(ctx context.Context) error

type Options struct {
	AdminToken string
	// Checks run on /ready, keyed by dependency name.
	Checks map[string]ReadinessCheck
}

type Server struct {
	sessions *Sessions
	admin    AdminService
	opts     Options
	logger   logger.Logger
}

func NewServer(sessions *Sessions, adminSvc AdminService, opts Options, log logger.Logger) *Server {
	return &Server{
		sessions: sessions,
		admin:    adminSvc,
		opts:     opts,
		logger:   log.WithFields(map[string]interface{}{"component": "http"}),
	}
}

// Routes returns the full router: ops endpoints, funnel and admin APIs.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.recoverer)
	r.Use(s.instrument)

	r.Get("/health", s.health)
	r.Get("/ready", s.ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Mount("/api/funnel", s.funnelRoutes())
	if s.admin != nil {
		r.Mount("/api/admin", s.adminRoutes())
	}
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	failed := map[string]string{}
	for name, check := range s.opts.Checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		s.logger.Warn("readiness check failed", map[string]interface{}{"failed": failed})
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "not_ready",
			"failed": failed,
			"time":   time.Now().Format(time.RFC3339),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// instrument records request counts and latency by route pattern, and logs
// every request at debug level.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		metrics.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(elapsed.Seconds())

		s.logger.Debug("request handled", map[string]interface{}{
			"method":     r.Method,
			"route":      route,
			"status":     status,
			"durationMs": elapsed.Milliseconds(),
			"requestId":  middleware.GetReqID(r.Context()),
		})
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error("panic in handler", map[string]interface{}{
					"panic":     fmt.Sprint(rec),
					"path":      r.URL.Path,
					"requestId": middleware.GetReqID(r.Context()),
				})
				s.writeError(w, r, fmt.Errorf("panic: %v", rec))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requireToken guards the admin API with a static bearer token. An empty
// token rejects every request.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const prefix = "Bearer "
		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, prefix)
		if s.opts.AdminToken == "" || !strings.HasPrefix(header, prefix) ||
			subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.AdminToken)) != 1 {
			s.writeError(w, r, fmt.Errorf("%w: missing or invalid admin token", errUnauthorized))
			return
		}
		next.ServeHTTP(w, r)
	})
}
