package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mkvend/vendbot/internal/pkg/logging"
)

// Metrics holds the HTTP RED instruments, registered in main and injected.
type Metrics struct {
	Requests *prometheus.CounterVec   // {method, route, status}
	Duration *prometheus.HistogramVec // {method, route}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withRequestLogger injects a request-scoped logger so downstream use cases
// log with the request id attached.
func (h *Handler) withRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := h.log
		if reqID := r.Header.Get("X-Request-ID"); reqID != "" {
			logger = logger.With(zap.String("request_id", reqID))
		}
		ctx := logging.ContextWithLogger(r.Context(), logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withObservability writes one access log line and records RED metrics per
// request, labeled with the low-cardinality route template.
func (h *Handler) withObservability(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}

		if h.metrics != nil {
			if h.metrics.Requests != nil {
				h.metrics.Requests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
			}
			if h.metrics.Duration != nil {
				h.metrics.Duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
			}
		}

		logging.FromContextOr(r.Context(), h.log).Info("http_access",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// requireAdmin gates the admin subtree on the configured admin identity.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.Header.Get("X-Admin-ID"), 10, 64)
		if err != nil || !h.admin.Authorize(id) {
			writeError(w, http.StatusForbidden, errForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
