package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
)

// responseWriter captures the status code for metrics.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// HTTPMetrics counts requests served by a control surface.
type HTTPMetrics struct {
	requestsTotal *prometheus.CounterVec
}

// NewHTTPMetrics registers request counters on the registry of m.
func NewHTTPMetrics(m *Metrics) *HTTPMetrics {
	h := &HTTPMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "camcorder_http_requests_total",
			Help: "Total number of control requests by status class",
		}, []string{"method", "class"}),
	}
	m.registry.MustRegister(h.requestsTotal)
	return h
}

// RequestMiddleware returns chi-compatible middleware that counts requests
// by method and status class.
func RequestMiddleware(h *HTTPMetrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrap := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrap, r)
			h.requestsTotal.WithLabelValues(r.Method, statusClass(wrap.status)).Inc()
		})
	}
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
