package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	feedPagesTotal *prometheus.CounterVec
	feedPageSize   *prometheus.HistogramVec
	bookmarkTotal  *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsreel",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "newsreel",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "newsreel",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	feedPagesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsreel",
			Subsystem: "feed",
			Name:      "pages_total",
			Help:      "Total feed pages served by category filter.",
		},
		[]string{"service", "category"},
	)
	feedPageSize := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "newsreel",
			Subsystem: "feed",
			Name:      "page_entries",
			Help:      "Distribution of entries per served feed page.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		},
		[]string{"service"},
	)
	bookmarkTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsreel",
			Subsystem: "bookmarks",
			Name:      "operations_total",
			Help:      "Total bookmark operations by action.",
		},
		[]string{"service", "action"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		feedPagesTotal,
		feedPageSize,
		bookmarkTotal,
	)

	return &HTTPServerMetrics{
		registry:        registry,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestInFlight: requestInFlight,
		feedPagesTotal:  feedPagesTotal,
		feedPageSize:    feedPageSize,
		bookmarkTotal:   bookmarkTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath collapses IDs out of paths so metric cardinality stays
// bounded.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/articles/"):
		return "/v1/articles/{id}"
	case strings.HasPrefix(path, "/v1/users/"):
		rest := strings.TrimPrefix(path, "/v1/users/")
		if idx := strings.Index(rest, "/"); idx >= 0 {
			if strings.Contains(rest[idx:], "/saved/") {
				return "/v1/users/{user_id}/saved/{article_id}"
			}
			return "/v1/users/{user_id}/saved"
		}
		return "/v1/users/{user_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordFeedPage(service, category string, entries int) {
	if category == "" {
		category = "all"
	}
	m.feedPagesTotal.WithLabelValues(service, category).Inc()
	m.feedPageSize.WithLabelValues(service).Observe(float64(entries))
}

func (m *HTTPServerMetrics) RecordBookmark(service, action string) {
	m.bookmarkTotal.WithLabelValues(service, action).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
